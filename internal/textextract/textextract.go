// Package textextract turns uploaded receipt blobs into raw text.
//
// PDFs use the document's text layer directly via go-fitz; rasterizing pages
// and OCRing them was considered and rejected, since receipts exported as PDF
// almost always carry a text layer and the direct read is both faster and
// deterministic. Images go through Tesseract OCR.
package textextract

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/gen2brain/go-fitz"
	"github.com/otiai10/gosseract/v2"
)

// Adapter extracts text from the supported upload formats: pdf, jpg, jpeg,
// png and txt. The zero value is ready to use.
type Adapter struct{}

// ExtractText dispatches on the file type tag supplied by the caller.
func (a *Adapter) ExtractText(data []byte, fileType string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(fileType)) {
	case "pdf":
		return a.pdfText(data)
	case "jpg", "jpeg", "png":
		return a.imageText(data)
	case "txt":
		return a.plainText(data)
	default:
		return "", fmt.Errorf("textextract: unsupported file type %q (supported: pdf, jpg, jpeg, png, txt)", fileType)
	}
}

// pdfText reads the text layer of every page.
func (a *Adapter) pdfText(data []byte) (string, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return "", fmt.Errorf("textextract: open pdf: %w", err)
	}
	defer doc.Close()

	var b strings.Builder
	for i := 0; i < doc.NumPage(); i++ {
		pageText, err := doc.Text(i)
		if err != nil {
			return "", fmt.Errorf("textextract: read pdf page %d: %w", i+1, err)
		}
		if pageText != "" {
			b.WriteString(pageText)
			b.WriteString("\n")
		}
	}

	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", fmt.Errorf("textextract: no text layer found in pdf")
	}
	return text, nil
}

// imageText runs Tesseract over the image bytes.
func (a *Adapter) imageText(data []byte) (string, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("textextract: load image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("textextract: ocr image: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// plainText decodes txt uploads, tolerating invalid UTF-8 the same way the
// rest of the pipeline does: keep what is readable.
func (a *Adapter) plainText(data []byte) (string, error) {
	if utf8.Valid(data) {
		return strings.TrimSpace(string(data)), nil
	}
	return strings.TrimSpace(strings.ToValidUTF8(string(data), "")), nil
}
