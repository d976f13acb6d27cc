package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/dvloznov/receipt-ledger/internal/domain"
	"github.com/dvloznov/receipt-ledger/internal/logger"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

// maxOutputTokens bounds the model reply; receipts fit comfortably.
const maxOutputTokens = 2000

// samplingTemperature keeps the extraction near-deterministic.
const samplingTemperature = 0.1

// Input is one receipt to process. Callers supply either FileBytes+FileType
// or Text; the HTTP layer enforces that upstream.
type Input struct {
	FileBytes []byte
	Text      string
	FileType  string // "pdf", "jpg", "jpeg", "png" or "txt"; empty for pasted text
}

// TextExtractor turns an uploaded blob into raw text.
type TextExtractor interface {
	ExtractText(data []byte, fileType string) (string, error)
}

// Extractor sends receipt text (and, for images, the raw bytes) to Gemini
// and validates the reply. One call, one outcome: any failure along the way
// degrades to the all-default extraction rather than being retried.
type Extractor struct {
	client *genai.Client
	model  string
	text   TextExtractor
}

// NewExtractor creates the extractor with a process-lifetime genai client.
func NewExtractor(ctx context.Context, model string, text TextExtractor) (*Extractor, error) {
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewExtractor: create genai client: %w", err)
	}
	return &Extractor{
		client: client,
		model:  model,
		text:   text,
	}, nil
}

// Extract processes one receipt. It always returns a well-formed extraction
// and the raw text that was read from the input; when err is non-nil the
// extraction is the all-default shape carrying that text as its description.
// Log events go to the context logger, so they carry whatever request or
// batch fields the caller attached.
func (e *Extractor) Extract(ctx context.Context, in Input) (domain.ReceiptExtraction, string, error) {
	log := logger.FromContext(ctx)
	extractedText := in.Text

	if len(in.FileBytes) > 0 && in.FileType != "" {
		text, err := e.text.ExtractText(in.FileBytes, in.FileType)
		if err != nil {
			log.Error().Err(err).Str("file_type", in.FileType).Msg("Text extraction failed")
			return domain.DefaultExtraction(extractedText), extractedText, fmt.Errorf("extract: read %s input: %w", in.FileType, err)
		}
		extractedText = text
	}

	parts := []*genai.Part{
		{Text: receiptPrompt + "\n\nExtracted Receipt Text:\n" + extractedText},
	}
	if mime := imageMIMEType(in.FileType); mime != "" && len(in.FileBytes) > 0 {
		// Attach the original image alongside the OCR text for accuracy.
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{
				MIMEType: mime,
				Data:     in.FileBytes,
			},
		})
	}

	contents := []*genai.Content{{Role: "user", Parts: parts}}
	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](samplingTemperature),
		MaxOutputTokens:  maxOutputTokens,
		ResponseMIMEType: "application/json",
	}

	resp, err := e.client.Models.GenerateContent(ctx, e.model, contents, config)
	if err != nil {
		log.Error().Err(err).Str("model", e.model).Msg("Model call failed")
		return domain.DefaultExtraction(extractedText), extractedText, fmt.Errorf("extract: generate content: %w", err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return domain.DefaultExtraction(extractedText), extractedText, fmt.Errorf("extract: empty response from model")
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(cleanModelJSON(rawText)), &parsed); err != nil {
		log.Error().Err(err).Msg("Model reply was not valid JSON")
		return domain.DefaultExtraction(extractedText), extractedText, fmt.Errorf("extract: unmarshal model reply: %w", err)
	}

	return Validate(parsed, extractedText), extractedText, nil
}

// imageMIMEType maps an image file type to its MIME type, or "" for
// non-image inputs.
func imageMIMEType(fileType string) string {
	switch strings.ToLower(fileType) {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	default:
		return ""
	}
}

// cleanModelJSON strips Markdown fences and surrounding junk if the model
// ignored the formatting instructions.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)

	// If there's still text around the JSON object, keep only from the
	// first '{' to the last '}'.
	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}

	return s
}
