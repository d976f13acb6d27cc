package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/receipt-ledger/internal/analytics"
	"github.com/dvloznov/receipt-ledger/internal/api/middleware"
	"github.com/dvloznov/receipt-ledger/internal/archive"
	"github.com/dvloznov/receipt-ledger/internal/domain"
	"github.com/dvloznov/receipt-ledger/internal/export"
	"github.com/dvloznov/receipt-ledger/internal/extract"
	"github.com/dvloznov/receipt-ledger/internal/warehouse"
)

// maxUploadSize caps receipt uploads at 20 MiB.
const maxUploadSize = 20 << 20

// ReceiptExtractor is the extraction contract the receipts handler depends
// on; satisfied by extract.Extractor and mocked in tests.
type ReceiptExtractor interface {
	Extract(ctx context.Context, in extract.Input) (domain.ReceiptExtraction, string, error)
}

// ReceiptsHandler handles receipt upload and extraction.
type ReceiptsHandler struct {
	extractor ReceiptExtractor
	archive   *archive.Uploader
	log       zerolog.Logger
}

// NewReceiptsHandler creates a new receipts handler.
func NewReceiptsHandler(extractor ReceiptExtractor, uploader *archive.Uploader, log zerolog.Logger) *ReceiptsHandler {
	return &ReceiptsHandler{
		extractor: extractor,
		archive:   uploader,
		log:       log,
	}
}

// extractResponse is what the review form renders: the validated extraction,
// the raw text that was read, and an error message when the pipeline
// degraded to the default shape.
type extractResponse struct {
	Extraction domain.ReceiptExtraction `json:"extraction"`
	RawText    string                   `json:"raw_text"`
	ArchiveURI string                   `json:"archive_uri,omitempty"`
	Error      string                   `json:"error,omitempty"`
}

// ExtractReceipt handles POST /api/receipts/extract.
// File uploads arrive as multipart with a "file" part (pdf, jpg, jpeg, png,
// txt) and/or a "text" field; text-only requests may also be JSON or
// form-encoded. Extraction failures still return 200 with the default
// extraction and an error message - the UI shows a banner, the user can fix
// fields by hand.
func (h *ReceiptsHandler) ExtractReceipt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var in extract.Input
	var filename string

	contentType := r.Header.Get("Content-Type")
	switch {
	case strings.HasPrefix(contentType, "multipart/form-data"):
		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid multipart request")
			return
		}
		in.Text = r.FormValue("text")

		if file, header, err := r.FormFile("file"); err == nil {
			defer file.Close()

			data, err := io.ReadAll(io.LimitReader(file, maxUploadSize+1))
			if err != nil {
				middleware.WriteError(w, http.StatusBadRequest, "Failed to read uploaded file")
				return
			}
			if len(data) > maxUploadSize {
				middleware.WriteError(w, http.StatusRequestEntityTooLarge, "File exceeds the upload limit")
				return
			}

			fileType := strings.ToLower(strings.TrimPrefix(filepath.Ext(header.Filename), "."))
			switch fileType {
			case "pdf", "jpg", "jpeg", "png", "txt":
			default:
				middleware.WriteError(w, http.StatusBadRequest,
					fmt.Sprintf("Unsupported file type %q (supported: pdf, jpg, jpeg, png, txt)", fileType))
				return
			}

			in.FileBytes = data
			in.FileType = fileType
			filename = header.Filename
		}

	case strings.HasPrefix(contentType, "application/json"):
		var req struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		in.Text = req.Text

	default:
		if err := r.ParseForm(); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid form request")
			return
		}
		in.Text = r.FormValue("text")
	}

	if len(in.FileBytes) == 0 && strings.TrimSpace(in.Text) == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Upload a file or paste receipt text")
		return
	}

	resp := extractResponse{}

	if len(in.FileBytes) > 0 && h.archive.Enabled() {
		uri, err := h.archive.Archive(ctx, filename, mimeTypeFor(in.FileType), in.FileBytes)
		if err != nil {
			// Archiving never blocks extraction.
			h.log.Warn().Err(err).Str("filename", filename).Msg("Receipt archiving failed")
		} else {
			resp.ArchiveURI = uri
		}
	}

	extraction, rawText, err := h.extractor.Extract(ctx, in)
	resp.Extraction = extraction
	resp.RawText = rawText
	if err != nil {
		h.log.Error().Err(err).Msg("Receipt extraction degraded to defaults")
		resp.Error = "Receipt analysis failed; review and fill in the fields manually"
	}

	middleware.WriteJSON(w, http.StatusOK, resp)
}

func mimeTypeFor(fileType string) string {
	switch fileType {
	case "pdf":
		return "application/pdf"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	default:
		return "text/plain"
	}
}

// TransactionsHandler handles the persisted ledger.
type TransactionsHandler struct {
	store warehouse.Store
	log   zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(store warehouse.Store, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{
		store: store,
		log:   log,
	}
}

// transactionResponse is a Transaction plus its derived quality score.
type transactionResponse struct {
	domain.Transaction
	QualityScore float64 `json:"quality_score"`
}

// SaveTransaction handles POST /api/transactions.
// The body is the confirmed (possibly user-edited) extraction; it is
// flattened and persisted. Storage failures are surfaced - the record is
// not considered saved.
func (h *TransactionsHandler) SaveTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var ex domain.ReceiptExtraction
	if err := json.NewDecoder(r.Body).Decode(&ex); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if !domain.IsValidCategory(string(ex.Category.Value)) {
		middleware.WriteError(w, http.StatusBadRequest,
			fmt.Sprintf("Invalid category %q, must be one of %v", ex.Category.Value, domain.CategoryStrings()))
		return
	}

	tx := domain.FlattenExtraction(ex)

	id, err := h.store.Insert(ctx, &tx)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to save transaction")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to save transaction")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// ListTransactions handles GET /api/transactions.
// Each row carries its recomputed quality score. A failed warehouse read
// shows up here as an empty list, not an error.
func (h *TransactionsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := 100
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = parsed
	}

	txs := h.store.ListRecent(ctx, limit)

	out := make([]transactionResponse, 0, len(txs))
	for _, t := range txs {
		out = append(out, transactionResponse{
			Transaction:  t,
			QualityScore: analytics.QualityScore(t),
		})
	}

	middleware.WriteJSON(w, http.StatusOK, out)
}

// UpdateCategory handles POST /api/transactions/{id}/category.
func (h *TransactionsHandler) UpdateCategory(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()

	var req struct {
		Category   string   `json:"category"`
		Confidence *float64 `json:"confidence"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	category, ok := domain.ParseCategory(req.Category)
	if !ok {
		middleware.WriteError(w, http.StatusBadRequest,
			fmt.Sprintf("Invalid category %q, must be one of %v", req.Category, domain.CategoryStrings()))
		return
	}

	// A manual correction counts as full confidence unless stated otherwise.
	confidence := 1.0
	if req.Confidence != nil {
		confidence = *req.Confidence
	}

	if err := h.store.UpdateCategory(ctx, id, category, confidence); err != nil {
		h.log.Error().Err(err).Str("transaction_id", id).Msg("Failed to update category")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to update category")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"id":       id,
		"category": string(category),
		"status":   "updated",
	})
}

// ExportTransactions handles GET /api/transactions/export.
func (h *TransactionsHandler) ExportTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	txs := h.store.ListRecent(ctx, 1000)

	wb, err := export.Workbook(txs)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to build export workbook")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to export transactions")
		return
	}
	defer wb.Close()

	filename := fmt.Sprintf("transactions-%s.xlsx", time.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := wb.Write(w); err != nil {
		h.log.Error().Err(err).Msg("Failed to stream export workbook")
	}
}

// AnalyticsHandler serves spend summaries and review triage.
type AnalyticsHandler struct {
	store warehouse.Store
	log   zerolog.Logger
}

// NewAnalyticsHandler creates a new analytics handler.
func NewAnalyticsHandler(store warehouse.Store, log zerolog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		store: store,
		log:   log,
	}
}

// analyticsScanLimit is how many recent transactions feed the aggregates.
const analyticsScanLimit = 1000

// Spending handles GET /api/analytics/spending?timeframe=week|month|quarter.
func (h *AnalyticsHandler) Spending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	timeframe := r.URL.Query().Get("timeframe")
	if timeframe == "" {
		timeframe = string(analytics.TimeframeMonth)
	}
	tf, err := analytics.ParseTimeframe(timeframe)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	txs := h.store.ListRecent(ctx, analyticsScanLimit)
	summary := analytics.SpendingAnalytics(txs, tf, time.Now().UTC())

	middleware.WriteJSON(w, http.StatusOK, summary)
}

// Categories handles GET /api/analytics/categories?min_confidence=.
func (h *AnalyticsHandler) Categories(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	minConfidence := 0.7
	if s := r.URL.Query().Get("min_confidence"); s != "" {
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid min_confidence")
			return
		}
		minConfidence = parsed
	}

	txs := h.store.ListRecent(ctx, analyticsScanLimit)

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"min_confidence": minConfidence,
		"by_category":    analytics.SpendingByCategory(txs, minConfidence),
	})
}

// Questionable handles GET /api/analytics/questionable?threshold=.
func (h *AnalyticsHandler) Questionable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	threshold := 0.5
	if s := r.URL.Query().Get("threshold"); s != "" {
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid threshold")
			return
		}
		threshold = parsed
	}

	txs := h.store.ListRecent(ctx, analyticsScanLimit)
	flagged := analytics.Questionable(txs, threshold)

	out := make([]transactionResponse, 0, len(flagged))
	for _, t := range flagged {
		out = append(out, transactionResponse{
			Transaction:  t,
			QualityScore: analytics.QualityScore(t),
		})
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"threshold":    threshold,
		"transactions": out,
		"count":        len(out),
	})
}
