package domain

import (
	"time"
)

// Transaction is one confirmed receipt, flattened for the warehouse.
// Confidence fields are clamped to [0,1] by validation before the
// transaction is ever constructed; Category is always a member of the
// closed set. Transactions are created once per confirmed receipt and
// mutated only through category updates - there is no delete path.
type Transaction struct {
	ID                 string             `json:"id"`
	Date               time.Time          `json:"date"`
	Merchant           string             `json:"merchant"`
	MerchantConfidence float64            `json:"merchant_confidence"`
	Description        string             `json:"description"`
	Amount             float64            `json:"amount"`
	AmountConfidence   float64            `json:"amount_confidence"`
	Category           Category           `json:"category"`
	CategoryConfidence float64            `json:"category_confidence"`
	DateConfidence     float64            `json:"date_confidence"`
	IsReconciled       bool               `json:"is_reconciled"`
	Metadata           *ReceiptExtraction `json:"metadata,omitempty"`
}

// FlattenExtraction builds a Transaction from a confirmed (possibly
// user-edited) extraction. The original nested extraction rides along as
// metadata. An empty or unparseable date falls back to the current UTC time.
// Confidences are re-clamped here because edited extractions arrive from
// outside the validation pipeline.
func FlattenExtraction(ex ReceiptExtraction) Transaction {
	date := time.Now().UTC()
	if ex.Date.Value != "" {
		if d, err := time.Parse("2006-01-02", ex.Date.Value); err == nil {
			date = d
		}
	}

	meta := ex
	return Transaction{
		Date:               date,
		Merchant:           ex.Merchant.Value,
		MerchantConfidence: clamp01(ex.Merchant.Confidence),
		Description:        ex.Description,
		Amount:             ex.Amount.Value,
		AmountConfidence:   clamp01(ex.Amount.Confidence),
		Category:           ex.Category.Value,
		CategoryConfidence: clamp01(ex.Category.Confidence),
		DateConfidence:     clamp01(ex.Date.Confidence),
		Metadata:           &meta,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
