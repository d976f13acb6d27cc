package warehouse

import (
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"

	"github.com/dvloznov/receipt-ledger/internal/domain"
)

// TransactionRow mirrors the ledger.transactions schema.
type TransactionRow struct {
	ID string `bigquery:"id"` // REQUIRED

	Date time.Time `bigquery:"date"` // TIMESTAMP

	Merchant           string  `bigquery:"merchant"`
	MerchantConfidence float64 `bigquery:"merchant_confidence"`

	Description string `bigquery:"description"`

	Amount           float64 `bigquery:"amount"`
	AmountConfidence float64 `bigquery:"amount_confidence"`

	Category           string  `bigquery:"category"`
	CategoryConfidence float64 `bigquery:"category_confidence"`

	DateConfidence float64 `bigquery:"date_confidence"`

	IsReconciled bool `bigquery:"is_reconciled"`

	Metadata bigquery.NullJSON `bigquery:"metadata"` // NULLABLE, original nested extraction

	LastUpdated bigquery.NullTimestamp `bigquery:"last_updated"` // NULLABLE, set on category updates
}

// rowFromTransaction maps a domain transaction onto the warehouse schema.
// The nested extraction, when present, is carried as the metadata JSON.
func rowFromTransaction(t *domain.Transaction) (*TransactionRow, error) {
	row := &TransactionRow{
		ID:                 t.ID,
		Date:               t.Date,
		Merchant:           t.Merchant,
		MerchantConfidence: t.MerchantConfidence,
		Description:        t.Description,
		Amount:             t.Amount,
		AmountConfidence:   t.AmountConfidence,
		Category:           string(t.Category),
		CategoryConfidence: t.CategoryConfidence,
		DateConfidence:     t.DateConfidence,
		IsReconciled:       t.IsReconciled,
		Metadata:           bigquery.NullJSON{Valid: false},
	}

	if t.Metadata != nil {
		raw, err := json.Marshal(t.Metadata)
		if err != nil {
			return nil, fmt.Errorf("rowFromTransaction: marshal metadata: %w", err)
		}
		row.Metadata = bigquery.NullJSON{JSONVal: string(raw), Valid: true}
	}

	return row, nil
}

// transactionFromRow converts a warehouse row back into the domain shape.
// Unreadable metadata is dropped rather than failing the whole read.
func transactionFromRow(row *TransactionRow) domain.Transaction {
	cat, _ := domain.ParseCategory(row.Category)

	t := domain.Transaction{
		ID:                 row.ID,
		Date:               row.Date,
		Merchant:           row.Merchant,
		MerchantConfidence: row.MerchantConfidence,
		Description:        row.Description,
		Amount:             row.Amount,
		AmountConfidence:   row.AmountConfidence,
		Category:           cat,
		CategoryConfidence: row.CategoryConfidence,
		DateConfidence:     row.DateConfidence,
		IsReconciled:       row.IsReconciled,
	}

	if row.Metadata.Valid {
		var ex domain.ReceiptExtraction
		if err := json.Unmarshal([]byte(row.Metadata.JSONVal), &ex); err == nil {
			t.Metadata = &ex
		}
	}

	return t
}
