// Package export renders transactions as an XLSX workbook for offline
// review and reporting.
package export

import (
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/dvloznov/receipt-ledger/internal/analytics"
	"github.com/dvloznov/receipt-ledger/internal/domain"
)

const (
	transactionsSheet = "Transactions"
	spendingSheet     = "Spending"
)

var transactionHeaders = []string{
	"ID", "Date", "Merchant", "Merchant Confidence",
	"Description", "Amount", "Amount Confidence",
	"Category", "Category Confidence", "Date Confidence",
	"Reconciled", "Quality Score",
}

// Workbook builds a two-sheet workbook: every transaction with its computed
// quality score, plus per-category spend totals. The caller owns closing the
// returned file.
func Workbook(txs []domain.Transaction) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", transactionsSheet); err != nil {
		return nil, fmt.Errorf("export: rename sheet: %w", err)
	}

	for col, h := range transactionHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("export: header cell: %w", err)
		}
		if err := f.SetCellValue(transactionsSheet, cell, h); err != nil {
			return nil, fmt.Errorf("export: write header: %w", err)
		}
	}

	for i, t := range txs {
		values := []interface{}{
			t.ID,
			t.Date.Format("2006-01-02"),
			t.Merchant,
			t.MerchantConfidence,
			t.Description,
			t.Amount,
			t.AmountConfidence,
			string(t.Category),
			t.CategoryConfidence,
			t.DateConfidence,
			t.IsReconciled,
			analytics.QualityScore(t),
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, fmt.Errorf("export: row cell: %w", err)
			}
			if err := f.SetCellValue(transactionsSheet, cell, v); err != nil {
				return nil, fmt.Errorf("export: write row %d: %w", i+1, err)
			}
		}
	}

	if err := writeSpendingSheet(f, txs); err != nil {
		return nil, err
	}

	return f, nil
}

func writeSpendingSheet(f *excelize.File, txs []domain.Transaction) error {
	if _, err := f.NewSheet(spendingSheet); err != nil {
		return fmt.Errorf("export: create spending sheet: %w", err)
	}

	if err := f.SetCellValue(spendingSheet, "A1", "Category"); err != nil {
		return fmt.Errorf("export: spending header: %w", err)
	}
	if err := f.SetCellValue(spendingSheet, "B1", "Total Amount"); err != nil {
		return fmt.Errorf("export: spending header: %w", err)
	}

	totals := analytics.SpendingByCategory(txs, 0)

	categories := make([]domain.Category, 0, len(totals))
	for c := range totals {
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool {
		return totals[categories[i]] > totals[categories[j]]
	})

	for i, c := range categories {
		row := i + 2
		if err := f.SetCellValue(spendingSheet, fmt.Sprintf("A%d", row), string(c)); err != nil {
			return fmt.Errorf("export: spending row: %w", err)
		}
		if err := f.SetCellValue(spendingSheet, fmt.Sprintf("B%d", row), totals[c]); err != nil {
			return fmt.Errorf("export: spending row: %w", err)
		}
	}

	return nil
}
