package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/dvloznov/receipt-ledger/internal/domain"
)

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestQualityScore(t *testing.T) {
	tests := []struct {
		name string
		tx   domain.Transaction
		want float64
	}{
		{
			name: "all confident",
			tx: domain.Transaction{
				AmountConfidence:   1,
				CategoryConfidence: 1,
				MerchantConfidence: 1,
				DateConfidence:     1,
			},
			want: 1.0,
		},
		{
			name: "all zero",
			tx:   domain.Transaction{},
			want: 0.0,
		},
		{
			name: "amount dominates",
			tx: domain.Transaction{
				AmountConfidence: 1,
			},
			want: 0.4,
		},
		{
			name: "mixed",
			tx: domain.Transaction{
				AmountConfidence:   0.5,
				CategoryConfidence: 1,
				MerchantConfidence: 0.5,
				DateConfidence:     0,
			},
			want: 0.4*0.5 + 0.3*1 + 0.2*0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := QualityScore(tt.tx); !approxEqual(got, tt.want) {
				t.Errorf("QualityScore() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSpendingByCategory(t *testing.T) {
	txs := []domain.Transaction{
		{Category: domain.CategoryMeals, Amount: 10, AmountConfidence: 0.9},
		{Category: domain.CategoryMeals, Amount: 20, AmountConfidence: 0.5},
		{Category: domain.CategoryTravel, Amount: 100, AmountConfidence: 0.95},
	}

	got := SpendingByCategory(txs, 0.7)

	if !approxEqual(got[domain.CategoryMeals], 10) {
		t.Errorf("Meals = %v, want 10 (low-confidence row excluded)", got[domain.CategoryMeals])
	}
	if !approxEqual(got[domain.CategoryTravel], 100) {
		t.Errorf("Travel = %v, want 100", got[domain.CategoryTravel])
	}
	if _, ok := got[domain.CategoryOffice]; ok {
		t.Error("Office should be absent, not zero")
	}
}

func TestQuestionable(t *testing.T) {
	txs := []domain.Transaction{
		{ID: "a", AmountConfidence: 0.9, CategoryConfidence: 0.9, MerchantConfidence: 0.9},
		{ID: "b", AmountConfidence: 0.3, CategoryConfidence: 0.9, MerchantConfidence: 0.9},
		{ID: "c", AmountConfidence: 0.9, CategoryConfidence: 0.2, MerchantConfidence: 0.9},
		{ID: "d", AmountConfidence: 0.1, CategoryConfidence: 0.9, MerchantConfidence: 0.9},
	}

	got := Questionable(txs, 0.5)

	if len(got) != 3 {
		t.Fatalf("flagged %d transactions, want 3", len(got))
	}
	// Ascending by amount confidence: d (0.1), b (0.3), c (0.9).
	wantOrder := []string{"d", "b", "c"}
	for i, want := range wantOrder {
		if got[i].ID != want {
			t.Errorf("position %d = %s, want %s", i, got[i].ID, want)
		}
	}
}

func TestQuestionable_DateConfidenceIgnored(t *testing.T) {
	txs := []domain.Transaction{
		{ID: "a", AmountConfidence: 0.9, CategoryConfidence: 0.9, MerchantConfidence: 0.9, DateConfidence: 0.1},
	}
	if got := Questionable(txs, 0.5); len(got) != 0 {
		t.Errorf("flagged %d transactions, want 0 (date confidence does not trigger review)", len(got))
	}
}

func TestParseTimeframe(t *testing.T) {
	for _, valid := range []string{"week", "month", "quarter"} {
		if _, err := ParseTimeframe(valid); err != nil {
			t.Errorf("ParseTimeframe(%q) unexpected error: %v", valid, err)
		}
	}
	for _, invalid := range []string{"", "year", "Month", "30d"} {
		if _, err := ParseTimeframe(invalid); err == nil {
			t.Errorf("ParseTimeframe(%q) expected error", invalid)
		}
	}
}

func TestSpendingAnalytics(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	txs := []domain.Transaction{
		{Merchant: "Cafe", Category: domain.CategoryMeals, Amount: 10, AmountConfidence: 1.0,
			Date: now.AddDate(0, 0, -1)},
		{Merchant: "Cafe", Category: domain.CategoryMeals, Amount: 20, AmountConfidence: 0.5,
			Date: now.AddDate(0, 0, -5)},
		{Merchant: "Airline", Category: domain.CategoryTravel, Amount: 300, AmountConfidence: 0.9,
			Date: now.AddDate(0, 0, -20)}, // outside the week window
	}

	got := SpendingAnalytics(txs, TimeframeWeek, now)

	// Weighted: 10*1.0 + 20*0.5 = 20, airline excluded by the window.
	if !approxEqual(got.Total, 20) {
		t.Errorf("Total = %v, want 20", got.Total)
	}
	if !approxEqual(got.ByCategory[domain.CategoryMeals], 20) {
		t.Errorf("Meals = %v, want 20", got.ByCategory[domain.CategoryMeals])
	}
	if _, ok := got.ByCategory[domain.CategoryTravel]; ok {
		t.Error("Travel should be outside the week window")
	}
	if len(got.ByMerchant) != 1 || got.ByMerchant[0].Merchant != "Cafe" {
		t.Errorf("ByMerchant = %+v, want single Cafe entry", got.ByMerchant)
	}

	// The quarter window picks up the airline and it tops the ranking.
	quarter := SpendingAnalytics(txs, TimeframeQuarter, now)
	if len(quarter.ByMerchant) != 2 || quarter.ByMerchant[0].Merchant != "Airline" {
		t.Errorf("quarter ByMerchant = %+v, want Airline first", quarter.ByMerchant)
	}
	if !approxEqual(quarter.Total, 20+300*0.9) {
		t.Errorf("quarter Total = %v, want %v", quarter.Total, 20+300*0.9)
	}
}

func TestSpendingAnalytics_TopMerchantsCapped(t *testing.T) {
	now := time.Now().UTC()
	var txs []domain.Transaction
	for i := 0; i < 15; i++ {
		txs = append(txs, domain.Transaction{
			Merchant:         string(rune('A' + i)),
			Category:         domain.CategoryOther,
			Amount:           float64(i + 1),
			AmountConfidence: 1.0,
			Date:             now.AddDate(0, 0, -1),
		})
	}

	got := SpendingAnalytics(txs, TimeframeMonth, now)

	if len(got.ByMerchant) != 10 {
		t.Fatalf("ByMerchant len = %d, want 10", len(got.ByMerchant))
	}
	if got.ByMerchant[0].Amount != 15 {
		t.Errorf("top merchant amount = %v, want 15 (descending order)", got.ByMerchant[0].Amount)
	}
}
