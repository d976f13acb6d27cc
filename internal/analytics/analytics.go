// Package analytics holds the pure functions used for review triage and
// spend reporting. Everything here operates on in-memory transaction slices;
// nothing is persisted.
package analytics

import (
	"fmt"
	"sort"
	"time"

	"github.com/dvloznov/receipt-ledger/internal/domain"
)

// Quality score weights. Amount dominates because a wrong amount is the
// costliest mistake to let through review.
const (
	amountWeight   = 0.4
	categoryWeight = 0.3
	merchantWeight = 0.2
	dateWeight     = 0.1
)

// QualityScore is the weighted combination of the four per-field
// confidences, recomputed on every read and never stored.
func QualityScore(t domain.Transaction) float64 {
	return amountWeight*t.AmountConfidence +
		categoryWeight*t.CategoryConfidence +
		merchantWeight*t.MerchantConfidence +
		dateWeight*t.DateConfidence
}

// SpendingByCategory sums amounts per category, skipping transactions whose
// amount confidence falls below minConfidence.
func SpendingByCategory(txs []domain.Transaction, minConfidence float64) map[domain.Category]float64 {
	out := make(map[domain.Category]float64)
	for _, t := range txs {
		if t.AmountConfidence < minConfidence {
			continue
		}
		out[t.Category] += t.Amount
	}
	return out
}

// Questionable returns the transactions where any of the amount, category or
// merchant confidences is below threshold, ordered ascending by amount
// confidence so the least trusted records surface first.
func Questionable(txs []domain.Transaction, threshold float64) []domain.Transaction {
	var out []domain.Transaction
	for _, t := range txs {
		if t.AmountConfidence < threshold ||
			t.CategoryConfidence < threshold ||
			t.MerchantConfidence < threshold {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AmountConfidence < out[j].AmountConfidence
	})
	return out
}

// Timeframe selects the lookback window for spending analytics.
type Timeframe string

const (
	TimeframeWeek    Timeframe = "week"
	TimeframeMonth   Timeframe = "month"
	TimeframeQuarter Timeframe = "quarter"
)

// ParseTimeframe validates a timeframe string.
func ParseTimeframe(s string) (Timeframe, error) {
	switch Timeframe(s) {
	case TimeframeWeek, TimeframeMonth, TimeframeQuarter:
		return Timeframe(s), nil
	default:
		return "", fmt.Errorf("analytics: invalid timeframe %q (want week, month or quarter)", s)
	}
}

// window returns the lookback duration for the timeframe.
func (tf Timeframe) window() time.Duration {
	switch tf {
	case TimeframeWeek:
		return 7 * 24 * time.Hour
	case TimeframeQuarter:
		return 90 * 24 * time.Hour
	default:
		return 30 * 24 * time.Hour
	}
}

// MerchantSpend is one entry of the top-merchants ranking.
type MerchantSpend struct {
	Merchant string  `json:"merchant"`
	Amount   float64 `json:"amount"`
}

// SpendingSummary aggregates confidence-weighted spend for one timeframe.
type SpendingSummary struct {
	ByCategory map[domain.Category]float64 `json:"by_category"`
	ByMerchant []MerchantSpend             `json:"by_merchant"`
	Total      float64                     `json:"total"`
	Timeframe  Timeframe                   `json:"timeframe"`
}

// topMerchants caps the merchant ranking.
const topMerchants = 10

// SpendingAnalytics filters transactions to those dated within the
// timeframe's window ending at now, weights each amount by its amount
// confidence, and aggregates by category and by merchant (top ten,
// descending).
func SpendingAnalytics(txs []domain.Transaction, tf Timeframe, now time.Time) SpendingSummary {
	cutoff := now.Add(-tf.window())

	summary := SpendingSummary{
		ByCategory: make(map[domain.Category]float64),
		ByMerchant: []MerchantSpend{},
		Timeframe:  tf,
	}

	byMerchant := make(map[string]float64)
	for _, t := range txs {
		if t.Date.Before(cutoff) {
			continue
		}
		weighted := t.Amount * t.AmountConfidence
		summary.ByCategory[t.Category] += weighted
		byMerchant[t.Merchant] += weighted
		summary.Total += weighted
	}

	for m, amt := range byMerchant {
		summary.ByMerchant = append(summary.ByMerchant, MerchantSpend{Merchant: m, Amount: amt})
	}
	sort.SliceStable(summary.ByMerchant, func(i, j int) bool {
		return summary.ByMerchant[i].Amount > summary.ByMerchant[j].Amount
	})
	if len(summary.ByMerchant) > topMerchants {
		summary.ByMerchant = summary.ByMerchant[:topMerchants]
	}

	return summary
}
