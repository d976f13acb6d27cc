package domain

// Field is a single extracted value paired with the confidence the model
// self-reported for it. Confidence is always within [0, 1] after validation;
// it is a triage signal, not a calibrated probability.
type Field[T any] struct {
	Value      T       `json:"value"`
	Confidence float64 `json:"confidence"`
}

// LineItem is one itemized entry on a receipt.
type LineItem struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Quantity    int     `json:"quantity"`
}

// ReceiptExtraction is the structured result of running a receipt through the
// model. It is ephemeral: held between extraction and user confirmation, then
// flattened into a Transaction on save (the nested shape is preserved as the
// transaction's metadata).
type ReceiptExtraction struct {
	Amount      Field[float64]  `json:"amount"`
	Merchant    Field[string]   `json:"merchant"`
	Date        Field[string]   `json:"date"`
	Category    Field[Category] `json:"category"`
	Description string          `json:"description"`
	LineItems   []LineItem      `json:"line_items"`
}

// DefaultExtraction returns the all-default extraction used both as the
// validator's starting point and as the single error shape when extraction
// fails entirely. The description carries the original input text so the
// user still sees what was read.
func DefaultExtraction(description string) ReceiptExtraction {
	return ReceiptExtraction{
		Amount:      Field[float64]{Value: 0, Confidence: 0},
		Merchant:    Field[string]{Value: "", Confidence: 0},
		Date:        Field[string]{Value: "", Confidence: 0},
		Category:    Field[Category]{Value: CategoryOther, Confidence: 0},
		Description: description,
		LineItems:   []LineItem{},
	}
}
