package extract

import (
	"strconv"
	"strings"
	"time"

	"github.com/dvloznov/receipt-ledger/internal/domain"
)

// Validate coerces an arbitrary decoded model reply into a well-formed
// extraction. Every top-level field is always present in the result, every
// confidence ends up in [0,1] and the category is always a member of the
// closed set. Validate never fails: a panic anywhere in the coercion chain
// yields the fully-default extraction instead.
//
// Field policies differ on purpose:
//   - amount/merchant keep a best-effort value even at low confidence;
//   - date is reject-don't-guess: anything that is not YYYY-MM-DD resets
//     both the value and its confidence;
//   - an unknown category is forced to Other but its confidence is kept
//     unchanged.
func Validate(raw map[string]interface{}, originalText string) (out domain.ReceiptExtraction) {
	out = domain.DefaultExtraction(originalText)

	defer func() {
		if r := recover(); r != nil {
			out = domain.DefaultExtraction(originalText)
		}
	}()

	if obj := fieldObject(raw, "amount"); obj != nil {
		if v, ok := coerceFloat(obj["value"]); ok {
			out.Amount.Value = v
		}
		out.Amount.Confidence = coerceConfidence(obj["confidence"])
	}

	if obj := fieldObject(raw, "merchant"); obj != nil {
		out.Merchant.Value = coerceString(obj["value"])
		out.Merchant.Confidence = coerceConfidence(obj["confidence"])
	}

	if obj := fieldObject(raw, "date"); obj != nil {
		dateStr := strings.TrimSpace(coerceString(obj["value"]))
		if _, err := time.Parse("2006-01-02", dateStr); err == nil {
			out.Date.Value = dateStr
			out.Date.Confidence = coerceConfidence(obj["confidence"])
		}
		// Unparseable dates leave the whole field at its default.
	}

	if obj := fieldObject(raw, "category"); obj != nil {
		cat, _ := domain.ParseCategory(coerceString(obj["value"]))
		out.Category.Value = cat
		out.Category.Confidence = coerceConfidence(obj["confidence"])
	}

	if items, ok := raw["line_items"].([]interface{}); ok {
		for _, item := range items {
			obj, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			li := domain.LineItem{
				Description: coerceString(obj["description"]),
				Quantity:    1,
			}
			if v, ok := coerceFloat(obj["amount"]); ok {
				li.Amount = v
			}
			if q, ok := coerceInt(obj["quantity"]); ok && q >= 1 {
				li.Quantity = q
			}
			out.LineItems = append(out.LineItems, li)
		}
	}

	return out
}

// fieldObject returns raw[key] as an object, or nil when the key is absent
// or has any other shape.
func fieldObject(m map[string]interface{}, key string) map[string]interface{} {
	v, ok := m[key]
	if !ok {
		return nil
	}
	obj, ok := v.(map[string]interface{})
	if !ok {
		return nil
	}
	return obj
}

// coerceFloat converts v to a float64 on a best-effort basis. Numeric
// strings count; anything else does not.
func coerceFloat(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// coerceInt converts v to an int, truncating fractional values the way the
// model tends to emit quantities ("2.0").
func coerceInt(v interface{}) (int, bool) {
	f, ok := coerceFloat(v)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// coerceString renders v as a string without failing.
func coerceString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case nil:
		return ""
	default:
		return ""
	}
}

// coerceConfidence coerces then clamps a confidence to [0,1]; missing or
// malformed confidences are 0.
func coerceConfidence(v interface{}) float64 {
	f, ok := coerceFloat(v)
	if !ok {
		return 0
	}
	return clamp01(f)
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
