package extract

// receiptPrompt is the fixed instruction template sent with every receipt.
// The category list must stay in sync with domain.Categories.
const receiptPrompt = `Very carefully analyze this receipt and extract structured data. Follow these rules:

FIRST determine if this is actually a receipt (look for totals, items, prices, etc.)
If it's a receipt, extract these details with HIGH accuracy:
1. Total amount (with confidence score 0-1)
2. Merchant name (with confidence)
3. Transaction date (YYYY-MM-DD format)
4. Category (with confidence)
5. Line items (description, amount, quantity)

Categories: [Meals, Travel, Office, Software, Rent, Utilities, Other]

Respond with this exact JSON structure:
{
    "amount": {"value": float, "confidence": float},
    "merchant": {"value": str, "confidence": float},
    "date": {"value": str, "confidence": float},
    "category": {"value": str, "confidence": float},
    "description": str,
    "line_items": [
        {
            "description": str,
            "amount": float,
            "quantity": int
        }
    ]
}

Return ONLY valid raw JSON.
Do NOT wrap the response in code fences.
Do NOT use ` + "```json" + ` or any Markdown.`
