package model

type ReceiptLine struct {
	ID            int64    `json:"id"`
	RoundID       int64    `json:"round_id"`
	LineNumber    int      `json:"line_number"`
	Description   string   `json:"description"`
	Quantity      float64  `json:"quantity"`
	UnitPrice     float64  `json:"unit_price"`
	TotalPrice    float64  `json:"total_price"`
	MatchedItemID *int64   `json:"matched_item_id"`
	IsIgnored     bool     `json:"is_ignored"`
}

// ReceiptSummary classifies a round's lines. A line counts as matched when it
// has a matched item and as ignored when flagged; the flags are not mutually
// exclusive, so a matched-and-ignored line appears in both counts.
type ReceiptSummary struct {
	Matched   int     `json:"matched"`
	Unmatched int     `json:"unmatched"`
	Ignored   int     `json:"ignored"`
	Total     float64 `json:"total"`
}
