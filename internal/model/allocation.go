package model

type Allocation struct {
	ID         int64   `json:"id"`
	ItemID     int64   `json:"item_id"`
	UserID     int64   `json:"user_id"`
	Amount     float64 `json:"amount"`
	Percentage float64 `json:"percentage"`
}

// UserTotal is one user's share of a round, summed over their allocations.
type UserTotal struct {
	UserID   int64   `json:"user_id"`
	UserName string  `json:"user_name"`
	Amount   float64 `json:"amount"`
}
