package model

import "time"

// Item statuses.
const (
	ItemActive    = "active"
	ItemRequested = "requested"
	ItemPurchased = "purchased"
)

type Item struct {
	ID                int64     `json:"id"`
	RoundID           int64     `json:"round_id"`
	Name              string    `json:"name"`
	Quantity          int       `json:"quantity"`
	EstimatedPrice    *float64  `json:"estimated_price"`
	Status            string    `json:"status"`
	RequestedByUserID *int64    `json:"requested_by_user_id"`
	CreatedAt         time.Time `json:"created_at"`
	CreatedByUserID   int64     `json:"created_by_user_id"`
	IsPurchased       bool      `json:"is_purchased"`
	IsInCart          bool      `json:"is_in_cart"`
}
