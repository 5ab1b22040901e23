package model

import "time"

// Round states. Transitions run forward only, except LOCKED back to OPEN
// when the shopper cancels.
const (
	RoundOpen    = "OPEN"
	RoundLocked  = "LOCKED"
	RoundReview  = "REVIEW"
	RoundSettled = "SETTLED"
)

type Round struct {
	ID                int64      `json:"id"`
	State             string     `json:"state"`
	CreatedAt         time.Time  `json:"created_at"`
	LockedAt          *time.Time `json:"locked_at"`
	LockedByUserID    *int64     `json:"locked_by_user_id"`
	ReceiptUploadedAt *time.Time `json:"receipt_uploaded_at"`
	ReceiptPath       *string    `json:"receipt_path"`
	ReviewedAt        *time.Time `json:"reviewed_at"`
	ReviewedByUserID  *int64     `json:"reviewed_by_user_id"`
	SettledAt         *time.Time `json:"settled_at"`
	TotalAmount       float64    `json:"total_amount"`
	Note              *string    `json:"note"`
}

// Shopper reports whether the given user locked this round.
func (r *Round) Shopper(userID int64) bool {
	return r.LockedByUserID != nil && *r.LockedByUserID == userID
}
