package model

import "time"

// User is a household member. The PIN column holds a bcrypt hash; SessionID
// is the user's single active session token — a later login overwrites it,
// which is what invalidates earlier sessions.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	SessionID *string   `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}
