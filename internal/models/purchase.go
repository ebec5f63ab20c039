package models

import "time"

// Purchase records that a user bought a single catalog item outright.
// At most one purchase exists per (user, item) pair.
type Purchase struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ItemID    string    `json:"item_id"`
	CreatedAt time.Time `json:"created_at"`
}
