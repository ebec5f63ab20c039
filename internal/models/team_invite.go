package models

import "time"

// TeamInvite represents a pending invitation to share a team license.
type TeamInvite struct {
	ID         string     `json:"id"`
	InviterID  string     `json:"inviter_id"`
	Email      string     `json:"email"`
	TokenHash  string     `json:"-"`
	ExpiresAt  time.Time  `json:"expires_at"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// IsExpired determines whether the invite has expired.
func (i TeamInvite) IsExpired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// IsUsed indicates whether the invite has already been accepted.
func (i TeamInvite) IsUsed() bool {
	return i.AcceptedAt != nil
}
