package models

import "time"

const (
	InviteStatusPending  = "pending"
	InviteStatusAccepted = "accepted"
	InviteStatusExpired  = "expired"
)

// CoachInvite grants a coach→athlete link on redemption. The token is
// single-use: pending→accepted happens exactly once.
type CoachInvite struct {
	ID         int64      `json:"id"`
	CoachID    int64      `json:"coach_id"`
	Email      string     `json:"email"`
	Token      string     `json:"token"`
	Status     string     `json:"status"`
	ExpiresAt  time.Time  `json:"expires_at"`
	AcceptedAt *time.Time `json:"accepted_at"`
	CreatedAt  time.Time  `json:"created_at"`
}
