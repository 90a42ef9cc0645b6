package models

import (
	"time"

	"github.com/google/uuid"
)

type Invitation struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	Email      string     `json:"email" db:"email"`
	CompanyID  uuid.UUID  `json:"company_id" db:"company_id"`
	Role       Role       `json:"role" db:"role"`
	Token      string     `json:"-" db:"token"`
	InvitedBy  uuid.UUID  `json:"invited_by" db:"invited_by"`
	ExpiresAt  time.Time  `json:"expires_at" db:"expires_at"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty" db:"accepted_at"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}

// Acceptable reports whether the invitation can still be redeemed at t.
func (i *Invitation) Acceptable(t time.Time) bool {
	return i.AcceptedAt == nil && i.ExpiresAt.After(t)
}
