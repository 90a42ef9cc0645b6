package models

import (
	"time"

	"github.com/google/uuid"
)

type SubscriptionStatus string

const (
	SubscriptionInactive  SubscriptionStatus = "inactive"
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

type Company struct {
	ID                 uuid.UUID          `json:"id" db:"id"`
	Name               string             `json:"name" db:"name"`
	Domain             string             `json:"domain,omitempty" db:"domain"`
	Industry           string             `json:"industry,omitempty" db:"industry"`
	Size               string             `json:"size,omitempty" db:"size"`
	SubscriptionStatus SubscriptionStatus `json:"subscription_status" db:"subscription_status"`
	SubscriptionPlan   string             `json:"subscription_plan" db:"subscription_plan"`
	MaxUsers           int                `json:"max_users" db:"max_users"`
	CreatedAt          time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at" db:"updated_at"`

	// Populated by the list/read join against users.
	UserCount int `json:"user_count" db:"-"`
}
