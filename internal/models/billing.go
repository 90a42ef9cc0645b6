package models

import (
	"time"

	"github.com/google/uuid"
)

type Subscription struct {
	ID                uuid.UUID          `json:"id" db:"id"`
	CompanyID         uuid.UUID          `json:"company_id" db:"company_id"`
	PlanType          string             `json:"plan_type" db:"plan_type"`
	Status            SubscriptionStatus `json:"status" db:"status"`
	CurrentPeriodEnd  *time.Time         `json:"current_period_end,omitempty" db:"current_period_end"`
	CancelAtPeriodEnd bool               `json:"cancel_at_period_end" db:"cancel_at_period_end"`
	CreatedAt         time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at" db:"updated_at"`
}

// Invoice amounts are stored in cents.
type Invoice struct {
	ID          uuid.UUID `json:"id" db:"id"`
	CompanyID   uuid.UUID `json:"company_id" db:"company_id"`
	AmountCents int64     `json:"amount" db:"amount"`
	Status      string    `json:"status" db:"status"`
	InvoiceDate time.Time `json:"invoice_date" db:"invoice_date"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
