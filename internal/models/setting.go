package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Setting struct {
	CompanyID uuid.UUID       `json:"company_id" db:"company_id"`
	Key       string          `json:"key" db:"key"`
	Value     json.RawMessage `json:"value" db:"value"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}
