package models

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

type User struct {
	ID                   uuid.UUID  `json:"id" db:"id"`
	Email                string     `json:"email" db:"email"`
	PasswordHash         string     `json:"-" db:"password_hash"`
	FirstName            string     `json:"firstName" db:"first_name"`
	LastName             string     `json:"lastName" db:"last_name"`
	Role                 Role       `json:"role" db:"role"`
	EmailVerified        bool       `json:"emailVerified" db:"email_verified"`
	CompanyID            *uuid.UUID `json:"companyId,omitempty" db:"company_id"`
	ResetPasswordToken   *string    `json:"-" db:"reset_password_token"`
	ResetPasswordExpires *time.Time `json:"-" db:"reset_password_expires"`
	CreatedAt            time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt            time.Time  `json:"updatedAt" db:"updated_at"`

	// Denormalized company display fields, populated by list/read joins.
	CompanyName   *string `json:"companyName,omitempty" db:"-"`
	CompanyDomain *string `json:"companyDomain,omitempty" db:"-"`
}
