// Package user implements the tenant-scoped user management operations. Row
// visibility is driven entirely by the access scope resolved from the policy
// table; no handler or query branches on role directly.
package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmarkov/saasadmin/internal/apperr"
	"github.com/dmarkov/saasadmin/internal/auth"
	"github.com/dmarkov/saasadmin/internal/models"
)

// Access carries the caller's resolved scope plus the identifiers the scope
// predicates key on.
type Access struct {
	Scope     auth.Scope
	UserID    uuid.UUID
	CompanyID uuid.UUID
}

type CreateRequest struct {
	Email     string     `json:"email"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Role      string     `json:"role"`
	CompanyID *uuid.UUID `json:"company_id"`
}

type UpdateRequest struct {
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Role      string     `json:"role"`
	CompanyID *uuid.UUID `json:"company_id"`
}

type Service interface {
	List(ctx context.Context, acc Access) ([]models.User, error)
	Get(ctx context.Context, acc Access, id uuid.UUID) (*models.User, error)
	Create(ctx context.Context, acc Access, req CreateRequest) (*models.User, error)
	Update(ctx context.Context, acc Access, id uuid.UUID, req UpdateRequest) (*models.User, error)
	Delete(ctx context.Context, acc Access, id uuid.UUID) error
	UpdateProfile(ctx context.Context, userID uuid.UUID, firstName, lastName string) (*models.User, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error
}

type service struct {
	db         *pgxpool.Pool
	bcryptCost int
}

func NewService(db *pgxpool.Pool, bcryptCost int) Service {
	return &service{db: db, bcryptCost: bcryptCost}
}

const listColumns = `u.id, u.email, u.first_name, u.last_name, u.role, u.email_verified,
	u.company_id, u.created_at, u.updated_at, c.name, c.domain`

// buildListQuery translates an access scope into a parameterized predicate.
func buildListQuery(acc Access) (string, []any) {
	query := `SELECT ` + listColumns + `
		FROM users u
		LEFT JOIN companies c ON u.company_id = c.id`
	var args []any

	switch acc.Scope {
	case auth.ScopeCompany:
		query += ` WHERE u.company_id = $1`
		args = append(args, acc.CompanyID)
	case auth.ScopeSelf:
		query += ` WHERE u.id = $1`
		args = append(args, acc.UserID)
	}

	query += ` ORDER BY u.created_at DESC`
	return query, args
}

// scopePredicate appends the tenant predicate for single-row operations,
// starting at the given placeholder index.
func scopePredicate(acc Access, argIdx int) (string, []any) {
	switch acc.Scope {
	case auth.ScopeCompany:
		return fmt.Sprintf(" AND company_id = $%d", argIdx), []any{acc.CompanyID}
	case auth.ScopeSelf:
		return fmt.Sprintf(" AND id = $%d", argIdx), []any{acc.UserID}
	}
	return "", nil
}

func (s *service) List(ctx context.Context, acc Access) ([]models.User, error) {
	if acc.Scope == auth.ScopeNone {
		return nil, apperr.Forbidden("Insufficient permissions")
	}

	query, args := buildListQuery(acc)
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("query users: %w", err))
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Role, &u.EmailVerified,
			&u.CompanyID, &u.CreatedAt, &u.UpdatedAt, &u.CompanyName, &u.CompanyDomain); err != nil {
			return nil, apperr.Internal(fmt.Errorf("scan user: %w", err))
		}
		users = append(users, u)
	}
	return users, nil
}

func (s *service) Get(ctx context.Context, acc Access, id uuid.UUID) (*models.User, error) {
	if acc.Scope == auth.ScopeNone {
		return nil, apperr.Forbidden("Insufficient permissions")
	}
	if acc.Scope == auth.ScopeSelf && id != acc.UserID {
		return nil, apperr.NotFound("User not found")
	}

	query := `SELECT ` + listColumns + `
		FROM users u
		LEFT JOIN companies c ON u.company_id = c.id
		WHERE u.id = $1`
	args := []any{id}
	if acc.Scope == auth.ScopeCompany {
		query += ` AND u.company_id = $2`
		args = append(args, acc.CompanyID)
	}

	var u models.User
	err := s.db.QueryRow(ctx, query, args...).Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName,
		&u.Role, &u.EmailVerified, &u.CompanyID, &u.CreatedAt, &u.UpdatedAt,
		&u.CompanyName, &u.CompanyDomain)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("User not found")
	}
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("get user: %w", err))
	}
	return &u, nil
}

// Create adds a passwordless, unverified user record; credentials arrive
// later through the invitation flow.
func (s *service) Create(ctx context.Context, acc Access, req CreateRequest) (*models.User, error) {
	if acc.Scope == auth.ScopeNone || acc.Scope == auth.ScopeSelf {
		return nil, apperr.Forbidden("Insufficient permissions")
	}

	email := auth.NormalizeEmail(req.Email)
	if !strings.Contains(email, "@") {
		return nil, apperr.Validation("Invalid input data")
	}

	role := models.Role(req.Role)
	if req.Role == "" {
		role = models.RoleUser
	}
	if !role.Valid() {
		return nil, apperr.Validation("Invalid role")
	}
	if role == models.RoleSuperAdmin && acc.Scope != auth.ScopeAll {
		return nil, apperr.Forbidden("Insufficient permissions")
	}

	companyID := req.CompanyID
	if acc.Scope == auth.ScopeCompany {
		companyID = &acc.CompanyID
	}

	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(email) = LOWER($1))`, email,
	).Scan(&exists)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("check user email: %w", err))
	}
	if exists {
		return nil, apperr.Conflict("User already exists")
	}

	var u models.User
	err = s.db.QueryRow(ctx,
		`INSERT INTO users (email, first_name, last_name, role, company_id, email_verified)
		 VALUES ($1, $2, $3, $4, $5, FALSE)
		 RETURNING id, email, first_name, last_name, role, email_verified, company_id, created_at, updated_at`,
		email, req.FirstName, req.LastName, role, companyID,
	).Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Role, &u.EmailVerified,
		&u.CompanyID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("insert user: %w", err))
	}
	return &u, nil
}

func (s *service) Update(ctx context.Context, acc Access, id uuid.UUID, req UpdateRequest) (*models.User, error) {
	if acc.Scope == auth.ScopeNone || acc.Scope == auth.ScopeSelf {
		return nil, apperr.Forbidden("Insufficient permissions")
	}
	// Management edits to one's own record are blocked; the profile endpoint
	// is the only path for self-edits.
	if id == acc.UserID {
		return nil, apperr.Forbidden("Use the profile endpoint to edit your own account")
	}

	role := models.Role(req.Role)
	if !role.Valid() {
		return nil, apperr.Validation("Invalid role")
	}
	if role == models.RoleSuperAdmin && acc.Scope != auth.ScopeAll {
		return nil, apperr.Forbidden("Insufficient permissions")
	}

	// Admins cannot move users between tenants.
	companyID := req.CompanyID
	if acc.Scope == auth.ScopeCompany {
		companyID = &acc.CompanyID
	}

	query := `UPDATE users
		SET first_name = $1, last_name = $2, role = $3, company_id = $4, updated_at = now()
		WHERE id = $5`
	args := []any{req.FirstName, req.LastName, role, companyID, id}
	pred, predArgs := scopePredicate(acc, len(args)+1)
	query += pred + ` RETURNING id, email, first_name, last_name, role, email_verified, company_id, created_at, updated_at`
	args = append(args, predArgs...)

	var u models.User
	err := s.db.QueryRow(ctx, query, args...).Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName,
		&u.Role, &u.EmailVerified, &u.CompanyID, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("User not found")
	}
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("update user: %w", err))
	}
	return &u, nil
}

func (s *service) Delete(ctx context.Context, acc Access, id uuid.UUID) error {
	if acc.Scope == auth.ScopeNone || acc.Scope == auth.ScopeSelf {
		return apperr.Forbidden("Insufficient permissions")
	}
	if id == acc.UserID {
		return apperr.Forbidden("You cannot delete your own account")
	}

	query := `DELETE FROM users WHERE id = $1`
	args := []any{id}
	pred, predArgs := scopePredicate(acc, len(args)+1)
	query += pred
	args = append(args, predArgs...)

	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return apperr.Internal(fmt.Errorf("delete user: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("User not found")
	}
	return nil
}

func (s *service) UpdateProfile(ctx context.Context, userID uuid.UUID, firstName, lastName string) (*models.User, error) {
	if strings.TrimSpace(firstName) == "" || strings.TrimSpace(lastName) == "" {
		return nil, apperr.Validation("Invalid input data")
	}

	var u models.User
	err := s.db.QueryRow(ctx,
		`UPDATE users SET first_name = $1, last_name = $2, updated_at = now()
		 WHERE id = $3
		 RETURNING id, email, first_name, last_name, role, email_verified, company_id, created_at, updated_at`,
		strings.TrimSpace(firstName), strings.TrimSpace(lastName), userID,
	).Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Role, &u.EmailVerified,
		&u.CompanyID, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("User not found")
	}
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("update profile: %w", err))
	}
	return &u, nil
}

func (s *service) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	if len(next) < 6 {
		return apperr.Validation("Invalid input data")
	}

	var hash string
	err := s.db.QueryRow(ctx, `SELECT password_hash FROM users WHERE id = $1`, userID).Scan(&hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("User not found")
	}
	if err != nil {
		return apperr.Internal(fmt.Errorf("load password hash: %w", err))
	}

	if err := auth.VerifyPassword(hash, current); err != nil {
		return apperr.Unauthenticated("Invalid credentials")
	}

	newHash, err := auth.HashPassword(next, s.bcryptCost)
	if err != nil {
		return apperr.Internal(err)
	}
	_, err = s.db.Exec(ctx,
		`UPDATE users SET password_hash = $1, updated_at = now() WHERE id = $2`, newHash, userID)
	if err != nil {
		return apperr.Internal(fmt.Errorf("update password: %w", err))
	}
	return nil
}
