package invitation

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmarkov/saasadmin/internal/models"
)

type pgStore struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) Store {
	return &pgStore{db: db}
}

func (s *pgStore) UserEmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(email) = LOWER($1))`, email,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check user email: %w", err)
	}
	return exists, nil
}

func (s *pgStore) Insert(ctx context.Context, inv *models.Invitation) (*models.Invitation, error) {
	err := s.db.QueryRow(ctx,
		`INSERT INTO user_invitations (email, company_id, role, token, invited_by, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		inv.Email, inv.CompanyID, inv.Role, inv.Token, inv.InvitedBy, inv.ExpiresAt,
	).Scan(&inv.ID, &inv.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert invitation: %w", err)
	}
	return inv, nil
}

func (s *pgStore) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.Exec(ctx, `DELETE FROM user_invitations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete invitation: %w", err)
	}
	return nil
}

func (s *pgStore) GetByToken(ctx context.Context, token string) (*Details, error) {
	var d Details
	err := s.db.QueryRow(ctx,
		`SELECT i.id, i.email, i.company_id, i.role, i.token, i.invited_by, i.expires_at,
		        i.accepted_at, i.created_at,
		        c.name, COALESCE(NULLIF(TRIM(u.first_name || ' ' || u.last_name), ''), u.email)
		 FROM user_invitations i
		 JOIN companies c ON i.company_id = c.id
		 JOIN users u ON i.invited_by = u.id
		 WHERE i.token = $1`, token,
	).Scan(&d.ID, &d.Email, &d.CompanyID, &d.Role, &d.Token, &d.InvitedBy, &d.ExpiresAt,
		&d.AcceptedAt, &d.CreatedAt, &d.CompanyName, &d.InviterName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get invitation by token: %w", err)
	}
	return &d, nil
}

func (s *pgStore) Accept(ctx context.Context, invitationID uuid.UUID, u *models.User) (*models.User, bool, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("begin accept tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Consume the invitation first; the predicate re-checks validity so two
	// concurrent redemptions cannot both pass.
	tag, err := tx.Exec(ctx,
		`UPDATE user_invitations SET accepted_at = now()
		 WHERE id = $1 AND accepted_at IS NULL AND expires_at > now()`, invitationID)
	if err != nil {
		return nil, false, fmt.Errorf("mark invitation accepted: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, false, nil
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO users (email, password_hash, first_name, last_name, role, email_verified, company_id)
		 VALUES ($1, $2, $3, $4, $5, TRUE, $6)
		 RETURNING id, created_at, updated_at`,
		u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Role, u.CompanyID,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, false, fmt.Errorf("insert invited user: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("commit accept tx: %w", err)
	}
	return u, true, nil
}

func (s *pgStore) GetCompanyByID(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	var c models.Company
	err := s.db.QueryRow(ctx,
		`SELECT id, name, domain, industry, size, subscription_status, subscription_plan,
		        max_users, created_at, updated_at
		 FROM companies WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.Domain, &c.Industry, &c.Size, &c.SubscriptionStatus,
		&c.SubscriptionPlan, &c.MaxUsers, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get company: %w", err)
	}
	return &c, nil
}
