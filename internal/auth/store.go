package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmarkov/saasadmin/internal/models"
)

const userColumns = `id, email, password_hash, first_name, last_name, role, email_verified,
	company_id, reset_password_token, reset_password_expires, created_at, updated_at`

type pgStore struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) Store {
	return &pgStore{db: db}
}

func (s *pgStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email)
	return scanUser(row)
}

func (s *pgStore) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
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

func (s *pgStore) CompanyNameExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM companies WHERE LOWER(name) = LOWER($1))`, name,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check company name: %w", err)
	}
	return exists, nil
}

func (s *pgStore) CreateSignup(ctx context.Context, companyName string, u *models.User) (*models.User, *models.Company, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin signup tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var company *models.Company
	if companyName != "" {
		company = &models.Company{}
		err = tx.QueryRow(ctx,
			`INSERT INTO companies (name, subscription_status, subscription_plan)
			 VALUES ($1, 'inactive', 'free')
			 RETURNING id, name, domain, industry, size, subscription_status, subscription_plan,
			           max_users, created_at, updated_at`,
			companyName,
		).Scan(&company.ID, &company.Name, &company.Domain, &company.Industry, &company.Size,
			&company.SubscriptionStatus, &company.SubscriptionPlan, &company.MaxUsers,
			&company.CreatedAt, &company.UpdatedAt)
		if err != nil {
			return nil, nil, fmt.Errorf("insert company: %w", err)
		}
		u.CompanyID = &company.ID
	}

	row := tx.QueryRow(ctx,
		`INSERT INTO users (email, password_hash, first_name, last_name, role, email_verified, company_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+userColumns,
		u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Role, u.EmailVerified, u.CompanyID)
	created, err := scanUser(row)
	if err != nil {
		return nil, nil, fmt.Errorf("insert user: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("commit signup tx: %w", err)
	}
	return created, company, nil
}

func (s *pgStore) SetResetToken(ctx context.Context, email, token string, expires time.Time) error {
	_, err := s.db.Exec(ctx,
		`UPDATE users SET reset_password_token = $1, reset_password_expires = $2
		 WHERE LOWER(email) = LOWER($3)`,
		token, expires, email)
	if err != nil {
		return fmt.Errorf("set reset token: %w", err)
	}
	return nil
}

func (s *pgStore) ClearResetToken(ctx context.Context, email string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE users SET reset_password_token = NULL, reset_password_expires = NULL
		 WHERE LOWER(email) = LOWER($1)`, email)
	if err != nil {
		return fmt.Errorf("clear reset token: %w", err)
	}
	return nil
}

func (s *pgStore) GetUserByResetToken(ctx context.Context, email, token string) (*models.User, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+userColumns+`
		 FROM users
		 WHERE LOWER(email) = LOWER($1) AND reset_password_token = $2 AND reset_password_expires > now()`,
		email, token)
	return scanUser(row)
}

func (s *pgStore) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE users
		 SET password_hash = $1, reset_password_token = NULL, reset_password_expires = NULL,
		     updated_at = now()
		 WHERE LOWER(email) = LOWER($2)`,
		passwordHash, email)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

func (s *pgStore) MarkEmailVerified(ctx context.Context, email, token string) (bool, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE users SET email_verified = TRUE, email_verification_token = NULL
		 WHERE LOWER(email) = LOWER($1) AND email_verification_token = $2`,
		email, token)
	if err != nil {
		return false, fmt.Errorf("mark email verified: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Role,
		&u.EmailVerified, &u.CompanyID, &u.ResetPasswordToken, &u.ResetPasswordExpires,
		&u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}
