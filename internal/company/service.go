package company

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmarkov/saasadmin/internal/apperr"
	"github.com/dmarkov/saasadmin/internal/models"
)

// querier is the subset of pgxpool.Pool the service uses; tests substitute a
// fake to exercise the validation paths without a database.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type Service struct {
	db querier
}

func NewService(db *pgxpool.Pool) *Service {
	return &Service{db: db}
}

const companyColumns = `c.id, c.name, c.domain, c.industry, c.size, c.subscription_status,
	c.subscription_plan, c.max_users, c.created_at, c.updated_at, COUNT(u.id) AS user_count`

func (s *Service) List(ctx context.Context) ([]models.Company, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+companyColumns+`
		 FROM companies c
		 LEFT JOIN users u ON c.id = u.company_id
		 GROUP BY c.id
		 ORDER BY c.created_at DESC`)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("query companies: %w", err))
	}
	defer rows.Close()

	companies := []models.Company{}
	for rows.Next() {
		var c models.Company
		if err := scanCompany(rows, &c); err != nil {
			return nil, apperr.Internal(err)
		}
		companies = append(companies, c)
	}
	return companies, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	var c models.Company
	err := scanCompany(s.db.QueryRow(ctx,
		`SELECT `+companyColumns+`
		 FROM companies c
		 LEFT JOIN users u ON c.id = u.company_id
		 WHERE c.id = $1
		 GROUP BY c.id`, id), &c)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("Company not found")
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &c, nil
}

type CreateRequest struct {
	Name             string `json:"name"`
	Domain           string `json:"domain"`
	Industry         string `json:"industry"`
	Size             string `json:"size"`
	SubscriptionPlan string `json:"subscription_plan"`
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.Company, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.Validation("Invalid input data")
	}

	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM companies WHERE LOWER(name) = LOWER($1))`, name,
	).Scan(&exists)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("check company name: %w", err))
	}
	if exists {
		return nil, apperr.Conflict("Company already exists")
	}

	plan := req.SubscriptionPlan
	if plan == "" {
		plan = "free"
	}

	var c models.Company
	err = s.db.QueryRow(ctx,
		`INSERT INTO companies (name, domain, industry, size, subscription_plan, subscription_status)
		 VALUES ($1, $2, $3, $4, $5, 'inactive')
		 RETURNING id, name, domain, industry, size, subscription_status, subscription_plan,
		           max_users, created_at, updated_at`,
		name, req.Domain, req.Industry, req.Size, plan,
	).Scan(&c.ID, &c.Name, &c.Domain, &c.Industry, &c.Size, &c.SubscriptionStatus,
		&c.SubscriptionPlan, &c.MaxUsers, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("insert company: %w", err))
	}
	return &c, nil
}

type UpdateRequest struct {
	Name               string `json:"name"`
	Domain             string `json:"domain"`
	Industry           string `json:"industry"`
	Size               string `json:"size"`
	SubscriptionPlan   string `json:"subscription_plan"`
	SubscriptionStatus string `json:"subscription_status"`
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateRequest) (*models.Company, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.Validation("Invalid input data")
	}

	// Renaming onto another company's name is the same conflict as creating
	// a duplicate.
	var taken bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM companies WHERE LOWER(name) = LOWER($1) AND id <> $2)`,
		name, id,
	).Scan(&taken)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("check company name: %w", err))
	}
	if taken {
		return nil, apperr.Conflict("Company already exists")
	}

	var c models.Company
	err = s.db.QueryRow(ctx,
		`UPDATE companies
		 SET name = $1, domain = $2, industry = $3, size = $4,
		     subscription_plan = $5, subscription_status = $6, updated_at = now()
		 WHERE id = $7
		 RETURNING id, name, domain, industry, size, subscription_status, subscription_plan,
		           max_users, created_at, updated_at`,
		name, req.Domain, req.Industry, req.Size, req.SubscriptionPlan, req.SubscriptionStatus, id,
	).Scan(&c.ID, &c.Name, &c.Domain, &c.Industry, &c.Size, &c.SubscriptionStatus,
		&c.SubscriptionPlan, &c.MaxUsers, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("Company not found")
	}
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("update company: %w", err))
	}
	return &c, nil
}

// Delete removes the company. Its users are kept and detached (company_id is
// nulled by the FK policy); invitations and settings cascade away.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM companies WHERE id = $1`, id)
	if err != nil {
		return apperr.Internal(fmt.Errorf("delete company: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Company not found")
	}
	return nil
}

func scanCompany(row pgx.Row, c *models.Company) error {
	return row.Scan(&c.ID, &c.Name, &c.Domain, &c.Industry, &c.Size, &c.SubscriptionStatus,
		&c.SubscriptionPlan, &c.MaxUsers, &c.CreatedAt, &c.UpdatedAt, &c.UserCount)
}
