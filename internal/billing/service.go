// Package billing serves company-scoped subscription snapshots and invoice
// history. Checkout is a mocked Stripe integration; records are append-only.
package billing

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmarkov/saasadmin/internal/apperr"
	"github.com/dmarkov/saasadmin/internal/models"
)

type Service struct {
	db *pgxpool.Pool
}

func NewService(db *pgxpool.Pool) *Service {
	return &Service{db: db}
}

// CurrentSubscription returns the company's latest subscription row, or nil
// when the company has never subscribed.
func (s *Service) CurrentSubscription(ctx context.Context, companyID uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	err := s.db.QueryRow(ctx,
		`SELECT id, company_id, plan_type, status, current_period_end, cancel_at_period_end,
		        created_at, updated_at
		 FROM subscriptions WHERE company_id = $1
		 ORDER BY created_at DESC LIMIT 1`, companyID,
	).Scan(&sub.ID, &sub.CompanyID, &sub.PlanType, &sub.Status, &sub.CurrentPeriodEnd,
		&sub.CancelAtPeriodEnd, &sub.CreatedAt, &sub.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("get subscription: %w", err))
	}
	return &sub, nil
}

func (s *Service) Invoices(ctx context.Context, companyID uuid.UUID) ([]models.Invoice, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, company_id, amount, status, invoice_date, created_at
		 FROM invoices WHERE company_id = $1
		 ORDER BY invoice_date DESC`, companyID)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("query invoices: %w", err))
	}
	defer rows.Close()

	invoices := []models.Invoice{}
	for rows.Next() {
		var inv models.Invoice
		if err := rows.Scan(&inv.ID, &inv.CompanyID, &inv.AmountCents, &inv.Status,
			&inv.InvoiceDate, &inv.CreatedAt); err != nil {
			return nil, apperr.Internal(fmt.Errorf("scan invoice: %w", err))
		}
		invoices = append(invoices, inv)
	}
	return invoices, nil
}

type CheckoutSession struct {
	ID      string `json:"id"`
	URL     string `json:"url"`
	PriceID string `json:"priceId"`
}

// CreateCheckoutSession mocks the payment provider handshake.
func (s *Service) CreateCheckoutSession(ctx context.Context, companyID uuid.UUID, priceID string) (*CheckoutSession, error) {
	raw := make([]byte, 6)
	if _, err := rand.Read(raw); err != nil {
		return nil, apperr.Internal(fmt.Errorf("generate session id: %w", err))
	}
	id := "cs_" + hex.EncodeToString(raw)
	return &CheckoutSession{
		ID:      id,
		URL:     "https://checkout.stripe.com/pay/" + id,
		PriceID: priceID,
	}, nil
}

// Cancel flips the active subscription to cancelled at period end.
func (s *Service) Cancel(ctx context.Context, companyID uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	err := s.db.QueryRow(ctx,
		`UPDATE subscriptions
		 SET status = 'cancelled', cancel_at_period_end = TRUE, updated_at = now()
		 WHERE company_id = $1 AND status = 'active'
		 RETURNING id, company_id, plan_type, status, current_period_end, cancel_at_period_end,
		           created_at, updated_at`, companyID,
	).Scan(&sub.ID, &sub.CompanyID, &sub.PlanType, &sub.Status, &sub.CurrentPeriodEnd,
		&sub.CancelAtPeriodEnd, &sub.CreatedAt, &sub.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("No active subscription found")
	}
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("cancel subscription: %w", err))
	}
	return &sub, nil
}
