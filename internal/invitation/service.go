// Package invitation implements the invite lifecycle: pending on create,
// accepted on redemption, implicitly expired by time. Creation compensates
// for failed email delivery by deleting the freshly written row; acceptance
// creates the user and consumes the invitation in one transaction.
package invitation

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmarkov/saasadmin/internal/apperr"
	"github.com/dmarkov/saasadmin/internal/auth"
	"github.com/dmarkov/saasadmin/internal/mail"
	"github.com/dmarkov/saasadmin/internal/models"
)

// Details is the acceptance-page view of an invitation.
type Details struct {
	models.Invitation
	CompanyName string `json:"company_name"`
	InviterName string `json:"inviter_name"`
}

// Store is the persistence seam; the pgx implementation lives in store.go.
// Lookups report absence as (nil, nil).
type Store interface {
	UserEmailExists(ctx context.Context, email string) (bool, error)
	Insert(ctx context.Context, inv *models.Invitation) (*models.Invitation, error)
	Delete(ctx context.Context, id uuid.UUID) error
	GetByToken(ctx context.Context, token string) (*Details, error)
	// Accept inserts the user and marks the invitation accepted in one
	// transaction, re-checking validity inside it. A false result means the
	// invitation was no longer redeemable.
	Accept(ctx context.Context, invitationID uuid.UUID, u *models.User) (*models.User, bool, error)
	GetCompanyByID(ctx context.Context, id uuid.UUID) (*models.Company, error)
}

type CreateParams struct {
	Email       string
	Role        models.Role
	Company     *models.Company
	InvitedBy   *models.User
	InviterName string
}

type AcceptRequest struct {
	Token     string `json:"token"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type Service interface {
	Create(ctx context.Context, p CreateParams) (*models.Invitation, error)
	Details(ctx context.Context, token string) (*Details, error)
	Accept(ctx context.Context, req AcceptRequest) (*auth.LoginResult, error)
}

type service struct {
	store      Store
	tokens     *auth.TokenService
	mailer     mail.Sender
	expiry     time.Duration
	bcryptCost int
	appURL     string
}

func NewService(store Store, tokens *auth.TokenService, mailer mail.Sender, expiry time.Duration, bcryptCost int, appURL string) Service {
	return &service{
		store:      store,
		tokens:     tokens,
		mailer:     mailer,
		expiry:     expiry,
		bcryptCost: bcryptCost,
		appURL:     appURL,
	}
}

// Create persists a pending invitation and emails the token. If delivery
// fails the row is deleted again and NotificationFailed is returned, so a
// failed call leaves no trace.
func (s *service) Create(ctx context.Context, p CreateParams) (*models.Invitation, error) {
	email := auth.NormalizeEmail(p.Email)
	if email == "" {
		return nil, apperr.Validation("Invalid input data")
	}

	role := p.Role
	if role == "" {
		role = models.RoleUser
	}
	// Invitations never mint platform operators.
	if role != models.RoleUser && role != models.RoleAdmin {
		return nil, apperr.Validation("Invalid role")
	}

	exists, err := s.store.UserEmailExists(ctx, email)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if exists {
		return nil, apperr.Conflict("User already exists")
	}

	token, err := GenerateToken()
	if err != nil {
		return nil, apperr.Internal(err)
	}

	inv := &models.Invitation{
		Email:     email,
		CompanyID: p.Company.ID,
		Role:      role,
		Token:     token,
		InvitedBy: p.InvitedBy.ID,
		ExpiresAt: time.Now().Add(s.expiry),
	}

	inv, err = s.store.Insert(ctx, inv)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	msg := mail.InvitationMessage(email, token, p.Company.Name, p.InviterName, s.appURL)
	if err := s.mailer.Send(ctx, msg); err != nil {
		if delErr := s.store.Delete(ctx, inv.ID); delErr != nil {
			slog.Error("compensating invitation delete failed", "error", delErr, "invitation_id", inv.ID)
		}
		return nil, apperr.NotificationFailed(err)
	}
	return inv, nil
}

func (s *service) Details(ctx context.Context, token string) (*Details, error) {
	d, err := s.store.GetByToken(ctx, token)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if d == nil || !d.Acceptable(time.Now()) {
		return nil, apperr.Validation("Invalid or expired invitation")
	}
	return d, nil
}

// Accept redeems a pending invitation: it creates the user with a verified
// email and marks the invitation consumed atomically, then issues a session.
func (s *service) Accept(ctx context.Context, req AcceptRequest) (*auth.LoginResult, error) {
	if len(req.Password) < 8 {
		return nil, apperr.Validation("Invalid input data")
	}

	d, err := s.store.GetByToken(ctx, req.Token)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if d == nil || !d.Acceptable(time.Now()) {
		return nil, apperr.Validation("Invalid or expired invitation")
	}

	email := auth.NormalizeEmail(d.Email)

	// A concurrent signup may have claimed the address after the invite went
	// out.
	exists, err := s.store.UserEmailExists(ctx, email)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if exists {
		return nil, apperr.Conflict("User already exists")
	}

	hash, err := auth.HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	companyID := d.CompanyID
	user := &models.User{
		Email:         email,
		PasswordHash:  hash,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Role:          d.Role,
		EmailVerified: true,
		CompanyID:     &companyID,
	}

	user, redeemed, err := s.store.Accept(ctx, d.ID, user)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if !redeemed {
		return nil, apperr.Validation("Invalid or expired invitation")
	}

	token, err := s.tokens.IssueSession(user)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	company, err := s.store.GetCompanyByID(ctx, companyID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &auth.LoginResult{Token: token, User: auth.SessionUser{User: user, Company: company}}, nil
}
