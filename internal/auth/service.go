package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmarkov/saasadmin/internal/apperr"
	"github.com/dmarkov/saasadmin/internal/config"
	"github.com/dmarkov/saasadmin/internal/mail"
	"github.com/dmarkov/saasadmin/internal/models"
)

// Store is the persistence surface the auth workflows need. The pgx-backed
// implementation lives in store.go; tests substitute fakes. Lookups report
// absence as (nil, nil).
type Store interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetCompanyByID(ctx context.Context, id uuid.UUID) (*models.Company, error)
	CompanyNameExists(ctx context.Context, name string) (bool, error)
	// CreateSignup inserts the company (when companyName is non-empty) and the
	// user in a single transaction and returns both persisted records.
	CreateSignup(ctx context.Context, companyName string, u *models.User) (*models.User, *models.Company, error)
	SetResetToken(ctx context.Context, email, token string, expires time.Time) error
	ClearResetToken(ctx context.Context, email string) error
	// GetUserByResetToken matches email + stored token with an unexpired
	// reset window.
	GetUserByResetToken(ctx context.Context, email, token string) (*models.User, error)
	// UpdatePassword replaces the hash and clears the reset token fields in
	// one statement.
	UpdatePassword(ctx context.Context, email, passwordHash string) error
	MarkEmailVerified(ctx context.Context, email, token string) (bool, error)
}

// WelcomeEnqueuer hands non-critical mail to the background worker. A nil
// enqueuer disables it.
type WelcomeEnqueuer interface {
	EnqueueWelcomeEmail(email, firstName string) error
	EnqueuePasswordChanged(email string) error
}

type Service struct {
	store       Store
	tokens      *TokenService
	mailer      mail.Sender
	queue       WelcomeEnqueuer
	bcryptCost  int
	frontendURL string
}

func NewService(store Store, tokens *TokenService, mailer mail.Sender, queue WelcomeEnqueuer, cfg *config.Config) *Service {
	return &Service{
		store:       store,
		tokens:      tokens,
		mailer:      mailer,
		queue:       queue,
		bcryptCost:  cfg.Auth.BcryptCost,
		frontendURL: cfg.App.FrontendURL,
	}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SessionUser is the identity payload returned by login, signup, and verify.
type SessionUser struct {
	*models.User
	Company *models.Company `json:"company"`
}

type LoginResult struct {
	Token string      `json:"token"`
	User  SessionUser `json:"user"`
}

func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.store.GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if user == nil {
		return nil, apperr.Unauthenticated("Invalid credentials")
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return nil, apperr.Unauthenticated("Invalid credentials")
	}
	return s.sessionFor(ctx, user)
}

type SignupRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	CompanyName string `json:"companyName"`
}

func (req *SignupRequest) validate() error {
	if !strings.Contains(req.Email, "@") {
		return apperr.Validation("Invalid input data")
	}
	if len(req.Password) < 8 {
		return apperr.Validation("Invalid input data")
	}
	if strings.TrimSpace(req.FirstName) == "" || strings.TrimSpace(req.LastName) == "" {
		return apperr.Validation("Invalid input data")
	}
	return nil
}

// Signup registers a user, creating their company in the same transaction
// when a company name is supplied. The first user of a company is its admin.
func (s *Service) Signup(ctx context.Context, req SignupRequest) (*LoginResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	email := NormalizeEmail(req.Email)

	existing, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if existing != nil {
		return nil, apperr.Conflict("User already exists")
	}

	companyName := strings.TrimSpace(req.CompanyName)
	if companyName != "" {
		taken, err := s.store.CompanyNameExists(ctx, companyName)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		if taken {
			return nil, apperr.Conflict("Company already exists")
		}
	}

	hash, err := HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	user := &models.User{
		Email:         email,
		PasswordHash:  hash,
		FirstName:     strings.TrimSpace(req.FirstName),
		LastName:      strings.TrimSpace(req.LastName),
		Role:          models.RoleAdmin,
		EmailVerified: true,
	}

	user, company, err := s.store.CreateSignup(ctx, companyName, user)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	if s.queue != nil {
		if err := s.queue.EnqueueWelcomeEmail(user.Email, user.FirstName); err != nil {
			slog.Warn("enqueue welcome email failed", "error", err, "email", user.Email)
		}
	}

	token, err := s.tokens.IssueSession(user)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &LoginResult{Token: token, User: SessionUser{User: user, Company: company}}, nil
}

// ForgotPassword persists a one-hour reset token and emails it. If delivery
// fails the token is cleared again so a stale token can never circulate.
// Unknown emails return 404, matching the shipped behavior the SPA relies on.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	email = NormalizeEmail(email)

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return apperr.Internal(err)
	}
	if user == nil {
		return apperr.NotFound("User not found")
	}

	token, err := s.tokens.IssuePasswordReset(email)
	if err != nil {
		return apperr.Internal(err)
	}

	if err := s.store.SetResetToken(ctx, email, token, time.Now().Add(time.Hour)); err != nil {
		return apperr.Internal(err)
	}

	msg := mail.PasswordResetMessage(email, token, s.frontendURL)
	if err := s.mailer.Send(ctx, msg); err != nil {
		if clearErr := s.store.ClearResetToken(ctx, email); clearErr != nil {
			slog.Error("clear reset token after send failure", "error", clearErr, "email", email)
		}
		return apperr.NotificationFailed(err)
	}
	return nil
}

// ResetPassword accepts a structurally valid reset token only if it also
// matches the token persisted on the user row and that row's expiry window.
func (s *Service) ResetPassword(ctx context.Context, token, password string) error {
	if len(password) < 6 {
		return apperr.Validation("Invalid input data")
	}

	claims, err := s.tokens.Verify(token)
	if err != nil || claims.Type != TokenTypePasswordReset {
		return apperr.Validation("Invalid token")
	}

	user, err := s.store.GetUserByResetToken(ctx, claims.Email, token)
	if err != nil {
		return apperr.Internal(err)
	}
	if user == nil {
		return apperr.Validation("Invalid or expired token")
	}

	hash, err := HashPassword(password, s.bcryptCost)
	if err != nil {
		return apperr.Internal(err)
	}
	if err := s.store.UpdatePassword(ctx, claims.Email, hash); err != nil {
		return apperr.Internal(err)
	}

	if s.queue != nil {
		if err := s.queue.EnqueuePasswordChanged(claims.Email); err != nil {
			slog.Warn("enqueue password changed notice failed", "error", err, "email", claims.Email)
		}
	}
	return nil
}

func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	claims, err := s.tokens.Verify(token)
	if err != nil || claims.Type != TokenTypeEmailVerification {
		return apperr.Validation("Invalid token")
	}
	ok, err := s.store.MarkEmailVerified(ctx, claims.Email, token)
	if err != nil {
		return apperr.Internal(err)
	}
	if !ok {
		return apperr.Validation("Invalid or expired token")
	}
	return nil
}

func (s *Service) sessionFor(ctx context.Context, user *models.User) (*LoginResult, error) {
	token, err := s.tokens.IssueSession(user)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	var company *models.Company
	if user.CompanyID != nil {
		company, err = s.store.GetCompanyByID(ctx, *user.CompanyID)
		if err != nil {
			return nil, apperr.Internal(fmt.Errorf("load company: %w", err))
		}
	}
	return &LoginResult{Token: token, User: SessionUser{User: user, Company: company}}, nil
}
