package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/dmarkov/saasadmin/internal/apperr"
	"github.com/dmarkov/saasadmin/internal/config"
	"github.com/dmarkov/saasadmin/internal/mail"
	"github.com/dmarkov/saasadmin/internal/models"
)

type fakeStore struct {
	getUserByEmailFunc     func(ctx context.Context, email string) (*models.User, error)
	createSignupFunc       func(ctx context.Context, companyName string, u *models.User) (*models.User, *models.Company, error)
	companyNameExistsFunc  func(ctx context.Context, name string) (bool, error)
	getUserByResetFunc    func(ctx context.Context, email, token string) (*models.User, error)
	markEmailVerifiedFunc func(ctx context.Context, email, token string) (bool, error)
	setResetTokenCalls    []time.Time
	clearResetTokenCalls  []string
	updatePasswordCalls   []string
	updatedPasswordHash   string
}

func (f *fakeStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	if f.getUserByEmailFunc != nil {
		return f.getUserByEmailFunc(ctx, email)
	}
	return nil, nil
}

func (f *fakeStore) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return nil, nil
}

func (f *fakeStore) GetCompanyByID(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	return &models.Company{ID: id, Name: "Acme"}, nil
}

func (f *fakeStore) CompanyNameExists(ctx context.Context, name string) (bool, error) {
	if f.companyNameExistsFunc != nil {
		return f.companyNameExistsFunc(ctx, name)
	}
	return false, nil
}

func (f *fakeStore) CreateSignup(ctx context.Context, companyName string, u *models.User) (*models.User, *models.Company, error) {
	if f.createSignupFunc != nil {
		return f.createSignupFunc(ctx, companyName, u)
	}
	u.ID = uuid.New()
	var company *models.Company
	if companyName != "" {
		company = &models.Company{ID: uuid.New(), Name: companyName}
		u.CompanyID = &company.ID
	}
	return u, company, nil
}

func (f *fakeStore) SetResetToken(ctx context.Context, email, token string, expires time.Time) error {
	f.setResetTokenCalls = append(f.setResetTokenCalls, expires)
	return nil
}

func (f *fakeStore) ClearResetToken(ctx context.Context, email string) error {
	f.clearResetTokenCalls = append(f.clearResetTokenCalls, email)
	return nil
}

func (f *fakeStore) GetUserByResetToken(ctx context.Context, email, token string) (*models.User, error) {
	if f.getUserByResetFunc != nil {
		return f.getUserByResetFunc(ctx, email, token)
	}
	return nil, nil
}

func (f *fakeStore) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	f.updatePasswordCalls = append(f.updatePasswordCalls, email)
	f.updatedPasswordHash = passwordHash
	return nil
}

func (f *fakeStore) MarkEmailVerified(ctx context.Context, email, token string) (bool, error) {
	if f.markEmailVerifiedFunc != nil {
		return f.markEmailVerifiedFunc(ctx, email, token)
	}
	return true, nil
}

type fakeSender struct {
	sendFunc func(ctx context.Context, msg mail.Message) error
	sent     []mail.Message
}

func (f *fakeSender) Send(ctx context.Context, msg mail.Message) error {
	if f.sendFunc != nil {
		return f.sendFunc(ctx, msg)
	}
	f.sent = append(f.sent, msg)
	return nil
}

type fakeEnqueuer struct {
	welcomes        []string
	passwordChanges []string
}

func (f *fakeEnqueuer) EnqueueWelcomeEmail(email, firstName string) error {
	f.welcomes = append(f.welcomes, email)
	return nil
}

func (f *fakeEnqueuer) EnqueuePasswordChanged(email string) error {
	f.passwordChanges = append(f.passwordChanges, email)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:     testSecret,
			SessionExpiry: time.Hour,
			ResetExpiry:   time.Hour,
			BcryptCost:    4,
		},
		App: config.AppConfig{FrontendURL: "http://localhost:4100"},
	}
}

func newTestService(store *fakeStore, sender *fakeSender, queue *fakeEnqueuer) *Service {
	return NewService(store, testTokenService(), sender, queue, testConfig())
}

func storedUser(t *testing.T, email, password string) *models.User {
	t.Helper()
	hash, err := HashPassword(password, 4)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	return &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
	}
}

func TestLoginUnknownEmail(t *testing.T) {
	svc := newTestService(&fakeStore{}, &fakeSender{}, &fakeEnqueuer{})

	_, err := svc.Login(context.Background(), "nobody@acme.test", "password123")
	if !apperr.IsKind(err, apperr.KindUnauthenticated) {
		t.Fatalf("Login() error = %v, want unauthenticated", err)
	}
	if apperr.ClientMessage(err) != "Invalid credentials" {
		t.Errorf("message = %q, want %q", apperr.ClientMessage(err), "Invalid credentials")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	u := storedUser(t, "admin@acme.test", "password123")
	store := &fakeStore{
		getUserByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return u, nil
		},
	}
	svc := newTestService(store, &fakeSender{}, &fakeEnqueuer{})

	_, err := svc.Login(context.Background(), "admin@acme.test", "wrong-password")
	if !apperr.IsKind(err, apperr.KindUnauthenticated) {
		t.Fatalf("Login() error = %v, want unauthenticated", err)
	}
}

func TestLoginSuccess(t *testing.T) {
	u := storedUser(t, "admin@acme.test", "password123")
	store := &fakeStore{
		getUserByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			if email != "admin@acme.test" {
				t.Errorf("looked up %q, want normalized email", email)
			}
			return u, nil
		},
	}
	svc := newTestService(store, &fakeSender{}, &fakeEnqueuer{})

	result, err := svc.Login(context.Background(), "  Admin@Acme.Test ", "password123")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if result.Token == "" {
		t.Error("Login() returned empty token")
	}
	if result.User.ID != u.ID {
		t.Errorf("user ID = %s, want %s", result.User.ID, u.ID)
	}
}

func TestSignupDuplicateUser(t *testing.T) {
	store := &fakeStore{
		getUserByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return &models.User{ID: uuid.New(), Email: email}, nil
		},
	}
	svc := newTestService(store, &fakeSender{}, &fakeEnqueuer{})

	_, err := svc.Signup(context.Background(), SignupRequest{
		Email: "admin@acme.test", Password: "password123",
		FirstName: "Ada", LastName: "Lovelace", CompanyName: "Acme",
	})
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("Signup() error = %v, want conflict", err)
	}
	if apperr.ClientMessage(err) != "User already exists" {
		t.Errorf("message = %q, want %q", apperr.ClientMessage(err), "User already exists")
	}
}

func TestSignupDuplicateCompany(t *testing.T) {
	store := &fakeStore{
		companyNameExistsFunc: func(ctx context.Context, name string) (bool, error) {
			return true, nil
		},
	}
	svc := newTestService(store, &fakeSender{}, &fakeEnqueuer{})

	_, err := svc.Signup(context.Background(), SignupRequest{
		Email: "admin@acme.test", Password: "password123",
		FirstName: "Ada", LastName: "Lovelace", CompanyName: "Acme",
	})
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("Signup() error = %v, want conflict", err)
	}
	if apperr.ClientMessage(err) != "Company already exists" {
		t.Errorf("message = %q, want %q", apperr.ClientMessage(err), "Company already exists")
	}
}

func TestSignupShortPassword(t *testing.T) {
	svc := newTestService(&fakeStore{}, &fakeSender{}, &fakeEnqueuer{})

	_, err := svc.Signup(context.Background(), SignupRequest{
		Email: "admin@acme.test", Password: "short",
		FirstName: "Ada", LastName: "Lovelace",
	})
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("Signup() error = %v, want validation", err)
	}
}

func TestSignupCreatesAdminWithCompany(t *testing.T) {
	store := &fakeStore{}
	queue := &fakeEnqueuer{}
	svc := newTestService(store, &fakeSender{}, queue)

	result, err := svc.Signup(context.Background(), SignupRequest{
		Email: "Admin@Acme.Test", Password: "password123",
		FirstName: "Ada", LastName: "Lovelace", CompanyName: "Acme",
	})
	if err != nil {
		t.Fatalf("Signup() error = %v", err)
	}

	if result.User.Role != models.RoleAdmin {
		t.Errorf("role = %q, want admin", result.User.Role)
	}
	if !result.User.EmailVerified {
		t.Error("signup user should be email-verified")
	}
	if result.User.Email != "admin@acme.test" {
		t.Errorf("email = %q, want normalized", result.User.Email)
	}
	if result.User.Company == nil || result.User.Company.Name != "Acme" {
		t.Error("company missing from signup result")
	}
	if len(queue.welcomes) != 1 {
		t.Errorf("welcome emails enqueued = %d, want 1", len(queue.welcomes))
	}
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	svc := newTestService(&fakeStore{}, &fakeSender{}, &fakeEnqueuer{})

	err := svc.ForgotPassword(context.Background(), "nobody@acme.test")
	if !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("ForgotPassword() error = %v, want not found", err)
	}
}

func TestForgotPasswordStoresTokenAndSends(t *testing.T) {
	u := storedUser(t, "admin@acme.test", "password123")
	store := &fakeStore{
		getUserByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return u, nil
		},
	}
	sender := &fakeSender{}
	svc := newTestService(store, sender, &fakeEnqueuer{})

	if err := svc.ForgotPassword(context.Background(), "admin@acme.test"); err != nil {
		t.Fatalf("ForgotPassword() error = %v", err)
	}
	if len(store.setResetTokenCalls) != 1 {
		t.Fatalf("SetResetToken calls = %d, want 1", len(store.setResetTokenCalls))
	}
	if until := time.Until(store.setResetTokenCalls[0]); until > time.Hour || until < 59*time.Minute {
		t.Errorf("reset expiry %v from now, want about an hour", until)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("emails sent = %d, want 1", len(sender.sent))
	}
	if sender.sent[0].To != "admin@acme.test" {
		t.Errorf("email to = %q", sender.sent[0].To)
	}
}

// A failed reset email must leave no live token behind.
func TestForgotPasswordClearsTokenWhenSendFails(t *testing.T) {
	u := storedUser(t, "admin@acme.test", "password123")
	store := &fakeStore{
		getUserByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return u, nil
		},
	}
	sender := &fakeSender{
		sendFunc: func(ctx context.Context, msg mail.Message) error {
			return errors.New("smtp down")
		},
	}
	svc := newTestService(store, sender, &fakeEnqueuer{})

	err := svc.ForgotPassword(context.Background(), "admin@acme.test")
	if !apperr.IsKind(err, apperr.KindNotificationFailed) {
		t.Fatalf("ForgotPassword() error = %v, want notification failure", err)
	}
	if len(store.setResetTokenCalls) != 1 {
		t.Errorf("SetResetToken calls = %d, want 1", len(store.setResetTokenCalls))
	}
	if len(store.clearResetTokenCalls) != 1 {
		t.Errorf("ClearResetToken calls = %d, want 1", len(store.clearResetTokenCalls))
	}
}

func TestResetPasswordRejectsSessionToken(t *testing.T) {
	svc := newTestService(&fakeStore{}, &fakeSender{}, &fakeEnqueuer{})

	session, err := testTokenService().IssueSession(testUser())
	if err != nil {
		t.Fatalf("IssueSession() error = %v", err)
	}

	err = svc.ResetPassword(context.Background(), session, "newpassword")
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("ResetPassword() error = %v, want validation", err)
	}
}

func TestResetPasswordRejectsUnmatchedToken(t *testing.T) {
	svc := newTestService(&fakeStore{}, &fakeSender{}, &fakeEnqueuer{})

	token, err := testTokenService().IssuePasswordReset("admin@acme.test")
	if err != nil {
		t.Fatalf("IssuePasswordReset() error = %v", err)
	}

	err = svc.ResetPassword(context.Background(), token, "newpassword")
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("ResetPassword() error = %v, want validation", err)
	}
	if apperr.ClientMessage(err) != "Invalid or expired token" {
		t.Errorf("message = %q, want %q", apperr.ClientMessage(err), "Invalid or expired token")
	}
}

func TestResetPasswordSuccess(t *testing.T) {
	u := storedUser(t, "admin@acme.test", "oldpassword")
	store := &fakeStore{
		getUserByResetFunc: func(ctx context.Context, email, token string) (*models.User, error) {
			return u, nil
		},
	}
	queue := &fakeEnqueuer{}
	svc := newTestService(store, &fakeSender{}, queue)

	token, err := testTokenService().IssuePasswordReset("admin@acme.test")
	if err != nil {
		t.Fatalf("IssuePasswordReset() error = %v", err)
	}

	if err := svc.ResetPassword(context.Background(), token, "newpassword"); err != nil {
		t.Fatalf("ResetPassword() error = %v", err)
	}
	if len(store.updatePasswordCalls) != 1 {
		t.Fatalf("UpdatePassword calls = %d, want 1", len(store.updatePasswordCalls))
	}
	if err := VerifyPassword(store.updatedPasswordHash, "newpassword"); err != nil {
		t.Error("stored hash does not match the new password")
	}
	if len(queue.passwordChanges) != 1 {
		t.Errorf("password changed notices = %d, want 1", len(queue.passwordChanges))
	}
}

func TestVerifyEmailConsumedToken(t *testing.T) {
	store := &fakeStore{
		markEmailVerifiedFunc: func(ctx context.Context, email, token string) (bool, error) {
			return false, nil
		},
	}
	svc := newTestService(store, &fakeSender{}, &fakeEnqueuer{})

	token, err := testTokenService().IssueEmailVerification("admin@acme.test")
	if err != nil {
		t.Fatalf("IssueEmailVerification() error = %v", err)
	}

	err = svc.VerifyEmail(context.Background(), token)
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("VerifyEmail() error = %v, want validation", err)
	}
}
