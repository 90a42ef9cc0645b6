package invitation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/dmarkov/saasadmin/internal/apperr"
	"github.com/dmarkov/saasadmin/internal/auth"
	"github.com/dmarkov/saasadmin/internal/config"
	"github.com/dmarkov/saasadmin/internal/mail"
	"github.com/dmarkov/saasadmin/internal/models"
)

type fakeStore struct {
	userEmailExistsFunc func(ctx context.Context, email string) (bool, error)
	getByTokenFunc      func(ctx context.Context, token string) (*Details, error)
	acceptFunc          func(ctx context.Context, invitationID uuid.UUID, u *models.User) (*models.User, bool, error)
	inserted            []*models.Invitation
	deleted             []uuid.UUID
}

func (f *fakeStore) UserEmailExists(ctx context.Context, email string) (bool, error) {
	if f.userEmailExistsFunc != nil {
		return f.userEmailExistsFunc(ctx, email)
	}
	return false, nil
}

func (f *fakeStore) Insert(ctx context.Context, inv *models.Invitation) (*models.Invitation, error) {
	inv.ID = uuid.New()
	f.inserted = append(f.inserted, inv)
	return inv, nil
}

func (f *fakeStore) Delete(ctx context.Context, id uuid.UUID) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeStore) GetByToken(ctx context.Context, token string) (*Details, error) {
	if f.getByTokenFunc != nil {
		return f.getByTokenFunc(ctx, token)
	}
	return nil, nil
}

func (f *fakeStore) Accept(ctx context.Context, invitationID uuid.UUID, u *models.User) (*models.User, bool, error) {
	if f.acceptFunc != nil {
		return f.acceptFunc(ctx, invitationID, u)
	}
	u.ID = uuid.New()
	return u, true, nil
}

func (f *fakeStore) GetCompanyByID(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	return &models.Company{ID: id, Name: "Acme"}, nil
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

func testTokens() *auth.TokenService {
	return auth.NewTokenService(config.AuthConfig{
		JWTSecret:     "test-secret-key-at-least-32-chars-long",
		SessionExpiry: time.Hour,
	})
}

func newTestService(store *fakeStore, sender *fakeSender) Service {
	return NewService(store, testTokens(), sender, 7*24*time.Hour, 4, "http://localhost:4100")
}

func testParams() CreateParams {
	company := &models.Company{ID: uuid.New(), Name: "Acme"}
	inviter := &models.User{ID: uuid.New(), Email: "admin@acme.test"}
	return CreateParams{
		Email:       "New.Hire@Acme.Test",
		Role:        models.RoleUser,
		Company:     company,
		InvitedBy:   inviter,
		InviterName: "Ada Lovelace",
	}
}

func pendingDetails(token string) *Details {
	return &Details{
		Invitation: models.Invitation{
			ID:        uuid.New(),
			Email:     "new.hire@acme.test",
			CompanyID: uuid.New(),
			Role:      models.RoleUser,
			Token:     token,
			ExpiresAt: time.Now().Add(time.Hour),
		},
		CompanyName: "Acme",
		InviterName: "Ada Lovelace",
	}
}

func TestCreateSendsTokenEmail(t *testing.T) {
	store := &fakeStore{}
	sender := &fakeSender{}
	svc := newTestService(store, sender)

	inv, err := svc.Create(context.Background(), testParams())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if inv.Email != "new.hire@acme.test" {
		t.Errorf("email = %q, want normalized", inv.Email)
	}
	if inv.Token == "" {
		t.Error("invitation has no token")
	}
	if until := time.Until(inv.ExpiresAt); until < 6*24*time.Hour {
		t.Errorf("expiry %v from now, want about 7 days", until)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("emails sent = %d, want 1", len(sender.sent))
	}
	if !strings.Contains(sender.sent[0].HTML, inv.Token) {
		t.Error("invitation email does not carry the token")
	}
	if len(store.deleted) != 0 {
		t.Errorf("deletions = %d, want 0", len(store.deleted))
	}
}

func TestCreateRejectsExistingUser(t *testing.T) {
	store := &fakeStore{
		userEmailExistsFunc: func(ctx context.Context, email string) (bool, error) {
			return true, nil
		},
	}
	svc := newTestService(store, &fakeSender{})

	_, err := svc.Create(context.Background(), testParams())
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("Create() error = %v, want conflict", err)
	}
	if apperr.ClientMessage(err) != "User already exists" {
		t.Errorf("message = %q, want %q", apperr.ClientMessage(err), "User already exists")
	}
}

func TestCreateRejectsSuperAdminRole(t *testing.T) {
	svc := newTestService(&fakeStore{}, &fakeSender{})

	p := testParams()
	p.Role = models.RoleSuperAdmin
	_, err := svc.Create(context.Background(), p)
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("Create() error = %v, want validation", err)
	}
}

// A failed invitation email must delete the row it just wrote.
func TestCreateDeletesRowWhenSendFails(t *testing.T) {
	store := &fakeStore{}
	sender := &fakeSender{
		sendFunc: func(ctx context.Context, msg mail.Message) error {
			return errors.New("smtp down")
		},
	}
	svc := newTestService(store, sender)

	_, err := svc.Create(context.Background(), testParams())
	if !apperr.IsKind(err, apperr.KindNotificationFailed) {
		t.Fatalf("Create() error = %v, want notification failure", err)
	}
	if len(store.inserted) != 1 {
		t.Fatalf("inserts = %d, want 1", len(store.inserted))
	}
	if len(store.deleted) != 1 || store.deleted[0] != store.inserted[0].ID {
		t.Errorf("compensating delete missing, deleted = %v", store.deleted)
	}
}

func TestDetailsUnknownToken(t *testing.T) {
	svc := newTestService(&fakeStore{}, &fakeSender{})

	_, err := svc.Details(context.Background(), "no-such-token")
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("Details() error = %v, want validation", err)
	}
	if apperr.ClientMessage(err) != "Invalid or expired invitation" {
		t.Errorf("message = %q", apperr.ClientMessage(err))
	}
}

func TestDetailsExpiredToken(t *testing.T) {
	d := pendingDetails("tok")
	d.ExpiresAt = time.Now().Add(-time.Minute)
	store := &fakeStore{
		getByTokenFunc: func(ctx context.Context, token string) (*Details, error) {
			return d, nil
		},
	}
	svc := newTestService(store, &fakeSender{})

	_, err := svc.Details(context.Background(), "tok")
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("Details() error = %v, want validation", err)
	}
}

func TestDetailsAcceptedToken(t *testing.T) {
	d := pendingDetails("tok")
	now := time.Now()
	d.AcceptedAt = &now
	store := &fakeStore{
		getByTokenFunc: func(ctx context.Context, token string) (*Details, error) {
			return d, nil
		},
	}
	svc := newTestService(store, &fakeSender{})

	_, err := svc.Details(context.Background(), "tok")
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("Details() error = %v, want validation", err)
	}
}

func TestAcceptCreatesUserAndIssuesSession(t *testing.T) {
	d := pendingDetails("tok")
	store := &fakeStore{
		getByTokenFunc: func(ctx context.Context, token string) (*Details, error) {
			return d, nil
		},
	}
	svc := newTestService(store, &fakeSender{})

	result, err := svc.Accept(context.Background(), AcceptRequest{
		Token: "tok", Password: "password123", FirstName: "New", LastName: "Hire",
	})
	if err != nil {
		t.Fatalf("Accept() error = %v", err)
	}

	if result.Token == "" {
		t.Error("Accept() returned no session token")
	}
	u := result.User
	if u.Email != d.Email {
		t.Errorf("email = %q, want %q", u.Email, d.Email)
	}
	if u.Role != models.RoleUser {
		t.Errorf("role = %q, want user", u.Role)
	}
	if !u.EmailVerified {
		t.Error("accepted user should be email-verified")
	}
	if u.CompanyID == nil || *u.CompanyID != d.CompanyID {
		t.Error("accepted user not attached to the inviting company")
	}
}

func TestAcceptShortPassword(t *testing.T) {
	svc := newTestService(&fakeStore{}, &fakeSender{})

	_, err := svc.Accept(context.Background(), AcceptRequest{Token: "tok", Password: "short"})
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("Accept() error = %v, want validation", err)
	}
}

func TestAcceptRaceLostToConcurrentRedeem(t *testing.T) {
	d := pendingDetails("tok")
	store := &fakeStore{
		getByTokenFunc: func(ctx context.Context, token string) (*Details, error) {
			return d, nil
		},
		acceptFunc: func(ctx context.Context, invitationID uuid.UUID, u *models.User) (*models.User, bool, error) {
			return nil, false, nil
		},
	}
	svc := newTestService(store, &fakeSender{})

	_, err := svc.Accept(context.Background(), AcceptRequest{
		Token: "tok", Password: "password123", FirstName: "New", LastName: "Hire",
	})
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("Accept() error = %v, want validation", err)
	}
}

func TestAcceptEmailClaimedMeanwhile(t *testing.T) {
	d := pendingDetails("tok")
	store := &fakeStore{
		getByTokenFunc: func(ctx context.Context, token string) (*Details, error) {
			return d, nil
		},
		userEmailExistsFunc: func(ctx context.Context, email string) (bool, error) {
			return true, nil
		},
	}
	svc := newTestService(store, &fakeSender{})

	_, err := svc.Accept(context.Background(), AcceptRequest{
		Token: "tok", Password: "password123", FirstName: "New", LastName: "Hire",
	})
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("Accept() error = %v, want conflict", err)
	}
}

func TestGenerateTokenIsRandomHex(t *testing.T) {
	a, err := GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	b, err := GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	if len(a) != 64 {
		t.Errorf("token length = %d, want 64", len(a))
	}
	if a == b {
		t.Error("two tokens are identical")
	}
}
