package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/dmarkov/saasadmin/internal/models"
	"github.com/dmarkov/saasadmin/internal/tenant"
)

// IdentitySource loads the caller's user and company records when a bearer
// token checks out. Not-found is reported as a nil record with a nil error.
type IdentitySource interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetCompanyByID(ctx context.Context, id uuid.UUID) (*models.Company, error)
}

type Middleware struct {
	tokens *TokenService
	source IdentitySource
}

func NewMiddleware(tokens *TokenService, source IdentitySource) *Middleware {
	return &Middleware{tokens: tokens, source: source}
}

// Authenticate verifies the bearer token, re-loads the caller from the
// database, and attaches the identity to the request context. Single-purpose
// tokens (password reset, email verification) are not session credentials.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr := extractBearerToken(r)
		if tokenStr == "" {
			writeError(w, http.StatusUnauthorized, "No token provided")
			return
		}

		claims, err := m.tokens.Verify(tokenStr)
		if err != nil || claims.Type != "" {
			writeError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		userID, err := uuid.Parse(claims.Subject)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		ctx := r.Context()

		user, err := m.source.GetUserByID(ctx, userID)
		if err != nil || user == nil {
			writeError(w, http.StatusUnauthorized, "User not found")
			return
		}
		ctx = tenant.WithUser(ctx, user)

		if user.CompanyID != nil {
			company, err := m.source.GetCompanyByID(ctx, *user.CompanyID)
			if err == nil && company != nil {
				ctx = tenant.WithCompany(ctx, company)
			}
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"message": msg})
}
