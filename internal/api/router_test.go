package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/dmarkov/saasadmin/internal/config"
)

func testRouter(t *testing.T) chi.Router {
	t.Helper()

	cfg := &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:        "test-secret-key-at-least-32-chars-long",
			SessionExpiry:    24 * time.Hour,
			ResetExpiry:      time.Hour,
			InvitationExpiry: 7 * 24 * time.Hour,
			BcryptCost:       4,
		},
		App: config.AppConfig{
			FrontendURL:    "http://localhost:4100",
			AllowedOrigins: []string{"*"},
		},
	}

	rt := NewRouter(nil, redis.NewClient(&redis.Options{Addr: "localhost:6379"}), cfg)
	mux, ok := rt.Setup().(chi.Router)
	if !ok {
		t.Fatal("Setup() did not return a chi router")
	}
	return mux
}

func TestRouteTable(t *testing.T) {
	mux := testRouter(t)

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/auth/login"},
		{http.MethodPost, "/api/auth/signup"},
		{http.MethodPost, "/api/auth/forgot-password"},
		{http.MethodPost, "/api/auth/reset-password"},
		{http.MethodPost, "/api/auth/verify-email"},
		{http.MethodGet, "/api/auth/verify"},

		{http.MethodGet, "/api/auth/invitation/sometoken"},
		{http.MethodPost, "/api/auth/accept-invitation"},
		{http.MethodGet, "/api/users/invitation/sometoken"},
		{http.MethodPost, "/api/users/accept-invitation"},

		{http.MethodGet, "/api/users"},
		{http.MethodPost, "/api/users"},
		{http.MethodPost, "/api/users/invite"},
		{http.MethodPut, "/api/users/profile"},
		{http.MethodPut, "/api/users/change-password"},
		{http.MethodGet, "/api/companies"},
		{http.MethodGet, "/api/settings"},
		{http.MethodGet, "/api/subscription"},
		{http.MethodPost, "/api/subscription/checkout"},
		{http.MethodGet, "/api/analytics/dashboard"},
		{http.MethodGet, "/api/admin/audit"},
		{http.MethodPost, "/api/messages"},

		{http.MethodGet, "/healthz"},
		{http.MethodGet, "/readyz"},
	}

	for _, tt := range routes {
		if !mux.Match(chi.NewRouteContext(), tt.method, tt.path) {
			t.Errorf("no route for %s %s", tt.method, tt.path)
		}
	}
}
