package handlers

import (
	"context"
	"net/http"

	"github.com/dmarkov/saasadmin/internal/apperr"
	"github.com/dmarkov/saasadmin/internal/auth"
	"github.com/dmarkov/saasadmin/internal/tenant"
)

// AuthService is the slice of auth workflows the handler needs; tests
// substitute a fake.
type AuthService interface {
	Login(ctx context.Context, email, password string) (*auth.LoginResult, error)
	Signup(ctx context.Context, req auth.SignupRequest) (*auth.LoginResult, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, password string) error
	VerifyEmail(ctx context.Context, token string) error
}

type AuthHandler struct {
	svc AuthService
}

func NewAuthHandler(svc AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req auth.SignupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.svc.Signup(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// Verify echoes the identity the middleware already authenticated; the SPA
// calls it on boot to restore a session.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	user := tenant.UserFromContext(r.Context())
	if user == nil {
		writeError(w, r, apperr.Unauthenticated("No token provided"))
		return
	}
	company := tenant.CompanyFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user": auth.SessionUser{User: user, Company: company},
	})
}

func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.svc.ForgotPassword(r.Context(), req.Email); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Password reset email sent")
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.svc.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Password has been reset")
}

func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.svc.VerifyEmail(r.Context(), req.Token); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Email verified")
}
