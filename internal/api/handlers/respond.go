package handlers

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"

	"github.com/dmarkov/saasadmin/internal/apperr"
	"github.com/dmarkov/saasadmin/internal/auth"
	"github.com/dmarkov/saasadmin/internal/models"
	"github.com/dmarkov/saasadmin/internal/tenant"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError maps a service error to its HTTP response. Internal details are
// logged, never serialized.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.Status(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "error", err, "method", r.Method, "path", r.URL.Path)
	}
	writeJSON(w, status, map[string]string{"message": apperr.ClientMessage(err)})
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

func decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.Validation("Invalid input data")
	}
	return nil
}

// resolveScope looks up the caller's policy scope for a resource/action. The
// returned user is never nil when the error is nil.
func resolveScope(r *http.Request, res auth.Resource, act auth.Action) (auth.Scope, *models.User, error) {
	caller := tenant.UserFromContext(r.Context())
	if caller == nil {
		return auth.ScopeNone, nil, apperr.Unauthenticated("No token provided")
	}
	scope := auth.ScopeFor(caller.Role, res, act)
	if scope == auth.ScopeNone {
		return auth.ScopeNone, caller, apperr.Forbidden("Insufficient permissions")
	}
	return scope, caller, nil
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
