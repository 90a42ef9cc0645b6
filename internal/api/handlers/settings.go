package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/dmarkov/saasadmin/internal/apperr"
	"github.com/dmarkov/saasadmin/internal/audit"
	"github.com/dmarkov/saasadmin/internal/auth"
	"github.com/dmarkov/saasadmin/internal/settings"
	"github.com/dmarkov/saasadmin/internal/tenant"
)

type SettingsHandler struct {
	svc   *settings.Service
	audit *audit.Service
}

func NewSettingsHandler(svc *settings.Service, auditSvc *audit.Service) *SettingsHandler {
	return &SettingsHandler{svc: svc, audit: auditSvc}
}

// targetCompanyID resolves which company a settings or billing request acts
// on: the caller's own company, or any company when a platform operator names
// one explicitly.
func targetCompanyID(r *http.Request, scope auth.Scope) (uuid.UUID, error) {
	if scope == auth.ScopeAll {
		if s := r.URL.Query().Get("company_id"); s != "" {
			id, err := uuid.Parse(s)
			if err != nil {
				return uuid.Nil, apperr.Validation("Invalid input data")
			}
			return id, nil
		}
	}
	id := tenant.CompanyIDFromContext(r.Context())
	if id == uuid.Nil {
		return uuid.Nil, apperr.Validation("No company associated with user")
	}
	return id, nil
}

func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	scope, _, err := resolveScope(r, auth.ResourceSettings, auth.ActionRead)
	if err != nil {
		writeError(w, r, err)
		return
	}

	companyID, err := targetCompanyID(r, scope)
	if err != nil {
		writeError(w, r, err)
		return
	}

	values, err := h.svc.Get(r.Context(), companyID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"settings": values})
}

func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	scope, _, err := resolveScope(r, auth.ResourceSettings, auth.ActionUpdate)
	if err != nil {
		writeError(w, r, err)
		return
	}

	companyID, err := targetCompanyID(r, scope)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var values map[string]json.RawMessage
	if err := decodeJSON(r, &values); err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.svc.Update(r.Context(), companyID, values); err != nil {
		writeError(w, r, err)
		return
	}

	if h.audit != nil {
		keys := make([]string, 0, len(values))
		for k := range values {
			keys = append(keys, k)
		}
		h.audit.Log(r.Context(), audit.LogEntry{
			Action:       "settings.update",
			ResourceType: "settings",
			Details:      map[string]interface{}{"keys": keys},
			IPAddress:    clientIP(r),
		})
	}

	merged, err := h.svc.Get(r.Context(), companyID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"settings": merged})
}
