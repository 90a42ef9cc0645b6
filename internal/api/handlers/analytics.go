package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/dmarkov/saasadmin/internal/analytics"
	"github.com/dmarkov/saasadmin/internal/auth"
	"github.com/dmarkov/saasadmin/internal/tenant"
)

type AnalyticsHandler struct {
	svc *analytics.Service
}

func NewAnalyticsHandler(svc *analytics.Service) *AnalyticsHandler {
	return &AnalyticsHandler{svc: svc}
}

func (h *AnalyticsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	scope, companyID, err := h.resolve(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	stats, err := h.svc.Dashboard(r.Context(), scope, companyID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *AnalyticsHandler) UserGrowth(w http.ResponseWriter, r *http.Request) {
	scope, companyID, err := h.resolve(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	growth, err := h.svc.UserGrowth(r.Context(), scope, companyID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"growth": growth})
}

func (h *AnalyticsHandler) Revenue(w http.ResponseWriter, r *http.Request) {
	scope, companyID, err := h.resolve(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	revenue, err := h.svc.Revenue(r.Context(), scope, companyID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"revenue": revenue})
}

func (h *AnalyticsHandler) TopCompanies(w http.ResponseWriter, r *http.Request) {
	scope, companyID, err := h.resolve(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	stats, err := h.svc.TopCompanies(r.Context(), scope, companyID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"companies": stats})
}

func (h *AnalyticsHandler) resolve(r *http.Request) (auth.Scope, uuid.UUID, error) {
	scope, _, err := resolveScope(r, auth.ResourceAnalytics, auth.ActionRead)
	if err != nil {
		return auth.ScopeNone, uuid.Nil, err
	}
	companyID := tenant.CompanyIDFromContext(r.Context())
	return scope, companyID, nil
}
