package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmarkov/saasadmin/internal/apperr"
	"github.com/dmarkov/saasadmin/internal/audit"
	"github.com/dmarkov/saasadmin/internal/auth"
	"github.com/dmarkov/saasadmin/internal/company"
)

type CompaniesHandler struct {
	svc   *company.Service
	audit *audit.Service
}

func NewCompaniesHandler(svc *company.Service, auditSvc *audit.Service) *CompaniesHandler {
	return &CompaniesHandler{svc: svc, audit: auditSvc}
}

func (h *CompaniesHandler) List(w http.ResponseWriter, r *http.Request) {
	if _, _, err := resolveScope(r, auth.ResourceCompanies, auth.ActionList); err != nil {
		writeError(w, r, err)
		return
	}

	companies, err := h.svc.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"companies": companies})
}

func (h *CompaniesHandler) Get(w http.ResponseWriter, r *http.Request) {
	scope, caller, err := resolveScope(r, auth.ResourceCompanies, auth.ActionRead)
	if err != nil {
		writeError(w, r, err)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, apperr.NotFound("Company not found"))
		return
	}
	// Company-scoped callers only ever see their own record; anything else
	// reads as absent.
	if scope == auth.ScopeCompany && (caller.CompanyID == nil || *caller.CompanyID != id) {
		writeError(w, r, apperr.NotFound("Company not found"))
		return
	}

	c, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *CompaniesHandler) Create(w http.ResponseWriter, r *http.Request) {
	if _, _, err := resolveScope(r, auth.ResourceCompanies, auth.ActionCreate); err != nil {
		writeError(w, r, err)
		return
	}

	var req company.CreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	c, err := h.svc.Create(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.logAction(r, "company.create", &c.ID, map[string]interface{}{"name": c.Name})
	writeJSON(w, http.StatusCreated, c)
}

func (h *CompaniesHandler) Update(w http.ResponseWriter, r *http.Request) {
	scope, caller, err := resolveScope(r, auth.ResourceCompanies, auth.ActionUpdate)
	if err != nil {
		writeError(w, r, err)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, apperr.NotFound("Company not found"))
		return
	}
	if scope == auth.ScopeCompany && (caller.CompanyID == nil || *caller.CompanyID != id) {
		writeError(w, r, apperr.NotFound("Company not found"))
		return
	}

	var req company.UpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	c, err := h.svc.Update(r.Context(), id, req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.logAction(r, "company.update", &c.ID, map[string]interface{}{"name": c.Name})
	writeJSON(w, http.StatusOK, c)
}

func (h *CompaniesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if _, _, err := resolveScope(r, auth.ResourceCompanies, auth.ActionDelete); err != nil {
		writeError(w, r, err)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, apperr.NotFound("Company not found"))
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}

	h.logAction(r, "company.delete", &id, nil)
	writeMessage(w, http.StatusOK, "Company deleted")
}

func (h *CompaniesHandler) logAction(r *http.Request, action string, resourceID *uuid.UUID, details map[string]interface{}) {
	if h.audit == nil {
		return
	}
	h.audit.Log(r.Context(), audit.LogEntry{
		Action:       action,
		ResourceType: "company",
		ResourceID:   resourceID,
		Details:      details,
		IPAddress:    clientIP(r),
	})
}
