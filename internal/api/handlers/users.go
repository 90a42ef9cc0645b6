package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmarkov/saasadmin/internal/apperr"
	"github.com/dmarkov/saasadmin/internal/audit"
	"github.com/dmarkov/saasadmin/internal/auth"
	"github.com/dmarkov/saasadmin/internal/invitation"
	"github.com/dmarkov/saasadmin/internal/models"
	"github.com/dmarkov/saasadmin/internal/tenant"
	"github.com/dmarkov/saasadmin/internal/user"
)

// CompanyGetter loads a company record when a platform operator invites into
// a company other than their own.
type CompanyGetter interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Company, error)
}

type UsersHandler struct {
	users     user.Service
	invites   invitation.Service
	companies CompanyGetter
	audit     *audit.Service
}

func NewUsersHandler(users user.Service, invites invitation.Service, companies CompanyGetter, auditSvc *audit.Service) *UsersHandler {
	return &UsersHandler{users: users, invites: invites, companies: companies, audit: auditSvc}
}

func accessOf(scope auth.Scope, caller *models.User) user.Access {
	acc := user.Access{Scope: scope, UserID: caller.ID}
	if caller.CompanyID != nil {
		acc.CompanyID = *caller.CompanyID
	}
	return acc
}

func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	scope, caller, err := resolveScope(r, auth.ResourceUsers, auth.ActionList)
	if err != nil {
		writeError(w, r, err)
		return
	}

	users, err := h.users.List(r.Context(), accessOf(scope, caller))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if users == nil {
		users = []models.User{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"users": users})
}

func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	scope, caller, err := resolveScope(r, auth.ResourceUsers, auth.ActionRead)
	if err != nil {
		writeError(w, r, err)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, apperr.NotFound("User not found"))
		return
	}

	u, err := h.users.Get(r.Context(), accessOf(scope, caller), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	scope, caller, err := resolveScope(r, auth.ResourceUsers, auth.ActionCreate)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req user.CreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	u, err := h.users.Create(r.Context(), accessOf(scope, caller), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.logAction(r, "user.create", &u.ID, map[string]interface{}{"email": u.Email, "role": u.Role})
	writeJSON(w, http.StatusCreated, u)
}

func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	scope, caller, err := resolveScope(r, auth.ResourceUsers, auth.ActionUpdate)
	if err != nil {
		writeError(w, r, err)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, apperr.NotFound("User not found"))
		return
	}

	var req user.UpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	u, err := h.users.Update(r.Context(), accessOf(scope, caller), id, req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.logAction(r, "user.update", &u.ID, map[string]interface{}{"role": u.Role})
	writeJSON(w, http.StatusOK, u)
}

func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	scope, caller, err := resolveScope(r, auth.ResourceUsers, auth.ActionDelete)
	if err != nil {
		writeError(w, r, err)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, apperr.NotFound("User not found"))
		return
	}

	if err := h.users.Delete(r.Context(), accessOf(scope, caller), id); err != nil {
		writeError(w, r, err)
		return
	}

	h.logAction(r, "user.delete", &id, nil)
	writeMessage(w, http.StatusOK, "User deleted")
}

// Invite creates a pending invitation and emails its token. Admins always
// invite into their own company; platform operators may name any company.
func (h *UsersHandler) Invite(w http.ResponseWriter, r *http.Request) {
	scope, caller, err := resolveScope(r, auth.ResourceInvitations, auth.ActionCreate)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req struct {
		Email     string     `json:"email"`
		Role      string     `json:"role"`
		CompanyID *uuid.UUID `json:"company_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	company := tenant.CompanyFromContext(r.Context())
	if scope == auth.ScopeAll && req.CompanyID != nil {
		company, err = h.companies.Get(r.Context(), *req.CompanyID)
		if err != nil {
			writeError(w, r, err)
			return
		}
	}
	if company == nil {
		writeError(w, r, apperr.Validation("No company associated with user"))
		return
	}

	inv, err := h.invites.Create(r.Context(), invitation.CreateParams{
		Email:       req.Email,
		Role:        models.Role(req.Role),
		Company:     company,
		InvitedBy:   caller,
		InviterName: displayName(caller),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.logAction(r, "user.invite", &inv.ID, map[string]interface{}{"email": inv.Email, "role": inv.Role})
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message":    "Invitation sent",
		"invitation": inv,
	})
}

// InvitationDetails is unauthenticated; the acceptance page calls it to show
// who is inviting before the user has an account.
func (h *UsersHandler) InvitationDetails(w http.ResponseWriter, r *http.Request) {
	d, err := h.invites.Details(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// AcceptInvitation is unauthenticated; it turns a valid invitation token plus
// a chosen password into an account and a session.
func (h *UsersHandler) AcceptInvitation(w http.ResponseWriter, r *http.Request) {
	var req invitation.AcceptRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.invites.Accept(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *UsersHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	caller := tenant.UserFromContext(r.Context())
	if caller == nil {
		writeError(w, r, apperr.Unauthenticated("No token provided"))
		return
	}

	var req struct {
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	u, err := h.users.UpdateProfile(r.Context(), caller.ID, req.FirstName, req.LastName)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *UsersHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	caller := tenant.UserFromContext(r.Context())
	if caller == nil {
		writeError(w, r, apperr.Unauthenticated("No token provided"))
		return
	}

	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.users.ChangePassword(r.Context(), caller.ID, req.CurrentPassword, req.NewPassword); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Password updated")
}

func (h *UsersHandler) logAction(r *http.Request, action string, resourceID *uuid.UUID, details map[string]interface{}) {
	if h.audit == nil {
		return
	}
	h.audit.Log(r.Context(), audit.LogEntry{
		Action:       action,
		ResourceType: "user",
		ResourceID:   resourceID,
		Details:      details,
		IPAddress:    clientIP(r),
	})
}

func displayName(u *models.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}
