package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/dmarkov/saasadmin/internal/audit"
	"github.com/dmarkov/saasadmin/internal/auth"
	"github.com/dmarkov/saasadmin/internal/billing"
)

type SubscriptionHandler struct {
	svc   *billing.Service
	audit *audit.Service
}

func NewSubscriptionHandler(svc *billing.Service, auditSvc *audit.Service) *SubscriptionHandler {
	return &SubscriptionHandler{svc: svc, audit: auditSvc}
}

// Current returns the company's latest subscription. A company that has
// never subscribed gets the free/inactive baseline, not an error.
func (h *SubscriptionHandler) Current(w http.ResponseWriter, r *http.Request) {
	scope, _, err := resolveScope(r, auth.ResourceSubscription, auth.ActionRead)
	if err != nil {
		writeError(w, r, err)
		return
	}

	companyID, err := targetCompanyID(r, scope)
	if err != nil {
		writeError(w, r, err)
		return
	}

	sub, err := h.svc.CurrentSubscription(r.Context(), companyID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if sub == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"subscription": map[string]string{"planType": "free", "status": "inactive"},
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"subscription": sub})
}

func (h *SubscriptionHandler) Invoices(w http.ResponseWriter, r *http.Request) {
	scope, _, err := resolveScope(r, auth.ResourceSubscription, auth.ActionRead)
	if err != nil {
		writeError(w, r, err)
		return
	}

	companyID, err := targetCompanyID(r, scope)
	if err != nil {
		writeError(w, r, err)
		return
	}

	invoices, err := h.svc.Invoices(r.Context(), companyID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"invoices": invoices})
}

func (h *SubscriptionHandler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	scope, _, err := resolveScope(r, auth.ResourceSubscription, auth.ActionUpdate)
	if err != nil {
		writeError(w, r, err)
		return
	}

	companyID, err := targetCompanyID(r, scope)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req struct {
		PriceID string `json:"priceId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	session, err := h.svc.CreateCheckoutSession(r.Context(), companyID, req.PriceID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.logAction(r, "subscription.checkout", nil, map[string]interface{}{"price_id": req.PriceID})
	writeJSON(w, http.StatusOK, session)
}

func (h *SubscriptionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	scope, _, err := resolveScope(r, auth.ResourceSubscription, auth.ActionUpdate)
	if err != nil {
		writeError(w, r, err)
		return
	}

	companyID, err := targetCompanyID(r, scope)
	if err != nil {
		writeError(w, r, err)
		return
	}

	sub, err := h.svc.Cancel(r.Context(), companyID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.logAction(r, "subscription.cancel", &sub.ID, nil)
	writeJSON(w, http.StatusOK, map[string]interface{}{"subscription": sub})
}

func (h *SubscriptionHandler) logAction(r *http.Request, action string, resourceID *uuid.UUID, details map[string]interface{}) {
	if h.audit == nil {
		return
	}
	h.audit.Log(r.Context(), audit.LogEntry{
		Action:       action,
		ResourceType: "subscription",
		ResourceID:   resourceID,
		Details:      details,
		IPAddress:    clientIP(r),
	})
}
