package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmarkov/saasadmin/internal/apperr"
	"github.com/dmarkov/saasadmin/internal/audit"
	"github.com/dmarkov/saasadmin/internal/auth"
	"github.com/dmarkov/saasadmin/internal/tenant"
)

// AdhocEnqueuer hands one-off operator emails to the background worker.
type AdhocEnqueuer interface {
	EnqueueAdhocEmail(to, subject, body string) error
}

type AdminHandler struct {
	auditSvc *audit.Service
	queue    AdhocEnqueuer
}

func NewAdminHandler(auditSvc *audit.Service, queue AdhocEnqueuer) *AdminHandler {
	return &AdminHandler{auditSvc: auditSvc, queue: queue}
}

// AuditLogs lists administrative actions. Company-scoped callers only see
// their own company's trail.
func (h *AdminHandler) AuditLogs(w http.ResponseWriter, r *http.Request) {
	scope, caller, err := resolveScope(r, auth.ResourceAudit, auth.ActionRead)
	if err != nil {
		writeError(w, r, err)
		return
	}

	q := audit.Query{
		Action: r.URL.Query().Get("action"),
	}
	if scope != auth.ScopeAll {
		if caller.CompanyID == nil {
			writeError(w, r, apperr.Validation("No company associated with user"))
			return
		}
		q.CompanyID = caller.CompanyID
	}

	q.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	q.Offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))

	if s := r.URL.Query().Get("start_date"); s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			q.StartDate = &t
		}
	}
	if s := r.URL.Query().Get("end_date"); s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			q.EndDate = &t
		}
	}

	logs, err := h.auditSvc.List(r.Context(), q)
	if err != nil {
		writeError(w, r, apperr.Internal(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"audit_logs": logs, "count": len(logs)})
}

// SendMessage queues a one-off email from an operator or admin. Delivery is
// asynchronous; acceptance here only means the task was enqueued.
func (h *AdminHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	if _, _, err := resolveScope(r, auth.ResourceMessages, auth.ActionCreate); err != nil {
		writeError(w, r, err)
		return
	}

	var req struct {
		To      string `json:"to"`
		Subject string `json:"subject"`
		Body    string `json:"body"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if !strings.Contains(req.To, "@") || strings.TrimSpace(req.Subject) == "" {
		writeError(w, r, apperr.Validation("Invalid input data"))
		return
	}

	if err := h.queue.EnqueueAdhocEmail(req.To, req.Subject, req.Body); err != nil {
		writeError(w, r, apperr.Internal(err))
		return
	}

	if caller := tenant.UserFromContext(r.Context()); caller != nil {
		h.auditSvc.Log(r.Context(), audit.LogEntry{
			Action:       "message.send",
			ResourceType: "message",
			Details:      map[string]interface{}{"to": req.To, "subject": req.Subject},
			IPAddress:    clientIP(r),
		})
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"message": "Message queued"})
}
