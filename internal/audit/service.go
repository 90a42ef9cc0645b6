package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/netip"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmarkov/saasadmin/internal/models"
	"github.com/dmarkov/saasadmin/internal/tenant"
)

type Service struct {
	db *pgxpool.Pool
}

func NewService(db *pgxpool.Pool) *Service {
	return &Service{db: db}
}

type LogEntry struct {
	Action       string
	ResourceType string
	ResourceID   *uuid.UUID
	Details      map[string]interface{}
	IPAddress    string
}

// Log records an administrative action attributed to the request identity.
// Audit writes never fail the caller's request.
func (s *Service) Log(ctx context.Context, entry LogEntry) {
	user := tenant.UserFromContext(ctx)

	var userID, companyID *uuid.UUID
	if user != nil {
		userID = &user.ID
		companyID = user.CompanyID
	}

	details, _ := json.Marshal(entry.Details)

	var ip *netip.Addr
	if entry.IPAddress != "" {
		parsed, err := netip.ParseAddr(entry.IPAddress)
		if err == nil {
			ip = &parsed
		}
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO audit_logs (company_id, user_id, action, resource_type, resource_id, details, ip_address)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		companyID, userID, entry.Action, entry.ResourceType, entry.ResourceID, details, ip)
	if err != nil {
		slog.Error("insert audit log failed", "error", err, "action", entry.Action)
	}
}

type Query struct {
	CompanyID *uuid.UUID // nil means platform-wide (super_admin)
	Action    string
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
	Offset    int
}

func (s *Service) List(ctx context.Context, q Query) ([]models.AuditLog, error) {
	if q.Limit <= 0 {
		q.Limit = 50
	}

	query := `SELECT id, company_id, user_id, action, resource_type, resource_id, details, ip_address, created_at
		FROM audit_logs WHERE 1=1`
	var args []interface{}
	argIdx := 1

	if q.CompanyID != nil {
		query += fmt.Sprintf(" AND company_id = $%d", argIdx)
		args = append(args, *q.CompanyID)
		argIdx++
	}
	if q.Action != "" {
		query += fmt.Sprintf(" AND action = $%d", argIdx)
		args = append(args, q.Action)
		argIdx++
	}
	if q.StartDate != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *q.StartDate)
		argIdx++
	}
	if q.EndDate != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, *q.EndDate)
		argIdx++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, q.Limit, q.Offset)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit logs: %w", err)
	}
	defer rows.Close()

	logs := []models.AuditLog{}
	for rows.Next() {
		var l models.AuditLog
		if err := rows.Scan(&l.ID, &l.CompanyID, &l.UserID, &l.Action, &l.ResourceType,
			&l.ResourceID, &l.Details, &l.IPAddress, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, nil
}
