// Package analytics aggregates dashboard numbers. Aggregations honor the same
// tenant rule as row reads: super_admin sees the platform, admins see only
// rows belonging to their company.
package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmarkov/saasadmin/internal/apperr"
	"github.com/dmarkov/saasadmin/internal/auth"
	"github.com/dmarkov/saasadmin/internal/cache"
)

const cacheTTL = time.Minute

type Service struct {
	db    *pgxpool.Pool
	cache *cache.Cache
}

func NewService(db *pgxpool.Pool, c *cache.Cache) *Service {
	return &Service{db: db, cache: c}
}

type DashboardStats struct {
	TotalUsers          int     `json:"totalUsers"`
	TotalCompanies      int     `json:"totalCompanies"`
	ActiveSubscriptions int     `json:"activeSubscriptions"`
	TotalRevenue        float64 `json:"totalRevenue"`
}

func scopeKey(scope auth.Scope, companyID uuid.UUID, name string) string {
	if scope == auth.ScopeAll {
		return "analytics:" + name + ":all"
	}
	return "analytics:" + name + ":" + companyID.String()
}

func (s *Service) Dashboard(ctx context.Context, scope auth.Scope, companyID uuid.UUID) (*DashboardStats, error) {
	key := scopeKey(scope, companyID, "dashboard")
	if s.cache != nil {
		var cached DashboardStats
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}

	var stats DashboardStats
	var err error
	if scope == auth.ScopeAll {
		err = s.db.QueryRow(ctx, `
			SELECT (SELECT COUNT(*) FROM users),
			       (SELECT COUNT(*) FROM companies),
			       (SELECT COUNT(*) FROM subscriptions WHERE status = 'active'),
			       (SELECT COALESCE(SUM(amount), 0) FROM invoices WHERE status = 'paid')`,
		).Scan(&stats.TotalUsers, &stats.TotalCompanies, &stats.ActiveSubscriptions, &stats.TotalRevenue)
	} else {
		err = s.db.QueryRow(ctx, `
			SELECT (SELECT COUNT(*) FROM users WHERE company_id = $1),
			       1,
			       (SELECT COUNT(*) FROM subscriptions WHERE status = 'active' AND company_id = $1),
			       (SELECT COALESCE(SUM(amount), 0) FROM invoices WHERE status = 'paid' AND company_id = $1)`,
			companyID,
		).Scan(&stats.TotalUsers, &stats.TotalCompanies, &stats.ActiveSubscriptions, &stats.TotalRevenue)
	}
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("query dashboard stats: %w", err))
	}
	// Amounts are stored in cents.
	stats.TotalRevenue /= 100

	s.cacheSet(ctx, key, stats)
	return &stats, nil
}

type MonthlyCount struct {
	Month    string `json:"month"`
	NewUsers int    `json:"newUsers"`
}

func (s *Service) UserGrowth(ctx context.Context, scope auth.Scope, companyID uuid.UUID) ([]MonthlyCount, error) {
	query := `SELECT DATE_TRUNC('month', created_at) AS month, COUNT(*) AS new_users
		FROM users
		WHERE created_at >= now() - INTERVAL '6 months'`
	var args []any
	if scope != auth.ScopeAll {
		query += ` AND company_id = $1`
		args = append(args, companyID)
	}
	query += ` GROUP BY DATE_TRUNC('month', created_at) ORDER BY month`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("query user growth: %w", err))
	}
	defer rows.Close()

	growth := []MonthlyCount{}
	for rows.Next() {
		var month time.Time
		var count int
		if err := rows.Scan(&month, &count); err != nil {
			return nil, apperr.Internal(fmt.Errorf("scan growth row: %w", err))
		}
		growth = append(growth, MonthlyCount{Month: month.Format("2006-01"), NewUsers: count})
	}
	return growth, nil
}

type MonthlyRevenue struct {
	Month   string  `json:"month"`
	Revenue float64 `json:"revenue"`
}

func (s *Service) Revenue(ctx context.Context, scope auth.Scope, companyID uuid.UUID) ([]MonthlyRevenue, error) {
	query := `SELECT DATE_TRUNC('month', invoice_date) AS month, SUM(amount) AS revenue
		FROM invoices
		WHERE status = 'paid' AND invoice_date >= now() - INTERVAL '6 months'`
	var args []any
	if scope != auth.ScopeAll {
		query += ` AND company_id = $1`
		args = append(args, companyID)
	}
	query += ` GROUP BY DATE_TRUNC('month', invoice_date) ORDER BY month`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("query revenue: %w", err))
	}
	defer rows.Close()

	revenue := []MonthlyRevenue{}
	for rows.Next() {
		var month time.Time
		var cents float64
		if err := rows.Scan(&month, &cents); err != nil {
			return nil, apperr.Internal(fmt.Errorf("scan revenue row: %w", err))
		}
		revenue = append(revenue, MonthlyRevenue{Month: month.Format("2006-01"), Revenue: cents / 100})
	}
	return revenue, nil
}

type CompanyStat struct {
	Name      string `json:"name"`
	UserCount int    `json:"userCount"`
}

func (s *Service) TopCompanies(ctx context.Context, scope auth.Scope, companyID uuid.UUID) ([]CompanyStat, error) {
	query := `SELECT c.name, COUNT(u.id) AS user_count
		FROM companies c
		LEFT JOIN users u ON c.id = u.company_id`
	var args []any
	if scope != auth.ScopeAll {
		query += ` WHERE c.id = $1`
		args = append(args, companyID)
	}
	query += ` GROUP BY c.id, c.name ORDER BY user_count DESC LIMIT 10`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("query company stats: %w", err))
	}
	defer rows.Close()

	stats := []CompanyStat{}
	for rows.Next() {
		var cs CompanyStat
		if err := rows.Scan(&cs.Name, &cs.UserCount); err != nil {
			return nil, apperr.Internal(fmt.Errorf("scan company stat: %w", err))
		}
		stats = append(stats, cs)
	}
	return stats, nil
}

func (s *Service) cacheSet(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, cacheTTL); err != nil {
		slog.Warn("cache analytics failed", "error", err, "key", key)
	}
}
