// Package settings stores per-company key/value configuration. Values are
// JSON blobs, last write wins, and reads merge the stored rows over a set of
// hardcoded defaults.
package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmarkov/saasadmin/internal/apperr"
	"github.com/dmarkov/saasadmin/internal/cache"
)

const cacheTTL = 5 * time.Minute

// Defaults returns the baseline settings every company starts from.
func Defaults() map[string]json.RawMessage {
	return map[string]json.RawMessage{
		"notifications_enabled": json.RawMessage(`true`),
		"timezone":              json.RawMessage(`"UTC"`),
		"date_format":           json.RawMessage(`"YYYY-MM-DD"`),
		"theme":                 json.RawMessage(`"light"`),
	}
}

type Service struct {
	db    *pgxpool.Pool
	cache *cache.Cache
}

func NewService(db *pgxpool.Pool, c *cache.Cache) *Service {
	return &Service{db: db, cache: c}
}

func cacheKey(companyID uuid.UUID) string {
	return "settings:" + companyID.String()
}

// Get returns the company's settings merged over the defaults.
func (s *Service) Get(ctx context.Context, companyID uuid.UUID) (map[string]json.RawMessage, error) {
	if s.cache != nil {
		var cached map[string]json.RawMessage
		if err := s.cache.Get(ctx, cacheKey(companyID), &cached); err == nil {
			return cached, nil
		}
	}

	rows, err := s.db.Query(ctx,
		`SELECT key, value FROM settings WHERE company_id = $1`, companyID)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("query settings: %w", err))
	}
	defer rows.Close()

	merged := Defaults()
	for rows.Next() {
		var key string
		var value json.RawMessage
		if err := rows.Scan(&key, &value); err != nil {
			return nil, apperr.Internal(fmt.Errorf("scan setting: %w", err))
		}
		merged[key] = value
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey(companyID), merged, cacheTTL); err != nil {
			slog.Warn("cache settings failed", "error", err, "company_id", companyID)
		}
	}
	return merged, nil
}

// Update upserts the given keys and invalidates the cache.
func (s *Service) Update(ctx context.Context, companyID uuid.UUID, values map[string]json.RawMessage) error {
	if len(values) == 0 {
		return apperr.Validation("Invalid input data")
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return apperr.Internal(fmt.Errorf("begin settings tx: %w", err))
	}
	defer tx.Rollback(ctx)

	for key, value := range values {
		_, err := tx.Exec(ctx,
			`INSERT INTO settings (company_id, key, value) VALUES ($1, $2, $3)
			 ON CONFLICT (company_id, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
			companyID, key, value)
		if err != nil {
			return apperr.Internal(fmt.Errorf("upsert setting %s: %w", key, err))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return apperr.Internal(fmt.Errorf("commit settings tx: %w", err))
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, cacheKey(companyID)); err != nil {
			slog.Warn("invalidate settings cache failed", "error", err, "company_id", companyID)
		}
	}
	return nil
}
