package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/JovSele/patentapi/internal/ratelimit/domain"
)

// DatabaseStore counts windows in the rate_limit_windows table so that
// quotas survive restarts and are shared between instances.
type DatabaseStore struct {
	db *gorm.DB
}

// NewDatabaseStore creates a store backed by the given database handle.
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	return &DatabaseStore{db: db}
}

// Admit counts one request against the client's current month. The row is
// rolled over to the new month before counting, and the conditional update
// guarantees the counter never passes the limit even under concurrent
// requests.
func (s *DatabaseStore) Admit(ctx context.Context, clientKey string, tier domain.Tier, limit int64, now time.Time) (domain.AdmitResult, error) {
	start := domain.MonthStart(now)

	res := s.db.WithContext(ctx).Exec(`
		INSERT INTO rate_limit_windows (client_key, tier, window_start, request_count, updated_at)
		VALUES (?, ?, ?, 0, CURRENT_TIMESTAMP)
		ON CONFLICT (client_key) DO UPDATE SET
			tier = EXCLUDED.tier,
			window_start = EXCLUDED.window_start,
			request_count = 0,
			updated_at = CURRENT_TIMESTAMP
		WHERE rate_limit_windows.window_start < EXCLUDED.window_start
	`, clientKey, string(tier), start)
	if res.Error != nil {
		return domain.AdmitResult{}, res.Error
	}

	upd := s.db.WithContext(ctx).Exec(`
		UPDATE rate_limit_windows
		SET request_count = request_count + 1, updated_at = CURRENT_TIMESTAMP
		WHERE client_key = ? AND (? <= 0 OR request_count < ?)
	`, clientKey, limit, limit)
	if upd.Error != nil {
		return domain.AdmitResult{}, upd.Error
	}

	var w domain.Window
	if err := s.db.WithContext(ctx).Where("client_key = ?", clientKey).First(&w).Error; err != nil {
		return domain.AdmitResult{}, err
	}

	return domain.AdmitResult{
		Allowed:     upd.RowsAffected > 0,
		Count:       w.RequestCount,
		WindowStart: w.WindowStart,
	}, nil
}
