package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/JovSele/patentapi/internal/patentcache/domain"
)

type Repository struct{}

func Provide() domain.Repository {
	return &Repository{}
}

func (r *Repository) Find(ctx context.Context, db *gorm.DB, patentNumber string) (*domain.Entry, error) {
	var entry domain.Entry
	err := db.WithContext(ctx).
		Where("patent_number = ?", patentNumber).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *Repository) Upsert(ctx context.Context, db *gorm.DB, entry *domain.Entry) (*domain.Entry, error) {
	err := db.WithContext(ctx).Exec(`
INSERT INTO patent_cache (
	id, patent_number, status, expiry_date, jurisdictions, lapse_reason,
	source, raw_payload, fetch_count, last_fetched, created_at, updated_at
)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
ON CONFLICT (patent_number) DO UPDATE SET
	status = EXCLUDED.status,
	expiry_date = EXCLUDED.expiry_date,
	jurisdictions = EXCLUDED.jurisdictions,
	lapse_reason = EXCLUDED.lapse_reason,
	source = EXCLUDED.source,
	raw_payload = EXCLUDED.raw_payload,
	fetch_count = patent_cache.fetch_count + 1,
	last_fetched = EXCLUDED.last_fetched,
	updated_at = CURRENT_TIMESTAMP
`,
		entry.ID, entry.PatentNumber, entry.Status, entry.ExpiryDate,
		entry.Jurisdictions, entry.LapseReason, entry.Source, entry.RawPayload,
		entry.LastFetched,
	).Error
	if err != nil {
		return nil, err
	}
	return r.Find(ctx, db, entry.PatentNumber)
}

func (r *Repository) Touch(ctx context.Context, db *gorm.DB, patentNumber string) error {
	return db.WithContext(ctx).
		Exec(`UPDATE patent_cache SET fetch_count = fetch_count + 1 WHERE patent_number = ?`, patentNumber).
		Error
}

func (r *Repository) Stale(ctx context.Context, db *gorm.DB, olderThan time.Time, limit int) ([]domain.Entry, error) {
	var entries []domain.Entry
	err := db.WithContext(ctx).
		Where("last_fetched < ?", olderThan).
		Order("fetch_count DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *Repository) CountStale(ctx context.Context, db *gorm.DB, olderThan time.Time) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Entry{}).
		Where("last_fetched < ?", olderThan).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *Repository) TopRequested(ctx context.Context, db *gorm.DB, limit int) ([]domain.Entry, error) {
	var entries []domain.Entry
	err := db.WithContext(ctx).
		Order("fetch_count DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *Repository) Clear(ctx context.Context, db *gorm.DB, patentNumber string) (int64, error) {
	tx := db.WithContext(ctx)
	var res *gorm.DB
	if patentNumber == "" {
		res = tx.Exec(`DELETE FROM patent_cache`)
	} else {
		res = tx.Exec(`DELETE FROM patent_cache WHERE patent_number = ?`, patentNumber)
	}
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
