package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	// Find returns the cached entry for a canonical patent number, or nil
	// when none exists. Find never mutates the entry.
	Find(ctx context.Context, db *gorm.DB, patentNumber string) (*Entry, error)
	// Upsert inserts or replaces the entry for its patent number, resetting
	// last_fetched and advancing fetch_count by one. It returns the stored
	// row.
	Upsert(ctx context.Context, db *gorm.DB, entry *Entry) (*Entry, error)
	// Touch increments fetch_count for a served cache read.
	Touch(ctx context.Context, db *gorm.DB, patentNumber string) error
	// Stale lists entries fetched before olderThan, most requested first.
	Stale(ctx context.Context, db *gorm.DB, olderThan time.Time, limit int) ([]Entry, error)
	// CountStale counts entries fetched before olderThan.
	CountStale(ctx context.Context, db *gorm.DB, olderThan time.Time) (int64, error)
	// TopRequested lists entries by descending fetch_count.
	TopRequested(ctx context.Context, db *gorm.DB, limit int) ([]Entry, error)
	// Clear deletes one entry, or every entry when patentNumber is empty,
	// and returns the number of rows removed.
	Clear(ctx context.Context, db *gorm.DB, patentNumber string) (int64, error)
}
