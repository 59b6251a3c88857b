// Package domain contains the persistence model for cached patent records.
package domain

import (
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"

	"github.com/JovSele/patentapi/internal/patent"
)

// Entry is one cached upstream lookup result. PatentNumber carries the
// canonical identifier and is the upsert key.
type Entry struct {
	ID            snowflake.ID      `gorm:"primaryKey"`
	PatentNumber  string            `gorm:"type:text;not null;uniqueIndex"`
	Status        string            `gorm:"type:text;not null"`
	ExpiryDate    *time.Time        `gorm:"type:date"`
	Jurisdictions datatypes.JSON    `gorm:"type:jsonb;not null;default:'[]'"`
	LapseReason   *string           `gorm:"type:text"`
	Source        string            `gorm:"type:text;not null"`
	RawPayload    datatypes.JSONMap `gorm:"type:jsonb"`
	FetchCount    int64             `gorm:"not null;default:1"`
	LastFetched   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
	CreatedAt     time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt     time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Entry) TableName() string { return "patent_cache" }

// Stale reports whether the entry has outlived the freshness window at now.
// An entry exactly at the boundary is still fresh.
func (e *Entry) Stale(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.LastFetched) > ttl
}

// FromRecord converts a fetched record into a cache entry.
func FromRecord(id snowflake.ID, rec patent.Record) (*Entry, error) {
	jurisdictions, err := json.Marshal(rec.Jurisdictions)
	if err != nil {
		return nil, err
	}
	entry := &Entry{
		ID:            id,
		PatentNumber:  rec.Identifier.String(),
		Status:        string(rec.Status),
		ExpiryDate:    rec.ExpiryDate,
		Jurisdictions: datatypes.JSON(jurisdictions),
		LapseReason:   rec.LapseReason,
		Source:        string(rec.Source),
		LastFetched:   rec.FetchedAt,
	}
	if rec.Raw != nil {
		entry.RawPayload = datatypes.JSONMap(rec.Raw)
	}
	return entry, nil
}

// Record converts the entry back into a lookup record.
func (e *Entry) Record() (patent.Record, error) {
	id, err := patent.Normalize(e.PatentNumber)
	if err != nil {
		return patent.Record{}, err
	}

	var jurisdictions []patent.Jurisdiction
	if len(e.Jurisdictions) > 0 {
		if err := json.Unmarshal(e.Jurisdictions, &jurisdictions); err != nil {
			return patent.Record{}, err
		}
	}

	rec := patent.Record{
		Identifier:    id,
		Status:        patent.Status(e.Status),
		ExpiryDate:    e.ExpiryDate,
		Jurisdictions: jurisdictions,
		LapseReason:   e.LapseReason,
		Source:        patent.Source(e.Source),
		FetchedAt:     e.LastFetched,
	}
	if e.RawPayload != nil {
		rec.Raw = map[string]any(e.RawPayload)
	}
	return rec, nil
}
