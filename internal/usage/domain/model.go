// Package domain defines the append-only request log and the analytics
// views derived from it.
package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Outcome codes recorded per request.
const (
	OutcomeOK                  = "ok"
	OutcomeNotFound            = "not_found"
	OutcomeInvalidIdentifier   = "invalid_identifier"
	OutcomeRateLimited         = "rate_limited"
	OutcomeUpstreamUnavailable = "upstream_unavailable"
	OutcomeDegradedHit         = "degraded_hit"
	OutcomeError               = "error"
)

// LogEntry is one recorded request. Entries are append-only and never
// updated.
type LogEntry struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	PatentNumber string       `gorm:"type:text"`
	Endpoint     string       `gorm:"type:text;not null"`
	Method       string       `gorm:"type:text;not null"`
	APIKeyHash   string       `gorm:"column:api_key_hash;type:text"`
	Tier         string       `gorm:"type:text;not null;default:'free'"`
	Outcome      string       `gorm:"type:text;not null"`
	StatusCode   int          `gorm:"not null"`
	DurationMS   int64        `gorm:"column:duration_ms;not null;default:0"`
	CacheHit     bool         `gorm:"not null;default:false"`
	Degraded     bool         `gorm:"not null;default:false"`
	Source       string       `gorm:"type:text"`
	IPAddress    string       `gorm:"column:ip_address;type:text"`
	UserAgent    string       `gorm:"type:text"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (LogEntry) TableName() string { return "request_log" }

// Overview aggregates recent traffic.
type Overview struct {
	Days          int              `json:"days"`
	TotalRequests int64            `json:"total_requests"`
	CacheHits     int64            `json:"cache_hits"`
	CacheHitRate  float64          `json:"cache_hit_rate"`
	AvgDurationMS float64          `json:"avg_duration_ms"`
	Outcomes      map[string]int64 `json:"outcomes"`
	TopPatents    []PatentCount    `json:"top_patents"`
}

// PatentCount is one row of the most-requested ranking.
type PatentCount struct {
	PatentNumber string `json:"patent_number"`
	Requests     int64  `json:"requests"`
}

// SourceStat aggregates requests served per upstream.
type SourceStat struct {
	Source        string  `json:"source"`
	Requests      int64   `json:"requests"`
	AvgDurationMS float64 `json:"avg_duration_ms"`
}

// TierStat aggregates requests per subscription tier.
type TierStat struct {
	Tier       string `json:"tier"`
	Requests   int64  `json:"requests"`
	UniqueKeys int64  `json:"unique_keys"`
}

// TimelinePoint is one day of traffic.
type TimelinePoint struct {
	Day       string `json:"day"`
	Requests  int64  `json:"requests"`
	CacheHits int64  `json:"cache_hits"`
}

// Service records requests and serves the analytics views. Record is
// fire-and-forget, a failed append never fails the request that caused it.
type Service interface {
	Record(ctx context.Context, entry LogEntry)
	Overview(ctx context.Context, days int) (*Overview, error)
	BySource(ctx context.Context, days int) ([]SourceStat, error)
	ByTier(ctx context.Context, days int) ([]TierStat, error)
	Timeline(ctx context.Context, days int) ([]TimelinePoint, error)
}
