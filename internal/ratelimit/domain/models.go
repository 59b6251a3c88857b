// Package domain defines tiers, monthly windows and the admission contract
// for request quota enforcement.
package domain

import (
	"errors"
	"strings"
	"time"
)

// Tier is a subscription level with a monthly request quota.
type Tier string

const (
	TierFree       Tier = "free"
	TierStarter    Tier = "starter"
	TierPro        Tier = "pro"
	TierEnterprise Tier = "enterprise"
)

// ErrLimitExceeded signals a denied admission.
var ErrLimitExceeded = errors.New("rate_limit_exceeded")

// ParseTier maps a subscription header value onto a known tier. Unknown
// values fall back to free.
func ParseTier(raw string) Tier {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "free":
		return TierFree
	case "starter", "basic":
		// basic is the legacy marketplace name for the starter plan
		return TierStarter
	case "pro", "professional":
		return TierPro
	case "enterprise":
		return TierEnterprise
	default:
		return TierFree
	}
}

// Limits holds the monthly request quota per tier. Enterprise has no
// numeric limit.
type Limits struct {
	Free    int64
	Starter int64
	Pro     int64
}

// For returns the quota for a tier. Zero means unlimited.
func (l Limits) For(tier Tier) int64 {
	switch tier {
	case TierStarter:
		return l.Starter
	case TierPro:
		return l.Pro
	case TierEnterprise:
		return 0
	default:
		return l.Free
	}
}

// Decision is the outcome of one admission check. Remaining and ResetAt
// feed the quota response headers.
type Decision struct {
	Allowed   bool
	Tier      Tier
	Limit     int64
	Remaining int64
	ResetAt   time.Time
}

// Window is the persisted monthly counter for one client key.
type Window struct {
	ClientKey    string    `gorm:"primaryKey;type:text"`
	Tier         string    `gorm:"type:text;not null;default:'free'"`
	WindowStart  time.Time `gorm:"not null"`
	RequestCount int64     `gorm:"not null;default:0"`
	UpdatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Window) TableName() string { return "rate_limit_windows" }

// MonthStart truncates t to the first instant of its calendar month in UTC.
func MonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// NextMonthStart returns the first instant of the month after t in UTC.
func NextMonthStart(t time.Time) time.Time {
	return MonthStart(t).AddDate(0, 1, 0)
}
