package domain

import (
	"context"
	"time"
)

// AdmitResult reports the counter state after one admission attempt.
type AdmitResult struct {
	Allowed     bool
	Count       int64
	WindowStart time.Time
}

// WindowStore atomically counts requests against a monthly window. A
// denied admission never advances the counter. A limit of zero or less
// means unlimited, the store still counts but always admits.
type WindowStore interface {
	Admit(ctx context.Context, clientKey string, tier Tier, limit int64, now time.Time) (AdmitResult, error)
}

// Service decides whether a client request may proceed.
type Service interface {
	Admit(ctx context.Context, clientKey string, tier Tier) (Decision, error)
}
