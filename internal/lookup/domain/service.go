// Package domain defines the lookup orchestration contract.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/JovSele/patentapi/internal/patent"
)

var (
	// ErrUpstreamUnavailable signals that the responsible office could not
	// be reached and no cached data exists to serve instead.
	ErrUpstreamUnavailable = errors.New("upstream_unavailable")
	// ErrServiceDegraded signals an upstream credential failure that
	// survived the adapter's own token refresh.
	ErrServiceDegraded = errors.New("service_degraded")
)

// Result is one completed lookup. Refreshed marks a stale entry that was
// re-fetched before responding, Degraded marks a stale entry served
// because the re-fetch failed.
type Result struct {
	Record    patent.Record
	CacheHit  bool
	Refreshed bool
	Degraded  bool
	Duration  time.Duration
}

// Service answers status lookups for canonical or raw identifiers.
type Service interface {
	Lookup(ctx context.Context, raw string) (*Result, error)
}
