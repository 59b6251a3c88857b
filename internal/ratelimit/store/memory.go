// Package store provides the monthly window counter backends.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/JovSele/patentapi/internal/ratelimit/domain"
)

type memoryWindow struct {
	windowStart time.Time
	count       int64
}

// MemoryStore keeps windows in process memory. Counters reset on restart,
// which is acceptable for single-instance and development setups.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*memoryWindow
}

// NewMemoryStore creates an empty in-process window store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{windows: make(map[string]*memoryWindow)}
}

// Admit counts one request against the client's current month. The counter
// only advances when the request is admitted.
func (s *MemoryStore) Admit(_ context.Context, clientKey string, _ domain.Tier, limit int64, now time.Time) (domain.AdmitResult, error) {
	start := domain.MonthStart(now)

	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[clientKey]
	if !ok || w.windowStart.Before(start) {
		w = &memoryWindow{windowStart: start}
		s.windows[clientKey] = w
	}

	if limit > 0 && w.count >= limit {
		return domain.AdmitResult{Allowed: false, Count: w.count, WindowStart: w.windowStart}, nil
	}

	w.count++
	return domain.AdmitResult{Allowed: true, Count: w.count, WindowStart: w.windowStart}, nil
}
