package domain

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Throttle bounds the outbound request rate against a single upstream
// office. A zero or negative perMinute disables throttling.
type Throttle struct {
	limiter *rate.Limiter
}

func NewThrottle(perMinute int) *Throttle {
	if perMinute <= 0 {
		return &Throttle{}
	}
	interval := rate.Every(time.Minute / time.Duration(perMinute))
	return &Throttle{limiter: rate.NewLimiter(interval, perMinute)}
}

// Wait blocks until a request slot is available. A context expiring while
// waiting counts as a transient upstream failure.
func (t *Throttle) Wait(ctx context.Context) error {
	if t == nil || t.limiter == nil {
		return nil
	}
	if err := t.limiter.Wait(ctx); err != nil {
		return ErrTransient
	}
	return nil
}
