// Package service enforces the monthly request quota per client.
package service

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/JovSele/patentapi/internal/clock"
	"github.com/JovSele/patentapi/internal/config"
	"github.com/JovSele/patentapi/internal/observability/metrics"
	"github.com/JovSele/patentapi/internal/ratelimit/domain"
)

type Service struct {
	store   domain.WindowStore
	limits  domain.Limits
	clock   clock.Clock
	log     *zap.Logger
	metrics *metrics.LookupMetrics
}

type ServiceParam struct {
	fx.In

	Cfg     config.Config
	Store   domain.WindowStore
	Clock   clock.Clock
	Log     *zap.Logger
	Metrics *metrics.LookupMetrics `optional:"true"`
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		store: p.Store,
		limits: domain.Limits{
			Free:    p.Cfg.RateLimit.Free,
			Starter: p.Cfg.RateLimit.Starter,
			Pro:     p.Cfg.RateLimit.Pro,
		},
		clock:   p.Clock,
		log:     p.Log.Named("ratelimit.service"),
		metrics: p.Metrics,
	}
}

// Admit charges one request against the client's monthly window and
// reports whether it may proceed. When the window store is unreachable
// the request is admitted and the failure is logged.
func (s *Service) Admit(ctx context.Context, clientKey string, tier domain.Tier) (domain.Decision, error) {
	now := s.clock.Now()
	limit := s.limits.For(tier)

	decision := domain.Decision{
		Allowed: true,
		Tier:    tier,
		Limit:   limit,
		ResetAt: domain.NextMonthStart(now),
	}

	res, err := s.store.Admit(ctx, clientKey, tier, limit, now)
	if err != nil {
		s.log.Warn("window store unavailable, admitting request",
			zap.String("client_key", clientKey),
			zap.String("tier", string(tier)),
			zap.Error(err),
		)
		decision.Remaining = limit
		s.metrics.IncRateLimitDecision(string(tier), true)
		return decision, nil
	}

	decision.Allowed = res.Allowed
	if limit > 0 {
		remaining := limit - res.Count
		if remaining < 0 {
			remaining = 0
		}
		decision.Remaining = remaining
	}

	s.metrics.IncRateLimitDecision(string(tier), res.Allowed)
	return decision, nil
}
