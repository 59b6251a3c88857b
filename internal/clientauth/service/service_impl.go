// Package service resolves request credentials into client identities.
package service

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/JovSele/patentapi/internal/cache"
	"github.com/JovSele/patentapi/internal/clientauth/domain"
	"github.com/JovSele/patentapi/internal/clock"
	"github.com/JovSele/patentapi/internal/observability/logger"
	ratelimitdomain "github.com/JovSele/patentapi/internal/ratelimit/domain"
	"github.com/JovSele/patentapi/pkg/repository"
)

// resolvedTTL bounds how long a revoked or retiered key keeps its old
// identity.
const resolvedTTL = time.Minute

type Resolver struct {
	keys  *repository.Store[domain.APIKey]
	log   *zap.Logger
	clock clock.Clock

	resolved cache.Cache[string, domain.Client]
}

type ResolverParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
}

func NewResolver(p ResolverParam) domain.Resolver {
	return &Resolver{
		keys:     repository.ProvideStore[domain.APIKey](p.DB),
		log:      p.Log.Named("clientauth.resolver"),
		clock:    p.Clock,
		resolved: cache.NewTTLCache[string, domain.Client](),
	}
}

// Resolve authenticates the request. Requests without a key, with an
// unknown key, or hitting a database failure all resolve to an anonymous
// client keyed by origin address.
func (r *Resolver) Resolve(ctx context.Context, creds domain.Credentials) domain.Client {
	if creds.APIKey == "" {
		return anonymousClient(creds)
	}

	hash := domain.HashKey(creds.APIKey)
	if client, ok := r.resolved.Get(hash); ok {
		return client
	}

	key, err := r.keys.First(ctx, "key_hash = ?", hash)
	if err != nil {
		r.log.Warn("api key lookup failed, treating request as anonymous", zap.Error(err))
		return anonymousClient(creds)
	}
	if key == nil || !key.Valid(r.clock.Now()) {
		r.log.Debug("unknown or invalid api key", zap.String("api_key", logger.MaskAPIKey(creds.APIKey)))
		return anonymousClient(creds)
	}

	client := domain.Client{
		Key:     hash,
		KeyHash: hash,
		Name:    key.Name,
		Tier:    ratelimitdomain.ParseTier(key.Tier),
	}
	r.resolved.Set(hash, client, resolvedTTL)
	return client
}

func anonymousClient(creds domain.Credentials) domain.Client {
	ip := creds.ClientIP
	if ip == "" {
		ip = "unknown"
	}
	return domain.Client{
		Key:       "ip:" + ip,
		Tier:      ratelimitdomain.ParseTier(creds.TierHint),
		Anonymous: true,
	}
}
