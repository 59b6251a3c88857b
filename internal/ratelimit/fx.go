package ratelimit

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/JovSele/patentapi/internal/config"
	"github.com/JovSele/patentapi/internal/ratelimit/domain"
	"github.com/JovSele/patentapi/internal/ratelimit/service"
	"github.com/JovSele/patentapi/internal/ratelimit/store"
)

var Module = fx.Module("ratelimit",
	fx.Provide(provideWindowStore),
	fx.Provide(service.NewService),
)

type StoreParam struct {
	fx.In

	Lc  fx.Lifecycle
	Cfg config.Config
	Log *zap.Logger
	DB  *gorm.DB
}

// provideWindowStore selects the window backend from configuration.
func provideWindowStore(p StoreParam) domain.WindowStore {
	switch p.Cfg.RateLimit.Store {
	case config.StoreDatabase:
		p.Log.Info("rate limit windows stored in database")
		return store.NewDatabaseStore(p.DB)
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     p.Cfg.Redis.Addr,
			Password: p.Cfg.Redis.Password,
			DB:       p.Cfg.Redis.DB,
		})
		p.Lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return client.Close()
			},
		})
		p.Log.Info("rate limit windows stored in redis", zap.String("addr", p.Cfg.Redis.Addr))
		return store.NewRedisStore(client)
	default:
		p.Log.Info("rate limit windows stored in memory")
		return store.NewMemoryStore()
	}
}
