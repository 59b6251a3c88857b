// Package server exposes the HTTP surface: the status lookup, health and
// analytics endpoints, and the middleware that resolves callers and
// enforces their monthly quota.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	clientauthdomain "github.com/JovSele/patentapi/internal/clientauth/domain"
	clockpkg "github.com/JovSele/patentapi/internal/clock"
	"github.com/JovSele/patentapi/internal/config"
	lookupdomain "github.com/JovSele/patentapi/internal/lookup/domain"
	"github.com/JovSele/patentapi/internal/observability/logger"
	"github.com/JovSele/patentapi/internal/observability/metrics"
	"github.com/JovSele/patentapi/internal/observability/tracing"
	cachedomain "github.com/JovSele/patentapi/internal/patentcache/domain"
	ratelimitdomain "github.com/JovSele/patentapi/internal/ratelimit/domain"
	usagedomain "github.com/JovSele/patentapi/internal/usage/domain"
)

// Server hosts the HTTP handlers and their service dependencies.
type Server struct {
	cfg       config.Config
	log       *zap.Logger
	db        *gorm.DB
	clock     clockpkg.Clock
	engine    *gin.Engine
	lookupSvc lookupdomain.Service
	usageSvc  usagedomain.Service
	limiter   ratelimitdomain.Service
	cacheRepo cachedomain.Repository
}

// EngineParam carries the middleware dependencies of the shared engine.
type EngineParam struct {
	fx.In

	Cfg         config.Config
	Log         *zap.Logger
	Resolver    clientauthdomain.Resolver
	HTTPMetrics *metrics.HTTPMetrics `optional:"true"`
}

// NewEngine builds the gin engine with the shared middleware chain:
// request id and access logging, tracing, HTTP metrics, then client
// resolution. Quota enforcement is attached per route group.
func NewEngine(p EngineParam) *gin.Engine {
	if p.Cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(logger.GinMiddleware(logger.MiddlewareConfig{
		SkipPaths: []string{"/metrics", "/api/v1/health"},
	}))
	if p.Cfg.Telemetry.TracingEnabled {
		engine.Use(tracing.GinMiddleware())
	}
	if p.HTTPMetrics != nil {
		engine.Use(metrics.GinMiddleware(p.HTTPMetrics))
	}
	engine.Use(ClientContext(p.Resolver))
	return engine
}

// ServerParam carries the handler dependencies.
type ServerParam struct {
	fx.In

	Cfg       config.Config
	Log       *zap.Logger
	DB        *gorm.DB
	Clock     clockpkg.Clock
	Engine    *gin.Engine
	Lookup    lookupdomain.Service
	Usage     usagedomain.Service
	Limiter   ratelimitdomain.Service
	CacheRepo cachedomain.Repository
}

func NewServer(p ServerParam) *Server {
	return &Server{
		cfg:       p.Cfg,
		log:       p.Log.Named("server"),
		db:        p.DB,
		clock:     p.Clock,
		engine:    p.Engine,
		lookupSvc: p.Lookup,
		usageSvc:  p.Usage,
		limiter:   p.Limiter,
		cacheRepo: p.CacheRepo,
	}
}

// RegisterAPIRoutes attaches every route to the engine. Health, metadata,
// metrics and the analytics endpoints are not quota limited.
func (s *Server) RegisterAPIRoutes() {
	s.engine.GET("/", s.GetServiceInfo)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.engine.Group("/api/v1")
	api.GET("/health", s.GetHealth)

	stats := api.Group("/stats")
	{
		stats.GET("/overview", s.GetStatsOverview)
		stats.GET("/by-source", s.GetStatsBySource)
		stats.GET("/by-tier", s.GetStatsByTier)
		stats.GET("/timeline", s.GetStatsTimeline)
	}

	limited := api.Group("")
	limited.Use(s.RateLimitRequired())
	limited.GET("/status", s.GetPatentStatus)

	api.DELETE("/cache", s.ClearCache)
}

// RunHTTPParam carries the lifecycle dependencies of the HTTP listener.
type RunHTTPParam struct {
	fx.In

	Lc     fx.Lifecycle
	Cfg    config.Config
	Log    *zap.Logger
	Engine *gin.Engine
}

// RunHTTP binds the listener on start and drains it on stop.
func RunHTTP(p RunHTTPParam) {
	srv := &http.Server{
		Addr:              p.Cfg.HTTPAddr,
		Handler:           p.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log := p.Log.Named("server.http")

	p.Lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			log.Info("http server listening", zap.String("addr", srv.Addr))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
