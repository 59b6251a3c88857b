// Package service orchestrates lookups across the cache and the source
// adapters.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/JovSele/patentapi/internal/clock"
	"github.com/JovSele/patentapi/internal/config"
	lookupdomain "github.com/JovSele/patentapi/internal/lookup/domain"
	"github.com/JovSele/patentapi/internal/observability/logger"
	"github.com/JovSele/patentapi/internal/observability/metrics"
	"github.com/JovSele/patentapi/internal/patent"
	cachedomain "github.com/JovSele/patentapi/internal/patentcache/domain"
	sourcedomain "github.com/JovSele/patentapi/internal/source/domain"
)

// transientBackoff separates the two fetch attempts on a transient
// upstream failure.
const transientBackoff = 500 * time.Millisecond

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock

	genID     *snowflake.Node
	registry  *sourcedomain.Registry
	cacherepo cachedomain.Repository
	metrics   *metrics.LookupMetrics

	cacheTTL time.Duration
	backoff  time.Duration
	sleep    func(ctx context.Context, d time.Duration) error
}

type ServiceParam struct {
	fx.In

	Cfg       config.Config
	DB        *gorm.DB
	Log       *zap.Logger
	Clock     clock.Clock
	GenID     *snowflake.Node
	Registry  *sourcedomain.Registry
	CacheRepo cachedomain.Repository
	Metrics   *metrics.LookupMetrics `optional:"true"`
}

func NewService(p ServiceParam) lookupdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("lookup.service"),
		clock: p.Clock,

		genID:     p.GenID,
		registry:  p.Registry,
		cacherepo: p.CacheRepo,
		metrics:   p.Metrics,

		cacheTTL: p.Cfg.Cache.TTL,
		backoff:  transientBackoff,
		sleep:    sleepContext,
	}
}

// Lookup resolves the status of one identifier. Cached entries within the
// freshness window are served directly, stale entries are re-fetched
// before responding and only served as-is when the upstream fails, misses
// go to the responsible office with a single retry on transient failures.
func (s *Service) Lookup(ctx context.Context, raw string) (*lookupdomain.Result, error) {
	started := time.Now()

	id, err := patent.Normalize(raw)
	if err != nil {
		s.metrics.IncLookup("invalid_identifier", "", "none")
		return nil, err
	}

	entry, err := s.cacherepo.Find(ctx, s.db, id.String())
	if err != nil {
		// Serve from the upstream directly, skipping the cache entirely.
		s.log.Warn("cache read failed, falling back to direct fetch",
			zap.String("patent_number", id.String()),
			zap.Error(err),
		)
		rec, ferr := s.fetchWithRetry(ctx, id)
		if ferr != nil {
			return nil, s.mapFetchFailure(ferr, "miss")
		}
		s.metrics.IncLookup("ok", string(rec.Source), "miss")
		return s.result(*rec, started, false, false, false), nil
	}

	now := s.clock.Now()

	if entry != nil && !entry.Stale(now, s.cacheTTL) {
		return s.serveFresh(ctx, entry, started)
	}
	if entry != nil {
		return s.refreshStale(ctx, id, entry, started)
	}
	return s.fetchCold(ctx, id, started)
}

func (s *Service) serveFresh(ctx context.Context, entry *cachedomain.Entry, started time.Time) (*lookupdomain.Result, error) {
	rec, err := entry.Record()
	if err != nil {
		// A corrupt row is replaced by a fresh fetch.
		s.log.Warn("cache entry decode failed, refetching",
			zap.String("patent_number", entry.PatentNumber),
			zap.Error(err),
		)
		id, nerr := patent.Normalize(entry.PatentNumber)
		if nerr != nil {
			return nil, nerr
		}
		return s.fetchCold(ctx, id, started)
	}

	if terr := s.cacherepo.Touch(ctx, s.db, entry.PatentNumber); terr != nil {
		s.log.Warn("fetch count update failed",
			zap.String("patent_number", entry.PatentNumber),
			zap.Error(terr),
		)
	}
	s.metrics.IncLookup("ok", string(rec.Source), "hit")
	return s.result(rec, started, true, false, false), nil
}

func (s *Service) fetchCold(ctx context.Context, id patent.CanonicalIdentifier, started time.Time) (*lookupdomain.Result, error) {
	rec, err := s.fetchWithRetry(ctx, id)
	if err != nil {
		return nil, s.mapFetchFailure(err, "miss")
	}

	s.store(ctx, *rec)
	s.metrics.IncLookup("ok", string(rec.Source), "miss")
	return s.result(*rec, started, false, false, false), nil
}

func (s *Service) refreshStale(ctx context.Context, id patent.CanonicalIdentifier, entry *cachedomain.Entry, started time.Time) (*lookupdomain.Result, error) {
	rec, err := s.fetchOnce(ctx, id)
	if err == nil {
		s.store(ctx, *rec)
		s.metrics.IncLookup("ok", string(rec.Source), "stale")
		return s.result(*rec, started, true, true, false), nil
	}

	if errors.Is(err, sourcedomain.ErrNotFound) {
		// The office no longer knows the identifier. The stale entry is
		// kept for inspection but not served.
		s.metrics.IncLookup("not_found", "", "stale")
		return nil, err
	}

	stale, derr := entry.Record()
	if derr != nil {
		s.log.Warn("stale entry decode failed",
			zap.String("patent_number", entry.PatentNumber),
			zap.Error(derr),
		)
		return nil, s.mapFetchFailure(err, "stale")
	}

	s.log.Warn("refresh failed, serving stale entry",
		zap.String("patent_number", entry.PatentNumber),
		zap.Time("last_fetched", entry.LastFetched),
		zap.Error(err),
	)
	if terr := s.cacherepo.Touch(ctx, s.db, entry.PatentNumber); terr != nil {
		s.log.Warn("fetch count update failed",
			zap.String("patent_number", entry.PatentNumber),
			zap.Error(terr),
		)
	}
	s.metrics.IncLookup("degraded_hit", string(stale.Source), "stale")
	return s.result(stale, started, true, false, true), nil
}

func (s *Service) fetchWithRetry(ctx context.Context, id patent.CanonicalIdentifier) (*patent.Record, error) {
	rec, err := s.fetchOnce(ctx, id)
	if err == nil || !errors.Is(err, sourcedomain.ErrTransient) {
		return rec, err
	}

	s.log.Debug("transient upstream failure, retrying once",
		zap.String("patent_number", id.String()),
		zap.Error(err),
	)
	if serr := s.sleep(ctx, s.backoff); serr != nil {
		return nil, err
	}
	return s.fetchOnce(ctx, id)
}

func (s *Service) fetchOnce(ctx context.Context, id patent.CanonicalIdentifier) (*patent.Record, error) {
	adapter, err := s.registry.Resolve(id.Jurisdiction)
	if err != nil {
		return nil, err
	}
	return adapter.Fetch(ctx, id)
}

// store writes a fetched record to the cache. Write failures are logged,
// the fetched record is still served.
func (s *Service) store(ctx context.Context, rec patent.Record) {
	if ce := s.log.Check(zap.DebugLevel, "caching upstream extraction"); ce != nil {
		ce.Write(
			zap.String("patent_number", rec.Identifier.String()),
			zap.Any("raw_payload", logger.MaskJSON(rec.Raw)),
		)
	}
	entry, err := cachedomain.FromRecord(s.genID.Generate(), rec)
	if err != nil {
		s.log.Warn("cache encode failed",
			zap.String("patent_number", rec.Identifier.String()),
			zap.Error(err),
		)
		return
	}
	if _, err := s.cacherepo.Upsert(ctx, s.db, entry); err != nil {
		s.log.Warn("cache write failed",
			zap.String("patent_number", rec.Identifier.String()),
			zap.Error(err),
		)
	}
}

func (s *Service) mapFetchFailure(err error, cache string) error {
	switch {
	case errors.Is(err, sourcedomain.ErrNotFound):
		s.metrics.IncLookup("not_found", "", cache)
		return err
	case errors.Is(err, sourcedomain.ErrAuth):
		s.metrics.IncLookup("error", "", cache)
		return fmt.Errorf("%w: %v", lookupdomain.ErrServiceDegraded, err)
	case errors.Is(err, sourcedomain.ErrTransient):
		s.metrics.IncLookup("upstream_unavailable", "", cache)
		return fmt.Errorf("%w: %v", lookupdomain.ErrUpstreamUnavailable, err)
	default:
		s.metrics.IncLookup("error", "", cache)
		return err
	}
}

func (s *Service) result(rec patent.Record, started time.Time, hit, refreshed, degraded bool) *lookupdomain.Result {
	return &lookupdomain.Result{
		Record:    rec,
		CacheHit:  hit,
		Refreshed: refreshed,
		Degraded:  degraded,
		Duration:  time.Since(started),
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
