// Package refresh re-fetches the most requested stale cache entries in the
// background so that popular identifiers rarely pay the refresh cost on
// the request path.
package refresh

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/JovSele/patentapi/internal/clock"
	"github.com/JovSele/patentapi/internal/observability/metrics"
	"github.com/JovSele/patentapi/internal/patent"
	cachedomain "github.com/JovSele/patentapi/internal/patentcache/domain"
	sourcedomain "github.com/JovSele/patentapi/internal/source/domain"
)

// runTimeout bounds one full batch including its upstream calls.
const runTimeout = 5 * time.Minute

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Clock     clock.Clock
	GenID     *snowflake.Node
	Registry  *sourcedomain.Registry
	CacheRepo cachedomain.Repository
	Metrics   *metrics.LookupMetrics `optional:"true"`
	Config    Config                 `optional:"true"`
}

type Worker struct {
	db        *gorm.DB
	log       *zap.Logger
	clock     clock.Clock
	genID     *snowflake.Node
	registry  *sourcedomain.Registry
	cacherepo cachedomain.Repository
	metrics   *metrics.LookupMetrics
	cfg       Config
}

func NewWorker(p Params) *Worker {
	return &Worker{
		db:        p.DB,
		log:       p.Log.Named("lookup.refresh"),
		clock:     p.Clock,
		genID:     p.GenID,
		registry:  p.Registry,
		cacherepo: p.CacheRepo,
		metrics:   p.Metrics,
		cfg:       p.Config.withDefaults(),
	}
}

func (w *Worker) RunForever(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if _, err := w.RunOnce(ctx); err != nil {
			w.log.Warn("cache refresh run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce refreshes one batch of the most requested stale entries.
func (w *Worker) RunOnce(ctx context.Context) (int, error) {
	runCtx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	return w.processBatch(runCtx, w.cfg.TopN)
}

func (w *Worker) processBatch(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = w.cfg.TopN
	}
	olderThan := w.clock.Now().Add(-w.cfg.CacheTTL)

	backlog, err := w.cacherepo.CountStale(ctx, w.db, olderThan)
	if err != nil {
		return 0, err
	}
	w.metrics.SetStaleBacklog(int(backlog))
	if backlog == 0 {
		return 0, nil
	}

	entries, err := w.cacherepo.Stale(ctx, w.db, olderThan, limit)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, entry := range entries {
		if ctx.Err() != nil {
			return processed, ctx.Err()
		}
		if err := w.refreshEntry(ctx, entry); err != nil {
			w.log.Warn("entry refresh failed",
				zap.String("patent_number", entry.PatentNumber),
				zap.Error(err),
			)
			w.metrics.IncRefreshProcessed("failed")
			continue
		}
		w.metrics.IncRefreshProcessed("success")
		processed++
	}

	if processed > 0 {
		w.log.Info("cache refresh batch complete",
			zap.Int("processed", processed),
			zap.Int64("backlog", backlog),
		)
	}
	return processed, nil
}

func (w *Worker) refreshEntry(ctx context.Context, entry cachedomain.Entry) error {
	id, err := patent.Normalize(entry.PatentNumber)
	if err != nil {
		return err
	}
	adapter, err := w.registry.Resolve(id.Jurisdiction)
	if err != nil {
		return err
	}
	rec, err := adapter.Fetch(ctx, id)
	if err != nil {
		return err
	}
	fresh, err := cachedomain.FromRecord(w.genID.Generate(), *rec)
	if err != nil {
		return err
	}
	_, err = w.cacherepo.Upsert(ctx, w.db, fresh)
	return err
}
