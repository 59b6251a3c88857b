// Package service implements request logging and the analytics queries.
package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/JovSele/patentapi/internal/clock"
	usagedomain "github.com/JovSele/patentapi/internal/usage/domain"
	"github.com/JovSele/patentapi/pkg/repository"
)

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock

	genID   *snowflake.Node
	logrepo *repository.Store[usagedomain.LogEntry]
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	GenID *snowflake.Node
}

func NewService(p ServiceParam) usagedomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("usage.service"),
		clock: p.Clock,

		genID:   p.GenID,
		logrepo: repository.ProvideStore[usagedomain.LogEntry](p.DB),
	}
}

// Record appends one request log row. Failures are logged and dropped.
func (s *Service) Record(ctx context.Context, entry usagedomain.LogEntry) {
	if entry.ID == 0 {
		entry.ID = s.genID.Generate()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.clock.Now()
	}
	if err := s.logrepo.Create(ctx, &entry); err != nil {
		s.log.Warn("request log append failed",
			zap.String("patent_number", entry.PatentNumber),
			zap.Error(err),
		)
	}
}

type totalsRow struct {
	Total int64
	Hits  int64
	AvgMS float64 `gorm:"column:avg_ms"`
}

type outcomeRow struct {
	Outcome string
	Count   int64
}

func (s *Service) Overview(ctx context.Context, days int) (*usagedomain.Overview, error) {
	days = normalizeDays(days)
	cutoff := s.cutoff(days)

	var totals totalsRow
	err := s.db.WithContext(ctx).Raw(
		`SELECT COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN cache_hit THEN 1 ELSE 0 END), 0) AS hits,
			COALESCE(AVG(duration_ms), 0) AS avg_ms
		 FROM request_log
		 WHERE created_at >= ?`,
		cutoff,
	).Scan(&totals).Error
	if err != nil {
		return nil, err
	}

	var outcomes []outcomeRow
	err = s.db.WithContext(ctx).Raw(
		`SELECT outcome, COUNT(*) AS count
		 FROM request_log
		 WHERE created_at >= ?
		 GROUP BY outcome`,
		cutoff,
	).Scan(&outcomes).Error
	if err != nil {
		return nil, err
	}

	var top []usagedomain.PatentCount
	err = s.db.WithContext(ctx).Raw(
		`SELECT patent_number, COUNT(*) AS requests
		 FROM request_log
		 WHERE created_at >= ? AND patent_number IS NOT NULL AND patent_number <> ''
		 GROUP BY patent_number
		 ORDER BY requests DESC, patent_number ASC
		 LIMIT 10`,
		cutoff,
	).Scan(&top).Error
	if err != nil {
		return nil, err
	}

	overview := &usagedomain.Overview{
		Days:          days,
		TotalRequests: totals.Total,
		CacheHits:     totals.Hits,
		AvgDurationMS: totals.AvgMS,
		Outcomes:      make(map[string]int64, len(outcomes)),
		TopPatents:    top,
	}
	if totals.Total > 0 {
		overview.CacheHitRate = float64(totals.Hits) / float64(totals.Total)
	}
	for _, row := range outcomes {
		overview.Outcomes[row.Outcome] = row.Count
	}
	return overview, nil
}

func (s *Service) BySource(ctx context.Context, days int) ([]usagedomain.SourceStat, error) {
	var stats []usagedomain.SourceStat
	err := s.db.WithContext(ctx).Raw(
		`SELECT source,
			COUNT(*) AS requests,
			COALESCE(AVG(duration_ms), 0) AS avg_duration_ms
		 FROM request_log
		 WHERE created_at >= ? AND source IS NOT NULL AND source <> ''
		 GROUP BY source
		 ORDER BY requests DESC`,
		s.cutoff(normalizeDays(days)),
	).Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *Service) ByTier(ctx context.Context, days int) ([]usagedomain.TierStat, error) {
	var stats []usagedomain.TierStat
	err := s.db.WithContext(ctx).Raw(
		`SELECT tier,
			COUNT(*) AS requests,
			COUNT(DISTINCT CASE WHEN api_key_hash <> '' THEN api_key_hash END) AS unique_keys
		 FROM request_log
		 WHERE created_at >= ?
		 GROUP BY tier
		 ORDER BY requests DESC`,
		s.cutoff(normalizeDays(days)),
	).Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *Service) Timeline(ctx context.Context, days int) ([]usagedomain.TimelinePoint, error) {
	var points []usagedomain.TimelinePoint
	err := s.db.WithContext(ctx).Raw(
		`SELECT SUBSTR(CAST(created_at AS TEXT), 1, 10) AS day,
			COUNT(*) AS requests,
			COALESCE(SUM(CASE WHEN cache_hit THEN 1 ELSE 0 END), 0) AS cache_hits
		 FROM request_log
		 WHERE created_at >= ?
		 GROUP BY day
		 ORDER BY day ASC`,
		s.cutoff(normalizeDays(days)),
	).Scan(&points).Error
	if err != nil {
		return nil, err
	}
	return points, nil
}

func (s *Service) cutoff(days int) time.Time {
	return s.clock.Now().AddDate(0, 0, -days)
}

func normalizeDays(days int) int {
	if days <= 0 {
		return 7
	}
	return days
}
