package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	usagedomain "github.com/JovSele/patentapi/internal/usage/domain"
)

const (
	defaultStatsDays = 7
	maxStatsDays     = 365

	topCachedLimit = 5
)

// cachedPatent is one row of the cache-side ranking. Fetch counts span
// the cache's whole lifetime, not the query window.
type cachedPatent struct {
	PatentNumber string    `json:"patent_number"`
	Status       string    `json:"status"`
	FetchCount   int64     `json:"fetch_count"`
	LastFetched  time.Time `json:"last_fetched"`
}

type overviewResponse struct {
	usagedomain.Overview
	TopCached []cachedPatent `json:"top_cached"`
}

func parseDays(c *gin.Context) (int, error) {
	value := strings.TrimSpace(c.Query("days"))
	if value == "" {
		return defaultStatsDays, nil
	}
	days, err := strconv.Atoi(value)
	if err != nil {
		return 0, newValidationError("days", "invalid_days", "days must be an integer")
	}
	if days < 1 || days > maxStatsDays {
		return 0, newValidationError("days", "invalid_days", "days must be between 1 and 365")
	}
	return days, nil
}

// @Summary      Usage overview
// @Description  Traffic totals, cache hit rate, outcome counts and hottest cache entries
// @Tags         stats
// @Produce      json
// @Param        days query int false "Window in days"  default(7)
// @Router       /api/v1/stats/overview [get]
func (s *Server) GetStatsOverview(c *gin.Context) {
	if s.usageSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	days, err := parseDays(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	overview, err := s.usageSvc.Overview(c.Request.Context(), days)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp := overviewResponse{Overview: *overview}
	if s.cacheRepo != nil && s.db != nil {
		entries, err := s.cacheRepo.TopRequested(c.Request.Context(), s.db, topCachedLimit)
		if err != nil {
			s.log.Warn("top cached ranking failed", zap.Error(err))
		}
		for _, entry := range entries {
			resp.TopCached = append(resp.TopCached, cachedPatent{
				PatentNumber: entry.PatentNumber,
				Status:       entry.Status,
				FetchCount:   entry.FetchCount,
				LastFetched:  entry.LastFetched,
			})
		}
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetStatsBySource(c *gin.Context) {
	if s.usageSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	days, err := parseDays(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	stats, err := s.usageSvc.BySource(c.Request.Context(), days)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"days": days, "sources": stats})
}

func (s *Server) GetStatsByTier(c *gin.Context) {
	if s.usageSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	days, err := parseDays(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	stats, err := s.usageSvc.ByTier(c.Request.Context(), days)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"days": days, "tiers": stats})
}

func (s *Server) GetStatsTimeline(c *gin.Context) {
	if s.usageSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	days, err := parseDays(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	points, err := s.usageSvc.Timeline(c.Request.Context(), days)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"days": days, "timeline": points})
}
