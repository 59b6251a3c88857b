package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/JovSele/patentapi/internal/clientcontext"
	lookupdomain "github.com/JovSele/patentapi/internal/lookup/domain"
	"github.com/JovSele/patentapi/internal/patent"
	sourcedomain "github.com/JovSele/patentapi/internal/source/domain"
	usagedomain "github.com/JovSele/patentapi/internal/usage/domain"
)

const (
	disclaimer = "For informational purposes only. Not legal advice."

	expiryDateLayout = "2006-01-02"
)

type statusResponse struct {
	Identifier    string                `json:"identifier"`
	Status        string                `json:"status"`
	ExpiryDate    *string               `json:"expiry_date"`
	Jurisdictions []patent.Jurisdiction `json:"jurisdictions"`
	LapseReason   *string               `json:"lapse_reason"`
	Source        string                `json:"source"`
	FetchedAt     time.Time             `json:"fetched_at"`
	CacheHit      bool                  `json:"cache_hit"`
	Degraded      bool                  `json:"degraded"`
	Disclaimer    string                `json:"disclaimer"`
}

// @Summary      Patent status lookup
// @Description  Resolve the legal status of a patent by its number
// @Tags         status
// @Produce      json
// @Param        patent query string true "Patent number, e.g. EP1234567"
// @Success      200  {object}  statusResponse
// @Router       /api/v1/status [get]
func (s *Server) GetPatentStatus(c *gin.Context) {
	if s.lookupSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	raw := strings.TrimSpace(c.Query("patent"))
	if raw == "" {
		err := newValidationError("patent", "required", "patent query parameter is required")
		s.recordLookup(c, raw, nil, err)
		AbortWithError(c, err)
		return
	}

	started := time.Now()
	result, err := s.lookupSvc.Lookup(c.Request.Context(), raw)
	if err != nil {
		s.recordLookup(c, raw, nil, err)
		AbortWithError(c, err)
		return
	}

	s.recordLookup(c, raw, result, nil)
	c.Header("X-Process-Time", formatProcessTime(time.Since(started)))
	c.JSON(http.StatusOK, newStatusResponse(result))
}

func newStatusResponse(result *lookupdomain.Result) statusResponse {
	record := result.Record

	var expiry *string
	if record.ExpiryDate != nil {
		formatted := record.ExpiryDate.UTC().Format(expiryDateLayout)
		expiry = &formatted
	}

	return statusResponse{
		Identifier:    record.Identifier.String(),
		Status:        string(record.Status),
		ExpiryDate:    expiry,
		Jurisdictions: record.Jurisdictions,
		LapseReason:   record.LapseReason,
		Source:        string(record.Source),
		FetchedAt:     record.FetchedAt.UTC(),
		CacheHit:      result.CacheHit,
		Degraded:      result.Degraded,
		Disclaimer:    disclaimer,
	}
}

// formatProcessTime renders elapsed seconds with sub-millisecond precision.
func formatProcessTime(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 4, 64)
}

// recordLookup appends the request log entry for one completed lookup.
// Recording never affects the response.
func (s *Server) recordLookup(c *gin.Context, raw string, result *lookupdomain.Result, lookupErr error) {
	if s.usageSvc == nil {
		return
	}

	client, _ := clientcontext.ClientFromContext(c.Request.Context())
	entry := usagedomain.LogEntry{
		PatentNumber: raw,
		Endpoint:     c.FullPath(),
		Method:       c.Request.Method,
		APIKeyHash:   client.KeyHash,
		Tier:         string(client.Tier),
		IPAddress:    c.ClientIP(),
		UserAgent:    c.Request.UserAgent(),
	}

	if lookupErr != nil {
		status, _ := classifyError(lookupErr)
		entry.Outcome = lookupOutcome(lookupErr)
		entry.StatusCode = status
		s.usageSvc.Record(c.Request.Context(), entry)
		return
	}

	entry.PatentNumber = result.Record.Identifier.String()
	entry.Outcome = usagedomain.OutcomeOK
	if result.Degraded {
		entry.Outcome = usagedomain.OutcomeDegradedHit
	}
	entry.StatusCode = http.StatusOK
	entry.DurationMS = result.Duration.Milliseconds()
	entry.CacheHit = result.CacheHit
	entry.Degraded = result.Degraded
	entry.Source = string(result.Record.Source)
	s.usageSvc.Record(c.Request.Context(), entry)
}

func lookupOutcome(err error) string {
	var vErr *validationError
	switch {
	case errors.Is(err, patent.ErrInvalidIdentifier), errors.As(err, &vErr):
		return usagedomain.OutcomeInvalidIdentifier
	case errors.Is(err, sourcedomain.ErrNotFound):
		return usagedomain.OutcomeNotFound
	case errors.Is(err, lookupdomain.ErrUpstreamUnavailable):
		return usagedomain.OutcomeUpstreamUnavailable
	default:
		return usagedomain.OutcomeError
	}
}
