// Package uspto integrates the USPTO data services API.
package uspto

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/JovSele/patentapi/internal/clock"
	"github.com/JovSele/patentapi/internal/config"
	"github.com/JovSele/patentapi/internal/observability/metrics"
	"github.com/JovSele/patentapi/internal/observability/tracing"
	"github.com/JovSele/patentapi/internal/patent"
	domain "github.com/JovSele/patentapi/internal/source/domain"
)

const maxResponseBytes = 4 << 20

type Params struct {
	fx.In

	Cfg     config.Config
	Log     *zap.Logger
	Clock   clock.Clock
	Metrics *metrics.LookupMetrics `optional:"true"`
}

type Adapter struct {
	log      *zap.Logger
	client   *http.Client
	baseURL  string
	apiKey   string
	throttle *domain.Throttle
	clock    clock.Clock
	metrics  *metrics.LookupMetrics
}

func New(p Params) *Adapter {
	return &Adapter{
		log:      p.Log.Named("source.uspto"),
		client:   tracing.WrapHTTPClient(&http.Client{Timeout: p.Cfg.USPTO.RequestTimeout}),
		baseURL:  strings.TrimRight(p.Cfg.USPTO.BaseURL, "/"),
		apiKey:   p.Cfg.USPTO.APIKey,
		throttle: domain.NewThrottle(p.Cfg.USPTO.RatePerMinute),
		clock:    p.Clock,
		metrics:  p.Metrics,
	}
}

func (a *Adapter) Source() patent.Source {
	return patent.SourceUSPTO
}

func (a *Adapter) Fetch(ctx context.Context, id patent.CanonicalIdentifier) (*patent.Record, error) {
	if err := a.throttle.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/patent/application?searchText=%s", a.baseURL, url.QueryEscape(id.Number))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if a.apiKey != "" {
		req.Header.Set("X-Api-Key", a.apiKey)
	}

	start := time.Now()
	resp, err := a.client.Do(req)
	if err != nil {
		a.metrics.ObserveUpstreamDuration(string(patent.SourceUSPTO), "transient", time.Since(start))
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, domain.ErrTransient
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrTransient, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		a.metrics.ObserveUpstreamDuration(string(patent.SourceUSPTO), "not_found", time.Since(start))
		return nil, domain.ErrNotFound
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		a.metrics.ObserveUpstreamDuration(string(patent.SourceUSPTO), "auth", time.Since(start))
		return nil, domain.ErrAuth
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		a.metrics.ObserveUpstreamDuration(string(patent.SourceUSPTO), "transient", time.Since(start))
		return nil, domain.ErrTransient
	case resp.StatusCode != http.StatusOK:
		a.metrics.ObserveUpstreamDuration(string(patent.SourceUSPTO), "transient", time.Since(start))
		return nil, fmt.Errorf("%w: unexpected status %d", domain.ErrTransient, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", domain.ErrTransient, err)
	}
	a.metrics.ObserveUpstreamDuration(string(patent.SourceUSPTO), "success", time.Since(start))

	var payload searchResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", domain.ErrTransient, err)
	}
	if len(payload.Results) == 0 {
		return nil, domain.ErrNotFound
	}
	return a.buildRecord(id, payload.Results[0]), nil
}

type searchResponse struct {
	Results []searchResult `json:"results"`
}

type searchResult struct {
	PatentNumber string `json:"patentNumber"`
	PatentTitle  string `json:"patentTitle"`
	PatentStatus string `json:"patentStatus"`
	FilingDate   string `json:"filingDate"`
}

func (a *Adapter) buildRecord(id patent.CanonicalIdentifier, result searchResult) *patent.Record {
	now := a.clock.Now()
	rec := &patent.Record{
		Identifier:    id,
		Status:        patent.StatusUnknown,
		Jurisdictions: patent.Jurisdictions(patent.JurisdictionUS),
		Source:        patent.SourceUSPTO,
		FetchedAt:     now,
		Raw: map[string]any{
			"patent_status": result.PatentStatus,
			"filing_date":   result.FilingDate,
			"title":         result.PatentTitle,
		},
	}

	if filed := parseFilingDate(result.FilingDate); filed != nil {
		expiry := filed.AddDate(20, 0, 0)
		rec.ExpiryDate = &expiry
	}

	status := strings.ToLower(result.PatentStatus)
	switch {
	case strings.Contains(status, "expired"):
		rec.Status = patent.StatusExpired
		reason := result.PatentStatus
		rec.LapseReason = &reason
	case strings.Contains(status, "abandoned"), strings.Contains(status, "withdrawn"):
		rec.Status = patent.StatusLapsed
		reason := result.PatentStatus
		rec.LapseReason = &reason
	case strings.Contains(status, "patented"),
		strings.Contains(status, "granted"),
		strings.Contains(status, "issued"),
		strings.Contains(status, "active"):
		rec.Status = patent.StatusGranted
		if rec.ExpiryDate != nil && rec.ExpiryDate.Before(now) {
			rec.Status = patent.StatusExpired
		}
	}
	return rec
}

var filingDateLayouts = []string{"2006-01-02", "01/02/2006", "01-02-2006"}

func parseFilingDate(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, layout := range filingDateLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			parsed = parsed.UTC()
			return &parsed
		}
	}
	return nil
}
