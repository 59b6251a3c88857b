// Package epo integrates the EPO Open Patent Services published-data API.
package epo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
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
	tokens   *tokenSource
	throttle *domain.Throttle
	clock    clock.Clock
	metrics  *metrics.LookupMetrics
}

func New(p Params) *Adapter {
	client := tracing.WrapHTTPClient(&http.Client{Timeout: p.Cfg.EPO.RequestTimeout})
	return &Adapter{
		log:     p.Log.Named("source.epo"),
		client:  client,
		baseURL: strings.TrimRight(p.Cfg.EPO.BaseURL, "/"),
		tokens: newTokenSource(
			client,
			p.Cfg.EPO.BaseURL,
			p.Cfg.EPO.ConsumerKey,
			p.Cfg.EPO.ConsumerSecret,
			p.Cfg.EPO.TokenTTL,
			p.Clock,
		),
		throttle: domain.NewThrottle(p.Cfg.EPO.RatePerMinute),
		clock:    p.Clock,
		metrics:  p.Metrics,
	}
}

func (a *Adapter) Source() patent.Source {
	return patent.SourceEPO
}

// Fetch retrieves the published data for one EP identifier. A rejected
// token is refreshed and the call retried exactly once.
func (a *Adapter) Fetch(ctx context.Context, id patent.CanonicalIdentifier) (*patent.Record, error) {
	if err := a.throttle.Wait(ctx); err != nil {
		return nil, err
	}

	rec, err := a.fetchOnce(ctx, id)
	if errors.Is(err, domain.ErrAuth) {
		a.log.Warn("access token rejected, refreshing", zap.String("patent", id.String()))
		a.tokens.Invalidate()
		rec, err = a.fetchOnce(ctx, id)
	}
	return rec, err
}

func (a *Adapter) fetchOnce(ctx context.Context, id patent.CanonicalIdentifier) (*patent.Record, error) {
	token, err := a.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/rest-services/published-data/publication/epodoc/%s", a.baseURL, id.Jurisdiction+id.Number)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := a.client.Do(req)
	if err != nil {
		a.metrics.ObserveUpstreamDuration(string(patent.SourceEPO), "transient", time.Since(start))
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, domain.ErrTransient
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrTransient, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		a.metrics.ObserveUpstreamDuration(string(patent.SourceEPO), "not_found", time.Since(start))
		return nil, domain.ErrNotFound
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		a.metrics.ObserveUpstreamDuration(string(patent.SourceEPO), "auth", time.Since(start))
		return nil, domain.ErrAuth
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		a.metrics.ObserveUpstreamDuration(string(patent.SourceEPO), "transient", time.Since(start))
		return nil, domain.ErrTransient
	case resp.StatusCode != http.StatusOK:
		a.metrics.ObserveUpstreamDuration(string(patent.SourceEPO), "transient", time.Since(start))
		return nil, fmt.Errorf("%w: unexpected status %d", domain.ErrTransient, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", domain.ErrTransient, err)
	}
	a.metrics.ObserveUpstreamDuration(string(patent.SourceEPO), "success", time.Since(start))

	return a.buildRecord(id, body)
}

func (a *Adapter) buildRecord(id patent.CanonicalIdentifier, body []byte) (*patent.Record, error) {
	events, err := extractLegalEvents(body)
	if err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", domain.ErrTransient, err)
	}

	now := a.clock.Now()
	rec := &patent.Record{
		Identifier:    id,
		Status:        patent.StatusUnknown,
		Jurisdictions: patent.Jurisdictions(patent.JurisdictionEP),
		Source:        patent.SourceEPO,
		FetchedAt:     now,
		Raw:           events.rawPayload(),
	}

	// a standard patent term runs twenty years from the filing date
	if events.ApplicationDate != nil {
		expiry := events.ApplicationDate.AddDate(20, 0, 0)
		rec.ExpiryDate = &expiry
	}
	if events.GrantDate != nil {
		rec.Status = patent.StatusGranted
		if rec.ExpiryDate != nil && rec.ExpiryDate.Before(now) {
			rec.Status = patent.StatusExpired
		}
	}
	return rec, nil
}

func (e legalEvents) rawPayload() map[string]any {
	raw := make(map[string]any, 2)
	if e.ApplicationDate != nil {
		raw["application_date"] = e.ApplicationDate.Format("2006-01-02")
	}
	if e.GrantDate != nil {
		raw["grant_date"] = e.GrantDate.Format("2006-01-02")
	}
	return raw
}
