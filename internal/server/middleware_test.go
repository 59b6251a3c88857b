package server

import (
	"net/http"
	"testing"

	usagedomain "github.com/JovSele/patentapi/internal/usage/domain"
)

func TestRateLimitDeniesOverQuota(t *testing.T) {
	cfg := testConfig()
	usageSvc := &fakeUsage{}
	engine := newTestServer(t, testServerDeps{
		cfg:     cfg,
		lookup:  &fakeLookup{result: sampleResult()},
		usage:   usageSvc,
		limiter: newTestLimiter(cfg),
	})

	first := doRequest(engine, http.MethodGet, "/api/v1/status?patent=EP1234567", nil)
	if first.Code != http.StatusOK {
		t.Fatalf("first status = %d, want %d", first.Code, http.StatusOK)
	}
	if got := first.Header().Get("X-RateLimit-Limit"); got != "2" {
		t.Fatalf("X-RateLimit-Limit = %q, want 2", got)
	}
	if got := first.Header().Get("X-RateLimit-Remaining"); got != "1" {
		t.Fatalf("X-RateLimit-Remaining = %q, want 1", got)
	}
	if first.Header().Get("X-RateLimit-Reset") == "" {
		t.Fatalf("expected X-RateLimit-Reset header to be set")
	}

	second := doRequest(engine, http.MethodGet, "/api/v1/status?patent=EP1234567", nil)
	if second.Code != http.StatusOK {
		t.Fatalf("second status = %d, want %d", second.Code, http.StatusOK)
	}
	if got := second.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Fatalf("X-RateLimit-Remaining = %q, want 0", got)
	}

	third := doRequest(engine, http.MethodGet, "/api/v1/status?patent=EP1234567", nil)
	if third.Code != http.StatusTooManyRequests {
		t.Fatalf("third status = %d, want %d", third.Code, http.StatusTooManyRequests)
	}
	body := decodeBody(t, third)
	if body["error"] != "rate_limit_exceeded" {
		t.Fatalf("error = %v, want rate_limit_exceeded", body["error"])
	}
	if body["reset_at"] == nil || body["reset_at"] == "" {
		t.Fatalf("expected reset_at in 429 body, got %v", body)
	}

	var outcomes []string
	for _, entry := range usageSvc.entries {
		outcomes = append(outcomes, entry.Outcome)
	}
	want := []string{usagedomain.OutcomeOK, usagedomain.OutcomeOK, usagedomain.OutcomeRateLimited}
	if len(outcomes) != len(want) {
		t.Fatalf("outcomes = %v, want %v", outcomes, want)
	}
	for i := range want {
		if outcomes[i] != want[i] {
			t.Fatalf("outcomes = %v, want %v", outcomes, want)
		}
	}
}

func TestRateLimitHonorsTierHint(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.Free = 1
	engine := newTestServer(t, testServerDeps{
		cfg:     cfg,
		lookup:  &fakeLookup{result: sampleResult()},
		usage:   &fakeUsage{},
		limiter: newTestLimiter(cfg),
	})

	headers := map[string]string{HeaderTierHint: "starter"}
	for i := 0; i < 3; i++ {
		w := doRequest(engine, http.MethodGet, "/api/v1/status?patent=EP1234567", headers)
		if w.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want %d", i+1, w.Code, http.StatusOK)
		}
		if got := w.Header().Get("X-RateLimit-Limit"); got != "1000" {
			t.Fatalf("X-RateLimit-Limit = %q, want 1000", got)
		}
	}
}

func TestRateLimitOmitsHeadersForUnlimitedTier(t *testing.T) {
	cfg := testConfig()
	engine := newTestServer(t, testServerDeps{
		cfg:     cfg,
		lookup:  &fakeLookup{result: sampleResult()},
		usage:   &fakeUsage{},
		limiter: newTestLimiter(cfg),
	})

	w := doRequest(engine, http.MethodGet, "/api/v1/status?patent=EP1234567", map[string]string{
		HeaderAPIKey: "enterprise-key",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if got := w.Header().Get("X-RateLimit-Limit"); got != "" {
		t.Fatalf("X-RateLimit-Limit = %q, want unset", got)
	}
}

func TestRateLimitKeepsClientsSeparate(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.Free = 1
	engine := newTestServer(t, testServerDeps{
		cfg:     cfg,
		lookup:  &fakeLookup{result: sampleResult()},
		usage:   &fakeUsage{},
		limiter: newTestLimiter(cfg),
	})

	anon := doRequest(engine, http.MethodGet, "/api/v1/status?patent=EP1234567", nil)
	if anon.Code != http.StatusOK {
		t.Fatalf("anonymous status = %d, want %d", anon.Code, http.StatusOK)
	}
	denied := doRequest(engine, http.MethodGet, "/api/v1/status?patent=EP1234567", nil)
	if denied.Code != http.StatusTooManyRequests {
		t.Fatalf("second anonymous status = %d, want %d", denied.Code, http.StatusTooManyRequests)
	}

	keyed := doRequest(engine, http.MethodGet, "/api/v1/status?patent=EP1234567", map[string]string{
		HeaderAPIKey: "pro-key",
	})
	if keyed.Code != http.StatusOK {
		t.Fatalf("keyed status = %d, want %d", keyed.Code, http.StatusOK)
	}
	if got := keyed.Header().Get("X-RateLimit-Limit"); got != "10000" {
		t.Fatalf("X-RateLimit-Limit = %q, want 10000", got)
	}
}

func TestHealthAndStatsAreNotRateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.Free = 1
	engine := newTestServer(t, testServerDeps{
		cfg:     cfg,
		lookup:  &fakeLookup{result: sampleResult()},
		usage:   &fakeUsage{},
		limiter: newTestLimiter(cfg),
	})

	for i := 0; i < 3; i++ {
		if w := doRequest(engine, http.MethodGet, "/api/v1/health", nil); w.Code != http.StatusOK {
			t.Fatalf("health request %d status = %d, want %d", i+1, w.Code, http.StatusOK)
		}
		if w := doRequest(engine, http.MethodGet, "/api/v1/stats/overview", nil); w.Code != http.StatusOK {
			t.Fatalf("stats request %d status = %d, want %d", i+1, w.Code, http.StatusOK)
		}
	}
}

func TestRapidAPIHeaderResolvesClient(t *testing.T) {
	cfg := testConfig()
	engine := newTestServer(t, testServerDeps{
		cfg:     cfg,
		lookup:  &fakeLookup{result: sampleResult()},
		usage:   &fakeUsage{},
		limiter: newTestLimiter(cfg),
	})

	w := doRequest(engine, http.MethodGet, "/api/v1/status?patent=EP1234567", map[string]string{
		HeaderRapidAPIKey: "pro-key",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if got := w.Header().Get("X-RateLimit-Limit"); got != "10000" {
		t.Fatalf("X-RateLimit-Limit = %q, want 10000", got)
	}
}
