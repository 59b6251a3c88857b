package epo

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/JovSele/patentapi/internal/clock"
	domain "github.com/JovSele/patentapi/internal/source/domain"
)

// tokenSource holds the OPS client-credentials access token and refreshes it
// when the cached copy runs out. OPS tokens live about twenty minutes, we
// keep ours a little shorter.
type tokenSource struct {
	client         *http.Client
	tokenURL       string
	consumerKey    string
	consumerSecret string
	ttl            time.Duration
	clock          clock.Clock

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func newTokenSource(client *http.Client, baseURL, consumerKey, consumerSecret string, ttl time.Duration, clk clock.Clock) *tokenSource {
	return &tokenSource{
		client:         client,
		tokenURL:       strings.TrimRight(baseURL, "/") + "/auth/accesstoken",
		consumerKey:    consumerKey,
		consumerSecret: consumerSecret,
		ttl:            ttl,
		clock:          clk,
	}
}

// Token returns a valid access token, requesting a fresh one when the
// cached token has expired.
func (t *tokenSource) Token(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.token != "" && t.clock.Now().Before(t.expiresAt) {
		return t.token, nil
	}

	token, err := t.request(ctx)
	if err != nil {
		return "", err
	}
	t.token = token
	t.expiresAt = t.clock.Now().Add(t.ttl)
	return token, nil
}

// Invalidate drops the cached token so the next call fetches a fresh one.
func (t *tokenSource) Invalidate() {
	t.mu.Lock()
	t.token = ""
	t.expiresAt = time.Time{}
	t.mu.Unlock()
}

func (t *tokenSource) request(ctx context.Context) (string, error) {
	if t.consumerKey == "" || t.consumerSecret == "" {
		return "", fmt.Errorf("%w: missing consumer credentials", domain.ErrAuth)
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	credentials := base64.StdEncoding.EncodeToString([]byte(t.consumerKey + ":" + t.consumerSecret))
	req.Header.Set("Authorization", "Basic "+credentials)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return "", domain.ErrTransient
		}
		return "", fmt.Errorf("%w: %v", domain.ErrTransient, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", domain.ErrAuth
	case resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests:
		return "", domain.ErrTransient
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("%w: token endpoint returned %d", domain.ErrAuth, resp.StatusCode)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("%w: decode token response: %v", domain.ErrTransient, err)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", domain.ErrAuth)
	}
	return payload.AccessToken, nil
}
