package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	clientauthdomain "github.com/JovSele/patentapi/internal/clientauth/domain"
	"github.com/JovSele/patentapi/internal/clientcontext"
	obscontext "github.com/JovSele/patentapi/internal/observability/context"
	ratelimitdomain "github.com/JovSele/patentapi/internal/ratelimit/domain"
	usagedomain "github.com/JovSele/patentapi/internal/usage/domain"
)

// Credential headers. HeaderRapidAPIKey is the marketplace proxy header
// honored for callers onboarded there.
const (
	HeaderAPIKey      = "X-API-Key"
	HeaderRapidAPIKey = "X-RapidAPI-Proxy-Secret"
	HeaderTierHint    = "X-Subscription-Tier"
)

// ClientContext resolves the caller once per request and stores the
// identity on the request context for the handlers and the limiter.
func ClientContext(resolver clientauthdomain.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		client := resolver.Resolve(c.Request.Context(), extractCredentials(c))

		ctx := clientcontext.WithClient(c.Request.Context(), client)
		ctx = obscontext.WithClientID(ctx, clientID(client))
		ctx = obscontext.WithTier(ctx, string(client.Tier))
		c.Request = c.Request.WithContext(ctx)
		c.Set("tier", string(client.Tier))

		c.Next()
	}
}

func extractCredentials(c *gin.Context) clientauthdomain.Credentials {
	key := strings.TrimSpace(c.GetHeader(HeaderAPIKey))
	if key == "" {
		key = strings.TrimSpace(c.GetHeader(HeaderRapidAPIKey))
	}
	return clientauthdomain.Credentials{
		APIKey:   key,
		TierHint: c.GetHeader(HeaderTierHint),
		ClientIP: c.ClientIP(),
	}
}

// clientID is the log-safe identity label. Raw keys and hashes stay out
// of logs.
func clientID(client clientauthdomain.Client) string {
	if client.Anonymous {
		return "anonymous"
	}
	return client.Name
}

// RateLimitRequired enforces the monthly quota for the resolved client.
// Denied requests are answered with 429 and recorded in the request log.
func (s *Server) RateLimitRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter == nil {
			c.Next()
			return
		}

		client, ok := clientcontext.ClientFromContext(c.Request.Context())
		if !ok {
			client = clientauthdomain.Client{
				Key:       "ip:" + c.ClientIP(),
				Tier:      ratelimitdomain.TierFree,
				Anonymous: true,
			}
		}

		decision, err := s.limiter.Admit(c.Request.Context(), client.Key, client.Tier)
		if err != nil {
			s.log.Warn("quota decision unavailable, admitting request", zap.Error(err))
			c.Next()
			return
		}

		setRateLimitHeaders(c, decision)
		if !decision.Allowed {
			s.recordRateLimited(c, client, decision)
			AbortWithError(c, &quotaExceededError{decision: decision})
			return
		}

		c.Next()
	}
}

// setRateLimitHeaders advertises the quota state. Unlimited tiers report
// Limit 0 and carry no headers.
func setRateLimitHeaders(c *gin.Context, d ratelimitdomain.Decision) {
	if d.Limit <= 0 {
		return
	}
	c.Header("X-RateLimit-Limit", strconv.FormatInt(d.Limit, 10))
	c.Header("X-RateLimit-Remaining", strconv.FormatInt(d.Remaining, 10))
	c.Header("X-RateLimit-Reset", d.ResetAt.UTC().Format(time.RFC3339))
}

func (s *Server) recordRateLimited(c *gin.Context, client clientauthdomain.Client, d ratelimitdomain.Decision) {
	if s.usageSvc == nil {
		return
	}
	s.usageSvc.Record(c.Request.Context(), usagedomain.LogEntry{
		PatentNumber: strings.TrimSpace(c.Query("patent")),
		Endpoint:     c.FullPath(),
		Method:       c.Request.Method,
		APIKeyHash:   client.KeyHash,
		Tier:         string(d.Tier),
		Outcome:      usagedomain.OutcomeRateLimited,
		StatusCode:   http.StatusTooManyRequests,
		IPAddress:    c.ClientIP(),
		UserAgent:    c.Request.UserAgent(),
	})
}
