package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	lookupdomain "github.com/JovSele/patentapi/internal/lookup/domain"
	"github.com/JovSele/patentapi/internal/patent"
	ratelimitdomain "github.com/JovSele/patentapi/internal/ratelimit/domain"
	sourcedomain "github.com/JovSele/patentapi/internal/source/domain"
)

// Sentinel errors shared by the HTTP handlers.
var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not_found")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

const identifierFormatHint = "Expected format: EP1234567 or US7654321"

// errorResponse is the JSON envelope every failed request renders.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
	ResetAt string `json:"reset_at,omitempty"`
}

// validationError reports one rejected request field.
type validationError struct {
	Field   string
	Code    string
	Message string
}

func (e *validationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func newValidationError(field, code, message string) error {
	return &validationError{Field: field, Code: code, Message: message}
}

// quotaExceededError carries the limiter decision so the response can name
// the instant the quota resets.
type quotaExceededError struct {
	decision ratelimitdomain.Decision
}

func (e *quotaExceededError) Error() string {
	return ratelimitdomain.ErrLimitExceeded.Error()
}

func (e *quotaExceededError) Unwrap() error {
	return ratelimitdomain.ErrLimitExceeded
}

// AbortWithError renders err through the error envelope and aborts the
// request. The error is also attached to the gin context for the access log.
func AbortWithError(c *gin.Context, err error) {
	status, body := classifyError(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, body)
}

func classifyError(err error) (int, errorResponse) {
	var vErr *validationError
	if errors.As(err, &vErr) {
		return http.StatusBadRequest, errorResponse{
			Error:   vErr.Code,
			Message: vErr.Message,
		}
	}

	var qErr *quotaExceededError
	if errors.As(err, &qErr) {
		return http.StatusTooManyRequests, errorResponse{
			Error:   "rate_limit_exceeded",
			Message: fmt.Sprintf("Monthly quota of %d requests exhausted for the %s tier.", qErr.decision.Limit, qErr.decision.Tier),
			ResetAt: qErr.decision.ResetAt.UTC().Format(time.RFC3339),
		}
	}

	switch {
	case errors.Is(err, patent.ErrInvalidIdentifier):
		return http.StatusBadRequest, errorResponse{
			Error:   "invalid_identifier_format",
			Message: "The patent number could not be parsed.",
			Detail:  identifierFormatHint,
		}
	case errors.Is(err, sourcedomain.ErrUnsupportedJurisdiction):
		return http.StatusBadRequest, errorResponse{
			Error:   "unsupported_jurisdiction",
			Message: "No data source covers the requested jurisdiction.",
		}
	case errors.Is(err, sourcedomain.ErrNotFound):
		return http.StatusNotFound, errorResponse{
			Error:   "patent_not_found",
			Message: "No record exists for the requested identifier.",
		}
	case errors.Is(err, lookupdomain.ErrServiceDegraded):
		return http.StatusServiceUnavailable, errorResponse{
			Error:   "service_degraded",
			Message: "Upstream authentication is failing. Please retry later.",
		}
	case errors.Is(err, lookupdomain.ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable, errorResponse{
			Error:   "upstream_unavailable",
			Message: "The patent office did not respond. Please retry later.",
		}
	case errors.Is(err, ratelimitdomain.ErrLimitExceeded):
		return http.StatusTooManyRequests, errorResponse{
			Error:   "rate_limit_exceeded",
			Message: "Monthly request quota exhausted.",
		}
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorResponse{
			Error:   "unauthorized",
			Message: "Missing or invalid credentials.",
		}
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, errorResponse{
			Error:   "forbidden",
			Message: "The credentials do not permit this operation.",
		}
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, errorResponse{
			Error:   "not_found",
			Message: "The requested resource does not exist.",
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorResponse{
			Error:   "service_unavailable",
			Message: "The service is not ready to answer this request.",
		}
	default:
		return http.StatusInternalServerError, errorResponse{
			Error:   "internal_error",
			Message: "An unexpected error occurred.",
		}
	}
}
