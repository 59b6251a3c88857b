package context

import "context"

type contextKey string

const (
	requestIDKey contextKey = "observability_request_id"
	clientIDKey  contextKey = "observability_client_id"
	tierKey      contextKey = "observability_tier"
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	if ctx == nil || requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(requestIDKey).(string)
	return value
}

// WithClientID records the log-safe label of the caller. Raw keys never
// enter the context.
func WithClientID(ctx context.Context, clientID string) context.Context {
	if ctx == nil || clientID == "" {
		return ctx
	}
	return context.WithValue(ctx, clientIDKey, clientID)
}

func ClientIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(clientIDKey).(string)
	return value
}

func WithTier(ctx context.Context, tier string) context.Context {
	if ctx == nil || tier == "" {
		return ctx
	}
	return context.WithValue(ctx, tierKey, tier)
}

func TierFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(tierKey).(string)
	return value
}
