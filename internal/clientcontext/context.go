// Package clientcontext propagates the resolved client identity through
// request contexts.
package clientcontext

import (
	"context"

	clientauthdomain "github.com/JovSele/patentapi/internal/clientauth/domain"
)

type contextKey string

const clientKey contextKey = "request_client"

// WithClient attaches the resolved client to the context.
func WithClient(ctx context.Context, client clientauthdomain.Client) context.Context {
	return context.WithValue(ctx, clientKey, client)
}

// ClientFromContext returns the resolved client, if any.
func ClientFromContext(ctx context.Context) (clientauthdomain.Client, bool) {
	client, ok := ctx.Value(clientKey).(clientauthdomain.Client)
	return client, ok
}
