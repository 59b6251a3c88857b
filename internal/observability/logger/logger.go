// Package logger builds the process-wide zap logger and exposes
// context-aware accessors for request-scoped logging.
package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	obscontext "github.com/JovSele/patentapi/internal/observability/context"
)

// Config controls level, encoding and the identity fields stamped on every
// log line.
type Config struct {
	Level       string
	Format      string
	ServiceName string
	Environment string
}

// New builds the zap logger and installs it as the global logger so that
// FromContext works everywhere.
func New(cfg Config) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}
	zapCfg.Level = level

	log, err := zapCfg.Build(
		zap.Fields(
			zap.String("service", cfg.ServiceName),
			zap.String("env", cfg.Environment),
		),
	)
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(log)
	return log, nil
}

// FromContext returns the global logger enriched with the trace and request
// identifiers carried by ctx.
func FromContext(ctx context.Context) *zap.Logger {
	log := zap.L()
	if ctx == nil {
		return log
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		log = log.With(
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
		log = log.With(zap.String("request_id", requestID))
	}
	if clientID := obscontext.ClientIDFromContext(ctx); clientID != "" {
		log = log.With(zap.String("client_id", clientID))
	}
	return log
}
