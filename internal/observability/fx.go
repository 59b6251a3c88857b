// Package observability wires logging, tracing and metrics from the process
// configuration.
package observability

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"

	"github.com/JovSele/patentapi/internal/config"
	"github.com/JovSele/patentapi/internal/observability/logger"
	"github.com/JovSele/patentapi/internal/observability/metrics"
	"github.com/JovSele/patentapi/internal/observability/tracing"
)

var Module = fx.Module("observability",
	fx.Provide(func(cfg config.Config) logger.Config {
		return logger.Config{
			Level:       cfg.Log.Level,
			Format:      cfg.Log.Format,
			ServiceName: cfg.ServiceName,
			Environment: cfg.Environment,
		}
	}),
	fx.Provide(logger.New),
	fx.Provide(func(cfg config.Config) tracing.Config {
		return tracing.Config{
			Enabled:          cfg.Telemetry.TracingEnabled,
			ServiceName:      cfg.ServiceName,
			ServiceVersion:   cfg.Version,
			Environment:      cfg.Environment,
			ExporterEndpoint: cfg.Telemetry.ExporterEndpoint,
			ExporterProtocol: cfg.Telemetry.ExporterProtocol,
			SamplingRatio:    cfg.Telemetry.SamplingRatio,
		}
	}),
	fx.Provide(tracing.NewProvider),
	// NewProvider registers the global tracer as a side effect, nothing
	// consumes the returned instance.
	fx.Invoke(func(*sdktrace.TracerProvider) {}),
	fx.Provide(func(cfg config.Config) metrics.Config {
		return metrics.Config{
			ServiceName: cfg.ServiceName,
			Environment: cfg.Environment,
		}
	}),
	fx.Provide(func() metric.MeterProvider {
		return otel.GetMeterProvider()
	}),
	fx.Provide(metrics.NewHTTPMetrics),
	fx.Provide(metrics.LookupWithConfig),
)
