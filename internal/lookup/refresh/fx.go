package refresh

import (
	"context"

	"go.uber.org/fx"

	"github.com/JovSele/patentapi/internal/config"
)

var Module = fx.Module("lookup.refresh",
	fx.Provide(provideConfig),
	fx.Provide(NewWorker),
	fx.Invoke(runWorker),
)

func provideConfig(cfg config.Config) Config {
	return Config{
		Enabled:      cfg.Cache.RefreshEnabled,
		TopN:         cfg.Cache.RefreshTopN,
		PollInterval: cfg.Cache.RefreshInterval,
		CacheTTL:     cfg.Cache.TTL,
	}
}

func runWorker(lc fx.Lifecycle, worker *Worker, cfg Config) {
	if !cfg.Enabled {
		return
	}

	// The loop gets its own context, the fx start context is cancelled as
	// soon as startup finishes.
	var cancel context.CancelFunc
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			runCtx, stop := context.WithCancel(context.Background())
			cancel = stop
			go worker.RunForever(runCtx)
			return nil
		},
		OnStop: func(context.Context) error {
			if cancel != nil {
				cancel()
			}
			return nil
		},
	})
}
