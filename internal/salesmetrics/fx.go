package salesmetrics

import (
	"context"
	"time"

	"github.com/smallbiznis/warranty/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const minPushInterval = 10 * time.Second

var Module = fx.Module("sales.metrics",
	fx.Provide(provideRecorder),
	fx.Provide(NewPusher),
	fx.Invoke(runPusher),
)

func provideRecorder(cfg config.Config) *Recorder {
	if !cfg.SalesMetrics.Enabled {
		return nil
	}
	return NewRecorder(cfg.AppName)
}

// runPusher pushes on a fixed interval and once more on shutdown so the last
// issued quotes are not lost.
func runPusher(lc fx.Lifecycle, cfg config.Config, rec *Recorder, pusher Pusher, log *zap.Logger) {
	if rec == nil || pusher == nil {
		return
	}
	log = log.Named("sales.metrics")

	interval := time.Duration(cfg.SalesMetrics.IntervalSeconds) * time.Second
	if interval < minPushInterval {
		interval = minPushInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				ticker := time.NewTicker(interval)
				defer ticker.Stop()
				for {
					select {
					case <-ticker.C:
						if err := pusher.Push(ctx, rec.Registry()); err != nil {
							log.Warn("sales metrics push failed", zap.Error(err))
						}
					case <-ctx.Done():
						return
					}
				}
			}()
			log.Info("sales metrics pusher started", zap.Duration("interval", interval))
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			<-done
			if err := pusher.Push(stopCtx, rec.Registry()); err != nil {
				log.Warn("final sales metrics push failed", zap.Error(err))
			}
			return nil
		},
	})
}
