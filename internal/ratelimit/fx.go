package ratelimit

import (
	"context"

	"github.com/smallbiznis/warranty/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("rate.limit",
	fx.Provide(provideQuoteIssueLimiter),
)

func provideQuoteIssueLimiter(lc fx.Lifecycle, cfg config.Config) (*QuoteIssueLimiter, error) {
	limiter, err := NewQuoteIssueLimiter(cfg)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return limiter.Close()
		},
	})
	return limiter, nil
}
