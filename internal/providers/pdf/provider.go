package pdf

import (
	"context"
	"io"

	"go.uber.org/fx"
)

// Provider renders customer-facing documents.
type Provider interface {
	GenerateQuote(ctx context.Context, sheet QuoteSheet) (io.Reader, error)
}

type NoOpProvider struct{}

func (p *NoOpProvider) GenerateQuote(ctx context.Context, sheet QuoteSheet) (io.Reader, error) {
	return nil, nil
}

var Module = fx.Module("providers.pdf",
	fx.Provide(New),
)
