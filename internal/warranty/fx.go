package warranty

import (
	"github.com/smallbiznis/warranty/internal/config"
	"github.com/smallbiznis/warranty/internal/warranty/engine"
	"github.com/smallbiznis/warranty/internal/warranty/repository"
	"github.com/smallbiznis/warranty/internal/warranty/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("warranty.service",
	fx.Provide(NewEngine),
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)

// NewEngine builds the pricing engine from the loaded catalog settings.
func NewEngine(settings config.WarrantySettings, log *zap.Logger) (*engine.Engine, error) {
	e, err := engine.New(settings.Catalog, settings.Options)
	if err != nil {
		return nil, err
	}

	source := settings.Source
	if source == "" {
		source = "builtin"
	}
	log.Info("warranty catalog loaded",
		zap.String("source", source),
		zap.Int("tiers", settings.Catalog.Len()),
		zap.String("policy", string(settings.Options.Policy)),
	)
	return e, nil
}
