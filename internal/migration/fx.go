package migration

import (
	"fmt"
	"strings"

	"github.com/smallbiznis/warranty/internal/config"
	"github.com/smallbiznis/warranty/internal/warranty/domain"
	"github.com/smallbiznis/warranty/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(Apply),
)

// Apply brings the schema up to date. Postgres uses the versioned SQL
// migrations; other dialects fall back to gorm AutoMigrate.
func Apply(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
	if !cfg.AutoMigrate {
		log.Info("schema migrations skipped")
		return nil
	}

	dbType := strings.ToLower(strings.TrimSpace(cfg.DBType))
	if dbType == db.TypePostgres {
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		version, err := RunMigrations(sqlDB)
		if err != nil {
			return err
		}
		log.Info("schema migrations applied",
			zap.String("dialect", dbType),
			zap.Uint("version", version),
		)
		return nil
	}

	if err := conn.AutoMigrate(&domain.QuoteSnapshot{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	log.Info("schema auto-migrated", zap.String("dialect", dbType))
	return nil
}
