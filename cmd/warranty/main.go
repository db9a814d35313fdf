package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/warranty/internal/clock"
	"github.com/smallbiznis/warranty/internal/config"
	"github.com/smallbiznis/warranty/internal/migration"
	"github.com/smallbiznis/warranty/internal/observability"
	"github.com/smallbiznis/warranty/internal/salesmetrics"
	"github.com/smallbiznis/warranty/internal/server"
	"github.com/smallbiznis/warranty/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		salesmetrics.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
