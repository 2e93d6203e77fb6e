package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/podslice/podslice/internal/clock"
	"github.com/podslice/podslice/internal/config"
	"github.com/podslice/podslice/internal/logger"
	"github.com/podslice/podslice/internal/migration"
	"github.com/podslice/podslice/internal/observability"
	"github.com/podslice/podslice/internal/server"
	"github.com/podslice/podslice/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		logger.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// HTTP surface and functional domains
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
