package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/fieldops/claimflow/internal/observability"
	"github.com/fieldops/claimflow/internal/server"
	"github.com/fieldops/claimflow/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
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
