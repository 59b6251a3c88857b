package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/JovSele/patentapi/internal/clientauth"
	"github.com/JovSele/patentapi/internal/clock"
	"github.com/JovSele/patentapi/internal/config"
	"github.com/JovSele/patentapi/internal/lookup"
	lookuprefresh "github.com/JovSele/patentapi/internal/lookup/refresh"
	"github.com/JovSele/patentapi/internal/migration"
	"github.com/JovSele/patentapi/internal/observability"
	"github.com/JovSele/patentapi/internal/patentcache"
	"github.com/JovSele/patentapi/internal/ratelimit"
	"github.com/JovSele/patentapi/internal/seed"
	"github.com/JovSele/patentapi/internal/server"
	"github.com/JovSele/patentapi/internal/source"
	"github.com/JovSele/patentapi/internal/usage"
	"github.com/JovSele/patentapi/pkg/db"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := migration.RunMigrations(sqlDB); err != nil {
				return err
			}
			if cfg.SeedDevKeys {
				return seed.EnsureDevKeys(conn)
			}
			return nil
		}),

		patentcache.Module,
		source.Module,
		clientauth.Module,
		ratelimit.Module,
		usage.Module,
		lookup.Module,
		lookuprefresh.Module,
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
