// Package db provides the shared gorm connection handle.
package db

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/JovSele/patentapi/internal/config"
)

var Module = fx.Module("db",
	fx.Provide(New),
)

type Params struct {
	fx.In
	Lc  fx.Lifecycle
	Cfg config.Config
	Log *zap.Logger
}

// New opens the postgres connection pool and registers its shutdown hook.
func New(p Params) (*gorm.DB, error) {
	conn, err := gorm.Open(postgres.Open(p.Cfg.Database.URL), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(p.Cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(p.Cfg.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(p.Cfg.Database.ConnMaxLifetime)

	p.Lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			p.Log.Info("closing database connection")
			return sqlDB.Close()
		},
	})

	p.Log.Info("database connected",
		zap.Int("max_open_conns", p.Cfg.Database.MaxOpenConns),
		zap.Int("max_idle_conns", p.Cfg.Database.MaxIdleConns),
	)
	return conn, nil
}
