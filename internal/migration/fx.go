package migration

import (
	"context"
	"strings"

	"github.com/smallbiznis/ordersync/internal/config"
	"github.com/smallbiznis/ordersync/internal/seed"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, seeder *seed.Seeder, log *zap.Logger) error {
		if cfg.RunMigrations {
			if err := Apply(conn, cfg.DBType); err != nil {
				return err
			}
			log.Info("database schema up to date", zap.String("dialect", cfg.DBType))
		}

		if cfg.SeedDemoData {
			return seeder.EnsureDemoData(context.Background())
		}
		return nil
	}),
)

// Apply migrates the schema with the strategy matching the dialect.
func Apply(conn *gorm.DB, dialect string) error {
	switch strings.ToLower(strings.TrimSpace(dialect)) {
	case "postgres", "postgresql", "":
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	default:
		return AutoMigrate(conn)
	}
}
