package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ordersync/internal/accounting"
	"github.com/smallbiznis/ordersync/internal/clock"
	"github.com/smallbiznis/ordersync/internal/config"
	"github.com/smallbiznis/ordersync/internal/customer"
	"github.com/smallbiznis/ordersync/internal/merchant"
	"github.com/smallbiznis/ordersync/internal/migration"
	"github.com/smallbiznis/ordersync/internal/notification"
	"github.com/smallbiznis/ordersync/internal/observability"
	"github.com/smallbiznis/ordersync/internal/order"
	"github.com/smallbiznis/ordersync/internal/orderlock"
	"github.com/smallbiznis/ordersync/internal/payment"
	"github.com/smallbiznis/ordersync/internal/product"
	"github.com/smallbiznis/ordersync/internal/providers"
	"github.com/smallbiznis/ordersync/internal/seed"
	"github.com/smallbiznis/ordersync/internal/server"
	"github.com/smallbiznis/ordersync/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		orderlock.Module,
		migration.Module,

		// Domains
		merchant.Module,
		customer.Module,
		product.Module,
		order.Module,
		seed.Module,
		payment.Module,

		// Collaborators
		providers.Module,
		notification.Module,
		accounting.Module,

		server.Module,

		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
