package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	customerdomain "github.com/smallbiznis/ordersync/internal/customer/domain"
	merchantdomain "github.com/smallbiznis/ordersync/internal/merchant/domain"
	orderdomain "github.com/smallbiznis/ordersync/internal/order/domain"
	paymentdomain "github.com/smallbiznis/ordersync/internal/payment/domain"
	productdomain "github.com/smallbiznis/ordersync/internal/product/domain"
	"gorm.io/gorm"
)

const migrationsDir = "migrations"

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// RunMigrations applies the embedded SQL migrations to a postgres database.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	source, err := newSource()
	if err != nil {
		return err
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}

// AutoMigrate creates the schema from the gorm models. Used for the
// sqlite and mysql dialects, which the SQL migrations do not target.
func AutoMigrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&merchantdomain.Merchant{},
		&customerdomain.Customer{},
		&productdomain.Product{},
		&orderdomain.Order{},
		&orderdomain.LineItem{},
		&paymentdomain.Payment{},
	)
}

func newSource() (source.Driver, error) {
	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("open migrations: %w", err)
	}
	src, err := iofs.New(sub, ".")
	if err != nil {
		return nil, fmt.Errorf("create migration source: %w", err)
	}
	return src, nil
}
