package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, order *Order) error
	InsertLineItems(ctx context.Context, db *gorm.DB, items []LineItem) error

	// FindByReference returns nil when no order carries the reference.
	FindByReference(ctx context.Context, db *gorm.DB, reference string) (*Order, error)
	// FindByIDForUpdate reloads the order under a row lock where the dialect supports it.
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Order, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status Status, now time.Time) error

	List(ctx context.Context, db *gorm.DB) ([]Order, error)
	ListLineItems(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]LineItem, error)
	ListProductLines(ctx context.Context, db *gorm.DB, orderIDs []snowflake.ID) ([]ProductLine, error)
	ListPayments(ctx context.Context, db *gorm.DB, orderIDs []snowflake.ID) ([]PaymentSummary, error)
	ListCustomers(ctx context.Context, db *gorm.DB, customerIDs []snowflake.ID) ([]CustomerSummary, error)
}
