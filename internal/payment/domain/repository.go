package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, payment *Payment) error
	FindByOrderAndProviderID(ctx context.Context, db *gorm.DB, orderID snowflake.ID, providerID string) (*Payment, error)
	ListByOrder(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]Payment, error)
}
