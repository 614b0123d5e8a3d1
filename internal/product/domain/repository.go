package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, product *Product) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Product, error)
	// DecrementStock subtracts quantity and returns the resulting stock.
	DecrementStock(ctx context.Context, db *gorm.DB, id snowflake.ID, quantity int64, now time.Time) (int64, error)
}
