package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ordersync/internal/product/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, product *domain.Product) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO products (id, merchant_id, name, price, stock, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		product.ID,
		product.MerchantID,
		product.Name,
		product.Price,
		product.Stock,
		product.CreatedAt,
		product.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Product, error) {
	var p domain.Product
	err := db.WithContext(ctx).Raw(
		`SELECT id, merchant_id, name, price, stock, created_at, updated_at
		 FROM products WHERE id = ?`,
		id,
	).Scan(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == 0 {
		return nil, nil
	}
	return &p, nil
}

func (r *repo) DecrementStock(ctx context.Context, db *gorm.DB, id snowflake.ID, quantity int64, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE products SET stock = stock - ?, updated_at = ? WHERE id = ?`,
		quantity,
		now,
		id,
	)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, domain.ErrNotFound
	}

	var stock int64
	if err := db.WithContext(ctx).Raw(`SELECT stock FROM products WHERE id = ?`, id).Scan(&stock).Error; err != nil {
		return 0, err
	}
	return stock, nil
}
