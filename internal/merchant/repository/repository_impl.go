package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ordersync/internal/merchant/domain"
	"github.com/smallbiznis/ordersync/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, conn *gorm.DB, merchant *domain.Merchant) error {
	err := conn.WithContext(ctx).Exec(
		`INSERT INTO merchants (id, name, api_key, webhook_secret, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		merchant.ID,
		merchant.Name,
		merchant.APIKey,
		merchant.WebhookSecret,
		merchant.CreatedAt,
		merchant.UpdatedAt,
	).Error
	if db.IsDuplicateKeyErr(err) {
		return domain.ErrDuplicateKey
	}
	return err
}

func (r *repo) FindByID(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.Merchant, error) {
	return r.findOne(ctx, conn, "id = ?", id)
}

func (r *repo) FindByAPIKey(ctx context.Context, conn *gorm.DB, apiKey string) (*domain.Merchant, error) {
	return r.findOne(ctx, conn, "api_key = ?", apiKey)
}

func (r *repo) findOne(ctx context.Context, conn *gorm.DB, where string, arg any) (*domain.Merchant, error) {
	var merchant domain.Merchant
	err := conn.WithContext(ctx).Raw(
		`SELECT id, name, api_key, webhook_secret, created_at, updated_at
		 FROM merchants WHERE `+where,
		arg,
	).Scan(&merchant).Error
	if err != nil {
		return nil, err
	}
	if merchant.ID == 0 {
		return nil, nil
	}
	return &merchant, nil
}
