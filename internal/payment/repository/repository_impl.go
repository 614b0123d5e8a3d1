package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ordersync/internal/payment/domain"
	"github.com/smallbiznis/ordersync/pkg/db"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, conn *gorm.DB, payment *domain.Payment) error {
	metadata := payment.Metadata
	if metadata == nil {
		metadata = datatypes.JSONMap{}
	}
	err := conn.WithContext(ctx).Exec(
		`INSERT INTO payments (id, order_id, amount, provider_id, status, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		payment.ID,
		payment.OrderID,
		payment.Amount,
		payment.ProviderID,
		payment.Status,
		metadata,
		payment.CreatedAt,
		payment.UpdatedAt,
	).Error
	if db.IsDuplicateKeyErr(err) {
		return domain.ErrEventAlreadyProcessed
	}
	return err
}

func (r *repo) FindByOrderAndProviderID(ctx context.Context, conn *gorm.DB, orderID snowflake.ID, providerID string) (*domain.Payment, error) {
	var item domain.Payment
	err := conn.WithContext(ctx).Raw(
		`SELECT id, order_id, amount, provider_id, status, metadata, created_at, updated_at
		 FROM payments
		 WHERE order_id = ? AND provider_id = ?
		 LIMIT 1`,
		orderID,
		providerID,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) ListByOrder(ctx context.Context, conn *gorm.DB, orderID snowflake.ID) ([]domain.Payment, error) {
	var items []domain.Payment
	err := conn.WithContext(ctx).Raw(
		`SELECT id, order_id, amount, provider_id, status, metadata, created_at, updated_at
		 FROM payments WHERE order_id = ? ORDER BY created_at ASC, id ASC`,
		orderID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
