package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ordersync/internal/order/domain"
	"github.com/smallbiznis/ordersync/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const orderColumns = `id, merchant_id, customer_id, external_reference, amount, status, created_at, updated_at`

func (r *repo) Insert(ctx context.Context, conn *gorm.DB, order *domain.Order) error {
	err := conn.WithContext(ctx).Exec(
		`INSERT INTO orders (`+orderColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID,
		order.MerchantID,
		order.CustomerID,
		order.ExternalReference,
		order.Amount,
		order.Status,
		order.CreatedAt,
		order.UpdatedAt,
	).Error
	if db.IsDuplicateKeyErr(err) {
		return domain.ErrDuplicateRef
	}
	return err
}

func (r *repo) InsertLineItems(ctx context.Context, conn *gorm.DB, items []domain.LineItem) error {
	if len(items) == 0 {
		return nil
	}
	return conn.WithContext(ctx).Create(&items).Error
}

func (r *repo) FindByReference(ctx context.Context, conn *gorm.DB, reference string) (*domain.Order, error) {
	var order domain.Order
	err := conn.WithContext(ctx).Raw(
		`SELECT `+orderColumns+` FROM orders WHERE external_reference = ?`,
		reference,
	).Scan(&order).Error
	if err != nil {
		return nil, err
	}
	if order.ID == 0 {
		return nil, nil
	}
	return &order, nil
}

func (r *repo) FindByIDForUpdate(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.Order, error) {
	var orders []domain.Order
	err := conn.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Limit(1).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, nil
	}
	return &orders[0], nil
}

func (r *repo) UpdateStatus(ctx context.Context, conn *gorm.DB, id snowflake.ID, status domain.Status, now time.Time) error {
	res := conn.WithContext(ctx).Exec(
		`UPDATE orders SET status = ?, updated_at = ? WHERE id = ?`,
		status,
		now,
		id,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *repo) List(ctx context.Context, conn *gorm.DB) ([]domain.Order, error) {
	var orders []domain.Order
	err := conn.WithContext(ctx).Raw(
		`SELECT ` + orderColumns + ` FROM orders ORDER BY created_at ASC, id ASC`,
	).Scan(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repo) ListLineItems(ctx context.Context, conn *gorm.DB, orderID snowflake.ID) ([]domain.LineItem, error) {
	var items []domain.LineItem
	err := conn.WithContext(ctx).Raw(
		`SELECT order_id, product_id, quantity, created_at, updated_at
		 FROM order_product WHERE order_id = ? ORDER BY product_id ASC`,
		orderID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListProductLines(ctx context.Context, conn *gorm.DB, orderIDs []snowflake.ID) ([]domain.ProductLine, error) {
	if len(orderIDs) == 0 {
		return nil, nil
	}
	var lines []domain.ProductLine
	err := conn.WithContext(ctx).Raw(
		`SELECT op.order_id, p.id AS product_id, p.name, p.price, op.quantity
		 FROM order_product op
		 JOIN products p ON p.id = op.product_id
		 WHERE op.order_id IN ?
		 ORDER BY op.order_id ASC, p.id ASC`,
		orderIDs,
	).Scan(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *repo) ListPayments(ctx context.Context, conn *gorm.DB, orderIDs []snowflake.ID) ([]domain.PaymentSummary, error) {
	if len(orderIDs) == 0 {
		return nil, nil
	}
	var payments []domain.PaymentSummary
	err := conn.WithContext(ctx).Raw(
		`SELECT id, order_id, amount, provider_id, status, created_at
		 FROM payments WHERE order_id IN ? ORDER BY created_at ASC, id ASC`,
		orderIDs,
	).Scan(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *repo) ListCustomers(ctx context.Context, conn *gorm.DB, customerIDs []snowflake.ID) ([]domain.CustomerSummary, error) {
	if len(customerIDs) == 0 {
		return nil, nil
	}
	var customers []domain.CustomerSummary
	err := conn.WithContext(ctx).Raw(
		`SELECT id, name, email FROM customers WHERE id IN ?`,
		customerIDs,
	).Scan(&customers).Error
	if err != nil {
		return nil, err
	}
	return customers, nil
}
