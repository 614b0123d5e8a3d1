// Package testutil provides an in-memory sqlite schema matching the
// production migrations for repository and service tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

var schema = []string{
	`CREATE TABLE merchants (
		id BIGINT PRIMARY KEY,
		name TEXT NOT NULL,
		api_key TEXT NOT NULL UNIQUE,
		webhook_secret TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE customers (
		id BIGINT PRIMARY KEY,
		merchant_id BIGINT NOT NULL REFERENCES merchants(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE INDEX idx_customers_merchant_email ON customers (merchant_id, email)`,
	`CREATE TABLE products (
		id BIGINT PRIMARY KEY,
		merchant_id BIGINT NOT NULL REFERENCES merchants(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		price BIGINT NOT NULL,
		stock BIGINT NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE orders (
		id BIGINT PRIMARY KEY,
		merchant_id BIGINT NOT NULL REFERENCES merchants(id) ON DELETE CASCADE,
		customer_id BIGINT NOT NULL REFERENCES customers(id) ON DELETE CASCADE,
		external_reference TEXT NOT NULL UNIQUE,
		amount BIGINT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE INDEX idx_orders_merchant_status ON orders (merchant_id, status)`,
	`CREATE INDEX idx_orders_created_at ON orders (created_at)`,
	`CREATE TABLE order_product (
		order_id BIGINT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		product_id BIGINT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		quantity BIGINT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (order_id, product_id)
	)`,
	`CREATE TABLE payments (
		id BIGINT PRIMARY KEY,
		order_id BIGINT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		amount BIGINT NOT NULL,
		provider_id TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		metadata TEXT NOT NULL DEFAULT '{}',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		UNIQUE (order_id, provider_id)
	)`,
	`CREATE INDEX idx_payments_provider_id ON payments (provider_id)`,
}

// NewDB opens a fresh shared-cache in-memory database with the full schema.
// A single connection keeps concurrent tests from tripping over sqlite's
// table locks.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d_%d?mode=memory&cache=shared&_pragma=foreign_keys(1)",
		time.Now().UnixNano(), dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

// AssertCount fails the test when the table row count differs from want.
func AssertCount(t testing.TB, db *gorm.DB, table string, want int64) {
	t.Helper()

	var got int64
	if err := db.Table(table).Count(&got).Error; err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	if got != want {
		t.Fatalf("expected %d rows in %s, got %d", want, table, got)
	}
}
