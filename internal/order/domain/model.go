package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	StatusPending           Status = "pending"
	StatusProcessing        Status = "processing"
	StatusPaid              Status = "paid"
	StatusPaymentFailed     Status = "payment_failed"
	StatusRefunded          Status = "refunded"
	StatusPartiallyRefunded Status = "partially_refunded"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusPaid, StatusPaymentFailed, StatusRefunded, StatusPartiallyRefunded:
		return true
	}
	return false
}

// Order is resolved by webhooks only through ExternalReference.
type Order struct {
	ID                snowflake.ID `gorm:"primaryKey" json:"id"`
	MerchantID        snowflake.ID `gorm:"not null" json:"merchant_id"`
	CustomerID        snowflake.ID `gorm:"not null" json:"customer_id"`
	ExternalReference string       `gorm:"column:external_reference;not null;uniqueIndex" json:"external_reference"`
	Amount            int64        `gorm:"not null" json:"amount"`
	Status            Status       `gorm:"type:text;not null;default:pending" json:"status"`
	CreatedAt         time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt         time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Order) TableName() string { return "orders" }

// LineItem is a row of the order_product join table.
type LineItem struct {
	OrderID   snowflake.ID `gorm:"primaryKey" json:"order_id"`
	ProductID snowflake.ID `gorm:"primaryKey" json:"product_id"`
	Quantity  int64        `gorm:"not null" json:"quantity"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func (LineItem) TableName() string { return "order_product" }
