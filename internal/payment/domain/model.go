package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusRefunded  Status = "refunded"
)

// Payment records a provider transaction against an order. The pair
// (OrderID, ProviderID) is unique and is the replay key for success events.
type Payment struct {
	ID         snowflake.ID      `json:"id" gorm:"primaryKey"`
	OrderID    snowflake.ID      `json:"order_id" gorm:"not null;uniqueIndex:ux_payments_order_provider,priority:1"`
	Amount     int64             `json:"amount" gorm:"not null"`
	ProviderID string            `json:"provider_id" gorm:"type:text;not null;index;uniqueIndex:ux_payments_order_provider,priority:2"`
	Status     Status            `json:"status" gorm:"type:text;not null;default:pending"`
	Metadata   datatypes.JSONMap `json:"metadata,omitempty" gorm:"not null"`
	CreatedAt  time.Time         `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt  time.Time         `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Payment) TableName() string { return "payments" }

// Webhook event names.
const (
	EventPaymentSuccess  = "payment.success"
	EventPaymentFailed   = "payment.failed"
	EventRefundProcessed = "refund.processed"
)

// WebhookPayload is the validated inbound notification.
type WebhookPayload struct {
	Event         string
	OrderRef      string
	TransactionID string
	Amount        int64
	// Currency and Timestamp are optional and stored verbatim in payment metadata.
	Currency  string
	Timestamp string
}

// Known reports whether the event has a state transition attached.
func (p WebhookPayload) Known() bool {
	switch p.Event {
	case EventPaymentSuccess, EventPaymentFailed, EventRefundProcessed:
		return true
	}
	return false
}
