package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// OrderDetail is the read projection served by the order lookup routes.
type OrderDetail struct {
	Order
	Customer *CustomerSummary `json:"customer"`
	Products []ProductLine    `json:"products"`
	Payments []PaymentSummary `json:"payments"`
}

type CustomerSummary struct {
	ID    snowflake.ID `json:"id"`
	Name  string       `json:"name"`
	Email string       `json:"email"`
}

type ProductLine struct {
	OrderID   snowflake.ID `json:"-"`
	ProductID snowflake.ID `json:"id"`
	Name      string       `json:"name"`
	Price     int64        `json:"price"`
	Quantity  int64        `json:"quantity"`
}

type PaymentSummary struct {
	ID         snowflake.ID `json:"id"`
	OrderID    snowflake.ID `json:"order_id"`
	Amount     int64        `json:"amount"`
	ProviderID string       `json:"provider_id"`
	Status     string       `json:"status"`
	CreatedAt  time.Time    `json:"created_at"`
}
