package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Customer struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	MerchantID snowflake.ID `gorm:"not null;index:idx_customers_merchant_email,priority:1" json:"merchant_id"`
	Name       string       `gorm:"not null" json:"name"`
	Email      string       `gorm:"not null;index:idx_customers_merchant_email,priority:2" json:"email"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Customer) TableName() string { return "customers" }
