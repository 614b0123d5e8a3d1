package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Product prices are in minor currency units. Stock is signed: decrements
// are never clamped, so oversold products go negative.
type Product struct {
	ID         snowflake.ID `json:"id" gorm:"primaryKey"`
	MerchantID snowflake.ID `json:"merchant_id" gorm:"not null;index"`
	Name       string       `json:"name" gorm:"type:text;not null"`
	Price      int64        `json:"price" gorm:"not null"`
	Stock      int64        `json:"stock" gorm:"not null;default:0"`
	CreatedAt  time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt  time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Product) TableName() string { return "products" }
