package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Merchant owns customers, products and orders. WebhookSecret keys the
// optional inbound signature check.
type Merchant struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	Name          string       `gorm:"not null" json:"name"`
	APIKey        string       `gorm:"column:api_key;not null;uniqueIndex" json:"-"`
	WebhookSecret string       `gorm:"column:webhook_secret;not null" json:"-"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Merchant) TableName() string { return "merchants" }

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, merchant *Merchant) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Merchant, error)
	FindByAPIKey(ctx context.Context, db *gorm.DB, apiKey string) (*Merchant, error)
}

var (
	ErrInvalidName   = errors.New("invalid_name")
	ErrInvalidAPIKey = errors.New("invalid_api_key")
	ErrDuplicateKey  = errors.New("duplicate_api_key")
	ErrNotFound      = errors.New("merchant_not_found")
)
