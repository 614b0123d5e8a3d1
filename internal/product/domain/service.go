package domain

import (
	"context"
	"errors"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (Product, error)
	Get(ctx context.Context, id string) (Product, error)
}

type CreateRequest struct {
	MerchantID string `json:"merchant_id"`
	Name       string `json:"name"`
	Price      int64  `json:"price"`
	Stock      int64  `json:"stock"`
}

var (
	ErrInvalidMerchant = errors.New("invalid_merchant")
	ErrInvalidName     = errors.New("invalid_name")
	ErrInvalidPrice    = errors.New("invalid_price")
	ErrInvalidStock    = errors.New("invalid_stock")
	ErrInvalidID       = errors.New("invalid_id")
	ErrNotFound        = errors.New("product_not_found")
)
