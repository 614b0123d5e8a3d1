package domain

import (
	"context"
	"errors"
)

type CreateCustomerRequest struct {
	MerchantID string
	Name       string
	Email      string
}

type Service interface {
	Create(context.Context, CreateCustomerRequest) (Customer, error)
	GetByID(ctx context.Context, id string) (Customer, error)
}

var (
	ErrInvalidMerchant = errors.New("invalid_merchant")
	ErrInvalidName     = errors.New("invalid_name")
	ErrInvalidEmail    = errors.New("invalid_email")
	ErrInvalidID       = errors.New("invalid_id")
	ErrNotFound        = errors.New("customer_not_found")
)
