package domain

import (
	"context"
	"errors"
)

type CreateOrderRequest struct {
	MerchantID        string
	CustomerID        string
	ExternalReference string
	Amount            int64
	Status            Status
	Items             []CreateLineItem
}

type CreateLineItem struct {
	ProductID string
	Quantity  int64
}

type Service interface {
	Create(ctx context.Context, req CreateOrderRequest) (Order, error)
	List(ctx context.Context) ([]OrderDetail, error)
	GetByReference(ctx context.Context, reference string) (OrderDetail, error)
}

var (
	ErrInvalidMerchant  = errors.New("invalid_merchant")
	ErrInvalidCustomer  = errors.New("invalid_customer")
	ErrInvalidReference = errors.New("invalid_reference")
	ErrInvalidAmount    = errors.New("invalid_amount")
	ErrInvalidStatus    = errors.New("invalid_status")
	ErrInvalidLineItem  = errors.New("invalid_line_item")
	ErrDuplicateRef     = errors.New("duplicate_reference")
	ErrNotFound         = errors.New("order_not_found")
)
