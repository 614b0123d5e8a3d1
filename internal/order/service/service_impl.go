package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ordersync/internal/order/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("order.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

// Create inserts an order with its line items in one transaction.
func (s *Service) Create(ctx context.Context, req domain.CreateOrderRequest) (domain.Order, error) {
	merchantID, err := parseID(req.MerchantID)
	if err != nil {
		return domain.Order{}, domain.ErrInvalidMerchant
	}
	customerID, err := parseID(req.CustomerID)
	if err != nil {
		return domain.Order{}, domain.ErrInvalidCustomer
	}
	reference := strings.TrimSpace(req.ExternalReference)
	if reference == "" {
		return domain.Order{}, domain.ErrInvalidReference
	}
	if req.Amount <= 0 {
		return domain.Order{}, domain.ErrInvalidAmount
	}
	status := req.Status
	if status == "" {
		status = domain.StatusPending
	}
	if !status.Valid() {
		return domain.Order{}, domain.ErrInvalidStatus
	}

	now := time.Now().UTC()
	order := domain.Order{
		ID:                s.genID.Generate(),
		MerchantID:        merchantID,
		CustomerID:        customerID,
		ExternalReference: reference,
		Amount:            req.Amount,
		Status:            status,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	items := make([]domain.LineItem, 0, len(req.Items))
	for _, item := range req.Items {
		productID, err := parseID(item.ProductID)
		if err != nil || item.Quantity <= 0 {
			return domain.Order{}, domain.ErrInvalidLineItem
		}
		items = append(items, domain.LineItem{
			OrderID:   order.ID,
			ProductID: productID,
			Quantity:  item.Quantity,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, &order); err != nil {
			return err
		}
		return s.repo.InsertLineItems(ctx, tx, items)
	})
	if err != nil {
		return domain.Order{}, err
	}

	return order, nil
}

func (s *Service) List(ctx context.Context) ([]domain.OrderDetail, error) {
	orders, err := s.repo.List(ctx, s.db)
	if err != nil {
		return nil, err
	}
	return s.loadDetails(ctx, orders)
}

func (s *Service) GetByReference(ctx context.Context, reference string) (domain.OrderDetail, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return domain.OrderDetail{}, domain.ErrInvalidReference
	}

	order, err := s.repo.FindByReference(ctx, s.db, reference)
	if err != nil {
		return domain.OrderDetail{}, err
	}
	if order == nil {
		return domain.OrderDetail{}, domain.ErrNotFound
	}

	details, err := s.loadDetails(ctx, []domain.Order{*order})
	if err != nil {
		return domain.OrderDetail{}, err
	}
	return details[0], nil
}

func (s *Service) loadDetails(ctx context.Context, orders []domain.Order) ([]domain.OrderDetail, error) {
	if len(orders) == 0 {
		return []domain.OrderDetail{}, nil
	}

	orderIDs := make([]snowflake.ID, 0, len(orders))
	customerIDs := make([]snowflake.ID, 0, len(orders))
	seenCustomer := make(map[snowflake.ID]struct{}, len(orders))
	for _, order := range orders {
		orderIDs = append(orderIDs, order.ID)
		if _, ok := seenCustomer[order.CustomerID]; !ok {
			seenCustomer[order.CustomerID] = struct{}{}
			customerIDs = append(customerIDs, order.CustomerID)
		}
	}

	customers, err := s.repo.ListCustomers(ctx, s.db, customerIDs)
	if err != nil {
		return nil, err
	}
	lines, err := s.repo.ListProductLines(ctx, s.db, orderIDs)
	if err != nil {
		return nil, err
	}
	payments, err := s.repo.ListPayments(ctx, s.db, orderIDs)
	if err != nil {
		return nil, err
	}

	customerByID := make(map[snowflake.ID]domain.CustomerSummary, len(customers))
	for _, c := range customers {
		customerByID[c.ID] = c
	}
	linesByOrder := make(map[snowflake.ID][]domain.ProductLine, len(orders))
	for _, line := range lines {
		linesByOrder[line.OrderID] = append(linesByOrder[line.OrderID], line)
	}
	paymentsByOrder := make(map[snowflake.ID][]domain.PaymentSummary, len(orders))
	for _, p := range payments {
		paymentsByOrder[p.OrderID] = append(paymentsByOrder[p.OrderID], p)
	}

	details := make([]domain.OrderDetail, 0, len(orders))
	for _, order := range orders {
		detail := domain.OrderDetail{
			Order:    order,
			Products: nonNil(linesByOrder[order.ID]),
			Payments: nonNil(paymentsByOrder[order.ID]),
		}
		if c, ok := customerByID[order.CustomerID]; ok {
			detail.Customer = &c
		}
		details = append(details, detail)
	}
	return details, nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil {
		return 0, err
	}
	if id == 0 {
		return 0, domain.ErrInvalidReference
	}
	return id, nil
}
