package service

import (
	"context"
	"errors"
	"fmt"

	obslogger "github.com/smallbiznis/ordersync/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/ordersync/internal/observability/metrics"
	orderdomain "github.com/smallbiznis/ordersync/internal/order/domain"
	paymentdomain "github.com/smallbiznis/ordersync/internal/payment/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var errCustomerMissing = errors.New("customer_missing")

// afterPaymentCommitted runs the post-commit steps in order: notify the
// customer, decrement inventory, report to accounting. Each step is
// best-effort; failures are logged and counted but never undo the payment.
func (s *Service) afterPaymentCommitted(ctx context.Context, order *orderdomain.Order, payment paymentdomain.Payment) {
	cfg := s.webhookCfg.Get()
	log := obslogger.WithOrder(obslogger.WithContext(ctx, s.log), int64(order.ID), order.ExternalReference)

	if cfg.NotifyCustomers {
		if err := s.notifyCustomer(ctx, order); err != nil {
			s.collaboratorFailed(log, obsmetrics.CollaboratorNotification, err)
		}
	}

	if err := s.decrementInventory(ctx, log, order); err != nil {
		s.collaboratorFailed(log, obsmetrics.CollaboratorInventory, err)
	}

	if cfg.SyncAccounting {
		if err := s.reportToAccounting(ctx, order, payment); err != nil {
			s.collaboratorFailed(log, obsmetrics.CollaboratorAccounting, err)
		}
	}
}

func (s *Service) notifyCustomer(ctx context.Context, order *orderdomain.Order) error {
	if s.notifier == nil {
		return nil
	}
	customer, err := s.customerRepo.FindByID(ctx, s.db, order.CustomerID)
	if err != nil {
		return err
	}
	if customer == nil {
		return errCustomerMissing
	}
	return s.notifier.NotifyPaymentConfirmed(ctx, paymentdomain.PaymentConfirmation{
		OrderID:       int64(order.ID),
		OrderRef:      order.ExternalReference,
		Amount:        order.Amount,
		CustomerName:  customer.Name,
		CustomerEmail: customer.Email,
	})
}

// decrementInventory subtracts each line item's quantity in its own
// transaction. Stock is not clamped; a negative result is logged.
func (s *Service) decrementInventory(ctx context.Context, log *zap.Logger, order *orderdomain.Order) error {
	now := s.clock.Now().UTC()
	var units int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		items, err := s.orderRepo.ListLineItems(ctx, tx, order.ID)
		if err != nil {
			return err
		}
		for _, item := range items {
			remaining, err := s.productRepo.DecrementStock(ctx, tx, item.ProductID, item.Quantity, now)
			if err != nil {
				return fmt.Errorf("decrement product %s: %w", item.ProductID, err)
			}
			units += item.Quantity
			if remaining < 0 {
				s.webhookMetrics.NegativeStock()
				log.Warn("product stock below zero",
					zap.String("product_id", item.ProductID.String()),
					zap.Int64("stock", remaining),
				)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.obsMetrics.RecordStockDecrement(ctx, units)
	return nil
}

func (s *Service) reportToAccounting(ctx context.Context, order *orderdomain.Order, payment paymentdomain.Payment) error {
	if s.accounting == nil {
		return nil
	}
	return s.accounting.ReportPayment(ctx, int64(order.ID), payment.Amount)
}

func (s *Service) collaboratorFailed(log *zap.Logger, collaborator string, err error) {
	s.webhookMetrics.CollaboratorFailed(collaborator)
	log.Error("post-payment collaborator failed",
		zap.String("collaborator", collaborator),
		zap.Error(err),
	)
}
