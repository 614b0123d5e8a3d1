package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"

	paymentdomain "github.com/smallbiznis/ordersync/internal/payment/domain"
	"github.com/smallbiznis/ordersync/internal/providers/email"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const paymentConfirmedTemplate = "payment_confirmed"

var Module = fx.Module("notification",
	fx.Provide(New),
)

var ErrMissingRecipient = errors.New("missing_recipient")

type Params struct {
	fx.In

	Email email.Provider
	Log   *zap.Logger
}

// Notifier emails customers when their payment is confirmed.
type Notifier struct {
	email email.Provider
	log   *zap.Logger
}

func New(p Params) paymentdomain.Notifier {
	return &Notifier{
		email: p.Email,
		log:   p.Log.Named("notification.payment"),
	}
}

type paymentConfirmedData struct {
	CustomerName string
	OrderRef     string
	Amount       int64
}

func (n *Notifier) NotifyPaymentConfirmed(ctx context.Context, confirmation paymentdomain.PaymentConfirmation) error {
	recipient := strings.TrimSpace(confirmation.CustomerEmail)
	if recipient == "" {
		return ErrMissingRecipient
	}

	subject := fmt.Sprintf("Payment Confirmed - Order %s", confirmation.OrderRef)
	err := n.email.SendTemplate(ctx, []string{recipient}, subject, paymentConfirmedTemplate, paymentConfirmedData{
		CustomerName: confirmation.CustomerName,
		OrderRef:     confirmation.OrderRef,
		Amount:       confirmation.Amount,
	})
	if err != nil {
		return fmt.Errorf("send payment confirmation: %w", err)
	}

	n.log.Info("payment confirmation sent", zap.String("order_ref", confirmation.OrderRef))
	return nil
}
