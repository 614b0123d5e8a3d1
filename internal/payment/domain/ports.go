package domain

import "context"

// PaymentConfirmation carries what the customer notification needs.
type PaymentConfirmation struct {
	OrderID       int64
	OrderRef      string
	Amount        int64
	CustomerName  string
	CustomerEmail string
}

type Notifier interface {
	NotifyPaymentConfirmed(ctx context.Context, confirmation PaymentConfirmation) error
}

type AccountingReporter interface {
	ReportPayment(ctx context.Context, orderID int64, amount int64) error
}
