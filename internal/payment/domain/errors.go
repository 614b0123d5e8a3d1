package domain

import "errors"

var (
	ErrInvalidPayload        = errors.New("invalid_payload")
	ErrInvalidEvent          = errors.New("invalid_event")
	ErrInvalidOrderRef       = errors.New("invalid_order_ref")
	ErrInvalidTransactionID  = errors.New("invalid_transaction_id")
	ErrInvalidAmount         = errors.New("invalid_amount")
	ErrOrderNotFound         = errors.New("order_not_found")
	ErrEventAlreadyProcessed = errors.New("event_already_processed")
	ErrInvalidSignature      = errors.New("invalid_signature")
)
