package webhook

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/smallbiznis/ordersync/internal/payment/domain"
)

type rawPayload struct {
	Event         string          `json:"event"`
	OrderRef      string          `json:"order_ref"`
	TransactionID string          `json:"transaction_id"`
	Amount        json.RawMessage `json:"amount"`
	Currency      string          `json:"currency"`
	Timestamp     string          `json:"timestamp"`
}

// ParsePayload validates the webhook body. It performs no I/O; every
// rejection happens before the order is looked up.
func ParsePayload(body []byte) (domain.WebhookPayload, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return domain.WebhookPayload{}, domain.ErrInvalidPayload
	}

	var raw rawPayload
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return domain.WebhookPayload{}, domain.ErrInvalidPayload
	}

	payload := domain.WebhookPayload{
		Event:         strings.TrimSpace(raw.Event),
		OrderRef:      strings.TrimSpace(raw.OrderRef),
		TransactionID: strings.TrimSpace(raw.TransactionID),
		Currency:      strings.ToUpper(strings.TrimSpace(raw.Currency)),
		Timestamp:     strings.TrimSpace(raw.Timestamp),
	}
	if payload.Event == "" {
		return domain.WebhookPayload{}, domain.ErrInvalidEvent
	}
	if payload.OrderRef == "" {
		return domain.WebhookPayload{}, domain.ErrInvalidOrderRef
	}

	if payload.Event != domain.EventPaymentSuccess {
		payload.Amount, _ = parseAmount(raw.Amount)
		return payload, nil
	}

	if payload.TransactionID == "" {
		return domain.WebhookPayload{}, domain.ErrInvalidTransactionID
	}
	amount, ok := parseAmount(raw.Amount)
	if !ok || amount <= 0 {
		return domain.WebhookPayload{}, domain.ErrInvalidAmount
	}
	payload.Amount = amount
	return payload, nil
}

// parseAmount accepts integral JSON numbers only; amounts are minor units.
func parseAmount(raw json.RawMessage) (int64, bool) {
	value := strings.TrimSpace(string(raw))
	if value == "" || value == "null" {
		return 0, false
	}
	amount, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, false
	}
	return amount, true
}
