package webhook

import (
	"testing"

	"github.com/smallbiznis/ordersync/internal/payment/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePayloadSuccessEvent(t *testing.T) {
	payload, err := ParsePayload([]byte(`{"event":"payment.success","order_ref":"ORD-1001","transaction_id":"txn_test123","amount":25000,"currency":"usd","timestamp":"2024-01-15T10:30:00Z"}`))
	require.NoError(t, err)

	assert.Equal(t, domain.EventPaymentSuccess, payload.Event)
	assert.Equal(t, "ORD-1001", payload.OrderRef)
	assert.Equal(t, "txn_test123", payload.TransactionID)
	assert.Equal(t, int64(25000), payload.Amount)
	assert.Equal(t, "USD", payload.Currency)
	assert.Equal(t, "2024-01-15T10:30:00Z", payload.Timestamp)
	assert.True(t, payload.Known())
}

func TestParsePayloadRejections(t *testing.T) {
	cases := []struct {
		name string
		body string
		want error
	}{
		{"malformed json", `{"event":`, domain.ErrInvalidPayload},
		{"not an object", `["payment.success"]`, domain.ErrInvalidPayload},
		{"empty body", ``, domain.ErrInvalidPayload},
		{"missing event", `{"order_ref":"ORD-1"}`, domain.ErrInvalidEvent},
		{"blank event", `{"event":"  ","order_ref":"ORD-1"}`, domain.ErrInvalidEvent},
		{"missing order ref", `{"event":"payment.failed"}`, domain.ErrInvalidOrderRef},
		{"success without transaction", `{"event":"payment.success","order_ref":"ORD-1","amount":100}`, domain.ErrInvalidTransactionID},
		{"success without amount", `{"event":"payment.success","order_ref":"ORD-1","transaction_id":"t"}`, domain.ErrInvalidAmount},
		{"success with zero amount", `{"event":"payment.success","order_ref":"ORD-1","transaction_id":"t","amount":0}`, domain.ErrInvalidAmount},
		{"success with fractional amount", `{"event":"payment.success","order_ref":"ORD-1","transaction_id":"t","amount":10.5}`, domain.ErrInvalidAmount},
		{"success with string amount", `{"event":"payment.success","order_ref":"ORD-1","transaction_id":"t","amount":"100"}`, domain.ErrInvalidAmount},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParsePayload([]byte(tc.body))
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestParsePayloadOtherEventsNeedOnlyEventAndRef(t *testing.T) {
	for _, event := range []string{domain.EventPaymentFailed, domain.EventRefundProcessed, "chargeback.opened"} {
		payload, err := ParsePayload([]byte(`{"event":"` + event + `","order_ref":"ORD-1002"}`))
		require.NoError(t, err, event)
		assert.Equal(t, event, payload.Event)
		assert.Equal(t, "ORD-1002", payload.OrderRef)
	}

	payload, err := ParsePayload([]byte(`{"event":"chargeback.opened","order_ref":"ORD-1"}`))
	require.NoError(t, err)
	assert.False(t, payload.Known())
}
