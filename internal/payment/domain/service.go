package domain

import (
	"context"
	"net/http"

	orderdomain "github.com/smallbiznis/ordersync/internal/order/domain"
)

// Service handles inbound payment webhooks in three stages: payload
// validation, order resolution and the state transition with its side
// effects.
type Service interface {
	IngestWebhook(ctx context.Context, payload []byte, headers http.Header) error
	ResolveOrder(ctx context.Context, orderRef string) (*orderdomain.Order, error)
	ApplyEvent(ctx context.Context, order *orderdomain.Order, payload WebhookPayload) error
}
