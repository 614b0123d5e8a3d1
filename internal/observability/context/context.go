package context

import (
	"context"
	"strings"
)

type ctxKey string

const (
	requestIDKey ctxKey = "request_id"
	orderRefKey  ctxKey = "order_ref"
	eventKey     ctxKey = "webhook_event"
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return withValue(ctx, requestIDKey, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	return valueFrom(ctx, requestIDKey)
}

// WithOrderRef tags the context with the external order reference being
// processed so downstream logs can be correlated per order.
func WithOrderRef(ctx context.Context, orderRef string) context.Context {
	return withValue(ctx, orderRefKey, orderRef)
}

func OrderRefFromContext(ctx context.Context) string {
	return valueFrom(ctx, orderRefKey)
}

func WithEvent(ctx context.Context, event string) context.Context {
	return withValue(ctx, eventKey, event)
}

func EventFromContext(ctx context.Context) string {
	return valueFrom(ctx, eventKey)
}

func withValue(ctx context.Context, key ctxKey, value string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func valueFrom(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(key).(string)
	return value
}
