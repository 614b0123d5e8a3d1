package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Webhook outcomes.
const (
	OutcomeApplied  = "applied"
	OutcomeIgnored  = "ignored"
	OutcomeReplayed = "replayed"
	OutcomeRejected = "rejected"
	OutcomeNotFound = "not_found"
	OutcomeFailed   = "failed"
)

// Metrics exposes application-level OTLP instruments.
type Metrics struct {
	webhookEvents    metric.Int64Counter
	paymentsRecorded metric.Int64Counter
	stockDecrements  metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "ordersync"
	}
	meter := provider.Meter(name)

	webhookEvents, err := meter.Int64Counter("ordersync_webhook_events_total")
	if err != nil {
		return nil, err
	}
	paymentsRecorded, err := meter.Int64Counter("ordersync_payments_recorded_total")
	if err != nil {
		return nil, err
	}
	stockDecrements, err := meter.Int64Counter("ordersync_stock_decrements_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		webhookEvents:    webhookEvents,
		paymentsRecorded: paymentsRecorded,
		stockDecrements:  stockDecrements,
	}, nil
}

// RecordWebhookEvent counts an inbound webhook by event type and outcome.
func (m *Metrics) RecordWebhookEvent(ctx context.Context, eventType, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("event_type", normalizeEventType(eventType)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)
	m.webhookEvents.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordPayment(ctx context.Context, status string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("status", strings.TrimSpace(status)))
	m.paymentsRecorded.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordStockDecrement(ctx context.Context, units int64) {
	if m == nil || units <= 0 {
		return
	}
	m.stockDecrements.Add(ctx, units)
}

// Event types arrive from outside; anything unexpected collapses to "other".
func normalizeEventType(eventType string) string {
	switch eventType = strings.TrimSpace(eventType); eventType {
	case "payment.success", "payment.failed", "refund.processed":
		return eventType
	case "":
		return "unknown"
	default:
		return "other"
	}
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"event_type":   {},
	"outcome":      {},
	"status":       {},
	"status_code":  {},
	"collaborator": {},
	"reason":       {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
// Order references and customer ids never become labels.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
