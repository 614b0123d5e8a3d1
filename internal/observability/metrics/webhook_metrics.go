package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collaborators invoked after a payment commits.
const (
	CollaboratorNotification = "notification"
	CollaboratorInventory    = "inventory"
	CollaboratorAccounting   = "accounting"
)

// WebhookMetrics captures prometheus signals for webhook ingestion.
type WebhookMetrics struct {
	collaboratorFailures *prometheus.CounterVec
	negativeStock        prometheus.Counter
	lockWait             *prometheus.HistogramVec
	processing           *prometheus.HistogramVec
}

var (
	webhookMetricsOnce sync.Once
	webhookMetrics     *WebhookMetrics
)

// Webhook returns the process-wide webhook metrics registered on the default registerer.
func Webhook(cfg Config) *WebhookMetrics {
	webhookMetricsOnce.Do(func() {
		webhookMetrics = NewWebhookMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return webhookMetrics
}

func NewWebhookMetrics(registerer prometheus.Registerer, cfg Config) *WebhookMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "ordersync"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	m := &WebhookMetrics{
		collaboratorFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "ordersync_collaborator_failures_total",
			Help:        "Post-commit collaborator failures by collaborator.",
			ConstLabels: constLabels,
		}, []string{"collaborator"}),
		negativeStock: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "ordersync_negative_stock_total",
			Help:        "Stock decrements that left a product below zero.",
			ConstLabels: constLabels,
		}),
		lockWait: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "ordersync_order_lock_wait_seconds",
			Help:        "Time spent waiting for the per-order lock.",
			Buckets:     []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			ConstLabels: constLabels,
		}, []string{"backend"}),
		processing: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "ordersync_webhook_processing_seconds",
			Help:        "Webhook processing latency by outcome.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		}, []string{"outcome"}),
	}

	registerer.MustRegister(m.collaboratorFailures, m.negativeStock, m.lockWait, m.processing)
	return m
}

func (m *WebhookMetrics) CollaboratorFailed(collaborator string) {
	if m == nil {
		return
	}
	m.collaboratorFailures.WithLabelValues(collaborator).Inc()
}

func (m *WebhookMetrics) NegativeStock() {
	if m == nil {
		return
	}
	m.negativeStock.Inc()
}

func (m *WebhookMetrics) ObserveLockWait(backend string, d time.Duration) {
	if m == nil {
		return
	}
	m.lockWait.WithLabelValues(backend).Observe(d.Seconds())
}

func (m *WebhookMetrics) ObserveProcessing(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.processing.WithLabelValues(outcome).Observe(d.Seconds())
}
