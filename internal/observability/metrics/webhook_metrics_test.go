package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestWebhookMetricsCountsCollaboratorFailures(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWebhookMetrics(reg, Config{ServiceName: "ordersync", Environment: "test"})

	m.CollaboratorFailed(CollaboratorAccounting)
	m.CollaboratorFailed(CollaboratorAccounting)
	m.CollaboratorFailed(CollaboratorNotification)
	m.NegativeStock()
	m.ObserveLockWait("local", 5*time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.collaboratorFailures.WithLabelValues(CollaboratorAccounting)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.collaboratorFailures.WithLabelValues(CollaboratorNotification)))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.collaboratorFailures.WithLabelValues(CollaboratorInventory)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.negativeStock))
}

func TestNilWebhookMetricsAreSafe(t *testing.T) {
	var m *WebhookMetrics
	assert.NotPanics(t, func() {
		m.CollaboratorFailed(CollaboratorInventory)
		m.NegativeStock()
		m.ObserveLockWait("redis", time.Second)
		m.ObserveProcessing(OutcomeApplied, time.Second)
	})
}
