package service_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/ordersync/internal/clock"
	"github.com/smallbiznis/ordersync/internal/config"
	customerdomain "github.com/smallbiznis/ordersync/internal/customer/domain"
	customerrepo "github.com/smallbiznis/ordersync/internal/customer/repository"
	merchantdomain "github.com/smallbiznis/ordersync/internal/merchant/domain"
	merchantrepo "github.com/smallbiznis/ordersync/internal/merchant/repository"
	obsmetrics "github.com/smallbiznis/ordersync/internal/observability/metrics"
	orderdomain "github.com/smallbiznis/ordersync/internal/order/domain"
	orderrepo "github.com/smallbiznis/ordersync/internal/order/repository"
	"github.com/smallbiznis/ordersync/internal/orderlock"
	paymentdomain "github.com/smallbiznis/ordersync/internal/payment/domain"
	paymentrepo "github.com/smallbiznis/ordersync/internal/payment/repository"
	paymentservice "github.com/smallbiznis/ordersync/internal/payment/service"
	"github.com/smallbiznis/ordersync/internal/payment/webhook"
	productdomain "github.com/smallbiznis/ordersync/internal/product/domain"
	productrepo "github.com/smallbiznis/ordersync/internal/product/repository"
	"github.com/smallbiznis/ordersync/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
)

const testSecret = "whsec_test_secret"

type fakeNotifier struct {
	mu    sync.Mutex
	calls []paymentdomain.PaymentConfirmation
	err   error
	hook  func()
}

func (f *fakeNotifier) NotifyPaymentConfirmed(_ context.Context, c paymentdomain.PaymentConfirmation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	if f.hook != nil {
		f.hook()
	}
	return f.err
}

type accountingCall struct {
	orderID int64
	amount  int64
}

type fakeAccounting struct {
	mu    sync.Mutex
	calls []accountingCall
	err   error
}

func (f *fakeAccounting) ReportPayment(_ context.Context, orderID int64, amount int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, accountingCall{orderID: orderID, amount: amount})
	return f.err
}

type fixture struct {
	db         *gorm.DB
	svc        paymentdomain.Service
	clock      *clock.FakeClock
	notifier   *fakeNotifier
	accounting *fakeAccounting
	registry   *prometheus.Registry

	order    orderdomain.Order
	widget   productdomain.Product
	gadget   productdomain.Product
	customer customerdomain.Customer
}

func newFixture(t *testing.T, cfg config.WebhookConfig) *fixture {
	t.Helper()
	return newFixtureWithLogger(t, cfg, zap.NewNop())
}

func newFixtureWithLogger(t *testing.T, cfg config.WebhookConfig, log *zap.Logger) *fixture {
	t.Helper()

	db := testutil.NewDB(t)
	node, err := snowflake.NewNode(7)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC))
	now := clk.Now()

	merchant := merchantdomain.Merchant{ID: node.Generate(), Name: "Test Merchant", APIKey: "mk_test_1", WebhookSecret: testSecret, CreatedAt: now, UpdatedAt: now}
	customer := customerdomain.Customer{ID: node.Generate(), MerchantID: merchant.ID, Name: "John Doe", Email: "john@example.com", CreatedAt: now, UpdatedAt: now}
	widget := productdomain.Product{ID: node.Generate(), MerchantID: merchant.ID, Name: "Premium Widget", Price: 9900, Stock: 100, CreatedAt: now, UpdatedAt: now}
	gadget := productdomain.Product{ID: node.Generate(), MerchantID: merchant.ID, Name: "Basic Gadget", Price: 4900, Stock: 250, CreatedAt: now, UpdatedAt: now}
	order := orderdomain.Order{
		ID:                node.Generate(),
		MerchantID:        merchant.ID,
		CustomerID:        customer.ID,
		ExternalReference: "ORD-1001",
		Amount:            25000,
		Status:            orderdomain.StatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	lines := []orderdomain.LineItem{
		{OrderID: order.ID, ProductID: widget.ID, Quantity: 2, CreatedAt: now, UpdatedAt: now},
		{OrderID: order.ID, ProductID: gadget.ID, Quantity: 1, CreatedAt: now, UpdatedAt: now},
	}

	require.NoError(t, db.Create(&merchant).Error)
	require.NoError(t, db.Create(&customer).Error)
	require.NoError(t, db.Create(&widget).Error)
	require.NoError(t, db.Create(&gadget).Error)
	require.NoError(t, db.Create(&order).Error)
	require.NoError(t, db.Create(&lines).Error)

	notifier := &fakeNotifier{}
	accounting := &fakeAccounting{}
	registry := prometheus.NewRegistry()

	svc := paymentservice.NewService(paymentservice.Params{
		DB:             db,
		Log:            log,
		GenID:          node,
		Clock:          clk,
		Repo:           paymentrepo.Provide(),
		OrderRepo:      orderrepo.Provide(),
		ProductRepo:    productrepo.Provide(),
		CustomerRepo:   customerrepo.Provide(),
		MerchantRepo:   merchantrepo.Provide(),
		Locker:         orderlock.NewLocalLocker(time.Second),
		Notifier:       notifier,
		Accounting:     accounting,
		WebhookCfg:     config.NewStaticWebhookConfigHolder(cfg),
		WebhookMetrics: obsmetrics.NewWebhookMetrics(registry, obsmetrics.Config{ServiceName: "ordersync", Environment: "test"}),
	})

	return &fixture{
		db:         db,
		svc:        svc,
		clock:      clk,
		notifier:   notifier,
		accounting: accounting,
		registry:   registry,
		order:      order,
		widget:     widget,
		gadget:     gadget,
		customer:   customer,
	}
}

func defaultConfig() config.WebhookConfig {
	cfg := config.DefaultWebhookConfig()
	cfg.VerifySignatures = false
	cfg.NotifyCustomers = true
	cfg.SyncAccounting = true
	return cfg
}

func (f *fixture) orderStatus(t *testing.T) string {
	t.Helper()
	var status string
	require.NoError(t, f.db.Raw(`SELECT status FROM orders WHERE id = ?`, f.order.ID).Scan(&status).Error)
	return status
}

func (f *fixture) stock(t *testing.T, id snowflake.ID) int64 {
	t.Helper()
	var stock int64
	require.NoError(t, f.db.Raw(`SELECT stock FROM products WHERE id = ?`, id).Scan(&stock).Error)
	return stock
}

func (f *fixture) counter(t *testing.T, name, label, value string) float64 {
	t.Helper()
	families, err := f.registry.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			if label == "" {
				return metric.GetCounter().GetValue()
			}
			for _, pair := range metric.GetLabel() {
				if pair.GetName() == label && pair.GetValue() == value {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func (f *fixture) histogramCount(t *testing.T, name, label, value string) uint64 {
	t.Helper()
	families, err := f.registry.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, pair := range metric.GetLabel() {
				if pair.GetName() == label && pair.GetValue() == value {
					return metric.GetHistogram().GetSampleCount()
				}
			}
		}
	}
	return 0
}

func successBody(ref, txn string, amount int64) []byte {
	return []byte(fmt.Sprintf(
		`{"event":"payment.success","order_ref":%q,"transaction_id":%q,"amount":%d,"currency":"USD","timestamp":"2024-01-15T10:30:00Z"}`,
		ref, txn, amount,
	))
}

func TestIngestWebhookPaymentSuccess(t *testing.T) {
	f := newFixture(t, defaultConfig())

	err := f.svc.IngestWebhook(context.Background(), successBody("ORD-1001", "txn_abc123", 24000), http.Header{})
	require.NoError(t, err)

	assert.Equal(t, "paid", f.orderStatus(t))
	testutil.AssertCount(t, f.db, "payments", 1)

	var payment paymentdomain.Payment
	require.NoError(t, f.db.First(&payment).Error)
	assert.Equal(t, f.order.ID, payment.OrderID)
	assert.Equal(t, int64(24000), payment.Amount)
	assert.Equal(t, "txn_abc123", payment.ProviderID)
	assert.Equal(t, paymentdomain.StatusCompleted, payment.Status)
	assert.Equal(t, "USD", payment.Metadata["currency"])
	assert.Equal(t, "2024-01-15T10:30:00Z", payment.Metadata["provider_timestamp"])

	assert.Equal(t, int64(98), f.stock(t, f.widget.ID))
	assert.Equal(t, int64(249), f.stock(t, f.gadget.ID))

	require.Len(t, f.notifier.calls, 1)
	assert.Equal(t, paymentdomain.PaymentConfirmation{
		OrderID:       int64(f.order.ID),
		OrderRef:      "ORD-1001",
		Amount:        25000,
		CustomerName:  "John Doe",
		CustomerEmail: "john@example.com",
	}, f.notifier.calls[0])

	require.Len(t, f.accounting.calls, 1)
	assert.Equal(t, accountingCall{orderID: int64(f.order.ID), amount: 24000}, f.accounting.calls[0])
}

func TestIngestWebhookReplayIsIdempotent(t *testing.T) {
	f := newFixture(t, defaultConfig())
	body := successBody("ORD-1001", "txn_abc123", 25000)

	require.NoError(t, f.svc.IngestWebhook(context.Background(), body, http.Header{}))
	err := f.svc.IngestWebhook(context.Background(), body, http.Header{})
	assert.ErrorIs(t, err, paymentdomain.ErrEventAlreadyProcessed)

	testutil.AssertCount(t, f.db, "payments", 1)
	assert.Equal(t, int64(98), f.stock(t, f.widget.ID))
	assert.Equal(t, int64(249), f.stock(t, f.gadget.ID))
	assert.Len(t, f.notifier.calls, 1)
	assert.Len(t, f.accounting.calls, 1)
}

func TestIngestWebhookDistinctTransactionsBothRecorded(t *testing.T) {
	f := newFixture(t, defaultConfig())

	require.NoError(t, f.svc.IngestWebhook(context.Background(), successBody("ORD-1001", "txn_one", 25000), http.Header{}))
	require.NoError(t, f.svc.IngestWebhook(context.Background(), successBody("ORD-1001", "txn_two", 25000), http.Header{}))

	testutil.AssertCount(t, f.db, "payments", 2)
	assert.Equal(t, int64(96), f.stock(t, f.widget.ID))
}

func TestIngestWebhookPaymentFailed(t *testing.T) {
	f := newFixture(t, defaultConfig())

	err := f.svc.IngestWebhook(context.Background(), []byte(`{"event":"payment.failed","order_ref":"ORD-1001"}`), http.Header{})
	require.NoError(t, err)

	assert.Equal(t, "payment_failed", f.orderStatus(t))
	testutil.AssertCount(t, f.db, "payments", 0)
	assert.Equal(t, int64(100), f.stock(t, f.widget.ID))
	assert.Empty(t, f.notifier.calls)
	assert.Empty(t, f.accounting.calls)
}

func TestIngestWebhookRefundProcessed(t *testing.T) {
	f := newFixture(t, defaultConfig())

	require.NoError(t, f.svc.IngestWebhook(context.Background(), successBody("ORD-1001", "txn_abc123", 25000), http.Header{}))
	err := f.svc.IngestWebhook(context.Background(), []byte(`{"event":"refund.processed","order_ref":"ORD-1001","transaction_id":"txn_abc123","amount":25000}`), http.Header{})
	require.NoError(t, err)

	assert.Equal(t, "refunded", f.orderStatus(t))
	testutil.AssertCount(t, f.db, "payments", 1)
	assert.Equal(t, int64(98), f.stock(t, f.widget.ID))
}

func TestIngestWebhookUnknownOrder(t *testing.T) {
	f := newFixture(t, defaultConfig())

	err := f.svc.IngestWebhook(context.Background(), successBody("ORD-9999", "txn_abc123", 25000), http.Header{})
	assert.ErrorIs(t, err, paymentdomain.ErrOrderNotFound)

	testutil.AssertCount(t, f.db, "payments", 0)
	assert.Equal(t, "pending", f.orderStatus(t))
	assert.Equal(t, int64(100), f.stock(t, f.widget.ID))
	assert.Empty(t, f.notifier.calls)
	assert.Empty(t, f.accounting.calls)
}

func TestIngestWebhookRejectsInvalidPayload(t *testing.T) {
	f := newFixture(t, defaultConfig())

	cases := map[string]struct {
		body string
		want error
	}{
		"not json":         {body: `nope`, want: paymentdomain.ErrInvalidPayload},
		"missing event":    {body: `{"order_ref":"ORD-1001"}`, want: paymentdomain.ErrInvalidEvent},
		"missing ref":      {body: `{"event":"payment.success","transaction_id":"t","amount":1}`, want: paymentdomain.ErrInvalidOrderRef},
		"missing txn":      {body: `{"event":"payment.success","order_ref":"ORD-1001","amount":1}`, want: paymentdomain.ErrInvalidTransactionID},
		"non-positive amt": {body: `{"event":"payment.success","order_ref":"ORD-1001","transaction_id":"t","amount":0}`, want: paymentdomain.ErrInvalidAmount},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			err := f.svc.IngestWebhook(context.Background(), []byte(tc.body), http.Header{})
			assert.ErrorIs(t, err, tc.want)
		})
	}

	testutil.AssertCount(t, f.db, "payments", 0)
	assert.Equal(t, "pending", f.orderStatus(t))
}

func TestIngestWebhookUnknownEventIgnored(t *testing.T) {
	f := newFixture(t, defaultConfig())

	err := f.svc.IngestWebhook(context.Background(), []byte(`{"event":"payment.pending","order_ref":"ORD-1001"}`), http.Header{})
	require.NoError(t, err)

	assert.Equal(t, "pending", f.orderStatus(t))
	testutil.AssertCount(t, f.db, "payments", 0)
	assert.Equal(t, int64(100), f.stock(t, f.widget.ID))
}

func TestIngestWebhookUnknownEventStillRequiresOrder(t *testing.T) {
	f := newFixture(t, defaultConfig())

	err := f.svc.IngestWebhook(context.Background(), []byte(`{"event":"payment.pending","order_ref":"ORD-404"}`), http.Header{})
	assert.ErrorIs(t, err, paymentdomain.ErrOrderNotFound)
}

func TestIngestWebhookCollaboratorFailureStillAcknowledged(t *testing.T) {
	f := newFixture(t, defaultConfig())
	f.accounting.err = errors.New("accounting unavailable")
	f.notifier.err = errors.New("smtp down")

	err := f.svc.IngestWebhook(context.Background(), successBody("ORD-1001", "txn_abc123", 25000), http.Header{})
	require.NoError(t, err)

	assert.Equal(t, "paid", f.orderStatus(t))
	testutil.AssertCount(t, f.db, "payments", 1)
	assert.Equal(t, int64(98), f.stock(t, f.widget.ID))

	assert.Equal(t, float64(1), f.counter(t, "ordersync_collaborator_failures_total", "collaborator", obsmetrics.CollaboratorAccounting))
	assert.Equal(t, float64(1), f.counter(t, "ordersync_collaborator_failures_total", "collaborator", obsmetrics.CollaboratorNotification))
}

func TestIngestWebhookNegativeStockIsNotClamped(t *testing.T) {
	f := newFixture(t, defaultConfig())
	require.NoError(t, f.db.Exec(`UPDATE products SET stock = 1 WHERE id = ?`, f.widget.ID).Error)

	require.NoError(t, f.svc.IngestWebhook(context.Background(), successBody("ORD-1001", "txn_abc123", 25000), http.Header{}))

	assert.Equal(t, int64(-1), f.stock(t, f.widget.ID))
	assert.Equal(t, float64(1), f.counter(t, "ordersync_negative_stock_total", "", ""))
}

func TestIngestWebhookSkipsDisabledCollaborators(t *testing.T) {
	cfg := defaultConfig()
	cfg.NotifyCustomers = false
	cfg.SyncAccounting = false
	f := newFixture(t, cfg)

	require.NoError(t, f.svc.IngestWebhook(context.Background(), successBody("ORD-1001", "txn_abc123", 25000), http.Header{}))

	assert.Empty(t, f.notifier.calls)
	assert.Empty(t, f.accounting.calls)
	assert.Equal(t, int64(98), f.stock(t, f.widget.ID))
}

func TestIngestWebhookSignatureVerification(t *testing.T) {
	cfg := defaultConfig()
	cfg.VerifySignatures = true
	cfg.SignatureHeader = config.DefaultSignatureHeader
	cfg.SignatureTolerance = 5 * time.Minute
	f := newFixture(t, cfg)
	body := successBody("ORD-1001", "txn_abc123", 25000)

	bad := http.Header{}
	bad.Set(config.DefaultSignatureHeader, webhook.Sign("whsec_other", body, f.clock.Now()))
	err := f.svc.IngestWebhook(context.Background(), body, bad)
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidSignature)
	testutil.AssertCount(t, f.db, "payments", 0)

	err = f.svc.IngestWebhook(context.Background(), body, http.Header{})
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidSignature)

	good := http.Header{}
	good.Set(config.DefaultSignatureHeader, webhook.Sign(testSecret, body, f.clock.Now()))
	require.NoError(t, f.svc.IngestWebhook(context.Background(), body, good))
	assert.Equal(t, "paid", f.orderStatus(t))
}

func TestIngestWebhookConcurrentDeliveriesApplyOnce(t *testing.T) {
	f := newFixture(t, defaultConfig())
	body := successBody("ORD-1001", "txn_abc123", 25000)

	var wg sync.WaitGroup
	results := make([]error, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = f.svc.IngestWebhook(context.Background(), body, http.Header{})
		}(i)
	}
	wg.Wait()

	applied := 0
	for _, err := range results {
		if err == nil {
			applied++
			continue
		}
		assert.ErrorIs(t, err, paymentdomain.ErrEventAlreadyProcessed)
	}
	assert.Equal(t, 1, applied)
	testutil.AssertCount(t, f.db, "payments", 1)
	assert.Equal(t, int64(98), f.stock(t, f.widget.ID))
}

func TestApplyEventRequiresOrder(t *testing.T) {
	f := newFixture(t, defaultConfig())

	err := f.svc.ApplyEvent(context.Background(), nil, paymentdomain.WebhookPayload{Event: paymentdomain.EventPaymentFailed, OrderRef: "ORD-1001"})
	assert.ErrorIs(t, err, paymentdomain.ErrOrderNotFound)

	order, err := f.svc.ResolveOrder(context.Background(), "ORD-1001")
	require.NoError(t, err)
	assert.Equal(t, f.order.ID, order.ID)
	assert.Equal(t, orderdomain.StatusPending, order.Status)
}

func TestIngestWebhookFollowUpSurvivesCancelledRequest(t *testing.T) {
	f := newFixture(t, defaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.notifier.hook = cancel

	require.NoError(t, f.svc.IngestWebhook(ctx, successBody("ORD-1001", "txn_abc123", 25000), http.Header{}))

	assert.Error(t, ctx.Err())
	assert.Equal(t, "paid", f.orderStatus(t))
	assert.Equal(t, int64(98), f.stock(t, f.widget.ID))
	assert.Equal(t, int64(249), f.stock(t, f.gadget.ID))
	assert.Len(t, f.accounting.calls, 1)
}

func TestIngestWebhookUnknownOrderWithVerificationLooksUnsigned(t *testing.T) {
	cfg := defaultConfig()
	cfg.VerifySignatures = true
	f := newFixture(t, cfg)

	body := successBody("ORD-404", "txn_abc123", 25000)
	headers := http.Header{}
	headers.Set(config.DefaultSignatureHeader, webhook.Sign("whsec_guess", body, f.clock.Now()))

	err := f.svc.IngestWebhook(context.Background(), body, headers)
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidSignature)
	assert.NotErrorIs(t, err, paymentdomain.ErrOrderNotFound)
	assert.Equal(t, uint64(1), f.histogramCount(t, "ordersync_webhook_processing_seconds", "outcome", obsmetrics.OutcomeRejected))
	assert.Equal(t, uint64(0), f.histogramCount(t, "ordersync_webhook_processing_seconds", "outcome", obsmetrics.OutcomeNotFound))
	assert.Equal(t, "pending", f.orderStatus(t))
}

func TestIngestWebhookLogsReceivedAndApplied(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	f := newFixtureWithLogger(t, defaultConfig(), zap.New(core))

	require.NoError(t, f.svc.IngestWebhook(context.Background(), successBody("ORD-1001", "txn_abc123", 25000), http.Header{}))

	for _, msg := range []string{"payment webhook received", "payment webhook applied"} {
		entries := logs.FilterMessage(msg).All()
		require.Len(t, entries, 1, msg)
		fields := entries[0].ContextMap()
		assert.Equal(t, paymentdomain.EventPaymentSuccess, fields["event"])
		assert.Equal(t, "ORD-1001", fields["order_ref"])
		assert.Equal(t, "txn_abc123", fields["transaction_id"])
	}
}
