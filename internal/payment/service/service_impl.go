package service

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ordersync/internal/clock"
	"github.com/smallbiznis/ordersync/internal/config"
	customerdomain "github.com/smallbiznis/ordersync/internal/customer/domain"
	merchantdomain "github.com/smallbiznis/ordersync/internal/merchant/domain"
	obscontext "github.com/smallbiznis/ordersync/internal/observability/context"
	obslogger "github.com/smallbiznis/ordersync/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/ordersync/internal/observability/metrics"
	"github.com/smallbiznis/ordersync/internal/observability/tracing"
	orderdomain "github.com/smallbiznis/ordersync/internal/order/domain"
	"github.com/smallbiznis/ordersync/internal/orderlock"
	paymentdomain "github.com/smallbiznis/ordersync/internal/payment/domain"
	"github.com/smallbiznis/ordersync/internal/payment/webhook"
	productdomain "github.com/smallbiznis/ordersync/internal/product/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Repo         paymentdomain.Repository
	OrderRepo    orderdomain.Repository
	ProductRepo  productdomain.Repository
	CustomerRepo customerdomain.Repository
	MerchantRepo merchantdomain.Repository
	Locker       orderlock.Locker
	Notifier     paymentdomain.Notifier
	Accounting   paymentdomain.AccountingReporter
	WebhookCfg   *config.WebhookConfigHolder

	ObsMetrics     *obsmetrics.Metrics        `optional:"true"`
	WebhookMetrics *obsmetrics.WebhookMetrics `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	repo         paymentdomain.Repository
	orderRepo    orderdomain.Repository
	productRepo  productdomain.Repository
	customerRepo customerdomain.Repository
	merchantRepo merchantdomain.Repository
	locker       orderlock.Locker
	notifier     paymentdomain.Notifier
	accounting   paymentdomain.AccountingReporter
	webhookCfg   *config.WebhookConfigHolder

	obsMetrics     *obsmetrics.Metrics
	webhookMetrics *obsmetrics.WebhookMetrics
}

func NewService(p Params) paymentdomain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.System{}
	}
	locker := p.Locker
	if locker == nil {
		locker = orderlock.NewLocalLocker(0)
	}
	return &Service{
		db:             p.DB,
		log:            p.Log.Named("payment.service"),
		genID:          p.GenID,
		clock:          clk,
		repo:           p.Repo,
		orderRepo:      p.OrderRepo,
		productRepo:    p.ProductRepo,
		customerRepo:   p.CustomerRepo,
		merchantRepo:   p.MerchantRepo,
		locker:         locker,
		notifier:       p.Notifier,
		accounting:     p.Accounting,
		webhookCfg:     p.WebhookCfg,
		obsMetrics:     p.ObsMetrics,
		webhookMetrics: p.WebhookMetrics,
	}
}

// IngestWebhook validates the body, resolves the order under the per-order
// lock and applies the event. A replayed success returns
// ErrEventAlreadyProcessed, which callers acknowledge like a success.
func (s *Service) IngestWebhook(ctx context.Context, body []byte, headers http.Header) (err error) {
	start := time.Now()
	payload, err := webhook.ParsePayload(body)
	if err != nil {
		s.record(ctx, "", obsmetrics.OutcomeRejected, start)
		return err
	}

	ctx = obscontext.WithOrderRef(ctx, payload.OrderRef)
	ctx = obscontext.WithEvent(ctx, payload.Event)
	ctx, span := tracing.StartSpan(ctx, "payment.IngestWebhook",
		attribute.String("webhook.event", payload.Event),
		attribute.String("order_ref", payload.OrderRef),
	)
	obslogger.WithContext(ctx, s.log).Info("payment webhook received",
		zap.String("event", payload.Event),
		zap.String("order_ref", payload.OrderRef),
		zap.String("transaction_id", payload.TransactionID),
	)
	defer func() {
		if err != nil && !errors.Is(err, paymentdomain.ErrEventAlreadyProcessed) {
			span.RecordError(tracing.SafeError(err))
			span.SetStatus(codes.Error, "webhook rejected")
		}
		span.End()
	}()

	lockStart := time.Now()
	release, err := s.locker.Acquire(ctx, orderlock.OrderKey(payload.OrderRef))
	if err != nil {
		s.record(ctx, payload.Event, obsmetrics.OutcomeFailed, start)
		return err
	}
	defer release()
	s.webhookMetrics.ObserveLockWait(s.locker.Backend(), time.Since(lockStart))

	cfg := s.webhookCfg.Get()
	order, err := s.ResolveOrder(ctx, payload.OrderRef)
	if err != nil {
		switch {
		case errors.Is(err, paymentdomain.ErrOrderNotFound) && cfg.VerifySignatures:
			// Nothing to verify against; reject like a bad signature so the
			// response does not reveal whether the reference exists.
			s.record(ctx, payload.Event, obsmetrics.OutcomeRejected, start)
			return paymentdomain.ErrInvalidSignature
		case errors.Is(err, paymentdomain.ErrOrderNotFound):
			s.record(ctx, payload.Event, obsmetrics.OutcomeNotFound, start)
		default:
			s.record(ctx, payload.Event, obsmetrics.OutcomeFailed, start)
		}
		return err
	}

	if cfg.VerifySignatures {
		if err := s.verifySignature(ctx, order, body, headers.Get(cfg.SignatureHeader), cfg.SignatureTolerance); err != nil {
			s.record(ctx, payload.Event, obsmetrics.OutcomeRejected, start)
			return err
		}
	}

	err = s.ApplyEvent(ctx, order, payload)
	switch {
	case err == nil && !payload.Known():
		s.record(ctx, payload.Event, obsmetrics.OutcomeIgnored, start)
	case err == nil:
		s.record(ctx, payload.Event, obsmetrics.OutcomeApplied, start)
		obslogger.WithContext(ctx, s.log).Info("payment webhook applied",
			zap.String("event", payload.Event),
			zap.String("order_ref", payload.OrderRef),
			zap.String("transaction_id", payload.TransactionID),
			zap.String("status", string(order.Status)),
		)
	case errors.Is(err, paymentdomain.ErrEventAlreadyProcessed):
		s.record(ctx, payload.Event, obsmetrics.OutcomeReplayed, start)
	default:
		s.record(ctx, payload.Event, obsmetrics.OutcomeFailed, start)
	}
	return err
}

// ResolveOrder finds the order by its external reference without writing anything.
func (s *Service) ResolveOrder(ctx context.Context, orderRef string) (*orderdomain.Order, error) {
	if orderRef == "" {
		return nil, paymentdomain.ErrInvalidOrderRef
	}
	order, err := s.orderRepo.FindByReference(ctx, s.db, orderRef)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, paymentdomain.ErrOrderNotFound
	}
	return order, nil
}

// ApplyEvent performs the transition for one event. Unknown events are
// logged and acknowledged without touching state.
func (s *Service) ApplyEvent(ctx context.Context, order *orderdomain.Order, payload paymentdomain.WebhookPayload) error {
	if order == nil {
		return paymentdomain.ErrOrderNotFound
	}

	switch payload.Event {
	case paymentdomain.EventPaymentSuccess:
		return s.applyPaymentSuccess(ctx, order, payload)
	case paymentdomain.EventPaymentFailed:
		return s.transition(ctx, order, orderdomain.StatusPaymentFailed)
	case paymentdomain.EventRefundProcessed:
		return s.transition(ctx, order, orderdomain.StatusRefunded)
	default:
		obslogger.WithContext(ctx, s.log).Warn("payment webhook event ignored",
			zap.String("event", payload.Event),
			zap.String("order_ref", order.ExternalReference),
		)
		return nil
	}
}

func (s *Service) applyPaymentSuccess(ctx context.Context, order *orderdomain.Order, payload paymentdomain.WebhookPayload) error {
	now := s.clock.Now().UTC()
	payment := paymentdomain.Payment{
		ID:         s.genID.Generate(),
		OrderID:    order.ID,
		Amount:     payload.Amount,
		ProviderID: payload.TransactionID,
		Status:     paymentdomain.StatusCompleted,
		Metadata:   paymentMetadata(payload),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := s.orderRepo.FindByIDForUpdate(ctx, tx, order.ID)
		if err != nil {
			return err
		}
		if locked == nil {
			return paymentdomain.ErrOrderNotFound
		}

		existing, err := s.repo.FindByOrderAndProviderID(ctx, tx, order.ID, payload.TransactionID)
		if err != nil {
			return err
		}
		if existing != nil {
			return paymentdomain.ErrEventAlreadyProcessed
		}

		if err := s.repo.Insert(ctx, tx, &payment); err != nil {
			return err
		}
		return s.orderRepo.UpdateStatus(ctx, tx, order.ID, orderdomain.StatusPaid, now)
	})
	if err != nil {
		if errors.Is(err, paymentdomain.ErrEventAlreadyProcessed) {
			obslogger.WithContext(ctx, s.log).Info("payment webhook replay ignored",
				zap.String("transaction_id", payload.TransactionID),
			)
		}
		return err
	}

	order.Status = orderdomain.StatusPaid
	order.UpdatedAt = now
	s.obsMetrics.RecordPayment(ctx, string(payment.Status))

	// The payment is committed; follow-up steps must not be lost to a
	// caller that hangs up.
	s.afterPaymentCommitted(context.WithoutCancel(ctx), order, payment)
	return nil
}

func (s *Service) transition(ctx context.Context, order *orderdomain.Order, status orderdomain.Status) error {
	now := s.clock.Now().UTC()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := s.orderRepo.FindByIDForUpdate(ctx, tx, order.ID)
		if err != nil {
			return err
		}
		if locked == nil {
			return paymentdomain.ErrOrderNotFound
		}
		return s.orderRepo.UpdateStatus(ctx, tx, order.ID, status, now)
	})
	if err != nil {
		return err
	}

	obslogger.WithContext(ctx, s.log).Info("order status updated",
		zap.String("from", string(order.Status)),
		zap.String("to", string(status)),
	)
	order.Status = status
	order.UpdatedAt = now
	return nil
}

func (s *Service) verifySignature(ctx context.Context, order *orderdomain.Order, body []byte, header string, tolerance time.Duration) error {
	merchant, err := s.merchantRepo.FindByID(ctx, s.db, order.MerchantID)
	if err != nil {
		return err
	}
	if merchant == nil {
		return paymentdomain.ErrInvalidSignature
	}
	if err := webhook.Verify(merchant.WebhookSecret, body, header, tolerance, s.clock.Now()); err != nil {
		obslogger.WithContext(ctx, s.log).Warn("payment webhook signature rejected",
			zap.String("merchant_id", merchant.ID.String()),
		)
		return err
	}
	return nil
}

func (s *Service) record(ctx context.Context, event, outcome string, start time.Time) {
	s.obsMetrics.RecordWebhookEvent(ctx, event, outcome)
	s.webhookMetrics.ObserveProcessing(outcome, time.Since(start))
}

func paymentMetadata(payload paymentdomain.WebhookPayload) datatypes.JSONMap {
	metadata := datatypes.JSONMap{}
	if payload.Currency != "" {
		metadata["currency"] = payload.Currency
	}
	if payload.Timestamp != "" {
		metadata["provider_timestamp"] = payload.Timestamp
	}
	return metadata
}
