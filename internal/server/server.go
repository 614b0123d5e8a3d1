package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/ordersync/internal/config"
	"github.com/smallbiznis/ordersync/internal/observability"
	obslogger "github.com/smallbiznis/ordersync/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/ordersync/internal/observability/metrics"
	obstracing "github.com/smallbiznis/ordersync/internal/observability/tracing"
	orderdomain "github.com/smallbiznis/ordersync/internal/order/domain"
	paymentdomain "github.com/smallbiznis/ordersync/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, log *zap.Logger, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(log, obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

type ginParams struct {
	fx.In

	ObsCfg      observability.Config
	Log         *zap.Logger
	HTTPMetrics *obsmetrics.HTTPMetrics `optional:"true"`
}

func registerGin(p ginParams) *gin.Engine {
	if !p.ObsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(p.ObsCfg, p.Log, p.HTTPMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	addr := cfg.HTTPAddr
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", addr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine     *gin.Engine
	log        *zap.Logger
	orderSvc   orderdomain.Service
	paymentSvc paymentdomain.Service
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Log        *zap.Logger
	OrderSvc   orderdomain.Service
	PaymentSvc paymentdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:     p.Gin,
		log:        p.Log.Named("http.server"),
		orderSvc:   p.OrderSvc,
		paymentSvc: p.PaymentSvc,
	}

	svc.registerWebhookRoutes()
	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerWebhookRoutes() {
	s.engine.POST("/webhooks/payments", s.HandlePaymentWebhook)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	// -------- Payment Webhooks --------
	api.POST("/webhooks/payments", s.HandlePaymentWebhook)

	// -------- Orders --------
	api.GET("/orders", s.ListOrders)
	api.GET("/orders/:reference", s.GetOrderByReference)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
