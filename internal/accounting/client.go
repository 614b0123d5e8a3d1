package accounting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/smallbiznis/ordersync/internal/config"
	"github.com/smallbiznis/ordersync/internal/observability/tracing"
	paymentdomain "github.com/smallbiznis/ordersync/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("accounting",
	fx.Provide(NewFromConfig),
)

type Config struct {
	Endpoint  string
	AuthToken string
	Timeout   time.Duration
}

// Client posts completed payments to the accounting service. Calls are
// not retried.
type Client struct {
	endpoint   string
	authToken  string
	httpClient *http.Client
	log        *zap.Logger
}

type reportRequest struct {
	OrderID int64 `json:"order_id"`
	Amount  int64 `json:"amount"`
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("accounting responded %d: %s", e.StatusCode, e.Body)
}

func NewFromConfig(cfg config.Config, log *zap.Logger) paymentdomain.AccountingReporter {
	return New(Config{
		Endpoint:  cfg.Accounting.Endpoint,
		AuthToken: cfg.Accounting.AuthToken,
		Timeout:   cfg.Accounting.Timeout,
	}, log)
}

func New(cfg Config, log *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		endpoint:   strings.TrimSpace(cfg.Endpoint),
		authToken:  strings.TrimSpace(cfg.AuthToken),
		httpClient: tracing.WrapHTTPClient(&http.Client{Timeout: timeout}),
		log:        log.Named("accounting.client"),
	}
}

func (c *Client) ReportPayment(ctx context.Context, orderID int64, amount int64) error {
	if c.endpoint == "" {
		return fmt.Errorf("accounting endpoint not configured")
	}

	body, err := json.Marshal(reportRequest{OrderID: orderID, Amount: amount})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post accounting: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	c.log.Debug("payment reported to accounting",
		zap.Int64("order_id", orderID),
		zap.Int64("amount", amount),
	)
	return nil
}
