package email

import (
	"context"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatMinorUnits(t *testing.T) {
	assert.Equal(t, "$250.00", FormatMinorUnits(25000))
	assert.Equal(t, "$1,200.00", FormatMinorUnits(120000))
	assert.Equal(t, "$0.05", FormatMinorUnits(5))
	assert.Equal(t, "-$1.50", FormatMinorUnits(-150))
}

func TestRenderPaymentConfirmed(t *testing.T) {
	body, err := Render("payment_confirmed", map[string]any{
		"CustomerName": "John Doe",
		"OrderRef":     "ORD-1001",
		"Amount":       int64(25000),
	})
	require.NoError(t, err)

	assert.Contains(t, body, "Payment Confirmed!")
	assert.Contains(t, body, "Thank you for your payment.")
	assert.Contains(t, body, "ORD-1001")
	assert.Contains(t, body, "$250.00")
	assert.Contains(t, body, "Your order is now being processed.")
}

func TestRenderUnknownTemplate(t *testing.T) {
	_, err := Render("missing", nil)
	assert.Error(t, err)
}

func TestBuildMessageHeaders(t *testing.T) {
	msg := string(buildMessage("orders@example.com", []string{"john@example.com"}, "Payment Confirmed - Order ORD-1001", "<p>hi</p>"))

	assert.True(t, strings.HasPrefix(msg, "From: orders@example.com\r\n"))
	assert.Contains(t, msg, "To: john@example.com\r\n")
	assert.Contains(t, msg, "Subject: Payment Confirmed - Order ORD-1001\r\n")
	assert.True(t, strings.HasSuffix(msg, "\r\n\r\n<p>hi</p>"))
}

func TestSendTimesOutWhenServerNeverGreets(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			accepted <- conn
		}
	}()
	defer func() {
		select {
		case conn := <-accepted:
			_ = conn.Close()
		default:
		}
	}()

	host, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	portNum, err := strconv.Atoi(port)
	require.NoError(t, err)

	provider := NewSMTP(Config{
		Host:        host,
		Port:        portNum,
		From:        "orders@example.com",
		DialTimeout: time.Second,
		SendTimeout: 200 * time.Millisecond,
	})

	done := make(chan error, 1)
	go func() {
		done <- provider.Send(context.Background(), []string{"john@example.com"}, "subject", "<p>hi</p>")
	}()

	select {
	case err := <-done:
		assert.ErrorContains(t, err, "smtp handshake")
	case <-time.After(5 * time.Second):
		t.Fatal("smtp send did not time out")
	}
}

func TestSendDeadlinePrefersEarlierContextDeadline(t *testing.T) {
	provider := NewSMTP(Config{SendTimeout: time.Hour})

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	ctxDeadline, _ := ctx.Deadline()
	assert.Equal(t, ctxDeadline, provider.sendDeadline(ctx))

	deadline := provider.sendDeadline(context.Background())
	assert.WithinDuration(t, time.Now().Add(time.Hour), deadline, time.Minute)
}
