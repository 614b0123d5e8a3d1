package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/smallbiznis/ordersync/internal/payment/domain"
)

// Verify checks a "t=<unix>,v1=<hex>" header where each v1 is
// HMAC-SHA256(secret, "<t>.<body>"). A zero tolerance disables the
// timestamp window.
func Verify(secret string, payload []byte, header string, tolerance time.Duration, now time.Time) error {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return domain.ErrInvalidSignature
	}

	timestamp, signatures, ok := parseSignatureHeader(header)
	if !ok {
		return domain.ErrInvalidSignature
	}

	if tolerance > 0 {
		unix, err := strconv.ParseInt(timestamp, 10, 64)
		if err != nil {
			return domain.ErrInvalidSignature
		}
		signedAt := time.Unix(unix, 0)
		if now.Sub(signedAt).Abs() > tolerance {
			return domain.ErrInvalidSignature
		}
	}

	expected := computeSignature(secret, timestamp, payload)
	for _, signature := range signatures {
		if hmac.Equal([]byte(signature), []byte(expected)) {
			return nil
		}
	}
	return domain.ErrInvalidSignature
}

// Sign builds a header value accepted by Verify.
func Sign(secret string, payload []byte, at time.Time) string {
	timestamp := strconv.FormatInt(at.Unix(), 10)
	return fmt.Sprintf("t=%s,v1=%s", timestamp, computeSignature(secret, timestamp, payload))
}

func computeSignature(secret, timestamp string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(timestamp))
	_, _ = mac.Write([]byte("."))
	_, _ = mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func parseSignatureHeader(header string) (string, []string, bool) {
	var timestamp string
	var signatures []string
	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch strings.TrimSpace(key) {
		case "t":
			timestamp = strings.TrimSpace(value)
		case "v1":
			signatures = append(signatures, strings.TrimSpace(value))
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return "", nil, false
	}
	return timestamp, signatures, true
}
