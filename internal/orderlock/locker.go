// Package orderlock serializes webhook mutations per order reference.
package orderlock

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrLockTimeout = errors.New("order_lock_timeout")
	ErrEmptyKey    = errors.New("order_lock_key_empty")
)

// Locker grants exclusive access to a key until the returned release func
// is called. Release is safe to call more than once.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
	Backend() string
}

// OrderKey builds the lock key for an external order reference.
func OrderKey(orderRef string) string {
	return "ordersync:order:" + strings.TrimSpace(orderRef)
}
