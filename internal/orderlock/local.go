package orderlock

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// LocalLocker is an in-process keyed mutex. Entries are dropped once no
// goroutine holds or waits on them.
type LocalLocker struct {
	mu      sync.Mutex
	entries map[string]*localEntry
	maxWait time.Duration
}

type localEntry struct {
	slot chan struct{}
	refs int
}

func NewLocalLocker(maxWait time.Duration) *LocalLocker {
	return &LocalLocker{
		entries: make(map[string]*localEntry),
		maxWait: maxWait,
	}
}

func (l *LocalLocker) Backend() string { return "local" }

func (l *LocalLocker) Acquire(ctx context.Context, key string) (func(), error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	if l.maxWait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.maxWait)
		defer cancel()
	}

	entry := l.ref(key)
	select {
	case entry.slot <- struct{}{}:
	case <-ctx.Done():
		l.unref(key, entry)
		return nil, fmt.Errorf("%w: %v", ErrLockTimeout, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-entry.slot
			l.unref(key, entry)
		})
	}, nil
}

func (l *LocalLocker) ref(key string) *localEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries[key]
	if !ok {
		entry = &localEntry{slot: make(chan struct{}, 1)}
		l.entries[key] = entry
	}
	entry.refs++
	return entry
}

func (l *LocalLocker) unref(key string, entry *localEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.entries, key)
	}
}

func (l *LocalLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
