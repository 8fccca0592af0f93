package lock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// LocalLocker is an in-process EventLocker. It only serializes callers within one process.
type LocalLocker struct {
	mu      sync.Mutex
	slots   map[uint]chan struct{}
	timeout time.Duration
}

func NewLocalLocker(timeout time.Duration) *LocalLocker {
	return &LocalLocker{slots: make(map[uint]chan struct{}), timeout: timeout}
}

func (l *LocalLocker) slot(eventID uint) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.slots[eventID]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[eventID] = ch
	}
	return ch
}

func (l *LocalLocker) Acquire(ctx context.Context, eventID uint) (func(), error) {
	ch := l.slot(eventID)

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	select {
	case ch <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-ch }) }, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, ctx.Err()
	}
}
