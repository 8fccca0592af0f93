// Package lock serializes bookings per event across service instances.
package lock

import (
	"context"
	"errors"
	"fmt"
)

// ErrTimeout is returned when the lock could not be acquired in time.
var ErrTimeout = errors.New("event lock timeout")

// EventLocker hands out one exclusive lock per event.
type EventLocker interface {
	// Acquire blocks until the lock for eventID is held or the wait times out.
	// The returned release func may be called more than once.
	Acquire(ctx context.Context, eventID uint) (release func(), err error)
}

func key(eventID uint) string {
	return fmt.Sprintf("autosched:event:%d", eventID)
}
