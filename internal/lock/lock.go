package lock

import (
	"context"
	"errors"
)

var ErrLockNotAcquired = errors.New("doctor lock not acquired")

// Locker guards the booking critical section per doctor, so two concurrent
// bookings cannot both observe the same slot as available.
type Locker interface {
	WithDoctorLock(ctx context.Context, doctorID string, fn func(ctx context.Context) error) error
}
