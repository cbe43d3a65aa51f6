package lock

import (
	"context"
	"sync"
)

type localDoctorLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLocalDoctorLocker returns an in-process locker for single-node runs and
// tests. Same contract as the Redis locker, minus the network.
func NewLocalDoctorLocker() Locker {
	return &localDoctorLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *localDoctorLocker) WithDoctorLock(ctx context.Context, doctorID string, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	m, ok := l.locks[doctorID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[doctorID] = m
	}
	l.mu.Unlock()

	m.Lock()
	defer m.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}
