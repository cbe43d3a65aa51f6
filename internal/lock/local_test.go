package lock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestLocalLockerMutualExclusion(t *testing.T) {
	locker := NewLocalDoctorLocker()

	const workers = 32
	var (
		wg      sync.WaitGroup
		counter int
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := locker.WithDoctorLock(context.Background(), "D201", func(context.Context) error {
				// Unsynchronized on purpose: the lock is the only guard.
				counter++
				return nil
			})
			if err != nil {
				t.Errorf("lock: %v", err)
			}
		}()
	}
	wg.Wait()

	if counter != workers {
		t.Fatalf("counter = %d, want %d", counter, workers)
	}
}

func TestLocalLockerIndependentDoctors(t *testing.T) {
	locker := NewLocalDoctorLocker()

	release := make(chan struct{})
	held := make(chan struct{})

	go func() {
		_ = locker.WithDoctorLock(context.Background(), "D201", func(context.Context) error {
			close(held)
			<-release
			return nil
		})
	}()

	<-held

	// A different doctor's lock must not block.
	done := make(chan struct{})
	go func() {
		_ = locker.WithDoctorLock(context.Background(), "D202", func(context.Context) error {
			close(done)
			return nil
		})
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("lock for another doctor blocked")
	}
	close(release)
}

func TestLocalLockerPropagatesError(t *testing.T) {
	locker := NewLocalDoctorLocker()

	want := errors.New("boom")
	err := locker.WithDoctorLock(context.Background(), "D201", func(context.Context) error {
		return want
	})
	if !errors.Is(err, want) {
		t.Fatalf("got %v, want %v", err, want)
	}
}

func TestLocalLockerCancelledContext(t *testing.T) {
	locker := NewLocalDoctorLocker()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := locker.WithDoctorLock(ctx, "D201", func(context.Context) error {
		t.Fatal("critical section must not run with a cancelled context")
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
}
