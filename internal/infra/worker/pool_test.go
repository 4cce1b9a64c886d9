// File: internal/infra/worker/pool_test.go
package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"recruitment-billing/internal/domain/ports/adapter"
)

func newTestPool(t *testing.T, opts Options) *Pool {
	t.Helper()
	l := zerolog.Nop()
	p := NewPool(opts, &l)
	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)
	t.Cleanup(func() {
		cancel()
		p.Stop()
	})
	return p
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestPoolRunsJobs(t *testing.T) {
	p := newTestPool(t, Options{Workers: 2, MaxAttempts: 1, Backoff: time.Millisecond})

	var done int32
	for i := 0; i < 5; i++ {
		err := p.Submit(adapter.Job{
			Kind: "test",
			Run: func(context.Context) error {
				atomic.AddInt32(&done, 1)
				return nil
			},
		})
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	waitFor(t, time.Second, func() bool { return atomic.LoadInt32(&done) == 5 })
}

func TestPoolRetriesUntilSuccess(t *testing.T) {
	p := newTestPool(t, Options{Workers: 1, MaxAttempts: 3, Backoff: time.Millisecond})

	var attempts int32
	var dead int32
	p.Submit(adapter.Job{
		Kind: "flaky",
		Run: func(context.Context) error {
			if atomic.AddInt32(&attempts, 1) < 3 {
				return errors.New("transient")
			}
			return nil
		},
		OnDead: func(context.Context, int, error) { atomic.AddInt32(&dead, 1) },
	})

	waitFor(t, time.Second, func() bool { return atomic.LoadInt32(&attempts) == 3 })
	if atomic.LoadInt32(&dead) != 0 {
		t.Fatal("recovered job must not dead-letter")
	}
}

func TestPoolDeadLettersAfterExhaustion(t *testing.T) {
	p := newTestPool(t, Options{Workers: 1, MaxAttempts: 2, Backoff: time.Millisecond})

	var gotAttempts int32
	var gotErr atomic.Value
	p.Submit(adapter.Job{
		Kind: "doomed",
		Run: func(context.Context) error {
			return errors.New("permanent")
		},
		OnDead: func(_ context.Context, attempts int, lastErr error) {
			atomic.StoreInt32(&gotAttempts, int32(attempts))
			gotErr.Store(lastErr)
		},
	})

	waitFor(t, time.Second, func() bool { return atomic.LoadInt32(&gotAttempts) == 2 })
	if err, _ := gotErr.Load().(error); err == nil || err.Error() != "permanent" {
		t.Fatalf("OnDead error = %v, want permanent", err)
	}
}

func TestPoolRejectsWhenSaturated(t *testing.T) {
	l := zerolog.Nop()
	p := NewPool(Options{Workers: 1, QueueDepth: 1, MaxAttempts: 1}, &l)
	// Not started: the queue fills immediately.

	if err := p.Submit(adapter.Job{Kind: "a", Run: func(context.Context) error { return nil }}); err != nil {
		t.Fatalf("first Submit: %v", err)
	}
	if err := p.Submit(adapter.Job{Kind: "b", Run: func(context.Context) error { return nil }}); err == nil {
		t.Fatal("saturated queue must reject")
	}
}
