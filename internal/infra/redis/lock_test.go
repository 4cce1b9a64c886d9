// File: internal/infra/redis/lock_test.go
package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"recruitment-billing/internal/config"
)

func newTestLocker(t *testing.T) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	cli, err := NewClient(context.Background(), &config.RedisConfig{URL: mr.Addr()})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { cli.Close() })
	return NewLocker(cli), mr
}

func TestLockerMutualExclusion(t *testing.T) {
	ctx := context.Background()
	locker, _ := newTestLocker(t)

	token, err := locker.TryLock(ctx, "sweep:dunning", time.Minute)
	if err != nil || token == "" {
		t.Fatalf("TryLock: token=%q err=%v", token, err)
	}

	if _, err := locker.TryLock(ctx, "sweep:dunning", time.Minute); err == nil {
		t.Fatal("second TryLock on a held key must fail")
	}

	if err := locker.Unlock(ctx, "sweep:dunning", token); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if _, err := locker.TryLock(ctx, "sweep:dunning", time.Minute); err != nil {
		t.Fatalf("TryLock after unlock: %v", err)
	}
}

func TestLockerUnlockRequiresToken(t *testing.T) {
	ctx := context.Background()
	locker, mr := newTestLocker(t)

	token, err := locker.TryLock(ctx, "sweep:expiry", time.Minute)
	if err != nil {
		t.Fatalf("TryLock: %v", err)
	}

	// A stale holder with the wrong token must not release the lock.
	if err := locker.Unlock(ctx, "sweep:expiry", "stale-token"); err != nil {
		t.Fatalf("Unlock with stale token: %v", err)
	}
	if !mr.Exists("sweep:expiry") {
		t.Fatal("lock was released by a non-owner")
	}

	if err := locker.Unlock(ctx, "sweep:expiry", token); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if mr.Exists("sweep:expiry") {
		t.Fatal("lock not released by the owner")
	}
}

func TestLockerExpiry(t *testing.T) {
	ctx := context.Background()
	locker, mr := newTestLocker(t)

	if _, err := locker.TryLock(ctx, "sweep:reconcile", time.Second); err != nil {
		t.Fatalf("TryLock: %v", err)
	}
	mr.FastForward(2 * time.Second)

	if _, err := locker.TryLock(ctx, "sweep:reconcile", time.Second); err != nil {
		t.Fatalf("TryLock after TTL expiry: %v", err)
	}
}
