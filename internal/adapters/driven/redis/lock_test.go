package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/releasetrain-lake/internal/core/domain"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func mustAcquire(t *testing.T, lock *Lock, name string, ttl time.Duration) bool {
	t.Helper()
	acquired, err := lock.Acquire(context.Background(), name, ttl)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return acquired
}

func TestLock_OwnerID_Unique(t *testing.T) {
	_, client := setupTestRedis(t)

	if NewLock(client).OwnerID() == NewLock(client).OwnerID() {
		t.Error("expected unique owner IDs")
	}
}

func TestLock_BuildLockIsExclusive(t *testing.T) {
	_, client := setupTestRedis(t)
	builder := NewLock(client)
	other := NewLock(client)

	if !mustAcquire(t, builder, "/data/releasetrain.db", 10*time.Minute) {
		t.Fatal("expected first builder to acquire")
	}
	if mustAcquire(t, other, "/data/releasetrain.db", 10*time.Minute) {
		t.Error("expected second builder to be refused")
	}
	if mustAcquire(t, builder, "/data/releasetrain.db", 10*time.Minute) {
		t.Error("lock is not reentrant")
	}
	if !mustAcquire(t, other, "refresher", time.Minute) {
		t.Error("different names must not contend")
	}
}

func TestLock_ReleaseOnlyByOwner(t *testing.T) {
	_, client := setupTestRedis(t)
	ctx := context.Background()
	owner := NewLock(client)
	other := NewLock(client)

	mustAcquire(t, owner, "lake", time.Minute)

	if err := other.Release(ctx, "lake"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mustAcquire(t, other, "lake", time.Minute) {
		t.Fatal("release by a non-owner must not free the lock")
	}

	if err := owner.Release(ctx, "lake"); err != nil {
		t.Fatalf("unexpected error on release: %v", err)
	}
	if !mustAcquire(t, other, "lake", time.Minute) {
		t.Error("expected to acquire after owner release")
	}
}

func TestLock_Release_NotHeld(t *testing.T) {
	_, client := setupTestRedis(t)

	if err := NewLock(client).Release(context.Background(), "lake"); err != nil {
		t.Errorf("unexpected error releasing unheld lock: %v", err)
	}
}

func TestLock_Extend(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()
	owner := NewLock(client)
	other := NewLock(client)

	mustAcquire(t, owner, "lake", time.Second)
	if err := owner.Extend(ctx, "lake", time.Minute); err != nil {
		t.Fatalf("unexpected error on extend: %v", err)
	}

	mr.FastForward(30 * time.Second)
	if mustAcquire(t, other, "lake", time.Minute) {
		t.Error("extended lock should still be held")
	}

	err := other.Extend(ctx, "lake", time.Minute)
	if !errors.Is(err, domain.ErrLockNotHeld) {
		t.Errorf("expected ErrLockNotHeld, got %v", err)
	}
}

func TestLock_RenewedLeaseOutlivesTTL(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()
	builder := NewLock(client)
	next := NewLock(client)

	mustAcquire(t, builder, "/data/releasetrain.db", 10*time.Minute)
	for i := 0; i < 4; i++ {
		mr.FastForward(10 * time.Minute / 3)
		if err := builder.Extend(ctx, "/data/releasetrain.db", 10*time.Minute); err != nil {
			t.Fatalf("renewal %d: %v", i, err)
		}
	}

	// 13m20s after acquiring, past the original lease
	if mustAcquire(t, next, "/data/releasetrain.db", 10*time.Minute) {
		t.Error("a renewed lock must not be handed to another builder")
	}
}

func TestLock_ExpiresAfterTTL(t *testing.T) {
	mr, client := setupTestRedis(t)
	crashed := NewLock(client)
	next := NewLock(client)

	mustAcquire(t, crashed, "lake", 10*time.Minute)
	mr.FastForward(11 * time.Minute)

	if !mustAcquire(t, next, "lake", 10*time.Minute) {
		t.Error("expected an expired lock to be free")
	}
}

func TestLock_Ping(t *testing.T) {
	mr, client := setupTestRedis(t)
	lock := NewLock(client)

	if err := lock.Ping(context.Background()); err != nil {
		t.Errorf("unexpected ping error: %v", err)
	}
	mr.Close()
	if err := lock.Ping(context.Background()); err == nil {
		t.Error("expected ping error after server shutdown")
	}
}

func TestLock_PrefixSeparatesLakes(t *testing.T) {
	mr, client := setupTestRedis(t)
	staging := NewLock(client, WithLockPrefix("staging:lock:"))
	prod := NewLock(client)

	if !mustAcquire(t, staging, "lake", time.Minute) {
		t.Fatal("expected staging to acquire")
	}
	if !mustAcquire(t, prod, "lake", time.Minute) {
		t.Error("locks under different prefixes must not contend")
	}
	if got, _ := mr.Get("staging:lock:lake"); got != staging.OwnerID() {
		t.Errorf("expected owner id stored under prefix, got %q", got)
	}
	if !mr.Exists(DefaultLockPrefix + "lake") {
		t.Error("expected default prefix key")
	}
}
