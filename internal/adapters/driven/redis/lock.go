package redis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/releasetrain-lake/internal/core/domain"
	"github.com/custodia-labs/releasetrain-lake/internal/core/ports/driven"
)

var _ driven.DistributedLock = (*Lock)(nil)

// DefaultLockPrefix namespaces lake locks in a shared redis.
const DefaultLockPrefix = "releasetrain:lock:"

// Lock is a DistributedLock for lake processes on different hosts. Each key
// holds the owner id of the holder and expires with the lease.
type Lock struct {
	client *redis.Client
	prefix string
	owner  string
}

// LockOption configures a Lock.
type LockOption func(*Lock)

// WithLockPrefix overrides DefaultLockPrefix, e.g. to run two lakes against
// one redis.
func WithLockPrefix(prefix string) LockOption {
	return func(l *Lock) {
		if prefix != "" {
			l.prefix = prefix
		}
	}
}

// NewLock creates a lock owned by this process.
func NewLock(client *redis.Client, opts ...LockOption) *Lock {
	hostname, _ := os.Hostname()
	l := &Lock{
		client: client,
		prefix: DefaultLockPrefix,
		owner:  fmt.Sprintf("%s:%d:%s", hostname, os.Getpid(), uuid.NewString()),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Lock) key(name string) string {
	return l.prefix + name
}

// Acquire takes name for ttl if nobody holds it. It never blocks; callers
// that want to wait poll.
func (l *Lock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key(name), l.owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	return ok, nil
}

// ownedScript runs ARGV[2] on KEYS[1] only while ARGV[1] still owns it:
// "del" to release, "pexpire" with ARGV[3] milliseconds to extend.
var ownedScript = redis.NewScript(`
if redis.call("get", KEYS[1]) ~= ARGV[1] then
	return 0
end
if ARGV[2] == "del" then
	return redis.call("del", KEYS[1])
end
return redis.call("pexpire", KEYS[1], ARGV[3])
`)

func (l *Lock) runOwned(ctx context.Context, name, op string, ms int64) (int64, error) {
	res, err := ownedScript.Run(ctx, l.client, []string{l.key(name)}, l.owner, op, ms).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return res, err
}

// Release frees name if this process holds it. Releasing an expired or
// foreign lock is a no-op.
func (l *Lock) Release(ctx context.Context, name string) error {
	if _, err := l.runOwned(ctx, name, "del", 0); err != nil {
		return fmt.Errorf("release lock %s: %w", name, err)
	}
	return nil
}

// Extend renews the lease on a lock this process holds.
func (l *Lock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	n, err := l.runOwned(ctx, name, "pexpire", ttl.Milliseconds())
	if err != nil {
		return fmt.Errorf("extend lock %s: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("extend lock %s: %w", name, domain.ErrLockNotHeld)
	}
	return nil
}

func (l *Lock) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// OwnerID identifies this holder in lock values and logs.
func (l *Lock) OwnerID() string {
	return l.owner
}
