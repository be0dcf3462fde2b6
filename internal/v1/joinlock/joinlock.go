// Package joinlock serializes concurrent join attempts on the same
// (PIN, nickname) pair. A join holds the lock from admission validation until
// the player row is committed, so two sockets racing the same nickname cannot
// both pass the pre-checks. Locks self-expire after a short TTL; abandoned
// joins never wedge a nickname.
package joinlock

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"

	"github.com/quizdome/quizdome/backend/go/internal/v1/types"
)

// Locker is the admission lock used by room joins.
type Locker interface {
	// Acquire claims the (pin, nickname) lock. It returns false when another
	// join currently holds it. The error path is for backend failures only,
	// never contention.
	Acquire(ctx context.Context, pin types.PinType, normalizedNickname string) (bool, error)

	// Release frees the lock once the join has been committed or rejected.
	Release(ctx context.Context, pin types.PinType, normalizedNickname string) error

	// SweepExpired drops locks past their TTL. Backends with native expiry
	// may treat this as a no-op; the room reaper calls it on every pass.
	SweepExpired(ctx context.Context)
}

func lockKey(pin types.PinType, normalizedNickname string) string {
	return fmt.Sprintf("joinlock:%s:%s", pin, normalizedNickname)
}

// MemoryLocker is the single-instance default.
type MemoryLocker struct {
	ttl   time.Duration
	cache *cache.Cache
}

// NewMemoryLocker builds an in-process locker. The cache runs without a
// janitor goroutine; expired entries are purged lazily on Acquire and in
// bulk by SweepExpired.
func NewMemoryLocker(ttl time.Duration) *MemoryLocker {
	return &MemoryLocker{
		ttl:   ttl,
		cache: cache.New(ttl, 0),
	}
}

// Acquire claims the lock. go-cache's Add is the atomic check-and-set: it
// fails when a live entry already holds the key.
func (m *MemoryLocker) Acquire(_ context.Context, pin types.PinType, normalizedNickname string) (bool, error) {
	err := m.cache.Add(lockKey(pin, normalizedNickname), struct{}{}, m.ttl)
	return err == nil, nil
}

// Release frees the lock.
func (m *MemoryLocker) Release(_ context.Context, pin types.PinType, normalizedNickname string) error {
	m.cache.Delete(lockKey(pin, normalizedNickname))
	return nil
}

// SweepExpired purges entries past their TTL.
func (m *MemoryLocker) SweepExpired(_ context.Context) {
	m.cache.DeleteExpired()
}

// RedisLocker coordinates joins across instances through SET NX with a TTL.
type RedisLocker struct {
	ttl    time.Duration
	client *redis.Client
}

// NewRedisLocker builds a locker backed by the shared Redis instance.
func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	return &RedisLocker{ttl: ttl, client: client}
}

// Acquire claims the lock via SET NX.
func (r *RedisLocker) Acquire(ctx context.Context, pin types.PinType, normalizedNickname string) (bool, error) {
	ok, err := r.client.SetNX(ctx, lockKey(pin, normalizedNickname), "1", r.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("joinlock: acquire %s: %w", lockKey(pin, normalizedNickname), err)
	}
	return ok, nil
}

// Release frees the lock.
func (r *RedisLocker) Release(ctx context.Context, pin types.PinType, normalizedNickname string) error {
	if err := r.client.Del(ctx, lockKey(pin, normalizedNickname)).Err(); err != nil {
		return fmt.Errorf("joinlock: release %s: %w", lockKey(pin, normalizedNickname), err)
	}
	return nil
}

// SweepExpired is a no-op; Redis expires keys natively.
func (r *RedisLocker) SweepExpired(_ context.Context) {}
