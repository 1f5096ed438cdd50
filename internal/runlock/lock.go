// Package runlock keeps two processes from loading the same batch at once.
package runlock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

var (
	ErrLocked       = errors.New("batch_locked")
	ErrEmptyKey     = errors.New("lock_key_empty")
	ErrInvalidTTL   = errors.New("lock_ttl_invalid")
	ErrNotAvailable = errors.New("lock_client_not_configured")
)

const keyPrefix = "sparkload:lock:"

const lockReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

// Lease is held for the duration of one batch.
type Lease struct {
	Key   string
	Token string
}

// Locker acquires and releases batch leases.
type Locker interface {
	Acquire(ctx context.Context, key string) (Lease, error)
	Release(ctx context.Context, lease Lease) error
}

// Key builds the lock key for one family and input root.
func Key(family, root string) string {
	return keyPrefix + strings.ToLower(strings.TrimSpace(family)) + ":" + strings.TrimSpace(root)
}

// RedisLocker holds leases as SETNX keys that expire after ttl.
type RedisLocker struct {
	client *redis.Client
	script *redis.Script
	ttl    time.Duration
}

func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	if client == nil {
		return nil
	}
	return &RedisLocker{
		client: client,
		script: redis.NewScript(lockReleaseScript),
		ttl:    ttl,
	}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (Lease, error) {
	if l == nil || l.client == nil {
		return Lease{}, ErrNotAvailable
	}
	if key == "" {
		return Lease{}, ErrEmptyKey
	}
	if l.ttl <= 0 {
		return Lease{}, ErrInvalidTTL
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return Lease{}, fmt.Errorf("acquire %s: %w", key, err)
	}
	if !ok {
		return Lease{}, fmt.Errorf("%w: %s", ErrLocked, key)
	}
	return Lease{Key: key, Token: token}, nil
}

// Release deletes the key only while it still holds the lease token.
func (l *RedisLocker) Release(ctx context.Context, lease Lease) error {
	if l == nil || l.client == nil {
		return nil
	}
	if lease.Key == "" || lease.Token == "" {
		return nil
	}
	return l.script.Run(ctx, l.client, []string{lease.Key}, lease.Token).Err()
}

// NoopLocker always grants the lease.
type NoopLocker struct{}

func (NoopLocker) Acquire(_ context.Context, key string) (Lease, error) {
	if key == "" {
		return Lease{}, ErrEmptyKey
	}
	return Lease{Key: key}, nil
}

func (NoopLocker) Release(context.Context, Lease) error { return nil }

var (
	_ Locker = (*RedisLocker)(nil)
	_ Locker = NoopLocker{}
)
