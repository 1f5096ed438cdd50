package runlock

import (
	"context"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/sparkload/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "sparkload:lock:song:data/song_data", Key(" Song ", "data/song_data "))
	assert.Equal(t, "sparkload:lock:log:s3://udacity-dend/log_data", Key("log", "s3://udacity-dend/log_data"))
}

func TestNoopLocker(t *testing.T) {
	var l Locker = NoopLocker{}

	lease, err := l.Acquire(context.Background(), Key("song", "data"))
	require.NoError(t, err)
	assert.Equal(t, "sparkload:lock:song:data", lease.Key)
	assert.NoError(t, l.Release(context.Background(), lease))

	_, err = l.Acquire(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyKey)
}

func TestRedisLockerValidation(t *testing.T) {
	var nilLocker *RedisLocker
	_, err := nilLocker.Acquire(context.Background(), "k")
	assert.ErrorIs(t, err, ErrNotAvailable)
	assert.NoError(t, nilLocker.Release(context.Background(), Lease{Key: "k", Token: "t"}))

	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	_, err = NewRedisLocker(client, time.Minute).Acquire(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyKey)

	_, err = NewRedisLocker(client, 0).Acquire(context.Background(), "k")
	assert.ErrorIs(t, err, ErrInvalidTTL)

	// Nothing listens on port 1.
	_, err = NewRedisLocker(client, time.Minute).Acquire(context.Background(), "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrLocked)

	assert.NoError(t, NewRedisLocker(client, time.Minute).Release(context.Background(), Lease{}))
}

func TestProvideFallsBackToNoop(t *testing.T) {
	l := Provide(Params{Config: config.Config{}, Log: zap.NewNop()})
	assert.IsType(t, NoopLocker{}, l)

	l = Provide(Params{Config: config.Config{RedisAddr: "127.0.0.1:1", LockTTL: time.Minute}, Log: zap.NewNop()})
	require.IsType(t, &RedisLocker{}, l)
	_ = l.(*RedisLocker).client.Close()
}
