package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type RedisOptions struct {
	// Prefix is prepended to every key, e.g. "lock:"
	Prefix string
	// Expiry bounds how long a crashed holder can block a key
	Expiry time.Duration
	// Tries and RetryDelay bound a blocking Lock
	Tries      int
	RetryDelay time.Duration
}

func DefaultRedisOptions() RedisOptions {
	return RedisOptions{
		Prefix:     "lock:",
		Expiry:     30 * time.Second,
		Tries:      200,
		RetryDelay: 50 * time.Millisecond,
	}
}

// Redis is a redsync-backed Locker shared by every replica.
type Redis struct {
	rs   *redsync.Redsync
	opts RedisOptions
	log  *zap.Logger
}

func NewRedis(client *redis.Client, opts RedisOptions, log *zap.Logger) *Redis {
	if log == nil {
		log = zap.NewNop()
	}
	return &Redis{
		rs:   redsync.New(goredis.NewPool(client)),
		opts: opts,
		log:  log,
	}
}

func (r *Redis) mutex(key string, tries int) *redsync.Mutex {
	return r.rs.NewMutex(
		r.opts.Prefix+key,
		redsync.WithExpiry(r.opts.Expiry),
		redsync.WithTries(tries),
		redsync.WithRetryDelay(r.opts.RetryDelay),
	)
}

func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	m := r.mutex(key, r.opts.Tries)
	if err := m.LockContext(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	return r.unlocker(key, m), nil
}

// TryLock makes a single attempt. Any failure to acquire is reported as
// "not acquired" unless ctx itself is done.
func (r *Redis) TryLock(ctx context.Context, key string) (func(), bool, error) {
	m := r.mutex(key, 1)
	if err := m.TryLockContext(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		r.log.Debug("lock busy", zap.String("key", key), zap.Error(err))
		return nil, false, nil
	}
	return r.unlocker(key, m), true, nil
}

func (r *Redis) unlocker(key string, m *redsync.Mutex) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if ok, err := m.UnlockContext(ctx); !ok || err != nil {
			r.log.Warn("release lock", zap.String("key", key), zap.Bool("ok", ok), zap.Error(err))
		}
	}
}
