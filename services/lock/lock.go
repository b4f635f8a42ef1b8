// Package lock implements core.Locker in process and on Redis.
package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"

	"github.com/trezcool/plagcheck/core"
)

var (
	// mockable
	nowFunc       = time.Now
	renewInterval = func(ttl time.Duration) time.Duration { return ttl / 3 }
)

// releases the key only if it still holds our token
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// extends the key's expiry only if it still holds our token
var extendScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

type (
	localLocker struct {
		mu   sync.Mutex
		ttl  time.Duration
		held map[string]localEntry
	}

	localEntry struct {
		token   string
		expires time.Time
	}

	redisLocker struct {
		rdb    goredis.UniversalClient
		ttl    time.Duration
		logger core.Logger
	}
)

var (
	_ core.Locker = (*localLocker)(nil)
	_ core.Locker = (*redisLocker)(nil)
)

// NewLocalLocker returns a Locker for a single process.
func NewLocalLocker(ttl time.Duration) core.Locker {
	return &localLocker{ttl: ttl, held: make(map[string]localEntry)}
}

func (l *localLocker) Lock(_ context.Context, key string) (func(context.Context) error, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e, ok := l.held[key]; ok && nowFunc().Before(e.expires) {
		return nil, errors.Wrapf(core.ErrConflict, "%s is locked", key)
	}
	token := uuid.NewString()
	l.held[key] = localEntry{token: token, expires: nowFunc().Add(l.ttl)}

	stop := keepAlive(key, l.ttl, core.NopLogger{}, func(context.Context) (bool, error) {
		l.mu.Lock()
		defer l.mu.Unlock()
		e, ok := l.held[key]
		if !ok || e.token != token {
			return false, nil
		}
		e.expires = nowFunc().Add(l.ttl)
		l.held[key] = e
		return true, nil
	})

	return func(context.Context) error {
		stop()
		l.mu.Lock()
		defer l.mu.Unlock()
		if e, ok := l.held[key]; ok && e.token == token {
			delete(l.held, key)
		}
		return nil
	}, nil
}

// NewRedisLocker connects to addr and returns a Locker shared by every process using that Redis.
func NewRedisLocker(ctx context.Context, addr string, ttl time.Duration, logger core.Logger) (core.Locker, func() error, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, errors.Wrap(err, "redis ping")
	}
	return newRedisLocker(rdb, ttl, logger), rdb.Close, nil
}

func newRedisLocker(rdb goredis.UniversalClient, ttl time.Duration, logger core.Logger) *redisLocker {
	return &redisLocker{rdb: rdb, ttl: ttl, logger: logger.With("service", "redis-lock")}
}

func (l *redisLocker) Lock(ctx context.Context, key string) (func(context.Context) error, error) {
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "locking %s", key)
	}
	if !ok {
		return nil, errors.Wrapf(core.ErrConflict, "%s is locked", key)
	}
	l.logger.Debug("lock acquired", "key", key, "ttl", l.ttl.String())

	stop := keepAlive(key, l.ttl, l.logger, func(ctx context.Context) (bool, error) {
		n, err := extendScript.Run(ctx, l.rdb, []string{key}, token, l.ttl.Milliseconds()).Int64()
		return n == 1, err
	})

	return func(ctx context.Context) error {
		stop()
		if err := releaseScript.Run(ctx, l.rdb, []string{key}, token).Err(); err != nil {
			return errors.Wrapf(err, "unlocking %s", key)
		}
		return nil
	}, nil
}

// keepAlive runs extend every renewInterval(ttl) so that a lock outlives its TTL for as long as it is held.
// It stops when the returned func is called or when extend reports the lock as lost.
func keepAlive(key string, ttl time.Duration, logger core.Logger, extend func(context.Context) (bool, error)) (stop func()) {
	interval := renewInterval(ttl)
	if interval <= 0 {
		return func() {}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				held, err := extend(ctx)
				switch {
				case ctx.Err() != nil:
					return
				case err != nil:
					logger.Warn("renewing lock", "key", key, "err", err)
				case !held:
					logger.Warn("lock lost before release", "key", key)
					return
				}
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}
