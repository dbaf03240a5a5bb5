package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var ErrLockNotAcquired = errors.New("lock not acquired")

// releaseScript deletes the key only while it still holds our token.
const releaseScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0`

// RedisLocker is a lease lock shared by every replica. A holder that dies
// loses the lock when the lease expires.
type RedisLocker struct {
	client   redis.Cmdable
	lease    time.Duration
	retry    time.Duration
	newToken func() string
	logger   *zap.Logger
}

func NewRedisLocker(client redis.Cmdable, lease time.Duration, logger ...*zap.Logger) *RedisLocker {
	l := zap.L().Named("cache.locker")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("cache.locker")
	}
	if lease <= 0 {
		lease = 10 * time.Second
	}
	return &RedisLocker{
		client:   client,
		lease:    lease,
		retry:    25 * time.Millisecond,
		newToken: uuid.NewString,
		logger:   l,
	}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	token := l.newToken()
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.lease).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %w", ErrLockNotAcquired, ctx.Err())
			}
			return nil, err
		}
		if ok {
			return func() { l.release(key, token) }, nil
		}

		timer := time.NewTimer(l.retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("%w: %w", ErrLockNotAcquired, ctx.Err())
		case <-timer.C:
		}
	}
}

func (l *RedisLocker) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := l.client.Eval(ctx, releaseScript, []string{key}, token).Err(); err != nil {
		l.logger.Warn("lock release failed", zap.String("key", key), zap.Error(err))
	}
}
