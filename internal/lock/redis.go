package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Deletes the key only when it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

const pollInterval = 50 * time.Millisecond

type RedisLocker struct {
	client  redis.Cmdable
	ttl     time.Duration
	timeout time.Duration
	logger  *logrus.Logger
}

// NewRedisLocker: ttl bounds how long a crashed holder blocks others,
// timeout bounds how long Acquire waits.
func NewRedisLocker(client redis.Cmdable, ttl, timeout time.Duration, logger *logrus.Logger) *RedisLocker {
	return &RedisLocker{client: client, ttl: ttl, timeout: timeout, logger: logger}
}

func (l *RedisLocker) Acquire(ctx context.Context, eventID uint) (func(), error) {
	k := key(eventID)
	token := uuid.NewString()

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, k, token, l.ttl).Result()
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		if ok {
			var once sync.Once
			return func() { once.Do(func() { l.release(k, token) }) }, nil
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, ErrTimeout
			}
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (l *RedisLocker) release(k, token string) {
	// The caller's context may already be gone.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := releaseScript.Run(ctx, l.client, []string{k}, token).Err(); err != nil {
		l.logger.WithFields(logrus.Fields{"component": "lock", "key": k}).
			WithError(err).Warn("failed to release event lock")
	}
}
