package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Counter increments a windowed counter and returns the new value.
type Counter interface {
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RedisCounter counts with INCR and sets the expiry only when the key is new,
// so the window starts at the first hit.
type RedisCounter struct {
	client redis.Cmdable
}

// NewRedisCounter wraps a go-redis client.
func NewRedisCounter(client redis.Cmdable) *RedisCounter {
	return &RedisCounter{client: client}
}

// Increment implements Counter.
func (r *RedisCounter) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	var incr *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, window)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("increment %s: %w", key, err)
	}
	return incr.Val(), nil
}

// Limiter allows at most limit hits per key in each window.
type Limiter struct {
	counter Counter
	prefix  string
	limit   int64
	window  time.Duration
	logger  *zap.Logger
}

// NewLimiter creates a limiter. A limit of zero or less disables it.
func NewLimiter(counter Counter, prefix string, limit int, window time.Duration, logger *zap.Logger) *Limiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Limiter{
		counter: counter,
		prefix:  prefix,
		limit:   int64(limit),
		window:  window,
		logger:  logger,
	}
}

// Allow reports whether another hit for key fits in the current window.
// Counter failures let the request through.
func (l *Limiter) Allow(ctx context.Context, key string) bool {
	if l == nil || l.counter == nil || l.limit <= 0 {
		return true
	}
	n, err := l.counter.Increment(ctx, l.prefix+key, l.window)
	if err != nil {
		l.logger.Warn("rate limit counter unavailable", zap.String("prefix", l.prefix), zap.Error(err))
		return true
	}
	return n <= l.limit
}
