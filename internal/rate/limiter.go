package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds throttle tuning parameters.
type Config struct {
	MaxAttempts int
	Window      time.Duration
}

// Limiter counts failed logins per client IP in fixed windows.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a rate [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

// CheckLogin returns ErrRateLimited once the IP has spent its window.
// An empty IP is never throttled.
func (l *Limiter) CheckLogin(ctx context.Context, ip string) error {
	if l == nil || ip == "" {
		return nil
	}

	count, err := l.redis.Get(ctx, loginIPKey(ip)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count >= int64(l.config.MaxAttempts) {
		return ErrRateLimited
	}
	return nil
}

// IncrementLogin records a failed login from ip.
func (l *Limiter) IncrementLogin(ctx context.Context, ip string) error {
	if l == nil || ip == "" {
		return nil
	}

	count, err := l.redis.Incr(ctx, loginIPKey(ip)).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, loginIPKey(ip), l.config.Window).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}
	return nil
}

// ResetLogin clears the counter for ip after a successful credential check.
func (l *Limiter) ResetLogin(ctx context.Context, ip string) error {
	if l == nil || ip == "" {
		return nil
	}

	if err := l.redis.Del(ctx, loginIPKey(ip)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func loginIPKey(ip string) string {
	return "rl:ip:" + ip
}
