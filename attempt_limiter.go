package twostep

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var errAttemptBackend = errors.New("attempt counter backend unavailable")

// attemptLimiter counts consecutive failed verifications per user at
// <prefix>:attempts:<userID>. The counter deliberately survives challenge
// re-issuance: resending a code must not reset an in-flight attempt window.
type attemptLimiter struct {
	redis  redis.UniversalClient
	prefix string
}

func newAttemptLimiter(redisClient redis.UniversalClient, prefix string) *attemptLimiter {
	return &attemptLimiter{redis: redisClient, prefix: prefix}
}

func (l *attemptLimiter) key(userID string) string {
	return l.prefix + ":attempts:" + userID
}

// Increment bumps the failure counter and refreshes its TTL to the challenge
// TTL. INCR and EXPIRE are two round-trips; a lost EXPIRE only shortens the
// counter's lifetime, never corrupts the count.
func (l *attemptLimiter) Increment(ctx context.Context, userID string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, l.key(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errAttemptBackend, err)
	}
	if err := l.redis.Expire(ctx, l.key(userID), ttl).Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", errAttemptBackend, err)
	}
	return count, nil
}

// Reset clears the counter. Idempotent.
func (l *attemptLimiter) Reset(ctx context.Context, userID string) error {
	if err := l.redis.Del(ctx, l.key(userID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", errAttemptBackend, err)
	}
	return nil
}
