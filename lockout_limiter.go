package twostep

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var errLockoutBackend = errors.New("lockout backend unavailable")

// lockoutLimiter maintains progressive block records at
// <prefix>:block:user:<userID> and <prefix>:block:ip:<ip>. Presence of either
// key means blocked; the stored integer is the next escalation level. Records
// expire on their own; there is no explicit unblock.
type lockoutLimiter struct {
	redis    redis.UniversalClient
	prefix   string
	schedule []time.Duration
}

func newLockoutLimiter(redisClient redis.UniversalClient, prefix string, schedule []time.Duration) *lockoutLimiter {
	return &lockoutLimiter{redis: redisClient, prefix: prefix, schedule: schedule}
}

func (l *lockoutLimiter) userKey(userID string) string {
	return l.prefix + ":block:user:" + userID
}

func (l *lockoutLimiter) ipKey(ip string) string {
	return l.prefix + ":block:ip:" + ip
}

// Blocked reports whether the user or the caller IP has a live block record.
func (l *lockoutLimiter) Blocked(ctx context.Context, userID, ip string) (bool, error) {
	keys := []string{l.userKey(userID)}
	if ip != "" {
		keys = append(keys, l.ipKey(ip))
	}

	n, err := l.redis.Exists(ctx, keys...).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", errLockoutBackend, err)
	}
	return n > 0, nil
}

// Escalate reads the user's current level from the still-live record (absent
// means level 0), clamps it to the schedule, and writes level+1 to both the
// user and IP keys with TTL equal to the block duration at the clamped level.
// User and IP records share the level but expire independently. The
// read-modify-write is not atomic; concurrent escalations for the same user
// may collapse into one level step, which is acceptable.
func (l *lockoutLimiter) Escalate(ctx context.Context, userID, ip string) (time.Duration, error) {
	level := 0
	current, err := l.redis.Get(ctx, l.userKey(userID)).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("%w: %v", errLockoutBackend, err)
	}
	if err == nil {
		level = current
	}
	if level > len(l.schedule)-1 {
		level = len(l.schedule) - 1
	}

	duration := l.schedule[level]
	if err := l.redis.Set(ctx, l.userKey(userID), level+1, duration).Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", errLockoutBackend, err)
	}
	if ip != "" {
		if err := l.redis.Set(ctx, l.ipKey(ip), level+1, duration).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", errLockoutBackend, err)
		}
	}
	return duration, nil
}
