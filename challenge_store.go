package twostep

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	errChallengeNotFound = errors.New("challenge not found")
	errChallengeBackend  = errors.New("challenge backend unavailable")
)

// challengeRecord is the stored value at <prefix>:code:<userID>. The JSON
// field names are part of the external key layout and must not change.
type challengeRecord struct {
	Code     string    `json:"code"`
	LastSent time.Time `json:"last_sent"`
}

type challengeStore struct {
	redis  redis.UniversalClient
	prefix string
}

func newChallengeStore(redisClient redis.UniversalClient, prefix string) *challengeStore {
	return &challengeStore{redis: redisClient, prefix: prefix}
}

func (s *challengeStore) key(userID string) string {
	return s.prefix + ":code:" + userID
}

// Save overwrites any prior challenge for the user, invalidating its code and
// restarting both the TTL and the resend cooldown clock.
func (s *challengeStore) Save(ctx context.Context, userID string, record *challengeRecord, ttl time.Duration) error {
	encoded, err := json.Marshal(record)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(userID), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", errChallengeBackend, err)
	}
	return nil
}

func (s *challengeStore) Get(ctx context.Context, userID string) (*challengeRecord, error) {
	data, err := s.redis.Get(ctx, s.key(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errChallengeNotFound
		}
		return nil, fmt.Errorf("%w: %v", errChallengeBackend, err)
	}

	record := &challengeRecord{}
	if err := json.Unmarshal(data, record); err != nil {
		// Unreadable record: treat as absent so the flow can recover by
		// issuing a fresh challenge.
		_, _ = s.redis.Del(ctx, s.key(userID)).Result()
		return nil, errChallengeNotFound
	}
	return record, nil
}

func (s *challengeStore) Delete(ctx context.Context, userID string) error {
	if err := s.redis.Del(ctx, s.key(userID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", errChallengeBackend, err)
	}
	return nil
}
