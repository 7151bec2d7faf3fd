package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the slot under {prefix}:active_session:{userID}.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore constructs a RedisStore. A zero ttl keeps slots until cleared.
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) key(userID string) string {
	return fmt.Sprintf("%s:active_session:%s", s.prefix, userID)
}

func (s *RedisStore) GetActiveSessionID(ctx context.Context, userID string) (*string, error) {
	if s.client == nil {
		return nil, ErrStoreNotConfigured
	}
	val, err := s.client.Get(ctx, s.key(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return &val, nil
}

func (s *RedisStore) SetActiveSessionID(ctx context.Context, userID string, sessionID *string) error {
	if s.client == nil {
		return ErrStoreNotConfigured
	}
	var err error
	if sessionID == nil {
		err = s.client.Del(ctx, s.key(userID)).Err()
	} else {
		err = s.client.Set(ctx, s.key(userID), *sessionID, s.ttl).Err()
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
