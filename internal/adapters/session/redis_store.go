package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cmcs-claims/internal/core/domain"

	"github.com/go-redis/redis/v8"
)

const keyPrefix = "cmcs:session:"

// RedisStore keeps sessions as JSON values whose key TTL is the idle timeout
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore wraps a connected client
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func key(id string) string {
	return keyPrefix + id
}

// Create stores the session with the given idle TTL
func (s *RedisStore) Create(ctx context.Context, session *domain.Session, ttl time.Duration) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	return s.rdb.Set(ctx, key(session.ID), data, ttl).Err()
}

// Get loads a session. Expired keys are gone, so they read as not found.
func (s *RedisStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	val, err := s.rdb.Get(ctx, key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal(val, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

// Touch restarts the idle timeout
func (s *RedisStore) Touch(ctx context.Context, id string, ttl time.Duration) error {
	ok, err := s.rdb.Expire(ctx, key(id), ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to extend session: %w", err)
	}
	if !ok {
		return domain.ErrSessionNotFound
	}
	return nil
}

// Delete removes a session
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.rdb.Del(ctx, key(id)).Err()
}
