package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// RedisStore persists the session identity in Redis so it survives restarts.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Get returns the stored session ID, or "" when the key does not exist.
func (s *RedisStore) Get(ctx context.Context) (string, error) {
	id, err := s.client.Get(ctx, storageKey).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil
		}
		return "", fmt.Errorf("redis get session id: %w", err)
	}
	return id, nil
}

// Set stores the session ID without expiry; the identity is meant to be
// long-lived.
func (s *RedisStore) Set(ctx context.Context, id string) error {
	if err := s.client.Set(ctx, storageKey, id, 0).Err(); err != nil {
		return fmt.Errorf("redis set session id: %w", err)
	}
	return nil
}

// MemoryStore keeps the session identity in process memory. It is the
// degraded mode used when Redis is unreachable, and the default in tests.
type MemoryStore struct {
	mu sync.Mutex
	id string
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Get returns the stored session ID, or "" when none is stored.
func (s *MemoryStore) Get(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id, nil
}

// Set stores the session ID.
func (s *MemoryStore) Set(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = id
	return nil
}
