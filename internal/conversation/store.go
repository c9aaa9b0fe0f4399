package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	sessionTTL    = 24 * time.Hour
	sessionPrefix = "session:"
)

// SessionStore keeps the conversation state per session key. A missing
// session reads as Idle.
type SessionStore interface {
	Get(ctx context.Context, key string) (State, error)
	Set(ctx context.Context, key string, state State) error
}

// MemoryStore is a process-local SessionStore
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]State
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]State)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.states[key], nil
}

func (m *MemoryStore) Set(_ context.Context, key string, state State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if state == Idle {
		delete(m.states, key)
		return nil
	}
	m.states[key] = state
	return nil
}

// RedisStore keeps states in Redis so they survive restarts and can be
// shared by several instances
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisStore wraps a connected client
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: sessionTTL}
}

// OpenRedisStore parses a redis:// URL and pings the server
func OpenRedisStore(ctx context.Context, url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewRedisStore(rdb), nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (State, error) {
	val, err := s.rdb.Get(ctx, sessionPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return Idle, nil
	}
	if err != nil {
		return Idle, fmt.Errorf("failed to load session: %w", err)
	}
	return ParseState(val), nil
}

func (s *RedisStore) Set(ctx context.Context, key string, state State) error {
	if err := s.rdb.Set(ctx, sessionPrefix+key, state.String(), s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Close releases the underlying client
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
