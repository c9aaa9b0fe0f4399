package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	s, err := OpenRedisStore(ctx, "redis://"+mr.Addr())
	require.NoError(t, err)
	defer s.Close()

	state, err := s.Get(ctx, "tg:1")
	require.NoError(t, err)
	assert.Equal(t, Idle, state)

	require.NoError(t, s.Set(ctx, "tg:1", AwaitingInput))
	state, err = s.Get(ctx, "tg:1")
	require.NoError(t, err)
	assert.Equal(t, AwaitingInput, state)

	raw, err := mr.Get("session:tg:1")
	require.NoError(t, err)
	assert.Equal(t, "awaiting_input", raw)
	assert.Equal(t, 24*time.Hour, mr.TTL("session:tg:1"))

	require.NoError(t, s.Set(ctx, "tg:1", Idle))
	state, err = s.Get(ctx, "tg:1")
	require.NoError(t, err)
	assert.Equal(t, Idle, state)
}

func TestRedisStoreExpiresSessions(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStore(rdb)
	defer s.Close()

	require.NoError(t, s.Set(ctx, "web:u", AwaitingInput))
	mr.FastForward(25 * time.Hour)

	state, err := s.Get(ctx, "web:u")
	require.NoError(t, err)
	assert.Equal(t, Idle, state)
}

func TestRedisStoreSurfacesErrors(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	s := NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	defer s.Close()

	mr.SetError("READONLY replica")
	_, err := s.Get(ctx, "tg:2")
	assert.ErrorContains(t, err, "failed to load session")
	assert.ErrorContains(t, s.Set(ctx, "tg:2", AwaitingInput), "failed to save session")
}

func TestOpenRedisStoreRejectsBadURL(t *testing.T) {
	_, err := OpenRedisStore(context.Background(), "not-a-url")
	assert.Error(t, err)
}
