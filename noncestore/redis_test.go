package noncestore

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedis(t *testing.T) {
	t.Run("requires a client", func(t *testing.T) {
		_, err := NewRedis(RedisConfig{})
		assert.Error(t, err)
	})

	t.Run("applies defaults", func(t *testing.T) {
		store, err := NewRedis(RedisConfig{Client: redis.NewClient(&redis.Options{})})
		require.NoError(t, err)
		assert.Equal(t, defaultRedisKey, store.cfg.Key)
		assert.Equal(t, defaultCapacity, store.cfg.Capacity)
	})
}

func TestRedisCheckAndStoreFormatFloor(t *testing.T) {
	// The format floor rejects before any network call, so no server is
	// needed.
	store, err := NewRedis(RedisConfig{Client: redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})})
	require.NoError(t, err)

	assert.ErrorIs(t, store.CheckAndStore(context.Background(), "", time.Now()), ErrMalformedNonce)
}
