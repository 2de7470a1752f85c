package noncestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// defaultRedisKey is the sorted-set key used when RedisConfig.Key is
// empty.
const defaultRedisKey = "signet:nonces"

// checkAndStoreScript runs the whole check-then-insert sequence inside
// Redis, keeping the operation atomic across processes. Entries live in
// one sorted set scored by acceptance time: a scored member means the
// nonce was consumed, and eviction pops the lowest score once the set
// exceeds capacity.
var checkAndStoreScript = redis.NewScript(`
if redis.call("ZSCORE", KEYS[1], ARGV[1]) then
  return 0
end
redis.call("ZADD", KEYS[1], ARGV[2], ARGV[1])
while redis.call("ZCARD", KEYS[1]) > tonumber(ARGV[3]) do
  redis.call("ZPOPMIN", KEYS[1])
end
return 1
`)

// RedisConfig configures a Redis store.
type RedisConfig struct {
	// Client is the connected Redis client. Required.
	Client *redis.Client

	// Key names the sorted set holding the replay history. Defaults to
	// "signet:nonces".
	Key string

	// Capacity caps the number of recorded nonces. Defaults to 100000.
	Capacity int

	// Now overrides the clock used by Stats. Defaults to time.Now.
	Now func() time.Time
}

// Redis is a Store sharing one replay history between processes. The
// at-most-once guarantee holds because the check and the insert execute
// as a single Lua script on the server.
type Redis struct {
	cfg RedisConfig
}

// NewRedis creates a Redis-backed store.
func NewRedis(cfg RedisConfig) (*Redis, error) {
	if cfg.Client == nil {
		return nil, errors.New("noncestore: redis client must not be nil")
	}

	if cfg.Key == "" {
		cfg.Key = defaultRedisKey
	}

	if cfg.Capacity <= 0 {
		cfg.Capacity = defaultCapacity
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Redis{cfg: cfg}, nil
}

// CheckAndStore implements Store.
func (r *Redis) CheckAndStore(ctx context.Context, nonce string, acceptedAt time.Time) error {
	if err := checkNonce(nonce); err != nil {
		return err
	}

	accepted, err := checkAndStoreScript.Run(ctx, r.cfg.Client,
		[]string{r.cfg.Key},
		nonce, acceptedAt.UnixMilli(), r.cfg.Capacity,
	).Int()
	if err != nil {
		return fmt.Errorf("noncestore: redis check-and-store: %w", err)
	}

	if accepted == 0 {
		return ErrAlreadySeen
	}

	return nil
}

// Stats implements Store.
func (r *Redis) Stats(ctx context.Context) (Stats, error) {
	total, err := r.cfg.Client.ZCard(ctx, r.cfg.Key).Result()
	if err != nil {
		return Stats{}, fmt.Errorf("noncestore: redis zcard: %w", err)
	}

	stats := Stats{
		TotalNonces: int(total),
		MaxCapacity: r.cfg.Capacity,
	}

	if total > 0 {
		oldest, err := r.cfg.Client.ZRangeWithScores(ctx, r.cfg.Key, 0, 0).Result()
		if err != nil {
			return Stats{}, fmt.Errorf("noncestore: redis zrange: %w", err)
		}

		if len(oldest) == 1 {
			acceptedAt := time.UnixMilli(int64(oldest[0].Score))
			age := r.cfg.Now().Sub(acceptedAt)
			stats.OldestAge = &age
		}
	}

	return stats, nil
}
