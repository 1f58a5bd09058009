package security

import (
	"context"
	"fmt"
	"time"

	"github.com/BradenHooton/giftgate/internal/clock"
	"github.com/redis/go-redis/v9"
)

// redisWindowScript increments a fixed-window counter atomically.
// KEYS[1] = window key
// ARGV[1] = window length in milliseconds
// Returns {count, remaining ttl in milliseconds}
var redisWindowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
    redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
    redis.call("PEXPIRE", KEYS[1], ARGV[1])
    ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// RedisWindowStore shares the rate-limit table between API instances
type RedisWindowStore struct {
	client redis.UniversalClient
	clock  clock.Clock
	prefix string
}

// NewRedisWindowStore creates a store backed by client. Keys are namespaced with prefix.
func NewRedisWindowStore(client redis.UniversalClient, c clock.Clock, prefix string) *RedisWindowStore {
	return &RedisWindowStore{
		client: client,
		clock:  c,
		prefix: prefix,
	}
}

func (s *RedisWindowStore) Hit(ctx context.Context, key string, window time.Duration) (Window, error) {
	res, err := redisWindowScript.Run(ctx, s.client, []string{s.prefix + key}, window.Milliseconds()).Result()
	if err != nil {
		return Window{}, fmt.Errorf("redis rate limit error: %w", err)
	}

	results, ok := res.([]interface{})
	if !ok || len(results) != 2 {
		return Window{}, fmt.Errorf("invalid response from rate limit script")
	}

	count, _ := results[0].(int64)
	ttl, _ := results[1].(int64)

	return Window{
		Count:   int(count),
		ResetAt: s.clock.Now().Add(time.Duration(ttl) * time.Millisecond),
	}, nil
}
