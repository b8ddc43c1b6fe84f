package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is the slice of redis this application relies on: integer counters
// for like counts, script execution for the Bloom filter bitset and key
// deletion for filter resets.
type Cache interface {
	SetInt64(ctx context.Context, key string, value int64, exp time.Duration) error
	GetInt64(ctx context.Context, key string) (int64, error)

	ScriptRun(ctx context.Context, script *redis.Script, keys []string,
		args ...any) (any, error)

	Del(ctx context.Context, keys ...string) (int64, error)
}
