package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis implements Cache on top of a go-redis client.
type Redis struct {
	client *redis.Client
}

// Nil is returned by read operations when the key does not exist.
const Nil = redis.Nil

// Wrap adapts an existing client to the Cache interface.
func Wrap(client *redis.Client) Cache {
	return &Redis{client: client}
}

// NewScript implements Cache.
func NewScript(script string) *redis.Script {
	return redis.NewScript(script)
}

func (r *Redis) SetInt64(ctx context.Context, key string, value int64, exp time.Duration) error {
	if err := r.client.Set(ctx, key, value, exp).Err(); err != nil {
		return err
	}
	return nil
}

func (r *Redis) GetInt64(ctx context.Context, key string) (int64, error) {
	val, err := r.client.Get(ctx, key).Int64()
	if err != nil {
		return 0, err
	}
	return val, nil
}

// ScriptRun implements Cache.
func (r *Redis) ScriptRun(ctx context.Context, script *redis.Script, keys []string, args ...any) (any, error) {
	conn := r.client.Conn()
	defer conn.Close()

	return script.Run(ctx, conn, keys, args...).Result()
}

// Del implements Cache.
func (r *Redis) Del(ctx context.Context, keys ...string) (int64, error) {
	return r.client.Del(ctx, keys...).Result()
}
