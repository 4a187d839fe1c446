package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/travelintel/dealengine/internal/ierrors"
)

// Redis is the production Cache backend.
type Redis struct {
	client *redis.Client
}

func NewRedis(dsn string) (*Redis, error) {
	opts, err := redis.ParseURL(dsn)
	if err != nil {
		return nil, ierrors.Validation("cache.new_redis", "invalid redis dsn")
	}
	return &Redis{client: redis.NewClient(opts)}, nil
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, ierrors.Transient("cache.get", key, err)
	}
	return v, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return ierrors.Transient("cache.set", key, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return ierrors.Transient("cache.delete", key, err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
