package storage

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/logitrack/internal/port"
)

var _ port.CacheBackend = (*RedisAdapter)(nil)

// RedisAdapter is a cache backend shared by every replica of the service.
type RedisAdapter struct {
	client      redis.UniversalClient
	closeClient bool
}

// NewRedisAdapter wraps client. When closeClient is true the adapter owns the
// client and closes it on Close.
func NewRedisAdapter(client redis.UniversalClient, closeClient bool) *RedisAdapter {
	return &RedisAdapter{client: client, closeClient: closeClient}
}

func (r *RedisAdapter) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (r *RedisAdapter) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *RedisAdapter) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

func (r *RedisAdapter) Del(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r *RedisAdapter) Close(context.Context) error {
	if !r.closeClient {
		return nil
	}
	if err := r.client.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
		return err
	}
	return nil
}
