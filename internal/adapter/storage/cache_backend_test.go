package storage

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/logitrack/internal/port"
)

// runBackendSuite exercises the port.CacheBackend contract.
func runBackendSuite(t *testing.T, b port.CacheBackend) {
	ctx := context.Background()

	t.Run("GetMiss", func(t *testing.T) {
		v, ok, err := b.Get(ctx, "suite:missing")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, v)
	})

	t.Run("SetGet", func(t *testing.T) {
		value := []byte{0x00, 0x01, 0xff}
		require.NoError(t, b.Set(ctx, "suite:bytes", value, time.Minute))
		value[0] = 0x7f

		got, ok, err := b.Get(ctx, "suite:bytes")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, []byte{0x00, 0x01, 0xff}, got)
	})

	t.Run("SetOverwrites", func(t *testing.T) {
		require.NoError(t, b.Set(ctx, "suite:ow", []byte("one"), time.Minute))
		require.NoError(t, b.Set(ctx, "suite:ow", []byte("two"), time.Minute))

		got, _, err := b.Get(ctx, "suite:ow")
		require.NoError(t, err)
		assert.Equal(t, "two", string(got))
	})

	t.Run("SetNX", func(t *testing.T) {
		ok, err := b.SetNX(ctx, "suite:nx", []byte("first"), time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = b.SetNX(ctx, "suite:nx", []byte("second"), time.Minute)
		require.NoError(t, err)
		assert.False(t, ok)

		got, _, err := b.Get(ctx, "suite:nx")
		require.NoError(t, err)
		assert.Equal(t, "first", string(got))
	})

	t.Run("SetNXConcurrent", func(t *testing.T) {
		var winners atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, err := b.SetNX(ctx, "suite:race", []byte("v"), time.Minute)
				if err == nil && ok {
					winners.Add(1)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), winners.Load())
	})

	t.Run("Del", func(t *testing.T) {
		require.NoError(t, b.Set(ctx, "suite:del", []byte("x"), time.Minute))
		require.NoError(t, b.Del(ctx, "suite:del"))
		require.NoError(t, b.Del(ctx, "suite:del"), "deleting a missing key is not an error")

		_, ok, err := b.Get(ctx, "suite:del")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, client
}

func TestRedisAdapter_Backend(t *testing.T) {
	_, client := setupTestRedis(t)
	adapter := NewRedisAdapter(client, true)
	defer adapter.Close(context.Background())

	runBackendSuite(t, adapter)
}

func TestRedisAdapter_TTL(t *testing.T) {
	mr, client := setupTestRedis(t)
	adapter := NewRedisAdapter(client, true)
	defer adapter.Close(context.Background())
	ctx := context.Background()

	require.NoError(t, adapter.Set(ctx, "ttl:key", []byte("v"), 30*time.Second))
	assert.Equal(t, 30*time.Second, mr.TTL("ttl:key"))

	mr.FastForward(31 * time.Second)
	_, ok, err := adapter.Get(ctx, "ttl:key")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisAdapter_ServerDown(t *testing.T) {
	mr, client := setupTestRedis(t)
	adapter := NewRedisAdapter(client, true)
	defer adapter.Close(context.Background())
	mr.Close()

	_, _, err := adapter.Get(context.Background(), "k")
	assert.Error(t, err)
}

func TestRedisAdapter_BorrowedClientStaysOpen(t *testing.T) {
	_, client := setupTestRedis(t)
	defer client.Close()

	adapter := NewRedisAdapter(client, false)
	require.NoError(t, adapter.Close(context.Background()))
	assert.NoError(t, client.Ping(context.Background()).Err())
}

func getRedisClient(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		t.Skipf("Redis not available: %v", err)
	}
	return client
}

func TestRedisAdapter_RealServer(t *testing.T) {
	client := getRedisClient(t)
	adapter := NewRedisAdapter(client, true)
	defer adapter.Close(context.Background())

	ctx := context.Background()
	for _, k := range []string{"suite:bytes", "suite:ow", "suite:nx", "suite:race", "suite:del"} {
		client.Del(ctx, k)
	}
	runBackendSuite(t, adapter)
}

func TestRistrettoAdapter_Backend(t *testing.T) {
	adapter, err := NewRistrettoAdapter(DefaultRistrettoConfig())
	require.NoError(t, err)
	defer adapter.Close(context.Background())

	runBackendSuite(t, adapter)
}

func TestRistrettoAdapter_InvalidConfig(t *testing.T) {
	_, err := NewRistrettoAdapter(RistrettoConfig{})
	assert.ErrorIs(t, err, ErrInvalidRistrettoConfig)
}

func TestRistrettoAdapter_TTL(t *testing.T) {
	adapter, err := NewRistrettoAdapter(DefaultRistrettoConfig())
	require.NoError(t, err)
	defer adapter.Close(context.Background())
	ctx := context.Background()

	require.NoError(t, adapter.Set(ctx, "ttl:key", []byte("v"), 50*time.Millisecond))
	_, ok, err := adapter.Get(ctx, "ttl:key")
	require.NoError(t, err)
	require.True(t, ok)

	assert.Eventually(t, func() bool {
		_, ok, _ := adapter.Get(ctx, "ttl:key")
		return !ok
	}, 3*time.Second, 20*time.Millisecond)
}

func TestBigCacheAdapter_Backend(t *testing.T) {
	adapter, err := NewBigCacheAdapter(DefaultBigCacheConfig())
	require.NoError(t, err)
	defer adapter.Close(context.Background())

	runBackendSuite(t, adapter)
}

func TestBigCacheAdapter_TTL(t *testing.T) {
	adapter, err := NewBigCacheAdapter(DefaultBigCacheConfig())
	require.NoError(t, err)
	defer adapter.Close(context.Background())
	ctx := context.Background()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	adapter.now = func() time.Time { return now }

	require.NoError(t, adapter.Set(ctx, "ttl:key", []byte("v"), time.Minute))
	_, ok, err := adapter.Get(ctx, "ttl:key")
	require.NoError(t, err)
	require.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok, err = adapter.Get(ctx, "ttl:key")
	require.NoError(t, err)
	assert.False(t, ok)

	// an expired key no longer blocks SetNX
	set, err := adapter.SetNX(ctx, "ttl:key", []byte("w"), time.Minute)
	require.NoError(t, err)
	assert.True(t, set)
}
