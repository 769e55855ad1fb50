package storage

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"time"

	"github.com/allegro/bigcache/v3"

	"github.com/rl1809/logitrack/internal/port"
)

var _ port.CacheBackend = (*BigCacheAdapter)(nil)

const expiryHeaderLen = 8

type BigCacheConfig struct {
	// LifeWindow is the upper bound on any entry's lifetime
	LifeWindow         time.Duration
	CleanWindow        time.Duration
	HardMaxCacheSizeMB int
}

func DefaultBigCacheConfig() BigCacheConfig {
	return BigCacheConfig{
		LifeWindow:         24 * time.Hour,
		CleanWindow:        5 * time.Minute,
		HardMaxCacheSizeMB: 256,
	}
}

// BigCacheAdapter is an in-process cache backend. BigCache only expires
// entries by a global life window, so every value carries its own absolute
// expiry in an 8-byte header that Get checks.
type BigCacheAdapter struct {
	c   *bigcache.BigCache
	mu  sync.Mutex
	now func() time.Time
}

func NewBigCacheAdapter(cfg BigCacheConfig) (*BigCacheAdapter, error) {
	conf := bigcache.DefaultConfig(cfg.LifeWindow)
	if cfg.CleanWindow > 0 {
		conf.CleanWindow = cfg.CleanWindow
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	conf.Verbose = false

	c, err := bigcache.New(context.Background(), conf)
	if err != nil {
		return nil, err
	}
	return &BigCacheAdapter{c: c, now: time.Now}, nil
}

func (b *BigCacheAdapter) Get(_ context.Context, key string) ([]byte, bool, error) {
	return b.get(key)
}

func (b *BigCacheAdapter) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.c.Set(key, b.wrap(value, ttl))
}

func (b *BigCacheAdapter) SetNX(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, ok, err := b.get(key)
	if err != nil {
		return false, err
	}
	if ok {
		return false, nil
	}
	if err := b.c.Set(key, b.wrap(value, ttl)); err != nil {
		return false, err
	}
	return true, nil
}

func (b *BigCacheAdapter) Del(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	err := b.c.Delete(key)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return nil
	}
	return err
}

func (b *BigCacheAdapter) Close(context.Context) error {
	return b.c.Close()
}

func (b *BigCacheAdapter) get(key string) ([]byte, bool, error) {
	raw, err := b.c.Get(key)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if len(raw) < expiryHeaderLen {
		_ = b.c.Delete(key)
		return nil, false, nil
	}
	exp := int64(binary.BigEndian.Uint64(raw[:expiryHeaderLen]))
	if exp != 0 && b.now().UnixNano() >= exp {
		_ = b.c.Delete(key)
		return nil, false, nil
	}
	return raw[expiryHeaderLen:], true, nil
}

func (b *BigCacheAdapter) wrap(value []byte, ttl time.Duration) []byte {
	var exp int64
	if ttl > 0 {
		exp = b.now().Add(ttl).UnixNano()
	}
	out := make([]byte, expiryHeaderLen+len(value))
	binary.BigEndian.PutUint64(out, uint64(exp))
	copy(out[expiryHeaderLen:], value)
	return out
}
