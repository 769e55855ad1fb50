package storage

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/rl1809/logitrack/internal/port"
)

var (
	_ port.CacheBackend = (*RistrettoAdapter)(nil)

	ErrInvalidRistrettoConfig = errors.New("ristretto: invalid config")
	ErrSetRejected            = errors.New("cache set rejected")
)

type RistrettoConfig struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
}

func DefaultRistrettoConfig() RistrettoConfig {
	return RistrettoConfig{
		NumCounters: 1e5,
		MaxCost:     64 << 20,
		BufferItems: 64,
	}
}

// RistrettoAdapter is an in-process cache backend. Writes are serialised so
// SetNX is atomic with respect to Set; reads are lock-free.
type RistrettoAdapter struct {
	c  *ristretto.Cache
	mu sync.Mutex
}

func NewRistrettoAdapter(cfg RistrettoConfig) (*RistrettoAdapter, error) {
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 || cfg.BufferItems <= 0 {
		return nil, ErrInvalidRistrettoConfig
	}
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
	})
	if err != nil {
		return nil, err
	}
	return &RistrettoAdapter{c: c}, nil
}

func (r *RistrettoAdapter) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := r.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, _ := v.([]byte)
	if b == nil {
		r.c.Del(key)
		return nil, false, nil
	}
	return b, true, nil
}

func (r *RistrettoAdapter) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.set(key, value, ttl)
}

func (r *RistrettoAdapter) SetNX(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.c.Get(key); ok {
		return false, nil
	}
	if err := r.set(key, value, ttl); err != nil {
		return false, err
	}
	return true, nil
}

func (r *RistrettoAdapter) Del(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.c.Del(key)
	return nil
}

func (r *RistrettoAdapter) Close(context.Context) error {
	r.c.Close()
	return nil
}

// set copies value and waits for the write buffer so the entry is readable
// as soon as set returns.
func (r *RistrettoAdapter) set(key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	cp := append([]byte(nil), value...)
	if !r.c.SetWithTTL(key, cp, int64(len(cp))+int64(len(key)), ttl) {
		return ErrSetRejected
	}
	r.c.Wait()
	return nil
}
