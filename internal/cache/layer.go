package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rl1809/logitrack/internal/port"
)

const (
	DefaultVersionTTL = 24 * time.Hour
	DefaultListTTL    = 60 * time.Second
	DefaultEntryTTL   = 60 * time.Second
)

var ErrNilBackend = errors.New("cache: backend is required")

// Options configure a Layer. Only Backend is required.
type Options struct {
	Backend    port.CacheBackend
	Codec      Codec         // nil => msgpack
	Logger     *zap.Logger   // nil => no-op
	VersionTTL time.Duration // 0 => DefaultVersionTTL

	// NewToken allocates version tokens; nil => random UUIDs
	NewToken func() VersionToken
}

// Stats are cumulative counters since the layer was created.
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Errors int64 `json:"errors"`
}

// Layer is the process-wide cache shared by all request handlers.
type Layer struct {
	backend    port.CacheBackend
	codec      Codec
	log        *zap.Logger
	versionTTL time.Duration
	newToken   func() VersionToken

	hits   atomic.Int64
	misses atomic.Int64
	errors atomic.Int64
}

func New(opts Options) (*Layer, error) {
	if opts.Backend == nil {
		return nil, ErrNilBackend
	}

	l := &Layer{
		backend:    opts.Backend,
		codec:      opts.Codec,
		log:        opts.Logger,
		versionTTL: opts.VersionTTL,
		newToken:   opts.NewToken,
	}
	if l.codec == nil {
		l.codec = MsgpackCodec{}
	}
	if l.log == nil {
		l.log = zap.NewNop()
	}
	if l.versionTTL <= 0 {
		l.versionTTL = DefaultVersionTTL
	}
	if l.newToken == nil {
		l.newToken = func() VersionToken { return VersionToken(uuid.NewString()) }
	}
	return l, nil
}

// GetOrInitVersion returns the current token for c, installing a new one with
// set-if-absent when there is none. If the backend is unreachable the result
// is a fresh token nobody has written under, so the caller simply misses.
func (l *Layer) GetOrInitVersion(ctx context.Context, c Collection) VersionToken {
	key := c.VersionKey()

	raw, ok, err := l.backend.Get(ctx, key)
	if err != nil {
		l.fail("version get", key, err)
		return l.newToken()
	}
	if ok {
		return VersionToken(raw)
	}

	token := l.newToken()
	set, err := l.backend.SetNX(ctx, key, []byte(token), l.versionTTL)
	if err != nil {
		l.fail("version init", key, err)
		return token
	}
	if set {
		return token
	}

	// lost the race to a concurrent initializer; adopt its token
	raw, ok, err = l.backend.Get(ctx, key)
	if err != nil || !ok {
		if err != nil {
			l.fail("version get", key, err)
		}
		return token
	}
	return VersionToken(raw)
}

// BumpVersion replaces the token for c, orphaning every list entry written
// under previous tokens. Must only be called after the write it protects has
// committed.
func (l *Layer) BumpVersion(ctx context.Context, c Collection) VersionToken {
	key := c.VersionKey()
	token := l.newToken()
	if err := l.backend.Set(ctx, key, []byte(token), l.versionTTL); err != nil {
		l.fail("version bump", key, err)
	}
	return token
}

func (l *Layer) RemoveByID(ctx context.Context, c Collection, id int64) {
	key := c.IDKey(id)
	if err := l.backend.Del(ctx, key); err != nil {
		l.fail("remove", key, err)
	}
}

func (l *Layer) Stats() Stats {
	return Stats{
		Hits:   l.hits.Load(),
		Misses: l.misses.Load(),
		Errors: l.errors.Load(),
	}
}

func (l *Layer) Close(ctx context.Context) error {
	return l.backend.Close(ctx)
}

// TryGetList returns the projection stored for c under version v.
func TryGetList[T any](ctx context.Context, l *Layer, c Collection, v VersionToken) ([]T, bool) {
	var items []T
	if !l.get(ctx, c.ListKey(v), &items) {
		return nil, false
	}
	return items, true
}

// PutList stores items for c under version v. A ttl of 0 uses DefaultListTTL.
func PutList[T any](ctx context.Context, l *Layer, c Collection, v VersionToken, items []T, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultListTTL
	}
	l.put(ctx, c.ListKey(v), items, ttl)
}

func GetByID[T any](ctx context.Context, l *Layer, c Collection, id int64) (T, bool) {
	var v T
	if !l.get(ctx, c.IDKey(id), &v) {
		var zero T
		return zero, false
	}
	return v, true
}

// PutByID stores a single entity. A ttl of 0 uses DefaultEntryTTL.
func PutByID[T any](ctx context.Context, l *Layer, c Collection, id int64, value T, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultEntryTTL
	}
	l.put(ctx, c.IDKey(id), value, ttl)
}

func (l *Layer) get(ctx context.Context, key string, dst any) bool {
	raw, ok, err := l.backend.Get(ctx, key)
	if err != nil {
		l.fail("get", key, err)
		l.misses.Add(1)
		return false
	}
	if !ok {
		l.misses.Add(1)
		return false
	}
	if err := l.codec.Unmarshal(raw, dst); err != nil {
		// drop undecodable entries so the next read repopulates
		l.fail("decode", key, err)
		_ = l.backend.Del(ctx, key)
		l.misses.Add(1)
		return false
	}
	l.hits.Add(1)
	return true
}

func (l *Layer) put(ctx context.Context, key string, value any, ttl time.Duration) {
	raw, err := l.codec.Marshal(value)
	if err != nil {
		l.fail("encode", key, err)
		return
	}
	if err := l.backend.Set(ctx, key, raw, ttl); err != nil {
		l.fail("set", key, err)
	}
}

func (l *Layer) fail(op, key string, err error) {
	l.errors.Add(1)
	l.log.Warn("cache degraded", zap.String("op", op), zap.String("key", key), zap.Error(err))
}
