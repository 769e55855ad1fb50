package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rl1809/logitrack/internal/adapter/auth"
	"github.com/rl1809/logitrack/internal/adapter/messaging"
	"github.com/rl1809/logitrack/internal/adapter/storage"
	"github.com/rl1809/logitrack/internal/cache"
	"github.com/rl1809/logitrack/internal/config"
	"github.com/rl1809/logitrack/internal/core/service"
	"github.com/rl1809/logitrack/internal/port"
)

func openStore(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (port.Store, error) {
	if cfg.Driver == config.StoreMemory {
		logger.Info("using in-memory store")
		return storage.NewMemoryAdapter(), nil
	}

	dsn := cfg.DSN
	if cfg.Driver == config.StoreMySQL {
		var err error
		if dsn, err = mysqlDSN(dsn); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}
	if cfg.Driver == config.StoreSQLite {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(50)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Driver, err)
	}

	store := storage.NewSQLAdapter(db, cfg.Driver)
	if err := store.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	logger.Info("connected to database", zap.String("driver", cfg.Driver))
	return store, nil
}

// mysqlDSN forces the options the store relies on: DATETIME columns scanned
// into time.Time, in UTC.
func mysqlDSN(dsn string) (string, error) {
	mc, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("mysql dsn: %w", err)
	}
	mc.ParseTime = true
	mc.Loc = time.UTC
	return mc.FormatDSN(), nil
}

func openCache(ctx context.Context, cfg config.CacheConfig, logger *zap.Logger) (*cache.Layer, error) {
	var backend port.CacheBackend
	switch cfg.Backend {
	case config.CacheRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			PoolSize: 100,
		})
		// An unreachable Redis degrades reads to the store, so startup
		// only warns.
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, cache will run degraded", zap.Error(err))
		}
		backend = storage.NewRedisAdapter(rdb, true)
	case config.CacheBigCache:
		b, err := storage.NewBigCacheAdapter(storage.DefaultBigCacheConfig())
		if err != nil {
			return nil, fmt.Errorf("bigcache: %w", err)
		}
		backend = b
	default:
		r, err := storage.NewRistrettoAdapter(storage.DefaultRistrettoConfig())
		if err != nil {
			return nil, err
		}
		backend = r
	}

	codec, err := cache.NewCodec(cfg.Codec)
	if err != nil {
		backend.Close(ctx)
		return nil, err
	}

	logger.Info("cache ready", zap.String("backend", cfg.Backend), zap.String("codec", codec.Name()))
	return cache.New(cache.Options{
		Backend:    backend,
		Codec:      codec,
		Logger:     logger,
		VersionTTL: cfg.VersionTTL,
	})
}

func openPublisher(cfg config.KafkaConfig, logger *zap.Logger) (port.EventPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return messaging.NopPublisher{}, nil
	}
	p, err := messaging.NewKafkaPublisher(messaging.KafkaConfig{
		Brokers: cfg.Brokers,
		Topic:   cfg.Topic,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("publishing events to kafka", zap.Strings("brokers", cfg.Brokers), zap.String("topic", cfg.Topic))
	return p, nil
}

func credentials(cfg config.AuthConfig) []auth.Credential {
	out := make([]auth.Credential, 0, len(cfg.Credentials))
	for _, c := range cfg.Credentials {
		out = append(out, auth.Credential(c))
	}
	return out
}

func seedInputs(cfg config.SeedConfig) []service.InventoryInput {
	out := make([]service.InventoryInput, 0, len(cfg.Items))
	for _, it := range cfg.Items {
		out = append(out, service.InventoryInput{Name: it.Name, Quantity: it.Quantity, Location: it.Location})
	}
	return out
}
