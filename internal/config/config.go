package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ServiceName    = "logitrack"
	ServiceVersion = "0.1.0"

	EnvConfigPath = "LOGITRACK_CONFIG"
)

const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite3"
	StoreMySQL  = "mysql"

	CacheRistretto = "ristretto"
	CacheBigCache  = "bigcache"
	CacheRedis     = "redis"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Cache     CacheConfig     `yaml:"cache"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Log       LogConfig       `yaml:"log"`
	Auth      AuthConfig      `yaml:"auth"`
	Seed      SeedConfig      `yaml:"seed"`
}

type ServerConfig struct {
	HTTPAddr        string        `yaml:"http_addr"`
	GRPCAddr        string        `yaml:"grpc_addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type StoreConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type CacheConfig struct {
	Backend    string        `yaml:"backend"`
	Codec      string        `yaml:"codec"`
	RedisAddr  string        `yaml:"redis_addr"`
	ListTTL    time.Duration `yaml:"list_ttl"`
	EntryTTL   time.Duration `yaml:"entry_ttl"`
	VersionTTL time.Duration `yaml:"version_ttl"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type TelemetryConfig struct {
	// OTLPEndpoint is host:port of an OTLP/HTTP collector; empty disables export
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	Insecure     bool   `yaml:"insecure"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type AuthConfig struct {
	Credentials []Credential `yaml:"credentials"`
}

type Credential struct {
	Token   string   `yaml:"token"`
	Subject string   `yaml:"subject"`
	Roles   []string `yaml:"roles"`
}

// SeedConfig lists inventory written at startup when the store is empty.
type SeedConfig struct {
	Items []SeedItem `yaml:"items"`
}

type SeedItem struct {
	Name     string `yaml:"name"`
	Quantity int    `yaml:"quantity"`
	Location string `yaml:"location"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPAddr:        ":8080",
			GRPCAddr:        ":50051",
			ShutdownTimeout: 5 * time.Second,
		},
		Store: StoreConfig{Driver: StoreMemory},
		Cache: CacheConfig{
			Backend:    CacheRistretto,
			Codec:      "msgpack",
			RedisAddr:  "localhost:6379",
			ListTTL:    60 * time.Second,
			EntryTTL:   60 * time.Second,
			VersionTTL: 24 * time.Hour,
		},
		Kafka:     KafkaConfig{Topic: "logitrack.events"},
		Telemetry: TelemetryConfig{Insecure: true},
		Log:       LogConfig{Level: "info", Format: "json"},
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (skipped when empty), then environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str("HTTP_ADDR", &c.Server.HTTPAddr)
	str("GRPC_ADDR", &c.Server.GRPCAddr)
	str("STORE_DRIVER", &c.Store.Driver)
	str("STORE_DSN", &c.Store.DSN)
	str("CACHE_BACKEND", &c.Cache.Backend)
	str("CACHE_CODEC", &c.Cache.Codec)
	str("REDIS_ADDR", &c.Cache.RedisAddr)
	str("OTEL_ENDPOINT", &c.Telemetry.OTLPEndpoint)
	str("LOG_LEVEL", &c.Log.Level)

	if v, ok := lookup("KAFKA_BROKERS"); ok && v != "" {
		c.Kafka.Brokers = splitList(v)
	}
	if v, ok := lookup("CACHE_LIST_TTL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return &ConfigError{Field: "Cache.ListTTL", Message: "invalid duration " + v}
		}
		c.Cache.ListTTL = d
	}
	return nil
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return &ConfigError{Field: "Server.HTTPAddr", Message: "must not be empty"}
	}
	if c.Server.ShutdownTimeout <= 0 {
		return &ConfigError{Field: "Server.ShutdownTimeout", Message: "must be greater than 0"}
	}

	switch c.Store.Driver {
	case StoreMemory:
	case StoreSQLite, StoreMySQL:
		if c.Store.DSN == "" {
			return &ConfigError{Field: "Store.DSN", Message: "required for driver " + c.Store.Driver}
		}
	default:
		return &ConfigError{Field: "Store.Driver", Message: "unsupported driver " + c.Store.Driver}
	}

	switch c.Cache.Backend {
	case CacheRistretto, CacheBigCache:
	case CacheRedis:
		if c.Cache.RedisAddr == "" {
			return &ConfigError{Field: "Cache.RedisAddr", Message: "required for redis backend"}
		}
	default:
		return &ConfigError{Field: "Cache.Backend", Message: "unsupported backend " + c.Cache.Backend}
	}

	if c.Cache.ListTTL <= 0 {
		return &ConfigError{Field: "Cache.ListTTL", Message: "must be greater than 0"}
	}
	if c.Cache.EntryTTL <= 0 {
		return &ConfigError{Field: "Cache.EntryTTL", Message: "must be greater than 0"}
	}
	if c.Cache.VersionTTL < c.Cache.ListTTL {
		return &ConfigError{Field: "Cache.VersionTTL", Message: "must not be shorter than Cache.ListTTL"}
	}

	for i, cred := range c.Auth.Credentials {
		if cred.Token == "" {
			return &ConfigError{Field: fmt.Sprintf("Auth.Credentials[%d].Token", i), Message: "must not be empty"}
		}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
