// Package config loads mnemod configuration from defaults, an optional config
// file, and MNEMO_-prefixed environment variables, in increasing precedence.
package config

import (
	"errors"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/objones25/mnemo/internal/rag"
	"github.com/objones25/mnemo/internal/storage"
	"github.com/objones25/mnemo/internal/storage/redis"
	"github.com/objones25/mnemo/internal/ternary"
	merr "github.com/objones25/mnemo/pkg/errors"
)

// Config is the top-level mnemod configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Listen                 string `mapstructure:"listen"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds"`
}

// StorageConfig selects the durable backend and tunes the memory tier.
type StorageConfig struct {
	// Backend is one of "sqlite", "redis", or "none" for memory-only.
	Backend                string       `mapstructure:"backend"`
	CacheSize              int          `mapstructure:"cache_size"`
	AutoCleanup            bool         `mapstructure:"auto_cleanup"`
	CleanupIntervalSeconds int          `mapstructure:"cleanup_interval_seconds"`
	SQLite                 SQLiteConfig `mapstructure:"sqlite"`
	Redis                  RedisConfig  `mapstructure:"redis"`
}

// SQLiteConfig locates the SQLite database file.
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Host                 string `mapstructure:"host"`
	Port                 string `mapstructure:"port"`
	Password             string `mapstructure:"password"`
	DB                   int    `mapstructure:"db"`
	CompressionThreshold int    `mapstructure:"compression_threshold"`
}

// EmbeddingConfig selects and shapes the embedding generator.
type EmbeddingConfig struct {
	// Generator is one of "hash", "http", or "none" to disable semantic
	// scoring entirely.
	Generator string              `mapstructure:"generator"`
	Dimension int                 `mapstructure:"dimension"`
	Strategy  string              `mapstructure:"strategy"`
	HTTP      EmbeddingHTTPConfig `mapstructure:"http"`
}

// EmbeddingHTTPConfig points at a remote feature-extraction service.
type EmbeddingHTTPConfig struct {
	URL            string `mapstructure:"url"`
	APIKey         string `mapstructure:"api_key"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// RetrievalConfig tunes the retrieval scorer.
type RetrievalConfig struct {
	MaxResults         int     `mapstructure:"max_results"`
	MinRelevance       float64 `mapstructure:"min_relevance"`
	Parallel           bool    `mapstructure:"parallel"`
	NumThreads         int     `mapstructure:"num_threads"`
	ChunkSize          int     `mapstructure:"chunk_size"`
	TemporalDecay      bool    `mapstructure:"temporal_decay"`
	DecayHalfLifeHours float64 `mapstructure:"decay_half_life_hours"`
	SafeOnly           bool    `mapstructure:"safe_only"`
	SemanticWeight     float64 `mapstructure:"semantic_weight"`
}

// LogConfig controls log output.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// Load reads configuration from the given path (or defaults when empty) with
// environment variable overrides (prefix MNEMO_, dots become underscores).
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.listen", "127.0.0.1:8487")
	v.SetDefault("server.shutdown_timeout_seconds", 10)

	v.SetDefault("storage.backend", "sqlite")
	v.SetDefault("storage.cache_size", 10_000)
	v.SetDefault("storage.auto_cleanup", true)
	v.SetDefault("storage.cleanup_interval_seconds", 3600)
	v.SetDefault("storage.sqlite.path", "mnemo.db")
	v.SetDefault("storage.redis.host", "localhost")
	v.SetDefault("storage.redis.port", "6379")
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.compression_threshold", 1024)

	v.SetDefault("embedding.generator", "hash")
	v.SetDefault("embedding.dimension", 384)
	v.SetDefault("embedding.strategy", "sparse")
	v.SetDefault("embedding.http.url", "")
	v.SetDefault("embedding.http.api_key", "")
	v.SetDefault("embedding.http.timeout_seconds", 30)

	v.SetDefault("retrieval.max_results", 10)
	v.SetDefault("retrieval.min_relevance", 0.1)
	v.SetDefault("retrieval.parallel", true)
	v.SetDefault("retrieval.num_threads", 0)
	v.SetDefault("retrieval.chunk_size", 1000)
	v.SetDefault("retrieval.temporal_decay", true)
	v.SetDefault("retrieval.decay_half_life_hours", 24.0)
	v.SetDefault("retrieval.safe_only", true)
	v.SetDefault("retrieval.semantic_weight", 0.0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetEnvPrefix("MNEMO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, merr.Wrapf(err, merr.CodeConfigInvalid, "reading config %s", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, merr.Wrapf(err, merr.CodeConfigInvalid, "unmarshalling config")
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, merr.Wrapf(errors.Join(errs...), merr.CodeConfigInvalid, "validating config")
	}

	return &cfg, nil
}

// Validate checks the configuration for logical errors, collecting every
// issue instead of stopping at the first.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateServer()...)
	errs = append(errs, c.validateStorage()...)
	errs = append(errs, c.validateEmbedding()...)
	errs = append(errs, c.validateRetrieval()...)

	return errs
}

func (c *Config) validateServer() []error {
	var errs []error

	if c.Server.Listen == "" {
		errs = append(errs, merr.New(merr.CodeConfigInvalid, "config: server.listen must not be empty"))
	} else {
		_, portStr, err := net.SplitHostPort(c.Server.Listen)
		if err != nil {
			errs = append(errs, merr.Errorf(merr.CodeConfigInvalid,
				"config: server.listen must be a host:port address, got %q", c.Server.Listen))
		} else if port, err := strconv.Atoi(portStr); err != nil || port < 1 || port > 65535 {
			errs = append(errs, merr.Errorf(merr.CodeConfigInvalid,
				"config: server.listen port must be in [1, 65535], got %q", portStr))
		}
	}

	if c.Server.ShutdownTimeoutSeconds <= 0 {
		errs = append(errs, merr.Errorf(merr.CodeConfigInvalid,
			"config: server.shutdown_timeout_seconds must be greater than 0, got %d",
			c.Server.ShutdownTimeoutSeconds))
	}

	return errs
}

func (c *Config) validateStorage() []error {
	var errs []error

	switch c.Storage.Backend {
	case "sqlite":
		if c.Storage.SQLite.Path == "" {
			errs = append(errs, merr.New(merr.CodeConfigInvalid,
				"config: storage.sqlite.path must not be empty for the sqlite backend"))
		}
	case "redis":
		if c.Storage.Redis.Host == "" || c.Storage.Redis.Port == "" {
			errs = append(errs, merr.New(merr.CodeConfigInvalid,
				"config: storage.redis.host and storage.redis.port must not be empty for the redis backend"))
		}
	case "none":
	default:
		errs = append(errs, merr.Errorf(merr.CodeConfigInvalid,
			"config: storage.backend must be one of [sqlite, redis, none], got %q",
			c.Storage.Backend))
	}

	if c.Storage.CacheSize <= 0 {
		errs = append(errs, merr.Errorf(merr.CodeConfigInvalid,
			"config: storage.cache_size must be greater than 0, got %d", c.Storage.CacheSize))
	}

	if c.Storage.AutoCleanup && c.Storage.CleanupIntervalSeconds <= 0 {
		errs = append(errs, merr.Errorf(merr.CodeConfigInvalid,
			"config: storage.cleanup_interval_seconds must be greater than 0 when auto_cleanup is on, got %d",
			c.Storage.CleanupIntervalSeconds))
	}

	return errs
}

func (c *Config) validateEmbedding() []error {
	var errs []error

	switch c.Embedding.Generator {
	case "hash":
		if c.Embedding.Dimension < 1 {
			errs = append(errs, merr.Errorf(merr.CodeConfigInvalid,
				"config: embedding.dimension must be at least 1, got %d", c.Embedding.Dimension))
		}
	case "http":
		if c.Embedding.Dimension < 1 {
			errs = append(errs, merr.Errorf(merr.CodeConfigInvalid,
				"config: embedding.dimension must be at least 1, got %d", c.Embedding.Dimension))
		}
		if c.Embedding.HTTP.URL == "" {
			errs = append(errs, merr.New(merr.CodeConfigInvalid,
				"config: embedding.http.url must not be empty for the http generator"))
		}
	case "none":
	default:
		errs = append(errs, merr.Errorf(merr.CodeConfigInvalid,
			"config: embedding.generator must be one of [hash, http, none], got %q",
			c.Embedding.Generator))
	}

	if c.Embedding.Generator != "none" {
		if _, err := ternary.ParseStrategy(c.Embedding.Strategy); err != nil {
			errs = append(errs, merr.Errorf(merr.CodeConfigInvalid,
				"config: embedding.strategy must be one of [sparse, rvq, hybrid], got %q",
				c.Embedding.Strategy))
		}
	}

	return errs
}

func (c *Config) validateRetrieval() []error {
	var errs []error

	if c.Retrieval.MaxResults <= 0 {
		errs = append(errs, merr.Errorf(merr.CodeConfigInvalid,
			"config: retrieval.max_results must be greater than 0, got %d", c.Retrieval.MaxResults))
	}
	if c.Retrieval.MinRelevance < 0 {
		errs = append(errs, merr.Errorf(merr.CodeConfigInvalid,
			"config: retrieval.min_relevance must not be negative, got %g", c.Retrieval.MinRelevance))
	}
	if c.Retrieval.ChunkSize <= 0 {
		errs = append(errs, merr.Errorf(merr.CodeConfigInvalid,
			"config: retrieval.chunk_size must be greater than 0, got %d", c.Retrieval.ChunkSize))
	}
	if c.Retrieval.DecayHalfLifeHours <= 0 {
		errs = append(errs, merr.Errorf(merr.CodeConfigInvalid,
			"config: retrieval.decay_half_life_hours must be greater than 0, got %g",
			c.Retrieval.DecayHalfLifeHours))
	}
	if c.Retrieval.SemanticWeight < 0 || c.Retrieval.SemanticWeight > 1 {
		errs = append(errs, merr.Errorf(merr.CodeConfigInvalid,
			"config: retrieval.semantic_weight must be in [0, 1], got %g", c.Retrieval.SemanticWeight))
	}

	return errs
}

// StoreConfig maps the storage section onto the context store's configuration.
func (c StorageConfig) StoreConfig() storage.Config {
	return storage.Config{
		MemoryCacheSize:   c.CacheSize,
		AutoCleanup:       c.AutoCleanup,
		CleanupInterval:   time.Duration(c.CleanupIntervalSeconds) * time.Second,
		EnablePersistence: c.Backend != "none",
	}
}

// BackendConfig maps the redis section onto the redis backend's configuration.
func (c RedisConfig) BackendConfig() redis.Config {
	return redis.Config{
		Host:                 c.Host,
		Port:                 c.Port,
		Password:             c.Password,
		DB:                   c.DB,
		CompressionThreshold: c.CompressionThreshold,
	}
}

// RagConfig maps the retrieval section onto the processor's configuration.
func (c RetrievalConfig) RagConfig() rag.Config {
	return rag.Config{
		MaxResults:         c.MaxResults,
		MinRelevance:       c.MinRelevance,
		Parallel:           c.Parallel,
		NumThreads:         c.NumThreads,
		ChunkSize:          c.ChunkSize,
		TemporalDecay:      c.TemporalDecay,
		DecayHalfLifeHours: c.DecayHalfLifeHours,
		SafeOnly:           c.SafeOnly,
		SemanticWeight:     c.SemanticWeight,
	}
}

// ParsedStrategy returns the quantization strategy as its typed form.
func (c EmbeddingConfig) ParsedStrategy() (ternary.Strategy, error) {
	return ternary.ParseStrategy(c.Strategy)
}
