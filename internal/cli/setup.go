package cli

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/objones25/mnemo/internal/config"
	"github.com/objones25/mnemo/internal/embedding"
	"github.com/objones25/mnemo/internal/storage"
	"github.com/objones25/mnemo/internal/storage/redis"
	"github.com/objones25/mnemo/internal/storage/sqlite"
)

// openStore builds the configured durable backend and opens the context store
// over it. The caller owns the returned store and must Close it.
func openStore(ctx context.Context, cfg *config.Config) (*storage.ContextStore, error) {
	var backend storage.Backend
	switch cfg.Storage.Backend {
	case "sqlite":
		b, err := sqlite.Open(cfg.Storage.SQLite.Path)
		if err != nil {
			return nil, err
		}
		backend = b
		log.Info().Str("path", cfg.Storage.SQLite.Path).Msg("sqlite backend ready")
	case "redis":
		b, err := redis.NewBackend(cfg.Storage.Redis.BackendConfig())
		if err != nil {
			return nil, err
		}
		backend = b
		log.Info().
			Str("host", cfg.Storage.Redis.Host).
			Str("port", cfg.Storage.Redis.Port).
			Msg("redis backend ready")
	case "none":
		log.Info().Msg("running memory-only, entries will not survive restart")
	}

	store, err := storage.Open(ctx, cfg.Storage.StoreConfig(), backend)
	if err != nil {
		if backend != nil {
			backend.Close()
		}
		return nil, err
	}
	return store, nil
}

// buildGenerator constructs the configured embedding generator wrapped in the
// ternary codec, or nil when semantic scoring is disabled.
func buildGenerator(cfg *config.Config) (embedding.QuantizedGenerator, error) {
	var base embedding.Generator
	switch cfg.Embedding.Generator {
	case "hash":
		g, err := embedding.NewHashGenerator(cfg.Embedding.Dimension)
		if err != nil {
			return nil, err
		}
		base = g
	case "http":
		g, err := embedding.NewHTTPGenerator(embedding.HTTPConfig{
			URL:            cfg.Embedding.HTTP.URL,
			APIKey:         cfg.Embedding.HTTP.APIKey,
			Dimension:      cfg.Embedding.Dimension,
			TimeoutSeconds: cfg.Embedding.HTTP.TimeoutSeconds,
		})
		if err != nil {
			return nil, err
		}
		base = g
	case "none":
		return nil, nil
	}

	strategy, err := cfg.Embedding.ParsedStrategy()
	if err != nil {
		return nil, err
	}
	return embedding.NewTernaryGenerator(base, strategy)
}
