// Package redis provides a durable storage backend on Redis. Entries are
// stored as JSON values, gzipped past a size threshold, with a set of all
// ids alongside so the store can rebuild its indices with one scan.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/objones25/mnemo/internal/memory"
	"github.com/objones25/mnemo/internal/storage"
	"github.com/objones25/mnemo/internal/storage/compression"
	merr "github.com/objones25/mnemo/pkg/errors"
)

const (
	entryKeyPrefix = "mnemo:entry:"
	indexKey       = "mnemo:entries"

	defaultMaxRetries   = 3
	defaultPoolSize     = 10
	defaultMinIdleConns = 5

	// scanBatchSize bounds how many GETs ride one pipeline during All.
	scanBatchSize = 200
)

type Config struct {
	Host         string
	Port         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	MaxRetries   int
	// CompressionThreshold in bytes; payloads above it are gzipped.
	CompressionThreshold int
	// EntryTTL lets Redis expire records on its own when positive. Zero
	// keeps entries until deleted, which is what a durable tier wants.
	EntryTTL time.Duration
}

// Backend stores context entries in Redis.
type Backend struct {
	client     *redis.Client
	compressor *compression.Compressor
	ttl        time.Duration
}

var _ storage.Backend = (*Backend)(nil)

func NewBackend(cfg Config) (*Backend, error) {
	// Set defaults for optional configuration
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = defaultPoolSize
	}
	if cfg.MinIdleConns <= 0 {
		cfg.MinIdleConns = defaultMinIdleConns
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}

	if cfg.Host == "" {
		return nil, merr.New(merr.CodeConfigInvalid, "redis host cannot be empty")
	}
	if cfg.Port == "" {
		return nil, merr.New(merr.CodeConfigInvalid, "redis port cannot be empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Host + ":" + cfg.Port,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolTimeout:  4 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &Backend{
		client:     client,
		compressor: compression.New(cfg.CompressionThreshold),
		ttl:        cfg.EntryTTL,
	}, nil
}

func (b *Backend) Put(ctx context.Context, e *memory.Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return merr.Wrapf(err, merr.CodeSerialization, "encode entry %s", e.ID)
	}
	payload, err := b.compressor.Compress(data)
	if err != nil {
		return merr.Wrapf(err, merr.CodeSerialization, "compress entry %s", e.ID)
	}

	pipe := b.client.Pipeline()
	pipe.Set(ctx, entryKey(e.ID), payload, b.ttl)
	pipe.SAdd(ctx, indexKey, string(e.ID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("put entry: %w", err)
	}
	return nil
}

func (b *Backend) Get(ctx context.Context, id memory.ID) (*memory.Entry, error) {
	data, err := b.client.Get(ctx, entryKey(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}
	return b.decode(id, data)
}

func (b *Backend) Delete(ctx context.Context, id memory.ID) (bool, error) {
	pipe := b.client.Pipeline()
	removed := pipe.SRem(ctx, indexKey, string(id))
	pipe.Del(ctx, entryKey(id))
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("delete entry: %w", err)
	}
	return removed.Val() > 0, nil
}

func (b *Backend) All(ctx context.Context) ([]*memory.Entry, error) {
	ids, err := b.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list entry ids: %w", err)
	}

	entries := make([]*memory.Entry, 0, len(ids))
	for start := 0; start < len(ids); start += scanBatchSize {
		end := start + scanBatchSize
		if end > len(ids) {
			end = len(ids)
		}

		pipe := b.client.Pipeline()
		cmds := make([]*redis.StringCmd, 0, end-start)
		for _, id := range ids[start:end] {
			cmds = append(cmds, pipe.Get(ctx, entryKeyPrefix+id))
		}
		if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
			return nil, fmt.Errorf("batch get entries: %w", err)
		}

		for i, cmd := range cmds {
			data, err := cmd.Bytes()
			if err == redis.Nil {
				// The id set can lag a record Redis expired on its own.
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("batch get entries: %w", err)
			}
			e, err := b.decode(memory.ID(ids[start+i]), data)
			if err != nil {
				return nil, err
			}
			entries = append(entries, e)
		}
	}
	return entries, nil
}

func (b *Backend) Count(ctx context.Context) (int, error) {
	n, err := b.client.SCard(ctx, indexKey).Result()
	if err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return int(n), nil
}

func (b *Backend) Health(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

func (b *Backend) Close() error {
	return b.client.Close()
}

func (b *Backend) decode(id memory.ID, data []byte) (*memory.Entry, error) {
	data, err := b.compressor.Decompress(data)
	if err != nil {
		return nil, merr.Wrapf(err, merr.CodeSerialization, "decompress entry %s", id)
	}
	var e memory.Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, merr.Wrapf(err, merr.CodeSerialization, "decode entry %s", id)
	}
	return &e, nil
}

func entryKey(id memory.ID) string {
	return entryKeyPrefix + string(id)
}
