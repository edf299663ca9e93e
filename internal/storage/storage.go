// Package storage implements the multi-tier context store: a bounded
// in-memory LRU cache over an optional durable backend, with domain and tag
// secondary indices kept consistent across store, delete, and eviction.
package storage

import (
	"context"
	"time"

	"github.com/objones25/mnemo/internal/memory"
)

// Backend is the durable tier beneath the memory cache. Implementations must
// be safe for concurrent use. Get returns (nil, nil) when the id is absent.
type Backend interface {
	// Put writes or overwrites an entry.
	Put(ctx context.Context, e *memory.Entry) error

	// Get retrieves an entry by id, nil when not present.
	Get(ctx context.Context, id memory.ID) (*memory.Entry, error)

	// Delete removes an entry, reporting whether it was present.
	Delete(ctx context.Context, id memory.ID) (bool, error)

	// All returns every stored entry, used for index rebuilds and inspection.
	All(ctx context.Context) ([]*memory.Entry, error)

	// Count reports the number of stored entries.
	Count(ctx context.Context) (int, error)

	// Health checks the backing connection.
	Health(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

// Config controls the store's cache bound and background cleanup.
type Config struct {
	// MemoryCacheSize bounds the number of entries held in memory.
	MemoryCacheSize int
	// AutoCleanup starts a background reaper for expired entries.
	AutoCleanup bool
	// CleanupInterval is the reaper period.
	CleanupInterval time.Duration
	// EnablePersistence gates the durable tier; when false any provided
	// backend is ignored.
	EnablePersistence bool
}

// DefaultConfig matches the defaults the store has always shipped with:
// ten thousand cached entries, hourly cleanup, persistence on.
func DefaultConfig() Config {
	return Config{
		MemoryCacheSize:   10_000,
		AutoCleanup:       true,
		CleanupInterval:   time.Hour,
		EnablePersistence: true,
	}
}

// MemoryOnly configures a store with no durable tier.
func MemoryOnly(cacheSize int) Config {
	cfg := DefaultConfig()
	cfg.MemoryCacheSize = cacheSize
	cfg.EnablePersistence = false
	return cfg
}

// WithPersistence configures a store backed by a durable tier.
func WithPersistence(cacheSize int) Config {
	cfg := DefaultConfig()
	cfg.MemoryCacheSize = cacheSize
	return cfg
}

// Stats is a point-in-time snapshot of tier occupancy.
type Stats struct {
	MemoryCount   int `json:"memory_count"`
	DiskCount     int `json:"disk_count"`
	CacheCapacity int `json:"cache_capacity"`
}

// VerifyResult reports index consistency findings.
type VerifyResult struct {
	IndexedIDs     int           `json:"indexed_ids"`
	Dangling       int           `json:"dangling"`
	Duration       time.Duration `json:"duration"`
	DanglingSample []memory.ID   `json:"dangling_sample,omitempty"`
}
