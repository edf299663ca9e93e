package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/objones25/mnemo/internal/memory"
	merr "github.com/objones25/mnemo/pkg/errors"
)

// ContextStore is the tiered store for context entries. A bounded LRU cache
// holds the hot working set while an optional Backend keeps every entry
// durable. Domain and tag indices cover both tiers and survive restarts by
// being rebuilt from the backend at Open.
type ContextStore struct {
	cache   *lru.Cache[memory.ID, *memory.Entry]
	backend Backend
	cfg     Config

	domainMu sync.RWMutex
	domains  map[memory.Domain][]memory.ID

	tagMu sync.RWMutex
	tags  map[string][]memory.ID

	// deleting suppresses the eviction callback for ids removed through
	// Delete, so explicit removal is not counted as a capacity eviction.
	deletingMu sync.Mutex
	deleting   map[memory.ID]struct{}

	done      chan struct{}
	closeOnce sync.Once
}

// Open builds a ContextStore from cfg. backend may be nil for a memory-only
// store; it is also ignored when cfg.EnablePersistence is false. When a
// backend is in play its contents are scanned once to rebuild the domain and
// tag indices.
func Open(ctx context.Context, cfg Config, backend Backend) (*ContextStore, error) {
	if cfg.MemoryCacheSize <= 0 {
		return nil, merr.Errorf(merr.CodeConfigInvalid, "memory cache size must be positive, got %d", cfg.MemoryCacheSize)
	}
	if !cfg.EnablePersistence {
		backend = nil
	}

	s := &ContextStore{
		backend:  backend,
		cfg:      cfg,
		domains:  make(map[memory.Domain][]memory.ID),
		tags:     make(map[string][]memory.ID),
		deleting: make(map[memory.ID]struct{}),
		done:     make(chan struct{}),
	}

	cache, err := lru.NewWithEvict[memory.ID, *memory.Entry](cfg.MemoryCacheSize, s.onEvict)
	if err != nil {
		return nil, merr.Wrap(err, merr.CodeConfigInvalid, "create memory cache")
	}
	s.cache = cache

	if s.backend != nil {
		if err := s.rebuildIndexes(ctx); err != nil {
			return nil, err
		}
	}

	if cfg.AutoCleanup {
		interval := cfg.CleanupInterval
		if interval <= 0 {
			interval = time.Hour
		}
		go s.cleanupLoop(interval)
	}

	log.Info().
		Int("cache_size", cfg.MemoryCacheSize).
		Bool("persistent", s.backend != nil).
		Bool("auto_cleanup", cfg.AutoCleanup).
		Msg("context store opened")

	return s, nil
}

// onEvict runs under the cache's internal lock. It must not call back into
// the cache. Index pruning happens only for memory-only stores; with a
// backend the entry remains durable and stays queryable through its indices.
func (s *ContextStore) onEvict(id memory.ID, e *memory.Entry) {
	if s.isDeleting(id) {
		return
	}
	cacheEvictions.Inc()
	if s.backend == nil {
		s.unindex(e)
	}
	log.Debug().Str("id", string(id)).Msg("entry evicted from memory tier")
}

// Store writes e into the memory tier, indexes it, and persists it when a
// backend is configured. The entry is cloned on the way in, so the caller
// keeps ownership of e. Re-storing an id replaces its index entries in place
// of appending duplicates; if the prior variant was already evicted from the
// memory tier, its index rows linger until the next rebuild at open (Verify
// reports them in the meantime). A persistence failure leaves the memory
// tier updated and returns a storage error.
func (s *ContextStore) Store(ctx context.Context, e *memory.Entry) (memory.ID, error) {
	if e == nil {
		return "", merr.New(merr.CodeRequestInvalid, "entry cannot be nil")
	}
	timer := prometheus.NewTimer(storeLatency.WithLabelValues("store"))
	defer timer.ObserveDuration()

	entry := e.Clone()
	if old, ok := s.cache.Peek(entry.ID); ok {
		s.unindex(old)
	}
	s.index(entry)
	s.cache.Add(entry.ID, entry)
	entriesInMemory.Set(float64(s.cache.Len()))

	if s.backend != nil {
		if err := s.backend.Put(ctx, entry); err != nil {
			storeOperations.WithLabelValues("store", "error").Inc()
			return "", merr.Wrapf(err, merr.CodeBackendFailure, "persist entry %s", entry.ID)
		}
	}

	storeOperations.WithLabelValues("store", "success").Inc()
	log.Debug().
		Str("id", string(entry.ID)).
		Str("domain", entry.Domain.String()).
		Strs("tags", entry.Metadata.Tags).
		Msg("stored context entry")
	return entry.ID, nil
}

// Get returns a copy of the entry with the given id, refreshing its access
// time. A hit in the memory tier bumps LRU recency; a backend hit promotes
// the entry into the memory tier. Expired entries are still returned, since
// expiry interpretation belongs to the caller.
func (s *ContextStore) Get(ctx context.Context, id memory.ID) (*memory.Entry, error) {
	timer := prometheus.NewTimer(storeLatency.WithLabelValues("get"))
	defer timer.ObserveDuration()

	if e, ok := s.cache.Get(id); ok {
		cacheHits.Inc()
		// Cached values are never written in place; refreshing the access
		// time swaps in a marked copy so concurrent readers stay safe.
		touched := e.Clone()
		touched.MarkAccessed()
		s.cache.Add(id, touched)
		storeOperations.WithLabelValues("get", "success").Inc()
		return touched.Clone(), nil
	}
	cacheMisses.Inc()

	if s.backend != nil {
		e, err := s.backend.Get(ctx, id)
		if err != nil {
			storeOperations.WithLabelValues("get", "error").Inc()
			return nil, merr.Wrapf(err, merr.CodeBackendFailure, "fetch entry %s", id)
		}
		if e != nil {
			e.MarkAccessed()
			s.cache.Add(id, e)
			entriesInMemory.Set(float64(s.cache.Len()))
			storeOperations.WithLabelValues("get", "success").Inc()
			return e.Clone(), nil
		}
	}

	storeOperations.WithLabelValues("get", "not_found").Inc()
	return nil, merr.New(merr.CodeEntryNotFound, "context entry not found", merr.FieldEntryID(string(id)))
}

// Delete removes the entry from both tiers and prunes its index entries.
// It reports whether either tier actually held the entry.
func (s *ContextStore) Delete(ctx context.Context, id memory.ID) (bool, error) {
	timer := prometheus.NewTimer(storeLatency.WithLabelValues("delete"))
	defer timer.ObserveDuration()

	var victim *memory.Entry
	if e, ok := s.cache.Peek(id); ok {
		victim = e
	}

	s.markDeleting(id)
	found := s.cache.Remove(id)
	s.unmarkDeleting(id)

	if s.backend != nil {
		if victim == nil {
			// Needed to know which index entries to prune.
			if e, err := s.backend.Get(ctx, id); err == nil && e != nil {
				victim = e
			}
		}
		removed, err := s.backend.Delete(ctx, id)
		if err != nil {
			storeOperations.WithLabelValues("delete", "error").Inc()
			return false, merr.Wrapf(err, merr.CodeBackendFailure, "delete entry %s", id)
		}
		found = found || removed
	}

	if victim != nil {
		s.unindex(victim)
	}
	entriesInMemory.Set(float64(s.cache.Len()))
	storeOperations.WithLabelValues("delete", "success").Inc()

	log.Debug().Str("id", string(id)).Bool("found", found).Msg("deleted context entry")
	return found, nil
}

// Query runs a filtered search across both tiers. Candidates come from the
// domain and tag indices, or from the full memory tier when neither filter
// is set. Remaining filters are applied per entry, then results are ordered
// by importance and recency and truncated to q.Limit. Lookups here do not
// refresh access times or LRU recency, so scans cannot thrash the working
// set or disturb the recency ordering they sort by.
func (s *ContextStore) Query(ctx context.Context, q *memory.Query) ([]*memory.Entry, error) {
	if q == nil {
		q = memory.NewQuery()
	}
	timer := prometheus.NewTimer(storeLatency.WithLabelValues("query"))
	defer timer.ObserveDuration()

	candidates := s.candidateIDs(q)
	results := make([]*memory.Entry, 0, len(candidates))
	for _, id := range candidates {
		e := s.peek(ctx, id)
		if e == nil {
			continue
		}
		if q.Matches(e) {
			results = append(results, e.Clone())
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Metadata.Importance != results[j].Metadata.Importance {
			return results[i].Metadata.Importance > results[j].Metadata.Importance
		}
		return results[i].AccessedAt.After(results[j].AccessedAt)
	})
	if q.Limit > 0 && len(results) > q.Limit {
		results = results[:q.Limit]
	}

	storeOperations.WithLabelValues("query", "success").Inc()
	log.Debug().
		Int("candidates", len(candidates)).
		Int("results", len(results)).
		Msg("query complete")
	return results, nil
}

// CleanupExpired deletes every expired entry currently in the memory tier
// and returns how many were removed.
func (s *ContextStore) CleanupExpired(ctx context.Context) (int, error) {
	timer := prometheus.NewTimer(storeLatency.WithLabelValues("cleanup"))
	defer timer.ObserveDuration()

	var expired []memory.ID
	for _, id := range s.cache.Keys() {
		if e, ok := s.cache.Peek(id); ok && e.IsExpired() {
			expired = append(expired, id)
		}
	}

	removed := 0
	for _, id := range expired {
		ok, err := s.Delete(ctx, id)
		if err != nil {
			return removed, err
		}
		if ok {
			removed++
		}
	}
	if removed > 0 {
		entriesExpired.Add(float64(removed))
		log.Info().Int("removed", removed).Msg("cleaned up expired context entries")
	}
	return removed, nil
}

// Stats reports entry counts for both tiers.
func (s *ContextStore) Stats(ctx context.Context) (Stats, error) {
	st := Stats{
		MemoryCount:   s.cache.Len(),
		CacheCapacity: s.cfg.MemoryCacheSize,
	}
	if s.backend != nil {
		n, err := s.backend.Count(ctx)
		if err != nil {
			return Stats{}, merr.Wrap(err, merr.CodeBackendFailure, "count persisted entries")
		}
		st.DiskCount = n
	}
	return st, nil
}

// MemoryEntries snapshots the memory tier, oldest first. Entries are cloned
// and access times are left untouched.
func (s *ContextStore) MemoryEntries() []*memory.Entry {
	values := s.cache.Values()
	out := make([]*memory.Entry, 0, len(values))
	for _, e := range values {
		out = append(out, e.Clone())
	}
	return out
}

// Verify cross-checks the indices against both tiers and reports ids that
// are indexed but resolvable in neither.
func (s *ContextStore) Verify(ctx context.Context) (VerifyResult, error) {
	start := time.Now()

	indexed := make(map[memory.ID]struct{})
	s.domainMu.RLock()
	for _, ids := range s.domains {
		for _, id := range ids {
			indexed[id] = struct{}{}
		}
	}
	s.domainMu.RUnlock()
	s.tagMu.RLock()
	for _, ids := range s.tags {
		for _, id := range ids {
			indexed[id] = struct{}{}
		}
	}
	s.tagMu.RUnlock()

	res := VerifyResult{IndexedIDs: len(indexed)}
	for id := range indexed {
		if s.cache.Contains(id) {
			continue
		}
		if s.backend != nil {
			e, err := s.backend.Get(ctx, id)
			if err != nil {
				return res, merr.Wrapf(err, merr.CodeBackendFailure, "verify entry %s", id)
			}
			if e != nil {
				continue
			}
		}
		res.Dangling++
		if len(res.DanglingSample) < 10 {
			res.DanglingSample = append(res.DanglingSample, id)
		}
	}
	res.Duration = time.Since(start)

	if res.Dangling > 0 {
		log.Warn().
			Int("dangling", res.Dangling).
			Int("indexed", res.IndexedIDs).
			Msg("index verification found dangling ids")
	}
	return res, nil
}

// Health reports backend health. A memory-only store is always healthy.
func (s *ContextStore) Health(ctx context.Context) error {
	if s.backend != nil {
		return s.backend.Health(ctx)
	}
	return nil
}

// Close stops the cleanup loop and closes the backend. Safe to call more
// than once.
func (s *ContextStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		if s.backend != nil {
			err = s.backend.Close()
		}
	})
	return err
}

func (s *ContextStore) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			if _, err := s.CleanupExpired(ctx); err != nil {
				log.Warn().Err(err).Msg("expired entry cleanup failed")
			}
			cancel()
		case <-s.done:
			return
		}
	}
}

func (s *ContextStore) rebuildIndexes(ctx context.Context) error {
	start := time.Now()
	entries, err := s.backend.All(ctx)
	if err != nil {
		return merr.Wrap(err, merr.CodeBackendFailure, "scan backend to rebuild indices")
	}
	for _, e := range entries {
		s.index(e)
	}
	log.Info().
		Int("entries", len(entries)).
		Dur("took", time.Since(start)).
		Msg("rebuilt indices from durable tier")
	return nil
}

// candidateIDs collects ids from the domain and tag indices. Only when the
// query carries neither filter does it fall back to the full memory tier.
// The result is sorted and de-duplicated.
func (s *ContextStore) candidateIDs(q *memory.Query) []memory.ID {
	var candidates []memory.ID
	if q.Domain != nil {
		s.domainMu.RLock()
		candidates = append(candidates, s.domains[*q.Domain]...)
		s.domainMu.RUnlock()
	}
	if q.Tags != nil {
		s.tagMu.RLock()
		for _, tag := range q.Tags {
			candidates = append(candidates, s.tags[tag]...)
		}
		s.tagMu.RUnlock()
	}
	if q.Domain == nil && q.Tags == nil {
		candidates = s.cache.Keys()
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i] < candidates[j] })
	deduped := candidates[:0]
	var prev memory.ID
	for i, id := range candidates {
		if i == 0 || id != prev {
			deduped = append(deduped, id)
		}
		prev = id
	}
	return deduped
}

// peek resolves an id without touching recency or access times. Backend
// read failures are logged and treated as a miss so one bad record cannot
// fail a whole query.
func (s *ContextStore) peek(ctx context.Context, id memory.ID) *memory.Entry {
	if e, ok := s.cache.Peek(id); ok {
		return e
	}
	if s.backend == nil {
		return nil
	}
	e, err := s.backend.Get(ctx, id)
	if err != nil {
		log.Warn().Err(err).Str("id", string(id)).Msg("backend read failed during query")
		return nil
	}
	return e
}

func (s *ContextStore) index(e *memory.Entry) {
	s.domainMu.Lock()
	s.domains[e.Domain] = append(s.domains[e.Domain], e.ID)
	s.domainMu.Unlock()

	if len(e.Metadata.Tags) > 0 {
		s.tagMu.Lock()
		for _, tag := range e.Metadata.Tags {
			s.tags[tag] = append(s.tags[tag], e.ID)
		}
		s.tagMu.Unlock()
	}
}

func (s *ContextStore) unindex(e *memory.Entry) {
	s.domainMu.Lock()
	if ids := removeID(s.domains[e.Domain], e.ID); len(ids) == 0 {
		delete(s.domains, e.Domain)
	} else {
		s.domains[e.Domain] = ids
	}
	s.domainMu.Unlock()

	if len(e.Metadata.Tags) > 0 {
		s.tagMu.Lock()
		for _, tag := range e.Metadata.Tags {
			if ids := removeID(s.tags[tag], e.ID); len(ids) == 0 {
				delete(s.tags, tag)
			} else {
				s.tags[tag] = ids
			}
		}
		s.tagMu.Unlock()
	}
}

func removeID(ids []memory.ID, id memory.ID) []memory.ID {
	out := ids[:0]
	for _, x := range ids {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}

func (s *ContextStore) markDeleting(id memory.ID) {
	s.deletingMu.Lock()
	s.deleting[id] = struct{}{}
	s.deletingMu.Unlock()
}

func (s *ContextStore) unmarkDeleting(id memory.ID) {
	s.deletingMu.Lock()
	delete(s.deleting, id)
	s.deletingMu.Unlock()
}

func (s *ContextStore) isDeleting(id memory.ID) bool {
	s.deletingMu.Lock()
	_, ok := s.deleting[id]
	s.deletingMu.Unlock()
	return ok
}
