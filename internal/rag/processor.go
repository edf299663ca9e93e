// Package rag assembles ranked context for retrieval-augmented prompts. A
// Processor pulls structural candidates from the context store, filters them
// by safety and age, scores each against the query, and returns the ranked
// survivors with per-component score breakdowns. When built with an embedding
// generator, cosine similarity between the query text and entry content joins
// the blend at a configurable weight.
package rag

import (
	"context"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/objones25/mnemo/internal/embedding"
	"github.com/objones25/mnemo/internal/memory"
	"github.com/objones25/mnemo/internal/storage"
	"github.com/objones25/mnemo/internal/temporal"
	"github.com/objones25/mnemo/internal/ternary"
	merr "github.com/objones25/mnemo/pkg/errors"
)

const (
	// DefaultMaxResults caps the response when neither the query nor the
	// config sets a limit.
	DefaultMaxResults = 10

	// DefaultMinRelevance is the score floor below which contexts are
	// dropped from the response.
	DefaultMinRelevance = 0.1

	// DefaultChunkSize is the per-goroutine batch size for parallel
	// scoring, and the candidate count below which scoring stays
	// sequential.
	DefaultChunkSize = 1000

	// DefaultDecayHalfLifeHours halves temporal relevance once per day.
	DefaultDecayHalfLifeHours = 24.0
)

// Config tunes retrieval behavior. The zero value is not usable directly;
// start from DefaultConfig.
type Config struct {
	// MaxResults caps returned contexts for queries that do not set their
	// own cap.
	MaxResults int

	// MinRelevance drops contexts scoring below it.
	MinRelevance float64

	// Parallel allows chunked concurrent scoring for large candidate
	// sets. Scores are identical to sequential scoring.
	Parallel bool

	// NumThreads bounds concurrent scoring goroutines. Non-positive means
	// GOMAXPROCS.
	NumThreads int

	// ChunkSize is the scoring batch size per goroutine. Candidate sets
	// at or below it are scored sequentially.
	ChunkSize int

	// TemporalDecay weighs newer contexts higher.
	TemporalDecay bool

	// DecayHalfLifeHours is the half-life of the decay curve.
	DecayHalfLifeHours float64

	// SafeOnly excludes entries whose screening flagged or blocked them.
	SafeOnly bool

	// SemanticWeight in [0, 1] blends similarity against the query text
	// into the final score. Zero disables semantic comparison entirely.
	SemanticWeight float64
}

// DefaultConfig returns the retrieval defaults.
func DefaultConfig() Config {
	return Config{
		MaxResults:         DefaultMaxResults,
		MinRelevance:       DefaultMinRelevance,
		Parallel:           true,
		ChunkSize:          DefaultChunkSize,
		TemporalDecay:      true,
		DecayHalfLifeHours: DefaultDecayHalfLifeHours,
		SafeOnly:           true,
	}
}

// Processor ranks stored contexts for retrieval queries.
type Processor struct {
	store *storage.ContextStore
	gen   embedding.QuantizedGenerator
	cfg   Config
	pool  *Pool
}

// NewProcessor wires a processor to its store. gen may be nil, which turns
// off semantic scoring regardless of SemanticWeight.
func NewProcessor(store *storage.ContextStore, gen embedding.QuantizedGenerator, cfg Config) (*Processor, error) {
	if store == nil {
		return nil, merr.New(merr.CodeConfigInvalid, "retrieval processor requires a context store")
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultMaxResults
	}
	if cfg.MinRelevance < 0 {
		cfg.MinRelevance = 0
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.DecayHalfLifeHours <= 0 {
		cfg.DecayHalfLifeHours = DefaultDecayHalfLifeHours
	}
	if cfg.SemanticWeight < 0 || cfg.SemanticWeight > 1 {
		return nil, merr.Errorf(merr.CodeConfigInvalid,
			"semantic weight %g outside [0, 1]", cfg.SemanticWeight)
	}

	return &Processor{
		store: store,
		gen:   gen,
		cfg:   cfg,
		pool:  NewPool(cfg.NumThreads),
	}, nil
}

// Config returns the processor's effective configuration after defaulting.
func (p *Processor) Config() Config {
	return p.cfg
}

// Retrieve ranks stored contexts against q and returns the survivors, best
// first. A nil query retrieves across all domains with default limits.
func (p *Processor) Retrieve(ctx context.Context, q *Query) (*Result, error) {
	start := time.Now()
	timer := prometheus.NewTimer(retrievalDuration)
	defer timer.ObserveDuration()

	if q == nil {
		q = NewQuery()
	}

	candidates, err := p.store.Query(ctx, p.storeQuery(q))
	if err != nil {
		retrievals.WithLabelValues("error").Inc()
		return nil, err
	}
	retrievalCandidates.Observe(float64(len(candidates)))

	tq := p.temporalQuery(q)
	filtered := make([]*memory.Entry, 0, len(candidates))
	for _, e := range candidates {
		if p.cfg.SafeOnly && !e.IsSafe() {
			continue
		}
		if !tq.Matches(e) {
			continue
		}
		filtered = append(filtered, e)
	}

	queryVec := p.quantizeQuery(ctx, q)
	scored, err := p.scoreAll(ctx, filtered, q, tq, queryVec)
	if err != nil {
		retrievals.WithLabelValues("error").Inc()
		return nil, err
	}

	ranked := scored[:0]
	for _, sc := range scored {
		if sc.Score >= p.cfg.MinRelevance {
			ranked = append(ranked, sc)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	limit := q.MaxResults
	if limit <= 0 {
		limit = p.cfg.MaxResults
	}
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	result := &Result{
		Contexts:             ranked,
		QuerySummary:         q.Summary(),
		ProcessingTimeMs:     time.Since(start).Milliseconds(),
		CandidatesConsidered: len(candidates),
	}
	result.TemporalStats = temporal.StatsFrom(result.Entries())

	retrievals.WithLabelValues("success").Inc()
	log.Debug().
		Str("query", result.QuerySummary).
		Int("candidates", len(candidates)).
		Int("returned", len(ranked)).
		Int64("elapsed_ms", result.ProcessingTimeMs).
		Msg("retrieval complete")
	return result, nil
}

// storeQuery maps the retrieval request onto a structural store query. Age
// limits stay out of it so the temporal filter and decay share one reference
// time.
func (p *Processor) storeQuery(q *Query) *memory.Query {
	sq := memory.NewQuery().WithLimit(0)
	if q.Domain != nil {
		sq = sq.WithDomain(*q.Domain)
	}
	if len(q.Tags) > 0 {
		sq = sq.WithTags(q.Tags...)
	}
	if q.MinImportance != nil {
		sq = sq.WithMinImportance(*q.MinImportance)
	}
	return sq
}

func (p *Processor) temporalQuery(q *Query) *temporal.Query {
	tq := temporal.NewQuery().
		WithDecay(p.cfg.TemporalDecay).
		WithHalfLife(p.cfg.DecayHalfLifeHours)
	if q.MaxAgeHours != nil {
		tq = tq.WithMaxAge(time.Duration(*q.MaxAgeHours * float64(time.Hour)))
	}
	return tq
}

// quantizeQuery embeds the query text once per retrieval. A failure disables
// semantic scoring for this request instead of failing it.
func (p *Processor) quantizeQuery(ctx context.Context, q *Query) *ternary.Quantized {
	if q.Text == "" || p.gen == nil || p.cfg.SemanticWeight == 0 {
		return nil
	}
	qv, err := p.gen.Quantize(ctx, q.Text)
	if err != nil {
		log.Warn().Err(err).Msg("query embedding failed, scoring without similarity")
		return nil
	}
	return qv
}

// scoreAll scores every entry, in parallel chunks when the set is large.
// Chunks write to disjoint slices of the output, so ordering and scores match
// the sequential path exactly.
func (p *Processor) scoreAll(ctx context.Context, entries []*memory.Entry, q *Query, tq *temporal.Query, queryVec *ternary.Quantized) ([]ScoredContext, error) {
	out := make([]ScoredContext, len(entries))
	if !p.cfg.Parallel || len(entries) <= p.cfg.ChunkSize {
		for i, e := range entries {
			out[i] = p.scoreOne(ctx, e, q, tq, queryVec)
		}
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for begin := 0; begin < len(entries); begin += p.cfg.ChunkSize {
		end := begin + p.cfg.ChunkSize
		if end > len(entries) {
			end = len(entries)
		}
		g.Go(func() error {
			if err := p.pool.Acquire(gctx); err != nil {
				return err
			}
			defer p.pool.Release()
			for i := begin; i < end; i++ {
				out[i] = p.scoreOne(gctx, entries[i], q, tq, queryVec)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// scoreOne blends the four structural components, each weighing a quarter,
// then mixes in similarity at the configured weight when one was computed.
func (p *Processor) scoreOne(ctx context.Context, e *memory.Entry, q *Query, tq *temporal.Query, queryVec *ternary.Quantized) ScoredContext {
	bd := ScoreBreakdown{
		Temporal:    tq.RelevanceScore(e),
		Importance:  float64(e.Metadata.Importance),
		DomainMatch: domainMatch(q, e),
		TagMatch:    tagMatch(q, e),
	}
	score := 0.25 * (bd.Temporal + bd.Importance + bd.DomainMatch + bd.TagMatch)

	if queryVec != nil {
		if sim, ok := p.similarity(ctx, e, queryVec); ok {
			bd.Similarity = &sim
			w := p.cfg.SemanticWeight
			score = (1-w)*score + w*sim
		}
	}

	return ScoredContext{Entry: e, Score: score, Breakdown: bd}
}

// similarity compares the entry against the query over sparse ternary form,
// mapped from [-1, 1] to [0, 1]. Entries that cannot be embedded or whose
// strategy produced no sparse payload score on structure alone.
func (p *Processor) similarity(ctx context.Context, e *memory.Entry, queryVec *ternary.Quantized) (float64, bool) {
	if queryVec.Sparse == nil {
		return 0, false
	}
	ev, err := p.quantizeEntry(ctx, e)
	if err != nil {
		log.Warn().Err(err).
			Str("id", string(e.ID)).
			Msg("entry embedding failed, scoring without similarity")
		return 0, false
	}
	if ev.Sparse == nil {
		return 0, false
	}
	cos, err := ternary.CosineSparse(queryVec.Sparse, ev.Sparse)
	if err != nil {
		log.Warn().Err(err).
			Str("id", string(e.ID)).
			Msg("similarity computation failed")
		return 0, false
	}
	return (float64(cos) + 1) / 2, true
}

// quantizeEntry reuses the entry's stored vector when its dimension matches
// the generator, and embeds the content otherwise.
func (p *Processor) quantizeEntry(ctx context.Context, e *memory.Entry) (*ternary.Quantized, error) {
	if len(e.Embedding) > 0 && len(e.Embedding) == p.gen.Dimension() {
		return p.gen.QuantizeVector(e.Embedding)
	}
	return p.gen.Quantize(ctx, e.Content)
}

func domainMatch(q *Query, e *memory.Entry) float64 {
	if q.Domain == nil {
		return 0.5
	}
	if e.Domain == *q.Domain {
		return 1.0
	}
	return 0.2
}

func tagMatch(q *Query, e *memory.Entry) float64 {
	if len(q.Tags) == 0 {
		return 0.5
	}
	have := make(map[string]struct{}, len(e.Metadata.Tags))
	for _, t := range e.Metadata.Tags {
		have[t] = struct{}{}
	}
	matched := 0
	for _, t := range q.Tags {
		if _, ok := have[t]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(q.Tags))
}
