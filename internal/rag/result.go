package rag

import (
	"github.com/objones25/mnemo/internal/memory"
	"github.com/objones25/mnemo/internal/temporal"
)

// ScoreBreakdown records the individual components that produced a context's
// final score, for callers that want to explain a ranking.
type ScoreBreakdown struct {
	// Temporal is the recency component, 1.0 when decay is disabled.
	Temporal float64 `json:"temporal"`

	// Importance is the entry's stored importance.
	Importance float64 `json:"importance"`

	// DomainMatch is 1.0 for an exact domain match, 0.5 when the query has
	// no domain filter, and 0.2 otherwise.
	DomainMatch float64 `json:"domain_match"`

	// TagMatch is the fraction of query tags the entry carries, or 0.5
	// when the query has no tag filter.
	TagMatch float64 `json:"tag_match"`

	// Similarity is the normalized cosine similarity against the query
	// text; nil when no semantic comparison was made for this entry.
	Similarity *float64 `json:"similarity,omitempty"`
}

// ScoredContext pairs a retrieved entry with its score.
type ScoredContext struct {
	Entry     *memory.Entry  `json:"entry"`
	Score     float64        `json:"score"`
	Breakdown ScoreBreakdown `json:"breakdown"`
}

// Result is the full response of a retrieval.
type Result struct {
	// Contexts holds the ranked survivors, best first.
	Contexts []ScoredContext `json:"contexts"`

	// QuerySummary is Query.Summary for the request that produced this
	// result.
	QuerySummary string `json:"query_summary"`

	// ProcessingTimeMs is wall time spent inside Retrieve.
	ProcessingTimeMs int64 `json:"processing_time_ms"`

	// CandidatesConsidered counts entries fetched from storage before
	// temporal and relevance filtering.
	CandidatesConsidered int `json:"candidates_considered"`

	// TemporalStats aggregates the age distribution of returned contexts.
	TemporalStats temporal.Stats `json:"temporal_stats"`
}

// Entries returns the returned contexts without their scores.
func (r *Result) Entries() []*memory.Entry {
	entries := make([]*memory.Entry, len(r.Contexts))
	for i, sc := range r.Contexts {
		entries[i] = sc.Entry
	}
	return entries
}
