package rag

import (
	"fmt"
	"strings"

	"github.com/objones25/mnemo/internal/memory"
)

// Query describes a retrieval request. All filters are optional; a zero Query
// retrieves the highest ranked contexts across every domain.
type Query struct {
	// Text is matched semantically against stored content when the
	// processor has an embedding generator and a non-zero semantic weight.
	Text string `json:"text,omitempty"`

	// Domain restricts candidates to a single domain when set.
	Domain *memory.Domain `json:"domain,omitempty"`

	// Tags seed candidate selection. Matching tags boost ranking but do
	// not exclude entries that carry only some of them.
	Tags []string `json:"tags,omitempty"`

	// MinImportance drops candidates below the given importance.
	MinImportance *float32 `json:"min_importance,omitempty"`

	// MaxAgeHours drops candidates created longer ago than this.
	MaxAgeHours *float64 `json:"max_age_hours,omitempty"`

	// MaxResults caps the response size. Non-positive values fall back to
	// the processor's configured default.
	MaxResults int `json:"max_results,omitempty"`
}

// NewQuery returns an empty retrieval query.
func NewQuery() *Query {
	return &Query{}
}

// WithText sets the semantic query text.
func (q *Query) WithText(text string) *Query {
	q.Text = text
	return q
}

// WithDomain restricts retrieval to a single domain.
func (q *Query) WithDomain(d memory.Domain) *Query {
	q.Domain = &d
	return q
}

// WithTags seeds candidate selection with the given tags.
func (q *Query) WithTags(tags ...string) *Query {
	q.Tags = append(q.Tags, tags...)
	return q
}

// WithMinImportance drops candidates below the given importance.
func (q *Query) WithMinImportance(min float32) *Query {
	q.MinImportance = &min
	return q
}

// WithMaxAgeHours drops candidates older than the given number of hours.
func (q *Query) WithMaxAgeHours(hours float64) *Query {
	q.MaxAgeHours = &hours
	return q
}

// WithMaxResults caps the number of returned contexts.
func (q *Query) WithMaxResults(n int) *Query {
	q.MaxResults = n
	return q
}

// Summary renders the active filters as a short human-readable string for
// logs and responses, e.g. "text: 'goroutine leak', domain: code, tags: [sync]".
func (q *Query) Summary() string {
	var parts []string
	if q.Text != "" {
		parts = append(parts, fmt.Sprintf("text: '%s'", q.Text))
	}
	if q.Domain != nil {
		parts = append(parts, "domain: "+q.Domain.String())
	}
	if len(q.Tags) > 0 {
		parts = append(parts, fmt.Sprintf("tags: %v", q.Tags))
	}
	if q.MinImportance != nil {
		parts = append(parts, fmt.Sprintf("min_importance: %g", *q.MinImportance))
	}
	if len(parts) == 0 {
		return "all contexts"
	}
	return strings.Join(parts, ", ")
}
