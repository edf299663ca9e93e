package memory

import "strings"

// Query is the structural filter applied by the store. Nil pointer fields
// and nil slices impose no constraint; a non-nil empty tag slice is a real
// filter that matches nothing.
type Query struct {
	// Text requires a case-insensitive substring match on content.
	Text string
	// Domain restricts to one domain.
	Domain *Domain
	// Tags restricts to entries carrying any of these tags.
	Tags []string
	// Source restricts to an exact metadata source.
	Source string
	// MinImportance excludes entries below the threshold.
	MinImportance *float32
	// MaxAgeSeconds excludes entries older than this.
	MaxAgeSeconds *int64
	// VerifiedOnly excludes unverified entries.
	VerifiedOnly bool
	// Limit caps the result count; zero or negative means unlimited.
	Limit int
}

// NewQuery returns a query with the default result limit.
func NewQuery() *Query {
	return &Query{Limit: 10}
}

func (q *Query) WithText(text string) *Query {
	q.Text = text
	return q
}

func (q *Query) WithDomain(d Domain) *Query {
	q.Domain = &d
	return q
}

func (q *Query) WithTags(tags ...string) *Query {
	q.Tags = tags
	return q
}

func (q *Query) WithTag(tag string) *Query {
	q.Tags = append(q.Tags, tag)
	return q
}

func (q *Query) WithSource(source string) *Query {
	q.Source = source
	return q
}

func (q *Query) WithMinImportance(importance float32) *Query {
	q.MinImportance = &importance
	return q
}

func (q *Query) WithMaxAge(seconds int64) *Query {
	q.MaxAgeSeconds = &seconds
	return q
}

func (q *Query) WithMaxAgeHours(hours int64) *Query {
	return q.WithMaxAge(hours * 3600)
}

func (q *Query) WithVerifiedOnly() *Query {
	q.VerifiedOnly = true
	return q
}

func (q *Query) WithLimit(limit int) *Query {
	q.Limit = limit
	return q
}

// Matches applies every residual filter to an entry: expiry, domain, source,
// importance, age, verification, and content substring.
func (q *Query) Matches(e *Entry) bool {
	if e.IsExpired() {
		return false
	}

	if q.Domain != nil && e.Domain != *q.Domain {
		return false
	}

	if q.Source != "" && e.Metadata.Source != q.Source {
		return false
	}

	if q.MinImportance != nil && e.Metadata.Importance < *q.MinImportance {
		return false
	}

	if q.MaxAgeSeconds != nil && e.AgeSeconds() > *q.MaxAgeSeconds {
		return false
	}

	if q.VerifiedOnly && !e.Metadata.Verified {
		return false
	}

	if q.Text != "" && !strings.Contains(strings.ToLower(e.Content), strings.ToLower(q.Text)) {
		return false
	}

	return true
}
