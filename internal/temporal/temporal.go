// Package temporal scores and filters context entries by age: exponential
// decay relevance, window matching, and aggregate age statistics.
package temporal

import (
	"fmt"
	"math"
	"time"

	"github.com/objones25/mnemo/internal/memory"
)

// Query restricts entries to an age range or an absolute creation window,
// measured against a fixed reference time. Decay scoring halves an entry's
// temporal weight every DecayHalfLifeHours.
type Query struct {
	ReferenceTime      time.Time
	MaxAge             *time.Duration
	MinAge             *time.Duration
	WindowStart        *time.Time
	WindowEnd          *time.Time
	ApplyDecay         bool
	DecayHalfLifeHours float64
}

// NewQuery returns a query anchored at the current time with decay enabled
// and a one-day half-life.
func NewQuery() *Query {
	return &Query{
		ReferenceTime:      time.Now().UTC(),
		ApplyDecay:         true,
		DecayHalfLifeHours: 24.0,
	}
}

func (q *Query) WithReferenceTime(ref time.Time) *Query {
	q.ReferenceTime = ref.UTC()
	return q
}

func (q *Query) WithMaxAge(d time.Duration) *Query {
	q.MaxAge = &d
	return q
}

func (q *Query) WithMinAge(d time.Duration) *Query {
	q.MinAge = &d
	return q
}

func (q *Query) WithWindow(start, end time.Time) *Query {
	s, e := start.UTC(), end.UTC()
	q.WindowStart = &s
	q.WindowEnd = &e
	return q
}

func (q *Query) WithDecay(enabled bool) *Query {
	q.ApplyDecay = enabled
	return q
}

func (q *Query) WithHalfLife(hours float64) *Query {
	q.DecayHalfLifeHours = hours
	return q
}

// Recent matches entries created within the last N hours.
func Recent(hours int) *Query {
	return NewQuery().WithMaxAge(time.Duration(hours) * time.Hour)
}

// Today matches entries created since midnight UTC.
func Today() *Query {
	now := time.Now().UTC()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return NewQuery().WithWindow(startOfDay, now)
}

// ThisWeek matches entries created within the last seven days.
func ThisWeek() *Query {
	return Recent(24 * 7)
}

// Matches reports whether the entry's creation time satisfies every bound
// that is set. Absent bounds are unconstrained; window bounds are inclusive.
func (q *Query) Matches(e *memory.Entry) bool {
	age := q.ReferenceTime.Sub(e.CreatedAt)

	if q.MaxAge != nil && age > *q.MaxAge {
		return false
	}
	if q.MinAge != nil && age < *q.MinAge {
		return false
	}
	if q.WindowStart != nil && e.CreatedAt.Before(*q.WindowStart) {
		return false
	}
	if q.WindowEnd != nil && e.CreatedAt.After(*q.WindowEnd) {
		return false
	}
	return true
}

// RelevanceScore blends exponential age decay with the entry's importance,
// weighted 70/30. Age is measured from the query's reference time and floored
// at zero so future-stamped entries score as fresh. Returns 1.0 when decay is
// disabled.
func (q *Query) RelevanceScore(e *memory.Entry) float64 {
	if !q.ApplyDecay {
		return 1.0
	}

	ageHours := q.ReferenceTime.Sub(e.CreatedAt).Hours()
	if ageHours < 0 {
		ageHours = 0
	}

	decay := math.Pow(0.5, ageHours/q.DecayHalfLifeHours)
	importance := float64(e.Metadata.Importance)
	return 0.7*decay + 0.3*importance
}

// Stats summarizes the age profile of a set of entries.
type Stats struct {
	Count        int          `json:"count"`
	Oldest       *time.Time   `json:"oldest,omitempty"`
	Newest       *time.Time   `json:"newest,omitempty"`
	AvgAgeHours  float64      `json:"avg_age_hours"`
	Distribution Distribution `json:"distribution"`
}

// Distribution buckets entries by how long ago they were created.
type Distribution struct {
	LastHour  int `json:"last_hour"`
	LastDay   int `json:"last_day"`
	LastWeek  int `json:"last_week"`
	LastMonth int `json:"last_month"`
	Older     int `json:"older"`
}

// StatsFrom computes aggregate temporal statistics, with ages measured
// against the current time.
func StatsFrom(entries []*memory.Entry) Stats {
	if len(entries) == 0 {
		return Stats{}
	}

	var (
		oldest, newest time.Time
		totalAgeHours  float64
		dist           Distribution
	)

	for i, e := range entries {
		if i == 0 || e.CreatedAt.Before(oldest) {
			oldest = e.CreatedAt
		}
		if i == 0 || e.CreatedAt.After(newest) {
			newest = e.CreatedAt
		}

		ageHours := e.AgeHours()
		totalAgeHours += ageHours

		switch {
		case ageHours < 1:
			dist.LastHour++
		case ageHours < 24:
			dist.LastDay++
		case ageHours < 24*7:
			dist.LastWeek++
		case ageHours < 24*30:
			dist.LastMonth++
		default:
			dist.Older++
		}
	}

	return Stats{
		Count:        len(entries),
		Oldest:       &oldest,
		Newest:       &newest,
		AvgAgeHours:  totalAgeHours / float64(len(entries)),
		Distribution: dist,
	}
}

// FormatAge renders an entry's age for humans: seconds under a minute,
// then minutes, hours, days.
func FormatAge(e *memory.Entry) string {
	ageSecs := e.AgeSeconds()

	switch {
	case ageSecs < 60:
		return fmt.Sprintf("%ds ago", ageSecs)
	case ageSecs < 3600:
		return fmt.Sprintf("%dm ago", ageSecs/60)
	case ageSecs < 86400:
		return fmt.Sprintf("%dh ago", ageSecs/3600)
	default:
		return fmt.Sprintf("%dd ago", ageSecs/86400)
	}
}
