package temporal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/objones25/mnemo/internal/memory"
)

func entryAgedBy(age time.Duration) *memory.Entry {
	e := memory.NewEntry("aged content", memory.DomainGeneral)
	e.CreatedAt = time.Now().UTC().Add(-age)
	return e
}

func TestNewQueryDefaults(t *testing.T) {
	q := NewQuery()

	assert.True(t, q.ApplyDecay)
	assert.Equal(t, 24.0, q.DecayHalfLifeHours)
	assert.Nil(t, q.MaxAge)
	assert.Nil(t, q.MinAge)
	assert.WithinDuration(t, time.Now(), q.ReferenceTime, time.Second)
}

func TestRecentConstructor(t *testing.T) {
	q := Recent(24)
	require.NotNil(t, q.MaxAge)
	assert.Equal(t, 24*time.Hour, *q.MaxAge)

	assert.True(t, q.Matches(entryAgedBy(2*time.Hour)))
	assert.False(t, q.Matches(entryAgedBy(48*time.Hour)))
}

func TestTodayConstructor(t *testing.T) {
	q := Today()
	require.NotNil(t, q.WindowStart)
	require.NotNil(t, q.WindowEnd)

	assert.Equal(t, 0, q.WindowStart.Hour())
	assert.Equal(t, 0, q.WindowStart.Minute())
	assert.True(t, q.Matches(entryAgedBy(0)))
}

func TestThisWeekConstructor(t *testing.T) {
	q := ThisWeek()
	require.NotNil(t, q.MaxAge)
	assert.Equal(t, 7*24*time.Hour, *q.MaxAge)
}

func TestMatchesAgeBounds(t *testing.T) {
	q := NewQuery().
		WithMinAge(1 * time.Hour).
		WithMaxAge(10 * time.Hour)

	assert.False(t, q.Matches(entryAgedBy(30*time.Minute)), "too young")
	assert.True(t, q.Matches(entryAgedBy(5*time.Hour)))
	assert.False(t, q.Matches(entryAgedBy(20*time.Hour)), "too old")
}

func TestMatchesWindowInclusive(t *testing.T) {
	ref := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	start := ref.Add(-2 * time.Hour)
	end := ref.Add(-1 * time.Hour)
	q := NewQuery().WithReferenceTime(ref).WithWindow(start, end)

	onStart := memory.NewEntry("a", memory.DomainGeneral)
	onStart.CreatedAt = start
	assert.True(t, q.Matches(onStart))

	onEnd := memory.NewEntry("b", memory.DomainGeneral)
	onEnd.CreatedAt = end
	assert.True(t, q.Matches(onEnd))

	before := memory.NewEntry("c", memory.DomainGeneral)
	before.CreatedAt = start.Add(-time.Minute)
	assert.False(t, q.Matches(before))

	after := memory.NewEntry("d", memory.DomainGeneral)
	after.CreatedAt = end.Add(time.Minute)
	assert.False(t, q.Matches(after))
}

func TestMatchesUnconstrained(t *testing.T) {
	q := NewQuery()
	assert.True(t, q.Matches(entryAgedBy(0)))
	assert.True(t, q.Matches(entryAgedBy(365*24*time.Hour)))
}

func TestRelevanceScoreFreshEntry(t *testing.T) {
	q := NewQuery()
	score := q.RelevanceScore(entryAgedBy(0))
	assert.Greater(t, score, 0.9)
	assert.LessOrEqual(t, score, 1.0)
}

func TestRelevanceScoreHalfLife(t *testing.T) {
	ref := time.Now().UTC()
	q := NewQuery().WithReferenceTime(ref)

	e := entryAgedBy(0)
	e.CreatedAt = ref.Add(-24 * time.Hour)
	e.WithImportance(1.0)

	// One half-life: 0.7*0.5 + 0.3*1.0
	assert.InDelta(t, 0.65, q.RelevanceScore(e), 1e-9)
}

func TestRelevanceScoreUsesReferenceTime(t *testing.T) {
	e := entryAgedBy(48 * time.Hour)

	// A reference anchored at creation time sees the entry as fresh.
	anchored := NewQuery().WithReferenceTime(e.CreatedAt)
	assert.InDelta(t, 1.0, anchored.RelevanceScore(e), 1e-9)

	current := NewQuery()
	assert.Less(t, current.RelevanceScore(e), anchored.RelevanceScore(e))
}

func TestRelevanceScoreFloorsFutureEntries(t *testing.T) {
	q := NewQuery()
	future := entryAgedBy(-2 * time.Hour)

	assert.InDelta(t, 1.0, q.RelevanceScore(future), 1e-9)
}

func TestRelevanceScoreDecayDisabled(t *testing.T) {
	q := NewQuery().WithDecay(false)
	e := entryAgedBy(1000 * time.Hour).WithImportance(0.1)

	assert.Equal(t, 1.0, q.RelevanceScore(e))
}

func TestRelevanceScoreIncludesImportance(t *testing.T) {
	q := NewQuery()
	important := entryAgedBy(12 * time.Hour).WithImportance(1.0)
	trivial := entryAgedBy(12 * time.Hour).WithImportance(0.0)

	assert.Greater(t, q.RelevanceScore(important), q.RelevanceScore(trivial))
	assert.InDelta(t, 0.3, q.RelevanceScore(important)-q.RelevanceScore(trivial), 1e-9)
}

func TestStatsFromEmpty(t *testing.T) {
	stats := StatsFrom(nil)

	assert.Zero(t, stats.Count)
	assert.Nil(t, stats.Oldest)
	assert.Nil(t, stats.Newest)
	assert.Zero(t, stats.AvgAgeHours)
}

func TestStatsFromBuckets(t *testing.T) {
	entries := []*memory.Entry{
		entryAgedBy(30 * time.Minute),
		entryAgedBy(5 * time.Hour),
		entryAgedBy(3 * 24 * time.Hour),
		entryAgedBy(20 * 24 * time.Hour),
		entryAgedBy(90 * 24 * time.Hour),
	}

	stats := StatsFrom(entries)

	assert.Equal(t, 5, stats.Count)
	assert.Equal(t, 1, stats.Distribution.LastHour)
	assert.Equal(t, 1, stats.Distribution.LastDay)
	assert.Equal(t, 1, stats.Distribution.LastWeek)
	assert.Equal(t, 1, stats.Distribution.LastMonth)
	assert.Equal(t, 1, stats.Distribution.Older)

	require.NotNil(t, stats.Oldest)
	require.NotNil(t, stats.Newest)
	assert.True(t, stats.Oldest.Before(*stats.Newest))
	assert.WithinDuration(t, entries[4].CreatedAt, *stats.Oldest, time.Second)
	assert.WithinDuration(t, entries[0].CreatedAt, *stats.Newest, time.Second)
	assert.Greater(t, stats.AvgAgeHours, 0.0)
}

func TestStatsFromFreshEntries(t *testing.T) {
	entries := []*memory.Entry{
		memory.NewEntry("one", memory.DomainGeneral),
		memory.NewEntry("two", memory.DomainCode),
	}

	stats := StatsFrom(entries)
	assert.Equal(t, 2, stats.Count)
	assert.Equal(t, 2, stats.Distribution.LastHour)
	assert.Less(t, stats.AvgAgeHours, 1.0)
}

func TestFormatAge(t *testing.T) {
	tests := []struct {
		age  time.Duration
		want string
	}{
		{10 * time.Second, "10s ago"},
		{5 * time.Minute, "5m ago"},
		{3 * time.Hour, "3h ago"},
		{49 * time.Hour, "2d ago"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatAge(entryAgedBy(tt.age)))
	}
}
