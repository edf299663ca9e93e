package memory

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentIDDeterministic(t *testing.T) {
	id1 := ContentID("hello world")
	id2 := ContentID("hello world")
	id3 := ContentID("different content")

	assert.Equal(t, id1, id2)
	assert.NotEqual(t, id1, id3)
	assert.NotEqual(t, ContentID(""), ContentID("x"))
}

func TestNewIDIsRandom(t *testing.T) {
	assert.NotEqual(t, NewID(), NewID())
}

func TestNewEntryDefaults(t *testing.T) {
	e := NewEntry("Test content", DomainCode)

	assert.Equal(t, ContentID("Test content"), e.ID)
	assert.Equal(t, "Test content", e.Content)
	assert.Equal(t, DomainCode, e.Domain)
	assert.False(t, e.IsExpired())
	assert.True(t, e.IsSafe())
	assert.Equal(t, float32(1.0), e.Metadata.Importance)
	assert.False(t, e.AccessedAt.Before(e.CreatedAt))
}

func TestEntryBuilders(t *testing.T) {
	e := NewEntry("content", DomainGeneral).
		WithID(NewID()).
		WithSource("web").
		WithImportance(0.7).
		WithTags("alpha", "beta")

	assert.NotEqual(t, ContentID("content"), e.ID)
	assert.Equal(t, "web", e.Metadata.Source)
	assert.InDelta(t, 0.7, e.Metadata.Importance, 1e-6)
	assert.Equal(t, []string{"alpha", "beta"}, e.Metadata.Tags)
}

func TestImportanceClamped(t *testing.T) {
	assert.Equal(t, float32(1.0), NewEntry("a", DomainGeneral).WithImportance(3.5).Metadata.Importance)
	assert.Equal(t, float32(0.0), NewEntry("a", DomainGeneral).WithImportance(-1).Metadata.Importance)

	md := NewMetadata()
	md.Importance = 42
	assert.Equal(t, float32(1.0), NewEntry("a", DomainGeneral).WithMetadata(md).Metadata.Importance)
}

func TestExpiry(t *testing.T) {
	e := NewEntry("short lived", DomainGeneral).WithTTL(-time.Minute)
	assert.True(t, e.IsExpired())

	e2 := NewEntry("long lived", DomainGeneral).WithTTL(time.Hour)
	assert.False(t, e2.IsExpired())

	assert.False(t, NewEntry("no expiry", DomainGeneral).IsExpired())
}

func TestAge(t *testing.T) {
	e := NewEntry("aged", DomainGeneral)
	e.CreatedAt = time.Now().UTC().Add(-2 * time.Hour)

	assert.GreaterOrEqual(t, e.AgeSeconds(), int64(7200))
	assert.InDelta(t, 2.0, e.AgeHours(), 0.01)
}

func TestMarkAccessed(t *testing.T) {
	e := NewEntry("content", DomainGeneral)
	before := e.AccessedAt
	time.Sleep(5 * time.Millisecond)
	e.MarkAccessed()
	assert.True(t, e.AccessedAt.After(before))
}

func TestIsSafe(t *testing.T) {
	e := NewEntry("content", DomainGeneral)

	for status, want := range map[ScreeningStatus]bool{
		ScreeningUnscreened: true,
		ScreeningSafe:       true,
		ScreeningFlagged:    false,
		ScreeningBlocked:    false,
		ScreeningPending:    false,
	} {
		e.Metadata.Screening = status
		assert.Equal(t, want, e.IsSafe(), "status %s", status)
	}
}

func TestCloneIsDeep(t *testing.T) {
	e := NewEntry("content", DomainCode).
		WithTags("a").
		WithTTL(time.Hour).
		WithEmbedding([]float32{1, 2, 3})
	e.Metadata.Custom = map[string]any{"k": "v"}

	cp := e.Clone()
	cp.Metadata.Tags[0] = "mutated"
	cp.Metadata.Custom["k"] = "mutated"
	cp.Embedding[0] = 99
	*cp.ExpiresAt = time.Time{}

	assert.Equal(t, []string{"a"}, e.Metadata.Tags)
	assert.Equal(t, "v", e.Metadata.Custom["k"])
	assert.Equal(t, float32(1), e.Embedding[0])
	assert.False(t, e.ExpiresAt.IsZero())
}

func TestEntryJSONRoundTrip(t *testing.T) {
	e := NewEntry("serialized content", DomainWebSearch).
		WithSource("crawler").
		WithImportance(0.4).
		WithTags("x", "y").
		WithEmbedding([]float32{0.5, -0.5})
	e.Metadata.Screening = ScreeningSafe

	raw, err := json.Marshal(e)
	require.NoError(t, err)

	var decoded Entry
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.Equal(t, e.ID, decoded.ID)
	assert.Equal(t, e.Content, decoded.Content)
	assert.Equal(t, DomainWebSearch, decoded.Domain)
	assert.Equal(t, ScreeningSafe, decoded.Metadata.Screening)
	assert.Equal(t, e.Metadata.Tags, decoded.Metadata.Tags)
	assert.Equal(t, e.Embedding, decoded.Embedding)
	assert.True(t, e.CreatedAt.Equal(decoded.CreatedAt))
}
