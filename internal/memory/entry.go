// Package memory defines the context entry model shared by the storage,
// retrieval, and serving layers: entries, their metadata and screening
// lifecycle, domain classification, and the structural query filter.
package memory

import (
	"crypto/sha256"
	"encoding/base64"
	"time"

	"github.com/google/uuid"
)

// ID uniquely identifies a context entry.
type ID string

// NewID returns a random identifier.
func NewID() ID {
	return ID(uuid.NewString())
}

// ContentID returns the deterministic identifier for a content string: the
// first 16 bytes of its SHA-256 digest, base64-encoded. Byte-identical
// content always maps to the same ID, which is what makes re-storing the
// same text a dedup rather than a duplicate.
func ContentID(content string) ID {
	sum := sha256.Sum256([]byte(content))
	return ID(base64.StdEncoding.EncodeToString(sum[:16]))
}

func (id ID) String() string {
	return string(id)
}

// Metadata carries the descriptive and screening state attached to an entry.
type Metadata struct {
	// Source of the entry, e.g. "user", "web", "file".
	Source string `json:"source"`
	// Tags for categorization. Order is irrelevant and duplicates are kept.
	Tags []string `json:"tags"`
	// Importance in [0,1]; clamped on write.
	Importance float32 `json:"importance"`
	// Verified marks entries that passed an external review.
	Verified bool `json:"verified"`
	// Screening is the security screening outcome.
	Screening ScreeningStatus `json:"screening_status"`
	// Custom holds free-form key/value pairs.
	Custom map[string]any `json:"custom,omitempty"`
}

// NewMetadata returns the default metadata block: unscreened, unverified,
// full importance.
func NewMetadata() Metadata {
	return Metadata{Importance: 1.0}
}

// Entry is a stored context record.
type Entry struct {
	ID         ID         `json:"id"`
	Content    string     `json:"content"`
	Domain     Domain     `json:"domain"`
	CreatedAt  time.Time  `json:"created_at"`
	AccessedAt time.Time  `json:"accessed_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	Metadata   Metadata   `json:"metadata"`
	Embedding  []float32  `json:"embedding,omitempty"`
}

// NewEntry creates an entry with a content-addressed identifier and default
// metadata. Use WithID to substitute a random or caller-chosen identifier.
func NewEntry(content string, domain Domain) *Entry {
	now := time.Now().UTC()
	return &Entry{
		ID:         ContentID(content),
		Content:    content,
		Domain:     domain,
		CreatedAt:  now,
		AccessedAt: now,
		Metadata:   NewMetadata(),
	}
}

func (e *Entry) WithID(id ID) *Entry {
	e.ID = id
	return e
}

func (e *Entry) WithMetadata(md Metadata) *Entry {
	md.Importance = clampImportance(md.Importance)
	e.Metadata = md
	return e
}

func (e *Entry) WithSource(source string) *Entry {
	e.Metadata.Source = source
	return e
}

func (e *Entry) WithImportance(importance float32) *Entry {
	e.Metadata.Importance = clampImportance(importance)
	return e
}

func (e *Entry) WithTags(tags ...string) *Entry {
	e.Metadata.Tags = tags
	return e
}

func (e *Entry) WithExpiration(at time.Time) *Entry {
	e.ExpiresAt = &at
	return e
}

// WithTTL sets the expiry relative to now.
func (e *Entry) WithTTL(ttl time.Duration) *Entry {
	at := time.Now().UTC().Add(ttl)
	e.ExpiresAt = &at
	return e
}

func (e *Entry) WithEmbedding(embedding []float32) *Entry {
	e.Embedding = embedding
	return e
}

// IsExpired reports whether the entry's expiry, if any, is in the past.
func (e *Entry) IsExpired() bool {
	return e.ExpiresAt != nil && time.Now().After(*e.ExpiresAt)
}

// AgeSeconds is the whole seconds elapsed since creation.
func (e *Entry) AgeSeconds() int64 {
	return int64(time.Since(e.CreatedAt).Seconds())
}

// AgeHours is the fractional hours elapsed since creation.
func (e *Entry) AgeHours() float64 {
	return time.Since(e.CreatedAt).Hours()
}

// MarkAccessed refreshes the accessed-at timestamp.
func (e *Entry) MarkAccessed() {
	e.AccessedAt = time.Now().UTC()
}

// IsSafe reports whether the entry may be served to safety-filtered
// retrieval: screened safe, or not yet screened.
func (e *Entry) IsSafe() bool {
	return e.Metadata.Screening == ScreeningSafe || e.Metadata.Screening == ScreeningUnscreened
}

// Clone returns a deep copy. The store hands out clones so callers can never
// mutate cached state through a returned entry.
func (e *Entry) Clone() *Entry {
	cp := *e
	if e.ExpiresAt != nil {
		at := *e.ExpiresAt
		cp.ExpiresAt = &at
	}
	if e.Metadata.Tags != nil {
		cp.Metadata.Tags = append([]string(nil), e.Metadata.Tags...)
	}
	if e.Metadata.Custom != nil {
		cp.Metadata.Custom = make(map[string]any, len(e.Metadata.Custom))
		for k, v := range e.Metadata.Custom {
			cp.Metadata.Custom[k] = v
		}
	}
	if e.Embedding != nil {
		cp.Embedding = append([]float32(nil), e.Embedding...)
	}
	return &cp
}

func clampImportance(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
