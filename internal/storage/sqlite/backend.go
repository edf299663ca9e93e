package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/objones25/mnemo/internal/memory"
	"github.com/objones25/mnemo/internal/storage"
	merr "github.com/objones25/mnemo/pkg/errors"
)

// Backend stores context entries in a SQLite database.
type Backend struct {
	db   *sql.DB
	path string
}

var _ storage.Backend = (*Backend)(nil)

// Path returns the database location.
func (b *Backend) Path() string {
	return b.path
}

func (b *Backend) Put(ctx context.Context, e *memory.Entry) error {
	meta, err := json.Marshal(e.Metadata)
	if err != nil {
		return merr.Wrapf(err, merr.CodeSerialization, "encode metadata for %s", e.ID)
	}
	// The domain column holds the JSON form, not the bare wire name, so a
	// custom domain named after a builtin survives the round trip.
	dom, err := json.Marshal(e.Domain)
	if err != nil {
		return merr.Wrapf(err, merr.CodeSerialization, "encode domain for %s", e.ID)
	}

	var expires sql.NullInt64
	if e.ExpiresAt != nil {
		expires = sql.NullInt64{Int64: e.ExpiresAt.UnixMilli(), Valid: true}
	}
	blob := encodeEmbedding(e.Embedding)

	_, err = b.db.ExecContext(ctx, `
		INSERT INTO context_entries (id, content, domain, created_at, accessed_at, expires_at, metadata, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content = excluded.content,
			domain = excluded.domain,
			created_at = excluded.created_at,
			accessed_at = excluded.accessed_at,
			expires_at = excluded.expires_at,
			metadata = excluded.metadata,
			embedding = excluded.embedding
	`, string(e.ID), e.Content, string(dom), e.CreatedAt.UnixMilli(), e.AccessedAt.UnixMilli(), expires, string(meta), blob)
	if err != nil {
		return fmt.Errorf("put entry: %w", err)
	}
	return nil
}

func (b *Backend) Get(ctx context.Context, id memory.ID) (*memory.Entry, error) {
	row := b.db.QueryRowContext(ctx, `
		SELECT id, content, domain, created_at, accessed_at, expires_at, metadata, embedding
		FROM context_entries WHERE id = ?
	`, string(id))

	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (b *Backend) Delete(ctx context.Context, id memory.ID) (bool, error) {
	res, err := b.db.ExecContext(ctx, "DELETE FROM context_entries WHERE id = ?", string(id))
	if err != nil {
		return false, fmt.Errorf("delete entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete entry: %w", err)
	}
	return n > 0, nil
}

func (b *Backend) All(ctx context.Context) ([]*memory.Entry, error) {
	rows, err := b.db.QueryContext(ctx, `
		SELECT id, content, domain, created_at, accessed_at, expires_at, metadata, embedding
		FROM context_entries
	`)
	if err != nil {
		return nil, fmt.Errorf("scan entries: %w", err)
	}
	defer rows.Close()

	var entries []*memory.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (b *Backend) Count(ctx context.Context) (int, error) {
	var count int
	if err := b.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM context_entries").Scan(&count); err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return count, nil
}

func (b *Backend) Health(ctx context.Context) error {
	return b.db.PingContext(ctx)
}

func (b *Backend) Close() error {
	return b.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*memory.Entry, error) {
	var (
		id        string
		content   string
		domain    string
		createdMs int64
		accessMs  int64
		expiresMs sql.NullInt64
		metaJSON  string
		blob      []byte
	)
	if err := row.Scan(&id, &content, &domain, &createdMs, &accessMs, &expiresMs, &metaJSON, &blob); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scan entry: %w", err)
	}

	e := &memory.Entry{
		ID:         memory.ID(id),
		Content:    content,
		CreatedAt:  time.UnixMilli(createdMs).UTC(),
		AccessedAt: time.UnixMilli(accessMs).UTC(),
	}
	if err := json.Unmarshal([]byte(domain), &e.Domain); err != nil {
		return nil, merr.Wrapf(err, merr.CodeSerialization, "decode domain for %s", id)
	}
	if expiresMs.Valid {
		at := time.UnixMilli(expiresMs.Int64).UTC()
		e.ExpiresAt = &at
	}
	if err := json.Unmarshal([]byte(metaJSON), &e.Metadata); err != nil {
		return nil, merr.Wrapf(err, merr.CodeSerialization, "decode metadata for %s", id)
	}
	embedding, err := decodeEmbedding(blob)
	if err != nil {
		return nil, merr.With(err, merr.FieldEntryID(id))
	}
	e.Embedding = embedding
	return e, nil
}

// encodeEmbedding packs a float32 vector as a little-endian blob, 4 bytes
// per value. Nil for an absent embedding.
func encodeEmbedding(vec []float32) []byte {
	if len(vec) == 0 {
		return nil
	}
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeEmbedding(buf []byte) ([]float32, error) {
	if len(buf) == 0 {
		return nil, nil
	}
	if len(buf)%4 != 0 {
		return nil, merr.Errorf(merr.CodeSerialization, "embedding blob length %d is not a multiple of 4", len(buf))
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec, nil
}
