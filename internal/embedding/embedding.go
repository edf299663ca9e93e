// Package embedding turns text into vectors for similarity scoring. The
// retrieval pipeline only depends on the Generator interfaces; the concrete
// generator (hash-based, remote HTTP, or a ternary-quantizing wrapper) is
// injected at construction.
package embedding

import (
	"context"

	"github.com/objones25/mnemo/internal/ternary"
	merr "github.com/objones25/mnemo/pkg/errors"
)

// Generator produces dense embeddings of a fixed dimension.
type Generator interface {
	Generate(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// QuantizedGenerator additionally compresses embeddings into the ternary
// representation and reconstructs approximate dense vectors from it.
// QuantizeVector compresses an already computed vector without re-embedding,
// which lets callers reuse vectors stored alongside entries.
type QuantizedGenerator interface {
	Generator
	Quantize(ctx context.Context, text string) (*ternary.Quantized, error)
	QuantizeVector(vec []float32) (*ternary.Quantized, error)
	Reconstruct(q *ternary.Quantized) ([]float32, error)
}

// QuantizedEmbedding is a tagged union over the two embedding
// representations: exactly one of the fields is set.
type QuantizedEmbedding struct {
	SparseTernary *ternary.Quantized `json:"sparse_ternary,omitempty"`
	Dense         []float32          `json:"dense,omitempty"`
}

// NewSparseTernary wraps a quantized payload.
func NewSparseTernary(q *ternary.Quantized) QuantizedEmbedding {
	return QuantizedEmbedding{SparseTernary: q}
}

// NewDense wraps an uncompressed vector.
func NewDense(vec []float32) QuantizedEmbedding {
	return QuantizedEmbedding{Dense: vec}
}

// IsQuantized reports whether the compressed representation is held.
func (e QuantizedEmbedding) IsQuantized() bool {
	return e.SparseTernary != nil
}

// SizeBytes estimates the in-memory footprint of the held representation.
func (e QuantizedEmbedding) SizeBytes() int {
	if e.SparseTernary != nil {
		return e.SparseTernary.SizeBytes()
	}
	return 24 + 4*len(e.Dense)
}

// Vector materializes a dense vector from either representation, using gen
// to reconstruct the quantized form.
func (e QuantizedEmbedding) Vector(gen QuantizedGenerator) ([]float32, error) {
	if e.SparseTernary != nil {
		if gen == nil {
			return nil, merr.New(merr.CodePayloadMissing, "no generator available to reconstruct quantized embedding")
		}
		return gen.Reconstruct(e.SparseTernary)
	}
	if e.Dense == nil {
		return nil, merr.New(merr.CodePayloadMissing, "embedding holds neither representation")
	}
	return e.Dense, nil
}
