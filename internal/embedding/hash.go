package embedding

import (
	"context"
	"hash/fnv"
	"math"

	merr "github.com/objones25/mnemo/pkg/errors"
)

// HashGenerator derives a deterministic pseudo-embedding from an FNV-64a
// hash of the normalized text. The vectors carry no semantic signal; they
// give the pipeline a stable, dependency-free generator for deployments and
// tests where embedding quality does not matter.
type HashGenerator struct {
	dimension  int
	normalizer *Normalizer
}

func NewHashGenerator(dimension int) (*HashGenerator, error) {
	if dimension < 1 {
		return nil, merr.Errorf(merr.CodeConfigInvalid, "embedding dimension must be positive, got %d", dimension)
	}
	n := NewNormalizer()
	// Hashes are case-brittle, so fold case too.
	n.Lowercase = true
	return &HashGenerator{dimension: dimension, normalizer: n}, nil
}

func (g *HashGenerator) Dimension() int {
	return g.dimension
}

func (g *HashGenerator) Generate(_ context.Context, text string) ([]float32, error) {
	text = g.normalizer.Normalize(text)
	if text == "" {
		return nil, merr.New(merr.CodeRequestInvalid, "cannot embed empty text")
	}

	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float32, g.dimension)
	var norm float64
	for i := range vec {
		// Wrapping multiplication walks the hash across positions; the
		// signed reinterpretation spreads values over [-1, 1).
		raw := seed * uint64(i+1)
		v := float64(int64(raw)) / float64(math.MaxInt64)
		vec[i] = float32(v)
		norm += v * v
	}

	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec, nil
}
