package ternary

import (
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	merr "github.com/objones25/mnemo/pkg/errors"
)

// CosineSparse computes cosine similarity directly over sparse ternary form.
// The dot product runs over coordinates non-zero in both vectors; each norm
// covers that vector's own non-zero set. The result is clamped to [-1, 1]
// and zero when either norm is zero.
func CosineSparse(a, b *SparseVector) (float32, error) {
	if a.Dimension != b.Dimension {
		return 0, merr.Errorf(merr.CodeDimensionMismatch,
			"dimension mismatch: %d vs %d", a.Dimension, b.Dimension)
	}

	bValues := make(map[uint32]int8, len(b.Indices))
	for i, idx := range b.Indices {
		bValues[idx] = b.Values[i]
	}

	var dot, normA, normB float64
	for i, idx := range a.Indices {
		valA := float64(a.Values[i])
		normA += valA * valA
		if valB, ok := bValues[idx]; ok {
			dot += valA * float64(valB)
		}
	}
	for _, v := range b.Values {
		normB += float64(v) * float64(v)
	}

	normProduct := math.Sqrt(normA) * math.Sqrt(normB)
	if normProduct == 0 {
		return 0, nil
	}
	sim := dot / normProduct
	if sim > 1 {
		sim = 1
	} else if sim < -1 {
		sim = -1
	}
	return float32(sim), nil
}

// HammingSparse counts coordinates where both vectors carry the same
// non-zero value, normalized by the larger non-zero count. Two all-zero
// vectors are identical by definition.
func HammingSparse(a, b *SparseVector) (float32, error) {
	if a.Dimension != b.Dimension {
		return 0, merr.Errorf(merr.CodeDimensionMismatch,
			"dimension mismatch: %d vs %d", a.Dimension, b.Dimension)
	}

	bValues := make(map[uint32]int8, len(b.Indices))
	for i, idx := range b.Indices {
		bValues[idx] = b.Values[i]
	}

	var matching int
	for i, idx := range a.Indices {
		if valB, ok := bValues[idx]; ok && valB == a.Values[i] {
			matching++
		}
	}

	maxPossible := len(a.Indices)
	if len(b.Indices) > maxPossible {
		maxPossible = len(b.Indices)
	}
	if maxPossible == 0 {
		return 1.0, nil
	}
	return float32(matching) / float32(maxPossible), nil
}

// CosineSparseBatch scores one query against many candidates, splitting the
// work across at most workers goroutines. A non-positive workers falls back
// to GOMAXPROCS. Results align positionally with candidates.
func CosineSparseBatch(query *SparseVector, candidates []*SparseVector, workers int) ([]float32, error) {
	return similarityBatch(CosineSparse, query, candidates, workers)
}

// HammingSparseBatch is the Hamming counterpart of CosineSparseBatch.
func HammingSparseBatch(query *SparseVector, candidates []*SparseVector, workers int) ([]float32, error) {
	return similarityBatch(HammingSparse, query, candidates, workers)
}

func similarityBatch(fn func(a, b *SparseVector) (float32, error), query *SparseVector, candidates []*SparseVector, workers int) ([]float32, error) {
	results := make([]float32, len(candidates))
	if len(candidates) == 0 {
		return results, nil
	}

	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(candidates) {
		workers = len(candidates)
	}
	chunkSize := (len(candidates) + workers - 1) / workers

	var g errgroup.Group
	for w := 0; w < workers; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > len(candidates) {
			end = len(candidates)
		}
		g.Go(func() error {
			for i := start; i < end; i++ {
				score, err := fn(query, candidates[i])
				if err != nil {
					return err
				}
				results[i] = score
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
