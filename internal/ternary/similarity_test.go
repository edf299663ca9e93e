package ternary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	merr "github.com/objones25/mnemo/pkg/errors"
)

func mustSparse(t *testing.T, dim int, indices []uint32, values []int8) *SparseVector {
	t.Helper()
	v, err := NewSparseVector(dim, indices, values)
	require.NoError(t, err)
	return v
}

func TestCosineSparseIdentical(t *testing.T) {
	a := mustSparse(t, 10, []uint32{0, 2, 4}, []int8{1, -1, 1})
	b := mustSparse(t, 10, []uint32{0, 2, 4}, []int8{1, -1, 1})

	sim, err := CosineSparse(a, b)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sim, 0.01)
}

func TestCosineSparseSymmetry(t *testing.T) {
	a := mustSparse(t, 12, []uint32{0, 3, 7, 9}, []int8{1, -1, 1, 1})
	b := mustSparse(t, 12, []uint32{1, 3, 7}, []int8{-1, -1, -1})

	ab, err := CosineSparse(a, b)
	require.NoError(t, err)
	ba, err := CosineSparse(b, a)
	require.NoError(t, err)
	assert.Equal(t, ab, ba)
}

func TestCosineSparseDisjoint(t *testing.T) {
	a := mustSparse(t, 10, []uint32{0, 1}, []int8{1, 1})
	b := mustSparse(t, 10, []uint32{5, 6}, []int8{1, 1})

	sim, err := CosineSparse(a, b)
	require.NoError(t, err)
	assert.Zero(t, sim)
}

func TestCosineSparseOpposite(t *testing.T) {
	a := mustSparse(t, 10, []uint32{2, 5}, []int8{1, -1})
	b := mustSparse(t, 10, []uint32{2, 5}, []int8{-1, 1})

	sim, err := CosineSparse(a, b)
	require.NoError(t, err)
	assert.InDelta(t, -1.0, sim, 0.01)
}

func TestCosineSparseZeroNorm(t *testing.T) {
	empty := mustSparse(t, 10, nil, nil)
	b := mustSparse(t, 10, []uint32{1}, []int8{1})

	sim, err := CosineSparse(empty, b)
	require.NoError(t, err)
	assert.Zero(t, sim)
}

func TestCosineSparseDimensionMismatch(t *testing.T) {
	a := mustSparse(t, 10, []uint32{0}, []int8{1})
	b := mustSparse(t, 12, []uint32{0}, []int8{1})

	_, err := CosineSparse(a, b)
	require.Error(t, err)
	assert.True(t, merr.IsDimensionMismatch(err))

	_, err = HammingSparse(a, b)
	assert.True(t, merr.IsDimensionMismatch(err))
}

func TestHammingSparse(t *testing.T) {
	a := mustSparse(t, 10, []uint32{0, 2, 4}, []int8{1, -1, 1})
	identical := mustSparse(t, 10, []uint32{0, 2, 4}, []int8{1, -1, 1})
	flipped := mustSparse(t, 10, []uint32{0, 2, 4}, []int8{1, 1, 1})
	disjoint := mustSparse(t, 10, []uint32{1, 3}, []int8{1, 1})

	sim, err := HammingSparse(a, identical)
	require.NoError(t, err)
	assert.Equal(t, float32(1.0), sim)

	sim, err = HammingSparse(a, flipped)
	require.NoError(t, err)
	assert.InDelta(t, 2.0/3.0, sim, 1e-6)

	sim, err = HammingSparse(a, disjoint)
	require.NoError(t, err)
	assert.Zero(t, sim)
}

func TestHammingSparseBothEmpty(t *testing.T) {
	a := mustSparse(t, 10, nil, nil)
	b := mustSparse(t, 10, nil, nil)

	sim, err := HammingSparse(a, b)
	require.NoError(t, err)
	assert.Equal(t, float32(1.0), sim)
}

func TestCosineSparseBatchMatchesSequential(t *testing.T) {
	query := mustSparse(t, 16, []uint32{0, 4, 8, 12}, []int8{1, -1, 1, -1})

	candidates := make([]*SparseVector, 40)
	for i := range candidates {
		idx := uint32(i % 13)
		candidates[i] = mustSparse(t, 16, []uint32{idx, idx + 3}, []int8{1, -1})
	}

	batch, err := CosineSparseBatch(query, candidates, 0)
	require.NoError(t, err)
	require.Len(t, batch, len(candidates))

	for i, c := range candidates {
		want, err := CosineSparse(query, c)
		require.NoError(t, err)
		assert.Equal(t, want, batch[i], "candidate %d", i)
	}
}

func TestHammingSparseBatchMatchesSequential(t *testing.T) {
	query := mustSparse(t, 16, []uint32{1, 5, 9}, []int8{1, 1, -1})

	candidates := []*SparseVector{
		mustSparse(t, 16, []uint32{1, 5, 9}, []int8{1, 1, -1}),
		mustSparse(t, 16, []uint32{2, 6}, []int8{1, 1}),
		mustSparse(t, 16, nil, nil),
	}

	batch, err := HammingSparseBatch(query, candidates, 0)
	require.NoError(t, err)
	require.Len(t, batch, 3)

	for i, c := range candidates {
		want, err := HammingSparse(query, c)
		require.NoError(t, err)
		assert.Equal(t, want, batch[i])
	}
}

func TestSimilarityBatchPropagatesErrors(t *testing.T) {
	query := mustSparse(t, 16, []uint32{1}, []int8{1})
	candidates := []*SparseVector{
		mustSparse(t, 16, []uint32{1}, []int8{1}),
		mustSparse(t, 8, []uint32{1}, []int8{1}),
	}

	_, err := CosineSparseBatch(query, candidates, 0)
	require.Error(t, err)
	assert.True(t, merr.IsDimensionMismatch(err))
}

func TestSimilarityBatchEmpty(t *testing.T) {
	query := mustSparse(t, 16, []uint32{1}, []int8{1})

	results, err := CosineSparseBatch(query, nil, 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

// The worker count is part of the call, never inferred from the host, so any
// explicit value must produce the same scores in the same order.
func TestSimilarityBatchWorkerCountInvariant(t *testing.T) {
	query := mustSparse(t, 16, []uint32{0, 4, 8, 12}, []int8{1, -1, 1, -1})

	candidates := make([]*SparseVector, 25)
	for i := range candidates {
		idx := uint32(i % 11)
		candidates[i] = mustSparse(t, 16, []uint32{idx, idx + 2}, []int8{-1, 1})
	}

	sequential, err := CosineSparseBatch(query, candidates, 1)
	require.NoError(t, err)

	for _, workers := range []int{2, 8, 64, -3} {
		got, err := CosineSparseBatch(query, candidates, workers)
		require.NoError(t, err)
		assert.Equal(t, sequential, got, "workers=%d", workers)
	}
}
