package ternary

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	merr "github.com/objones25/mnemo/pkg/errors"
)

func TestNewSparseVector(t *testing.T) {
	v, err := NewSparseVector(10, []uint32{0, 2, 4}, []int8{1, -1, 1})
	require.NoError(t, err)

	assert.Equal(t, 10, v.Dimension)
	assert.Equal(t, 3, v.NonZeroCount())
	assert.InDelta(t, 70.0, v.Sparsity, 0.01)
}

func TestNewSparseVectorFiltersZeros(t *testing.T) {
	v, err := NewSparseVector(8, []uint32{1, 3, 5}, []int8{1, 0, -1})
	require.NoError(t, err)

	assert.Equal(t, []uint32{1, 5}, v.Indices)
	assert.Equal(t, []int8{1, -1}, v.Values)
	assert.Equal(t, 2, v.NonZeroCount())
}

func TestNewSparseVectorValidation(t *testing.T) {
	tests := []struct {
		name      string
		dimension int
		indices   []uint32
		values    []int8
	}{
		{"zero dimension", 0, nil, nil},
		{"length mismatch", 10, []uint32{0, 1}, []int8{1}},
		{"invalid value", 10, []uint32{0}, []int8{3}},
		{"index out of range", 4, []uint32{4}, []int8{1}},
		{"duplicate index", 10, []uint32{2, 2}, []int8{1, -1}},
		{"descending indices", 10, []uint32{5, 2}, []int8{1, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSparseVector(tt.dimension, tt.indices, tt.values)
			require.Error(t, err)
			assert.True(t, merr.HasCode(err, merr.CodePayloadInvalid))
		})
	}
}

func TestSparseVectorToDense(t *testing.T) {
	v, err := NewSparseVector(6, []uint32{1, 4}, []int8{-1, 1})
	require.NoError(t, err)

	dense := v.ToDense()
	assert.Equal(t, []float32{0, -1, 0, 0, 1, 0}, dense)
}

func TestSparseVectorSizeBytes(t *testing.T) {
	v, err := NewSparseVector(10, []uint32{0, 2, 4}, []int8{1, -1, 1})
	require.NoError(t, err)

	// 8 + (24 + 3*4) + (24 + 3) + 4
	assert.Equal(t, 75, v.SizeBytes())
}

func TestEffectiveTopK(t *testing.T) {
	explicit := SparsityConfig{TopK: 20, TargetSparsity: 0.5}
	assert.Equal(t, 20, explicit.effectiveTopK(384))

	derived := SparsityConfig{TargetSparsity: 0.85}
	assert.Equal(t, 58, derived.effectiveTopK(384))

	derivedFloor := SparsityConfig{TargetSparsity: 0.999}
	assert.Equal(t, 1, derivedFloor.effectiveTopK(100))

	uncapped := SparsityConfig{}
	assert.Equal(t, 0, uncapped.effectiveTopK(384))
}

func TestSparseQuantizerBasic(t *testing.T) {
	q := NewSparseQuantizer(DefaultSparsityConfig())

	dense := []float32{0.5, -0.3, 0.8, 0.1, -0.6, 0.2, 0.9, -0.4}
	v, err := q.Quantize(dense)
	require.NoError(t, err)

	assert.Greater(t, v.NonZeroCount(), 0)
	assert.LessOrEqual(t, v.NonZeroCount(), len(dense))
	assert.Equal(t, len(dense), v.Dimension)

	reconstructed := q.Dequantize(v)
	assert.Len(t, reconstructed, len(dense))
}

func TestSparseQuantizerSignMapping(t *testing.T) {
	cfg := SparsityConfig{Threshold: 0.01}
	q := NewSparseQuantizer(cfg)

	v, err := q.Quantize([]float32{1.0, -1.0, 0.001, -0.002})
	require.NoError(t, err)

	// Normalization divides by 1.0; the tiny values fall under threshold.
	assert.Equal(t, []uint32{0, 1}, v.Indices)
	assert.Equal(t, []int8{1, -1}, v.Values)
}

func TestSparseQuantizerTopKBound(t *testing.T) {
	cfg := SparsityConfig{TopK: 50, Threshold: 0.01}
	q := NewSparseQuantizer(cfg)

	dense := make([]float32, 384)
	for i := range dense {
		dense[i] = float32(math.Sin(float64(i) * 0.7))
	}

	v, err := q.Quantize(dense)
	require.NoError(t, err)

	assert.LessOrEqual(t, v.NonZeroCount(), 50)
	assert.GreaterOrEqual(t, v.Sparsity, float32(85.0))
	for i := 1; i < len(v.Indices); i++ {
		assert.Less(t, v.Indices[i-1], v.Indices[i])
	}
}

func TestSparseQuantizerTopKKeepsLargest(t *testing.T) {
	cfg := SparsityConfig{TopK: 2, Threshold: 0.01}
	q := NewSparseQuantizer(cfg)

	v, err := q.Quantize([]float32{0.9, 0.1, -0.8, 0.2})
	require.NoError(t, err)

	assert.Equal(t, []uint32{0, 2}, v.Indices)
	assert.Equal(t, []int8{1, -1}, v.Values)
}

func TestSparseQuantizerDeterministic(t *testing.T) {
	q := NewSparseQuantizer(DefaultSparsityConfig())

	dense := make([]float32, 128)
	for i := range dense {
		dense[i] = float32(math.Cos(float64(i)))
	}

	a, err := q.Quantize(dense)
	require.NoError(t, err)
	b, err := q.Quantize(dense)
	require.NoError(t, err)

	assert.Equal(t, a.Indices, b.Indices)
	assert.Equal(t, a.Values, b.Values)
}

func TestSparseQuantizerZeroVector(t *testing.T) {
	q := NewSparseQuantizer(DefaultSparsityConfig())

	v, err := q.Quantize(make([]float32, 16))
	require.NoError(t, err)

	assert.Equal(t, 0, v.NonZeroCount())
	assert.Equal(t, float32(100.0), v.Sparsity)
}

func TestSparseQuantizerEmptyInput(t *testing.T) {
	q := NewSparseQuantizer(DefaultSparsityConfig())

	_, err := q.Quantize(nil)
	require.Error(t, err)
	assert.True(t, merr.HasCode(err, merr.CodePayloadInvalid))
}

func TestSparseRoundTripZeroesUntouched(t *testing.T) {
	q := NewSparseQuantizer(SparsityConfig{TopK: 3, Threshold: 0.01})

	dense := []float32{0.9, 0.0, -0.7, 0.05, 0.8, 0.0}
	v, err := q.Quantize(dense)
	require.NoError(t, err)

	reconstructed := q.Dequantize(v)
	require.Len(t, reconstructed, len(dense))

	surviving := make(map[uint32]bool, len(v.Indices))
	for _, idx := range v.Indices {
		surviving[idx] = true
	}
	for i, val := range reconstructed {
		if !surviving[uint32(i)] {
			assert.Zero(t, val, "coordinate %d should reconstruct to zero", i)
		} else {
			assert.NotZero(t, val)
		}
	}
}
