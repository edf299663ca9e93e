package ternary

import (
	"math"
	"sort"

	merr "github.com/objones25/mnemo/pkg/errors"
)

// SparseVector is a ternary-quantized embedding stored in sparse form: only
// the non-zero coordinates are kept, as a sorted index slice with a parallel
// value slice over {-1, +1}. Sparsity is the percentage of zero coordinates
// in the original dense vector.
type SparseVector struct {
	Dimension int      `json:"dimension"`
	Indices   []uint32 `json:"indices"`
	Values    []int8   `json:"values"`
	Sparsity  float32  `json:"sparsity"`
}

// NewSparseVector validates and builds a sparse ternary vector. Values must
// be in {-1, 0, 1}; zero pairs are dropped. Indices must be strictly
// increasing and inside the dimension after filtering.
func NewSparseVector(dimension int, indices []uint32, values []int8) (*SparseVector, error) {
	if dimension <= 0 {
		return nil, merr.Errorf(merr.CodePayloadInvalid, "dimension must be positive, got %d", dimension)
	}
	if len(indices) != len(values) {
		return nil, merr.Errorf(merr.CodePayloadInvalid,
			"indices and values length mismatch: %d vs %d", len(indices), len(values))
	}
	for _, v := range values {
		if v < -1 || v > 1 {
			return nil, merr.Errorf(merr.CodePayloadInvalid, "invalid ternary value: %d", v)
		}
	}

	filteredIdx := make([]uint32, 0, len(indices))
	filteredVal := make([]int8, 0, len(values))
	for i, v := range values {
		if v == 0 {
			continue
		}
		filteredIdx = append(filteredIdx, indices[i])
		filteredVal = append(filteredVal, v)
	}

	for i, idx := range filteredIdx {
		if idx >= uint32(dimension) {
			return nil, merr.Errorf(merr.CodePayloadInvalid,
				"index %d out of range for dimension %d", idx, dimension)
		}
		if i > 0 && filteredIdx[i-1] >= idx {
			return nil, merr.Errorf(merr.CodePayloadInvalid,
				"indices must be strictly increasing: %d after %d", idx, filteredIdx[i-1])
		}
	}

	sparsity := (1.0 - float32(len(filteredIdx))/float32(dimension)) * 100.0
	return &SparseVector{
		Dimension: dimension,
		Indices:   filteredIdx,
		Values:    filteredVal,
		Sparsity:  sparsity,
	}, nil
}

// NonZeroCount returns the number of stored coordinates.
func (v *SparseVector) NonZeroCount() int {
	return len(v.Indices)
}

// ToDense expands the sparse form back to a dense vector of the original
// dimension. Untouched coordinates are zero.
func (v *SparseVector) ToDense() []float32 {
	dense := make([]float32, v.Dimension)
	for i, idx := range v.Indices {
		if idx < uint32(v.Dimension) {
			dense[idx] = float32(v.Values[i])
		}
	}
	return dense
}

// SizeBytes estimates the in-memory footprint: dimension word, slice headers,
// 4 bytes per index, 1 byte per value, and the sparsity float.
func (v *SparseVector) SizeBytes() int {
	return 8 + (24 + len(v.Indices)*4) + (24 + len(v.Values)) + 4
}

// SparsityConfig controls sparse quantization. TopK caps the number of
// non-zero coordinates kept; when zero it is derived from TargetSparsity,
// and when both are unset no cap applies.
type SparsityConfig struct {
	TargetSparsity float64 `json:"target_sparsity"`
	TopK           int     `json:"top_k"`
	Threshold      float64 `json:"threshold"`
}

// DefaultSparsityConfig keeps the top 50 coordinates of a typical 384-dim
// vector at an 0.85 target sparsity.
func DefaultSparsityConfig() SparsityConfig {
	return SparsityConfig{
		TargetSparsity: 0.85,
		TopK:           50,
		Threshold:      0.01,
	}
}

func (c SparsityConfig) effectiveTopK(dimension int) int {
	if c.TopK > 0 {
		return c.TopK
	}
	if c.TargetSparsity > 0 {
		k := int(math.Round(float64(dimension) * (1.0 - c.TargetSparsity)))
		if k < 1 {
			k = 1
		}
		return k
	}
	return 0
}

// SparseQuantizer quantizes dense vectors directly to sparse ternary form
// with top-k sparsity enforcement. No codebook is involved.
type SparseQuantizer struct {
	cfg SparsityConfig
}

func NewSparseQuantizer(cfg SparsityConfig) *SparseQuantizer {
	return &SparseQuantizer{cfg: cfg}
}

// Quantize normalizes the input by its max absolute value, maps each
// coordinate to {-1, 0, 1} by threshold, and keeps at most top-k non-zero
// coordinates ranked by normalized magnitude. Deterministic for a given
// input and config.
func (q *SparseQuantizer) Quantize(dense []float32) (*SparseVector, error) {
	if len(dense) == 0 {
		return nil, merr.New(merr.CodePayloadInvalid, "cannot quantize an empty vector")
	}
	dimension := len(dense)

	var maxAbs float32
	for _, x := range dense {
		if a := float32(math.Abs(float64(x))); a > maxAbs {
			maxAbs = a
		}
	}

	normalized := make([]float32, dimension)
	if maxAbs > 0 {
		for i, x := range dense {
			normalized[i] = x / maxAbs
		}
	} else {
		copy(normalized, dense)
	}

	threshold := float32(q.cfg.Threshold)
	type coord struct {
		idx int
		val int8
	}
	kept := make([]coord, 0, dimension)
	for i, x := range normalized {
		switch {
		case x > threshold:
			kept = append(kept, coord{idx: i, val: 1})
		case x < -threshold:
			kept = append(kept, coord{idx: i, val: -1})
		}
	}

	if k := q.cfg.effectiveTopK(dimension); k > 0 && len(kept) > k {
		sort.Slice(kept, func(a, b int) bool {
			ma := math.Abs(float64(normalized[kept[a].idx]))
			mb := math.Abs(float64(normalized[kept[b].idx]))
			if ma != mb {
				return ma > mb
			}
			return kept[a].idx < kept[b].idx
		})
		kept = kept[:k]
		sort.Slice(kept, func(a, b int) bool { return kept[a].idx < kept[b].idx })
	}

	indices := make([]uint32, len(kept))
	values := make([]int8, len(kept))
	for i, c := range kept {
		indices[i] = uint32(c.idx)
		values[i] = c.val
	}
	return NewSparseVector(dimension, indices, values)
}

// Dequantize reconstructs the dense approximation. Lossy: surviving
// coordinates come back as full-magnitude signs.
func (q *SparseQuantizer) Dequantize(v *SparseVector) []float32 {
	return v.ToDense()
}
