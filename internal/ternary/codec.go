// Package ternary compresses dense embedding vectors into balanced ternary
// form. Two strategies are available and composable: codebook-free sparse
// quantization (top-k coordinates in {-1, +1}) and residual vector
// quantization with small per-layer codebooks. A hybrid mode carries both
// payloads, trading space for reconstruction fidelity.
package ternary

import (
	"encoding/json"

	merr "github.com/objones25/mnemo/pkg/errors"
)

// Strategy selects which quantization paths a Codec runs.
type Strategy int

const (
	StrategySparse Strategy = iota
	StrategyRVQ
	StrategyHybrid
)

func (s Strategy) String() string {
	switch s {
	case StrategySparse:
		return "sparse"
	case StrategyRVQ:
		return "rvq"
	case StrategyHybrid:
		return "hybrid"
	default:
		return "unknown"
	}
}

// ParseStrategy maps the wire names back to the enum.
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "sparse":
		return StrategySparse, nil
	case "rvq":
		return StrategyRVQ, nil
	case "hybrid":
		return StrategyHybrid, nil
	default:
		return StrategySparse, merr.Errorf(merr.CodeConfigInvalid, "unknown ternary strategy: %q", s)
	}
}

func (s Strategy) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Strategy) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseStrategy(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Quantized is a compressed embedding tagged with the strategy that produced
// it. Sparse and RVQ payloads are each present only when the strategy ran
// that path.
type Quantized struct {
	Strategy Strategy      `json:"strategy"`
	Sparse   *SparseVector `json:"sparse,omitempty"`
	RVQ      *Codebook     `json:"rvq,omitempty"`
}

// SizeBytes sums the footprint estimates of whichever payloads are present.
func (q *Quantized) SizeBytes() int {
	var size int
	if q.Sparse != nil {
		size += q.Sparse.SizeBytes()
	}
	if q.RVQ != nil {
		size += q.RVQ.SizeBytes()
	}
	return size
}

// Codec quantizes and reconstructs dense vectors of a fixed dimension using
// the configured strategy.
type Codec struct {
	strategy  Strategy
	dimension int
	sparse    *SparseQuantizer
	rvq       *RVQQuantizer
}

// NewSparseCodec builds a codebook-free sparse codec.
func NewSparseCodec(dimension int, cfg SparsityConfig) (*Codec, error) {
	if dimension < 1 {
		return nil, merr.Errorf(merr.CodeConfigInvalid, "codec dimension must be positive, got %d", dimension)
	}
	return &Codec{
		strategy:  StrategySparse,
		dimension: dimension,
		sparse:    NewSparseQuantizer(cfg),
	}, nil
}

// NewRVQCodec builds a residual-quantization codec.
func NewRVQCodec(dimension, numLayers, codebookSize int) (*Codec, error) {
	if dimension < 1 {
		return nil, merr.Errorf(merr.CodeConfigInvalid, "codec dimension must be positive, got %d", dimension)
	}
	rvq, err := NewRVQQuantizer(numLayers, codebookSize)
	if err != nil {
		return nil, err
	}
	return &Codec{
		strategy:  StrategyRVQ,
		dimension: dimension,
		rvq:       rvq,
	}, nil
}

// NewHybridCodec builds a codec that runs both paths on every Quantize and
// prefers the RVQ payload on Dequantize.
func NewHybridCodec(dimension int, cfg SparsityConfig, numLayers, codebookSize int) (*Codec, error) {
	if dimension < 1 {
		return nil, merr.Errorf(merr.CodeConfigInvalid, "codec dimension must be positive, got %d", dimension)
	}
	rvq, err := NewRVQQuantizer(numLayers, codebookSize)
	if err != nil {
		return nil, err
	}
	return &Codec{
		strategy:  StrategyHybrid,
		dimension: dimension,
		sparse:    NewSparseQuantizer(cfg),
		rvq:       rvq,
	}, nil
}

func (c *Codec) Strategy() Strategy { return c.strategy }

func (c *Codec) Dimension() int { return c.dimension }

// Quantize compresses a dense vector. The input length must match the
// configured dimension.
func (c *Codec) Quantize(dense []float32) (*Quantized, error) {
	if len(dense) != c.dimension {
		return nil, merr.Errorf(merr.CodeDimensionMismatch,
			"expected dimension %d, got %d", c.dimension, len(dense))
	}

	out := &Quantized{Strategy: c.strategy}
	if c.sparse != nil {
		sv, err := c.sparse.Quantize(dense)
		if err != nil {
			return nil, err
		}
		out.Sparse = sv
	}
	if c.rvq != nil {
		cb, err := c.rvq.Quantize(dense)
		if err != nil {
			return nil, err
		}
		out.RVQ = cb
	}
	return out, nil
}

// Dequantize reconstructs a dense vector from the payload the codec's
// strategy requires. Hybrid prefers RVQ for fidelity and falls back to the
// sparse payload.
func (c *Codec) Dequantize(q *Quantized) ([]float32, error) {
	switch c.strategy {
	case StrategySparse:
		if q.Sparse == nil {
			return nil, merr.New(merr.CodePayloadMissing, "sparse payload not found")
		}
		return q.Sparse.ToDense(), nil
	case StrategyRVQ:
		if q.RVQ == nil {
			return nil, merr.New(merr.CodePayloadMissing, "rvq payload not found")
		}
		return c.rvq.Dequantize(q.RVQ), nil
	case StrategyHybrid:
		if q.RVQ != nil && c.rvq != nil {
			return c.rvq.Dequantize(q.RVQ), nil
		}
		if q.Sparse != nil {
			return q.Sparse.ToDense(), nil
		}
		return nil, merr.New(merr.CodePayloadMissing, "no quantized payload found")
	default:
		return nil, merr.Errorf(merr.CodeConfigInvalid, "unknown ternary strategy: %d", int(c.strategy))
	}
}
