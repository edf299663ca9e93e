package embedding

import (
	"context"

	"github.com/objones25/mnemo/internal/ternary"
	merr "github.com/objones25/mnemo/pkg/errors"
)

// Default residual quantizer shape for the ternary wrapper. Two layers of
// sixteen scalar centroids reconstruct hash and sentence embeddings well
// while staying far smaller than the dense vector.
const (
	DefaultRVQLayers       = 2
	DefaultRVQCodebookSize = 16
)

// TernaryGenerator wraps any dense Generator with a ternary codec so
// callers can hold compressed embeddings and reconstruct approximations on
// demand.
type TernaryGenerator struct {
	base  Generator
	codec *ternary.Codec
}

var _ QuantizedGenerator = (*TernaryGenerator)(nil)

// NewTernaryGenerator builds the wrapper with default codec parameters for
// the given strategy.
func NewTernaryGenerator(base Generator, strategy ternary.Strategy) (*TernaryGenerator, error) {
	if base == nil {
		return nil, merr.New(merr.CodeConfigInvalid, "base generator cannot be nil")
	}

	dim := base.Dimension()
	var (
		codec *ternary.Codec
		err   error
	)
	switch strategy {
	case ternary.StrategySparse:
		codec, err = ternary.NewSparseCodec(dim, ternary.DefaultSparsityConfig())
	case ternary.StrategyRVQ:
		codec, err = ternary.NewRVQCodec(dim, DefaultRVQLayers, DefaultRVQCodebookSize)
	case ternary.StrategyHybrid:
		codec, err = ternary.NewHybridCodec(dim, ternary.DefaultSparsityConfig(), DefaultRVQLayers, DefaultRVQCodebookSize)
	default:
		return nil, merr.Errorf(merr.CodeConfigInvalid, "unknown quantization strategy %q", strategy)
	}
	if err != nil {
		return nil, err
	}
	return &TernaryGenerator{base: base, codec: codec}, nil
}

// NewTernaryGeneratorWithCodec pairs a generator with a caller-built codec.
func NewTernaryGeneratorWithCodec(base Generator, codec *ternary.Codec) (*TernaryGenerator, error) {
	if base == nil {
		return nil, merr.New(merr.CodeConfigInvalid, "base generator cannot be nil")
	}
	if codec == nil {
		return nil, merr.New(merr.CodeConfigInvalid, "codec cannot be nil")
	}
	return &TernaryGenerator{base: base, codec: codec}, nil
}

func (g *TernaryGenerator) Dimension() int {
	return g.base.Dimension()
}

func (g *TernaryGenerator) Generate(ctx context.Context, text string) ([]float32, error) {
	return g.base.Generate(ctx, text)
}

// Quantize embeds the text and compresses the result.
func (g *TernaryGenerator) Quantize(ctx context.Context, text string) (*ternary.Quantized, error) {
	vec, err := g.base.Generate(ctx, text)
	if err != nil {
		return nil, err
	}
	return g.codec.Quantize(vec)
}

// QuantizeVector compresses a dense vector that was already computed.
func (g *TernaryGenerator) QuantizeVector(vec []float32) (*ternary.Quantized, error) {
	return g.codec.Quantize(vec)
}

// Reconstruct decodes a quantized payload back into an approximate dense
// vector.
func (g *TernaryGenerator) Reconstruct(q *ternary.Quantized) ([]float32, error) {
	return g.codec.Dequantize(q)
}
