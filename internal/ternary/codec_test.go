package ternary

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	merr "github.com/objones25/mnemo/pkg/errors"
)

func TestStrategyRoundTrip(t *testing.T) {
	for _, s := range []Strategy{StrategySparse, StrategyRVQ, StrategyHybrid} {
		parsed, err := ParseStrategy(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}

	_, err := ParseStrategy("dense")
	require.Error(t, err)
	assert.True(t, merr.IsConfig(err))
}

func TestStrategyJSON(t *testing.T) {
	data, err := json.Marshal(StrategyHybrid)
	require.NoError(t, err)
	assert.Equal(t, `"hybrid"`, string(data))

	var s Strategy
	require.NoError(t, json.Unmarshal([]byte(`"rvq"`), &s))
	assert.Equal(t, StrategyRVQ, s)

	assert.Error(t, json.Unmarshal([]byte(`"bogus"`), &s))
}

func TestCodecConstructorValidation(t *testing.T) {
	_, err := NewSparseCodec(0, DefaultSparsityConfig())
	assert.True(t, merr.IsConfig(err))

	_, err = NewRVQCodec(384, 0, 256)
	assert.True(t, merr.IsConfig(err))

	_, err = NewHybridCodec(-1, DefaultSparsityConfig(), 2, 256)
	assert.True(t, merr.IsConfig(err))
}

func TestCodecDimensionMismatch(t *testing.T) {
	c, err := NewSparseCodec(8, DefaultSparsityConfig())
	require.NoError(t, err)

	_, err = c.Quantize(make([]float32, 4))
	require.Error(t, err)
	assert.True(t, merr.IsDimensionMismatch(err))
}

func TestSparseCodecRoundTrip(t *testing.T) {
	c, err := NewSparseCodec(8, DefaultSparsityConfig())
	require.NoError(t, err)

	dense := []float32{0.5, -0.3, 0.8, 0.1, -0.6, 0.2, 0.9, -0.4}
	q, err := c.Quantize(dense)
	require.NoError(t, err)

	assert.Equal(t, StrategySparse, q.Strategy)
	assert.NotNil(t, q.Sparse)
	assert.Nil(t, q.RVQ)

	reconstructed, err := c.Dequantize(q)
	require.NoError(t, err)
	assert.Len(t, reconstructed, 8)
}

func TestRVQCodecRoundTrip(t *testing.T) {
	c, err := NewRVQCodec(5, 2, 16)
	require.NoError(t, err)

	dense := []float32{0.5, -0.3, 0.8, 0.1, -0.6}
	q, err := c.Quantize(dense)
	require.NoError(t, err)

	assert.Equal(t, StrategyRVQ, q.Strategy)
	assert.Nil(t, q.Sparse)
	assert.NotNil(t, q.RVQ)

	reconstructed, err := c.Dequantize(q)
	require.NoError(t, err)
	assert.Len(t, reconstructed, 5)
}

func TestHybridCodecCarriesBothPayloads(t *testing.T) {
	c, err := NewHybridCodec(8, DefaultSparsityConfig(), 2, 16)
	require.NoError(t, err)

	dense := []float32{0.5, -0.3, 0.8, 0.1, -0.6, 0.2, 0.9, -0.4}
	q, err := c.Quantize(dense)
	require.NoError(t, err)

	assert.Equal(t, StrategyHybrid, q.Strategy)
	require.NotNil(t, q.Sparse)
	require.NotNil(t, q.RVQ)

	// RVQ wins when both payloads are present.
	reconstructed, err := c.Dequantize(q)
	require.NoError(t, err)
	assert.Equal(t, c.rvq.Dequantize(q.RVQ), reconstructed)
}

func TestHybridCodecFallsBackToSparse(t *testing.T) {
	c, err := NewHybridCodec(6, DefaultSparsityConfig(), 2, 16)
	require.NoError(t, err)

	sv, err := NewSparseVector(6, []uint32{1, 4}, []int8{-1, 1})
	require.NoError(t, err)

	reconstructed, err := c.Dequantize(&Quantized{Strategy: StrategyHybrid, Sparse: sv})
	require.NoError(t, err)
	assert.Equal(t, sv.ToDense(), reconstructed)
}

func TestDequantizeMissingPayload(t *testing.T) {
	sparse, err := NewSparseCodec(8, DefaultSparsityConfig())
	require.NoError(t, err)
	rvq, err := NewRVQCodec(8, 2, 16)
	require.NoError(t, err)
	hybrid, err := NewHybridCodec(8, DefaultSparsityConfig(), 2, 16)
	require.NoError(t, err)

	for _, c := range []*Codec{sparse, rvq, hybrid} {
		_, err := c.Dequantize(&Quantized{Strategy: c.Strategy()})
		require.Error(t, err)
		assert.True(t, merr.IsStorage(err))
		assert.True(t, merr.HasCode(err, merr.CodePayloadMissing))
	}
}

func TestQuantizedSizeBytes(t *testing.T) {
	c, err := NewHybridCodec(8, DefaultSparsityConfig(), 2, 16)
	require.NoError(t, err)

	dense := []float32{0.5, -0.3, 0.8, 0.1, -0.6, 0.2, 0.9, -0.4}
	q, err := c.Quantize(dense)
	require.NoError(t, err)

	assert.Equal(t, q.Sparse.SizeBytes()+q.RVQ.SizeBytes(), q.SizeBytes())
	assert.Zero(t, (&Quantized{}).SizeBytes())
}

func TestQuantizedJSONWireFormat(t *testing.T) {
	c, err := NewSparseCodec(8, DefaultSparsityConfig())
	require.NoError(t, err)

	q, err := c.Quantize([]float32{0.5, -0.3, 0.8, 0.1, -0.6, 0.2, 0.9, -0.4})
	require.NoError(t, err)

	data, err := json.Marshal(q)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"strategy":"sparse"`)
	assert.NotContains(t, string(data), `"rvq"`)

	var decoded Quantized
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, q.Strategy, decoded.Strategy)
	assert.Equal(t, q.Sparse.Indices, decoded.Sparse.Indices)
	assert.Equal(t, q.Sparse.Values, decoded.Sparse.Values)
}
