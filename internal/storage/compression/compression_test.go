package compression

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSmallPayloadPassesThrough(t *testing.T) {
	c := New(1024)

	data := []byte(`{"id":"abc","content":"tiny"}`)
	out, err := c.Compress(data)
	require.NoError(t, err)
	assert.Equal(t, data, out)

	back, err := c.Decompress(out)
	require.NoError(t, err)
	assert.Equal(t, data, back)
}

func TestLargePayloadRoundTrip(t *testing.T) {
	c := New(64)

	data := bytes.Repeat([]byte("context entries compress well "), 50)
	out, err := c.Compress(data)
	require.NoError(t, err)
	assert.Less(t, len(out), len(data))
	assert.Equal(t, byte(0x1f), out[0])
	assert.Equal(t, byte(0x8b), out[1])

	back, err := c.Decompress(out)
	require.NoError(t, err)
	assert.Equal(t, data, back)
}

func TestNewSubstitutesDefaultThreshold(t *testing.T) {
	assert.Equal(t, DefaultThreshold, New(0).Threshold)
	assert.Equal(t, DefaultThreshold, New(-5).Threshold)
	assert.Equal(t, 10, New(10).Threshold)
}

func TestDecompressCorruptPayload(t *testing.T) {
	c := New(0)

	// Valid magic number followed by garbage.
	_, err := c.Decompress([]byte{0x1f, 0x8b, 0xff, 0x00, 0x01})
	assert.Error(t, err)
}
