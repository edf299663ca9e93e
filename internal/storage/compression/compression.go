// Package compression gates gzip around serialized context entries so small
// records skip the codec entirely. Compressed payloads are recognized on the
// way out by the gzip magic number, keeping stored values self-describing.
package compression

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
)

// DefaultThreshold is the payload size in bytes above which compression
// kicks in.
const DefaultThreshold = 1024

// Compressor compresses payloads larger than Threshold and passes smaller
// ones through untouched.
type Compressor struct {
	Threshold int
}

// New returns a Compressor, substituting DefaultThreshold for a
// non-positive threshold.
func New(threshold int) *Compressor {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Compressor{Threshold: threshold}
}

// Compress gzips data when it exceeds the threshold, otherwise returns it
// unchanged.
func (c *Compressor) Compress(data []byte) ([]byte, error) {
	if len(data) <= c.Threshold {
		return data, nil
	}

	var buf bytes.Buffer
	writer := gzip.NewWriter(&buf)
	if _, err := writer.Write(data); err != nil {
		return nil, fmt.Errorf("compress payload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finish compressed payload: %w", err)
	}
	return buf.Bytes(), nil
}

// Decompress reverses Compress. Payloads without the gzip magic number are
// returned unchanged.
func (c *Compressor) Decompress(data []byte) ([]byte, error) {
	if len(data) < 2 || data[0] != 0x1f || data[1] != 0x8b {
		return data, nil
	}

	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open compressed payload: %w", err)
	}
	defer reader.Close()

	decompressed, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read compressed payload: %w", err)
	}
	return decompressed, nil
}
