package compress

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ulikunitz/xz/lzma"
)

// LZMACompressor provides classic LZMA (.lzma) compression, the lzma-family method of tag 2.
//
// LZMA gives the best ratio of the supported methods at the highest CPU cost.
// It suits archival of events that are written once and read rarely.
type LZMACompressor struct{}

var _ Codec = (*LZMACompressor)(nil)

// NewLZMACompressor creates a new LZMA compressor with default settings.
func NewLZMACompressor() LZMACompressor {
	return LZMACompressor{}
}

// Compress compresses the input data into a single LZMA stream.
func (c LZMACompressor) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var out bytes.Buffer
	w, err := lzma.NewWriter(&out)
	if err != nil {
		return nil, fmt.Errorf("lzma compression failed: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("lzma compression failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("lzma compression failed: %w", err)
	}

	return out.Bytes(), nil
}

// Decompress decompresses an LZMA stream.
func (c LZMACompressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	r, err := lzma.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("lzma decompression failed: %w", err)
	}

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("lzma decompression failed: %w", err)
	}

	return out, nil
}
