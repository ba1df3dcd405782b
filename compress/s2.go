package compress

import (
	"fmt"

	"github.com/klauspost/compress/s2"

	"github.com/arloliu/evpack/errs"
)

// S2Compressor implements S2 block compression, a faster extension of Snappy.
// Blocks start with their decoded length, which is checked against the
// expected size before any output is allocated.
//
// s2 block encoding keeps no state between calls, so nothing is pooled.
type S2Compressor struct{}

var (
	_ Codec             = (*S2Compressor)(nil)
	_ SizedDecompressor = (*S2Compressor)(nil)
)

func NewS2Compressor() S2Compressor {
	return S2Compressor{}
}

func (S2Compressor) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	return s2.Encode(nil, data), nil
}

func (S2Compressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	out, err := s2.Decode(nil, data)
	if err != nil {
		return nil, fmt.Errorf("s2 decompress: %w", err)
	}

	return out, nil
}

// DecompressSize rejects blocks whose header disagrees with size.
func (S2Compressor) DecompressSize(data []byte, size int) ([]byte, error) {
	if len(data) == 0 && size == 0 {
		return nil, nil
	}

	n, err := s2.DecodedLen(data)
	if err != nil {
		return nil, fmt.Errorf("s2 decompress: %w", err)
	}
	if n != size {
		return nil, fmt.Errorf("%w: s2 block holds %d bytes, expected %d", errs.ErrDecompressedSize, n, size)
	}

	out, err := s2.Decode(make([]byte, size), data)
	if err != nil {
		return nil, fmt.Errorf("s2 decompress: %w", err)
	}

	return out, nil
}
