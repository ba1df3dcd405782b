package compress

import (
	"errors"
	"fmt"
	"sync"

	"github.com/pierrec/lz4/v4"

	"github.com/arloliu/evpack/errs"
)

// lz4MaxOutput caps the buffer grown by Decompress. DecompressSize has no cap.
const lz4MaxOutput = 128 << 20

var lz4Compressors = sync.Pool{
	New: func() any { return new(lz4.Compressor) },
}

// LZ4Compressor implements LZ4 block compression. Blocks do not record their
// decompressed size; the bank layer stores it in front of the stream.
type LZ4Compressor struct{}

var (
	_ Codec             = (*LZ4Compressor)(nil)
	_ SizedDecompressor = (*LZ4Compressor)(nil)
)

func NewLZ4Compressor() LZ4Compressor {
	return LZ4Compressor{}
}

func (LZ4Compressor) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	lc, _ := lz4Compressors.Get().(*lz4.Compressor)
	defer lz4Compressors.Put(lc)

	dst := make([]byte, lz4.CompressBlockBound(len(data)))
	n, err := lc.CompressBlock(data, dst)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}

	return dst[:n], nil
}

// Decompress starts with a buffer four times the input and doubles it while
// the block does not fit, up to the largest expansion LZ4 allows (about 255x).
func (LZ4Compressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	limit := min(len(data)*255+16, lz4MaxOutput)
	size := min(len(data)*4, limit)
	for {
		buf := make([]byte, size)
		n, err := lz4.UncompressBlock(data, buf)
		switch {
		case err == nil:
			return buf[:n], nil
		case errors.Is(err, lz4.ErrInvalidSourceShortBuffer) && size < limit:
			size = min(size*2, limit)
		default:
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
	}
}

// DecompressSize decompresses a block of exactly size bytes.
func (LZ4Compressor) DecompressSize(data []byte, size int) ([]byte, error) {
	if len(data) == 0 && size == 0 {
		return nil, nil
	}

	buf := make([]byte, size)
	n, err := lz4.UncompressBlock(data, buf)
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress %d bytes: %w", size, err)
	}

	if n != size {
		return nil, fmt.Errorf("%w: lz4 block holds %d bytes, expected %d", errs.ErrDecompressedSize, n, size)
	}

	return buf, nil
}
