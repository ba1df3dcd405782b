package compress

import (
	"fmt"

	"github.com/arloliu/evpack/errs"
	"github.com/arloliu/evpack/format"
)

// Codec compresses whole transport streams and reverses its own output.
//
// Compress never modifies its input, and the result is owned by the caller
// except for the none method, which returns the input itself. Decompress fails
// on corrupt input or input produced by another method. Codecs are safe for
// concurrent use.
type Codec interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
}

// SizedDecompressor is implemented by block codecs that decode into a buffer
// of known size. DecompressSize allocates exactly size bytes, the raw length
// the bank layer stores in front of the stream, and fails when the block
// does not decode to that many bytes.
type SizedDecompressor interface {
	DecompressSize(data []byte, size int) ([]byte, error)
}

var codecs = [...]Codec{
	format.CompressionNone: NoOpCompressor{},
	format.CompressionZlib: ZlibCompressor{},
	format.CompressionLZMA: LZMACompressor{},
	format.CompressionZstd: ZstdCompressor{},
	format.CompressionLZ4:  LZ4Compressor{},
	format.CompressionS2:   S2Compressor{},
}

// GetCodec returns the shared codec of method.
func GetCodec(method format.CompressionType) (Codec, error) {
	if int(method) >= len(codecs) {
		return nil, fmt.Errorf("%w: %d", errs.ErrInvalidCompression, uint8(method))
	}

	return codecs[method], nil
}
