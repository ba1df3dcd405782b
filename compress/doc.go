// Package compress provides the compression codecs of the bank layer.
//
// Compression is applied to the whole transport stream of an event before it is
// split into banks, never per bank, so bank boundaries do not depend on the
// method. The method is a closed enum (format.CompressionType) whose value is
// carried in the high bits of every bank source id:
//
//	Tag | Method | Library
//	----|--------|------------------------------------
//	0   | None   | -
//	1   | Zlib   | github.com/klauspost/compress/zlib
//	2   | LZMA   | github.com/ulikunitz/xz/lzma
//	3   | Zstd   | github.com/klauspost/compress/zstd
//	4   | LZ4    | github.com/pierrec/lz4/v4 (block)
//	5   | S2     | github.com/klauspost/compress/s2
//
// # Architecture
//
//	type Codec interface {
//	    Compress(data []byte) ([]byte, error)
//	    Decompress(data []byte) ([]byte, error)
//	}
//
// GetCodec returns the shared instance of a method:
//
//	codec, err := compress.GetCodec(format.CompressionLZMA)
//	if err != nil {
//	    return err
//	}
//	compressed, err := codec.Compress(stream)
//
// All codecs map empty input to nil output in both directions. LZ4 and S2 are
// block formats without a length prefix; the bank layer records the raw stream
// length itself and validates it after decompression.
//
// # Thread Safety
//
// All codec implementations are safe for concurrent use. Encoders and decoders
// that are expensive to create (zstd, zlib, lz4) are pooled.
package compress
