package bank

import (
	"encoding/binary"
	"fmt"

	"github.com/arloliu/evpack/compress"
	"github.com/arloliu/evpack/errs"
	"github.com/arloliu/evpack/format"
)

// MaxStreamSize bounds the raw length a compressed stream may declare.
const MaxStreamSize = 1 << 30

// Compress compresses a whole stream with method. The result is
// uvarint(len(data)) followed by the codec output.
func Compress(method format.CompressionType, data []byte) ([]byte, error) {
	codec, err := compress.GetCodec(method)
	if err != nil {
		return nil, err
	}

	compressed, err := codec.Compress(data)
	if err != nil {
		return nil, fmt.Errorf("compress %s stream: %w", method, err)
	}

	out := make([]byte, 0, binary.MaxVarintLen64+len(compressed))
	out = binary.AppendUvarint(out, uint64(len(data)))

	return append(out, compressed...), nil
}

// Decompress reverses Compress and checks the raw length it recorded.
func Decompress(method format.CompressionType, data []byte) ([]byte, error) {
	codec, err := compress.GetCodec(method)
	if err != nil {
		return nil, err
	}

	raw, n := binary.Uvarint(data)
	if n <= 0 {
		return nil, fmt.Errorf("%w: malformed raw length prefix", errs.ErrShortBuffer)
	}
	if raw > MaxStreamSize {
		return nil, fmt.Errorf("%w: raw length %d exceeds %d", errs.ErrDecompressedSize, raw, MaxStreamSize)
	}

	var out []byte
	if sized, ok := codec.(compress.SizedDecompressor); ok {
		out, err = sized.DecompressSize(data[n:], int(raw))
	} else {
		out, err = codec.Decompress(data[n:])
	}
	if err != nil {
		return nil, fmt.Errorf("decompress %s stream: %w", method, err)
	}
	if uint64(len(out)) != raw {
		return nil, fmt.Errorf("%w: got %d bytes, expected %d", errs.ErrDecompressedSize, len(out), raw)
	}

	return out, nil
}

// Encode compresses stream with method and splits the result into banks.
func Encode(stream []byte, method format.CompressionType, maxPayload int, bigEndian bool) ([]Bank, error) {
	compressed, err := Compress(method, stream)
	if err != nil {
		return nil, err
	}

	return Split(compressed, maxPayload, method, bigEndian)
}

// Decode sorts banks, joins them and decompresses the stream. It also reports
// the payload endianness recorded in the banks. Every failure is a *errs.FramingError.
//
// banks is sorted in place.
func Decode(banks []Bank) ([]byte, bool, error) {
	Sort(banks)

	joined, err := Join(banks)
	if err != nil {
		return nil, false, err
	}

	method := banks[0].Method()
	stream, err := Decompress(method, joined)
	if err != nil {
		return nil, false, &errs.FramingError{Op: "decode banks", Reason: "decompress stream", Err: err}
	}

	return stream, banks[0].BigEndian(), nil
}
