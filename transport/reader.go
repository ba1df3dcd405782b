package transport

import (
	"encoding/binary"
	"fmt"

	"github.com/arloliu/evpack/endian"
	"github.com/arloliu/evpack/errs"
)

// Reader is a read cursor over a transport payload.
//
// Errors are sticky: once a read runs past the end, every later read returns
// the zero value and Err reports the first failure. Callers decode a whole
// record and check Err once.
//
// Reader is NOT safe for concurrent use.
type Reader struct {
	data   []byte
	pos    int
	engine endian.EndianEngine
	err    error
}

// NewReader creates a cursor over data.
func NewReader(data []byte, engine endian.EndianEngine) *Reader {
	return &Reader{data: data, engine: engine}
}

// Err returns the first error encountered.
func (r *Reader) Err() error {
	return r.err
}

// Pos returns the number of bytes consumed.
func (r *Reader) Pos() int {
	return r.pos
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.pos
}

// Engine returns the byte order of the cursor.
func (r *Reader) Engine() endian.EndianEngine {
	return r.engine
}

// Fail records err unless an error is already recorded.
func (r *Reader) Fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || n > r.Remaining() {
		r.err = fmt.Errorf("%w: need %d bytes at offset %d, have %d", errs.ErrShortBuffer, n, r.pos, r.Remaining())
		return nil
	}

	b := r.data[r.pos : r.pos+n]
	r.pos += n

	return b
}

func (r *Reader) Uint8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}

	return b[0]
}

func (r *Reader) Uint16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}

	return r.engine.Uint16(b)
}

func (r *Reader) Uint32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}

	return r.engine.Uint32(b)
}

func (r *Reader) Uint64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}

	return r.engine.Uint64(b)
}

func (r *Reader) Int8() int8 {
	return int8(r.Uint8()) //nolint:gosec
}

func (r *Reader) Int16() int16 {
	return int16(r.Uint16()) //nolint:gosec
}

func (r *Reader) Int32() int32 {
	return int32(r.Uint32()) //nolint:gosec
}

func (r *Reader) Int64() int64 {
	return int64(r.Uint64()) //nolint:gosec
}

// Uvarint reads an unsigned LEB128 varint.
func (r *Reader) Uvarint() uint64 {
	if r.err != nil {
		return 0
	}

	v, n := binary.Uvarint(r.data[r.pos:])
	if n <= 0 {
		r.err = fmt.Errorf("%w: malformed varint at offset %d", errs.ErrShortBuffer, r.pos)
		return 0
	}
	r.pos += n

	return v
}

// Count reads a varint element count and checks that count elements of at
// least minSize bytes each fit in the remaining data.
func (r *Reader) Count(minSize int) int {
	n := r.Uvarint()
	if r.err != nil {
		return 0
	}
	if minSize < 1 {
		minSize = 1
	}
	if n > uint64(r.Remaining()/minSize) {
		r.err = fmt.Errorf("%w: count %d of %d-byte elements exceeds %d remaining bytes",
			errs.ErrShortBuffer, n, minSize, r.Remaining())
		return 0
	}

	return int(n)
}

// PeekUint8 returns the next byte without consuming it.
func (r *Reader) PeekUint8() (uint8, error) {
	if r.err != nil {
		return 0, r.err
	}
	if r.Remaining() < 1 {
		return 0, fmt.Errorf("%w: peek at offset %d", errs.ErrShortBuffer, r.pos)
	}

	return r.data[r.pos], nil
}

// Bytes reads n bytes. The returned slice aliases the underlying data.
func (r *Reader) Bytes(n int) []byte {
	return r.take(n)
}

// Sub consumes the next n bytes and returns a cursor limited to them.
func (r *Reader) Sub(n int) *Reader {
	b := r.take(n)
	if b == nil {
		return &Reader{engine: r.engine, err: r.err}
	}

	return &Reader{data: b, engine: r.engine}
}
