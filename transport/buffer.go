package transport

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/arloliu/evpack/endian"
	"github.com/arloliu/evpack/errs"
	"github.com/arloliu/evpack/internal/pool"
)

// SizeFieldLength is the width of a reserved size placeholder.
const SizeFieldLength = 4

// Position is the offset of a reserved size placeholder in a Buffer.
type Position int

// Buffer is an append-only byte cursor for one event.
//
// Objects of unknown length are written in a single forward pass: reserve a
// size placeholder, write the payload, then patch the placeholder.
//
//	pos := buf.ReserveSize()
//	start := buf.Len()
//	writePayload(buf)
//	err := buf.PatchSize(pos, buf.Len()-start)
//
// Buffer is NOT safe for concurrent use.
type Buffer struct {
	bb     *pool.ByteBuffer
	engine endian.EndianEngine
}

// NewBuffer creates an empty buffer writing multi-byte values with engine.
// The backing storage comes from a pool; call Release when the buffer is no longer needed.
func NewBuffer(engine endian.EndianEngine) *Buffer {
	return &Buffer{
		bb:     pool.GetTransportBuffer(),
		engine: engine,
	}
}

// Engine returns the byte order of the buffer.
func (b *Buffer) Engine() endian.EndianEngine {
	return b.engine
}

// Len returns the number of bytes written.
func (b *Buffer) Len() int {
	return b.bb.Len()
}

// Bytes returns the written bytes. The slice is invalidated by further writes and by Release.
func (b *Buffer) Bytes() []byte {
	return b.bb.Bytes()
}

// Reset discards the written bytes and keeps the allocation.
func (b *Buffer) Reset() {
	b.bb.Reset()
}

// Release returns the backing storage to the pool. The buffer must not be used afterwards.
func (b *Buffer) Release() {
	if b.bb != nil {
		pool.PutTransportBuffer(b.bb)
		b.bb = nil
	}
}

func (b *Buffer) truncate(n int) {
	b.bb.B = b.bb.B[:n]
}

func (b *Buffer) AppendUint8(v uint8) {
	b.bb.B = append(b.bb.B, v)
}

func (b *Buffer) AppendUint16(v uint16) {
	b.bb.B = b.engine.AppendUint16(b.bb.B, v)
}

func (b *Buffer) AppendUint32(v uint32) {
	b.bb.B = b.engine.AppendUint32(b.bb.B, v)
}

func (b *Buffer) AppendUint64(v uint64) {
	b.bb.B = b.engine.AppendUint64(b.bb.B, v)
}

func (b *Buffer) AppendInt8(v int8) {
	b.bb.B = append(b.bb.B, uint8(v)) //nolint:gosec
}

func (b *Buffer) AppendInt16(v int16) {
	b.bb.B = b.engine.AppendUint16(b.bb.B, uint16(v)) //nolint:gosec
}

func (b *Buffer) AppendInt32(v int32) {
	b.bb.B = b.engine.AppendUint32(b.bb.B, uint32(v)) //nolint:gosec
}

func (b *Buffer) AppendInt64(v int64) {
	b.bb.B = b.engine.AppendUint64(b.bb.B, uint64(v)) //nolint:gosec
}

// AppendUvarint writes v as an unsigned LEB128 varint. Varints are byte-order independent.
func (b *Buffer) AppendUvarint(v uint64) {
	b.bb.B = binary.AppendUvarint(b.bb.B, v)
}

// AppendBytes writes data verbatim.
func (b *Buffer) AppendBytes(data []byte) {
	b.bb.MustWrite(data)
}

// ReserveSize writes a zero-filled size placeholder and returns its position.
func (b *Buffer) ReserveSize() Position {
	pos := Position(b.bb.Len())
	b.bb.ExtendOrGrow(SizeFieldLength)

	return pos
}

// PatchSize overwrites the placeholder at pos with size.
func (b *Buffer) PatchSize(pos Position, size int) error {
	if pos < 0 || int(pos)+SizeFieldLength > b.bb.Len() {
		return fmt.Errorf("%w: %d", errs.ErrInvalidPosition, pos)
	}
	if size < 0 || uint64(size) > math.MaxUint32 {
		return fmt.Errorf("%w: size %d", errs.ErrSizeOverflow, size)
	}

	b.engine.PutUint32(b.bb.B[pos:int(pos)+SizeFieldLength], uint32(size))

	return nil
}
