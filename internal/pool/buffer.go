// Package pool recycles the byte buffers that transport streams are built in.
package pool

import "sync"

// Transport buffer sizing. A fresh buffer holds one full bank; buffers that
// grew past TransportBufferMaxThreshold while packing a large event are not recycled.
const (
	TransportBufferDefaultSize  = 64 << 10
	TransportBufferMaxThreshold = 8 << 20
)

// ByteBuffer is a growable byte slice. B may be accessed directly.
type ByteBuffer struct {
	B []byte
}

// NewByteBuffer creates an empty buffer with capacity size.
func NewByteBuffer(size int) *ByteBuffer {
	return &ByteBuffer{B: make([]byte, 0, size)}
}

func (bb *ByteBuffer) Bytes() []byte { return bb.B }
func (bb *ByteBuffer) Len() int      { return len(bb.B) }
func (bb *ByteBuffer) Cap() int      { return cap(bb.B) }

// Reset empties the buffer and keeps its storage.
func (bb *ByteBuffer) Reset() {
	bb.B = bb.B[:0]
}

// MustWrite appends data.
func (bb *ByteBuffer) MustWrite(data []byte) {
	bb.B = append(bb.B, data...)
}

// Write implements io.Writer. It never fails.
func (bb *ByteBuffer) Write(data []byte) (int, error) {
	bb.MustWrite(data)
	return len(data), nil
}

// ExtendOrGrow appends n zero bytes.
func (bb *ByteBuffer) ExtendOrGrow(n int) {
	start := len(bb.B)
	bb.Grow(n)
	bb.B = bb.B[:start+n]
	clear(bb.B[start:])
}

// Grow makes room for n more bytes. Buffers up to four default sizes grow by
// one default size at a time; larger ones grow by a quarter of their capacity.
func (bb *ByteBuffer) Grow(n int) {
	if cap(bb.B)-len(bb.B) >= n {
		return
	}

	step := TransportBufferDefaultSize
	if c := cap(bb.B); c > 4*TransportBufferDefaultSize {
		step = c / 4
	}

	grown := make([]byte, len(bb.B), len(bb.B)+max(step, n))
	copy(grown, bb.B)
	bb.B = grown
}

// ByteBufferPool recycles ByteBuffers of one default size.
type ByteBufferPool struct {
	pool         sync.Pool
	maxThreshold int
}

// NewByteBufferPool creates a pool of buffers of capacity size. Buffers whose
// capacity exceeds maxThreshold are dropped by Put; zero keeps every buffer.
func NewByteBufferPool(size, maxThreshold int) *ByteBufferPool {
	p := &ByteBufferPool{maxThreshold: maxThreshold}
	p.pool.New = func() any { return NewByteBuffer(size) }

	return p
}

func (p *ByteBufferPool) Get() *ByteBuffer {
	bb, _ := p.pool.Get().(*ByteBuffer)
	return bb
}

// Put resets bb and returns it to the pool. A nil bb is ignored.
func (p *ByteBufferPool) Put(bb *ByteBuffer) {
	if bb == nil || (p.maxThreshold > 0 && cap(bb.B) > p.maxThreshold) {
		return
	}

	bb.Reset()
	p.pool.Put(bb)
}

var transport = NewByteBufferPool(TransportBufferDefaultSize, TransportBufferMaxThreshold)

// GetTransportBuffer takes a buffer from the shared transport pool.
func GetTransportBuffer() *ByteBuffer { return transport.Get() }

// PutTransportBuffer returns bb to the shared transport pool.
func PutTransportBuffer(bb *ByteBuffer) { transport.Put(bb) }
