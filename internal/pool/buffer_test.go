package pool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewByteBuffer(t *testing.T) {
	bb := NewByteBuffer(1024)

	require.NotNil(t, bb)
	assert.Equal(t, 0, bb.Len())
	assert.Equal(t, 1024, bb.Cap())
}

func TestByteBuffer_WriteAndReset(t *testing.T) {
	bb := NewByteBuffer(16)
	bb.MustWrite([]byte("bank"))
	n, err := bb.Write([]byte("-0"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []byte("bank-0"), bb.Bytes())

	originalCap := bb.Cap()
	bb.Reset()
	assert.Equal(t, 0, bb.Len())
	assert.Equal(t, originalCap, bb.Cap())
}

func TestByteBuffer_ExtendOrGrow(t *testing.T) {
	t.Run("Zero fills within capacity", func(t *testing.T) {
		bb := NewByteBuffer(16)
		bb.MustWrite([]byte{1, 2, 3, 4})
		bb.Reset()
		bb.ExtendOrGrow(4)

		assert.Equal(t, []byte{0, 0, 0, 0}, bb.Bytes())
	})

	t.Run("Grows beyond capacity", func(t *testing.T) {
		bb := NewByteBuffer(2)
		bb.MustWrite([]byte{9})
		bb.ExtendOrGrow(8)

		require.Equal(t, 9, bb.Len())
		assert.Equal(t, byte(9), bb.B[0])
		assert.Equal(t, make([]byte, 8), bb.B[1:])
	})
}

func TestByteBuffer_Grow(t *testing.T) {
	t.Run("Sufficient capacity", func(t *testing.T) {
		bb := NewByteBuffer(100)
		bb.Grow(50)
		assert.Equal(t, 100, bb.Cap())
	})

	t.Run("Small buffer grows by default size", func(t *testing.T) {
		bb := NewByteBuffer(10)
		bb.Grow(20)
		assert.Equal(t, TransportBufferDefaultSize, bb.Cap())
	})

	t.Run("Large buffer grows by a quarter", func(t *testing.T) {
		size := 8 * TransportBufferDefaultSize
		bb := NewByteBuffer(size)
		bb.B = bb.B[:size]
		bb.Grow(1)
		assert.Equal(t, size+size/4, bb.Cap())
	})

	t.Run("Preserves data", func(t *testing.T) {
		bb := NewByteBuffer(4)
		bb.MustWrite([]byte("abcd"))
		bb.Grow(1 << 20)
		assert.Equal(t, []byte("abcd"), bb.Bytes())
		assert.GreaterOrEqual(t, bb.Cap()-bb.Len(), 1<<20)
	})
}

func TestTransportPool_GetPut(t *testing.T) {
	bb := GetTransportBuffer()
	require.NotNil(t, bb)
	bb.MustWrite([]byte("payload"))
	PutTransportBuffer(bb)
	PutTransportBuffer(nil)

	again := GetTransportBuffer()
	assert.Equal(t, 0, again.Len())
	PutTransportBuffer(again)
}

func TestByteBufferPool_MaxThreshold(t *testing.T) {
	p := NewByteBufferPool(8, 64)

	big := NewByteBuffer(128)
	p.Put(big)

	got := p.Get()
	assert.NotSame(t, big, got)
	assert.Equal(t, 8, got.Cap())
}

func TestByteBufferPool_Concurrent(t *testing.T) {
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				bb := GetTransportBuffer()
				bb.MustWrite([]byte{1, 2, 3})
				PutTransportBuffer(bb)
			}
		}()
	}
	wg.Wait()
}
