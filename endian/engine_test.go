package endian

import (
	"encoding/binary"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func TestForFlag(t *testing.T) {
	require.Equal(t, GetLittleEndianEngine(), ForFlag(false))
	require.Equal(t, GetBigEndianEngine(), ForFlag(true))
}

func TestIsBigEndian(t *testing.T) {
	require.False(t, IsBigEndian(GetLittleEndianEngine()))
	require.True(t, IsBigEndian(GetBigEndianEngine()))
}

func TestNative(t *testing.T) {
	var v uint16 = 0x0102
	b := (*[2]byte)(unsafe.Pointer(&v))

	switch b[0] {
	case 0x01:
		require.Equal(t, binary.BigEndian, Native())
	case 0x02:
		require.Equal(t, binary.LittleEndian, Native())
	default:
		require.Failf(t, "unexpected byte value", "got: %v", b[0])
	}
}

func TestEngineAppendAndRead(t *testing.T) {
	tests := []struct {
		name   string
		engine EndianEngine
		want   []byte
	}{
		{"Little endian", GetLittleEndianEngine(), []byte{0x04, 0x03, 0x02, 0x01}},
		{"Big endian", GetBigEndianEngine(), []byte{0x01, 0x02, 0x03, 0x04}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := tt.engine.AppendUint32(nil, 0x01020304)
			require.Equal(t, tt.want, buf)
			require.Equal(t, uint32(0x01020304), tt.engine.Uint32(buf))
		})
	}
}
