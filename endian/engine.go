// Package endian selects the byte order of transport payloads.
//
// Packed containers are written little-endian by default. A writer may opt
// into big-endian payloads; the choice is recorded in every bank header so a
// reader picks the matching engine without guessing:
//
//	engine := endian.ForFlag(header.BigEndian())
//	key := engine.Uint32(payload[4:8])
//
// EndianEngine combines binary.ByteOrder and binary.AppendByteOrder so the same
// value serves the append-only transport buffer and the read cursor.
package endian

import (
	"encoding/binary"
	"unsafe"
)

// EndianEngine combines ByteOrder and AppendByteOrder from encoding/binary.
// It is satisfied by binary.LittleEndian and binary.BigEndian.
type EndianEngine interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// GetLittleEndianEngine returns the little-endian engine, the default for packed payloads.
func GetLittleEndianEngine() EndianEngine {
	return binary.LittleEndian
}

// GetBigEndianEngine returns the big-endian engine.
func GetBigEndianEngine() EndianEngine {
	return binary.BigEndian
}

// ForFlag returns the big-endian engine when bigEndian is set and the little-endian one otherwise.
func ForFlag(bigEndian bool) EndianEngine {
	if bigEndian {
		return binary.BigEndian
	}

	return binary.LittleEndian
}

// IsBigEndian reports whether engine writes the most significant byte first.
func IsBigEndian(engine EndianEngine) bool {
	var b [2]byte
	engine.PutUint16(b[:], 0x0102)

	return b[0] == 0x01
}

// Native returns the byte order of the host.
func Native() EndianEngine {
	// 0x0100 is stored as 00 01 on little-endian hosts.
	var i uint16 = 0x0100
	b := (*[2]byte)(unsafe.Pointer(&i))
	if b[0] == 0x01 {
		return binary.BigEndian
	}

	return binary.LittleEndian
}
