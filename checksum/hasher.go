// Package checksum computes order-sensitive digests of packed records.
//
// Every record type folds its logical fields one by one, in a fixed order and
// little-endian, so the digest never depends on struct padding or on the byte
// order of the transport stream. Digests are purely diagnostic: they are
// compared by tests and by the verify tool, and never block packing or unpacking.
package checksum

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"
)

// Folder is implemented by values that fold their fields into a Hasher.
type Folder interface {
	Fold(h *Hasher)
}

// FolderFunc adapts a function to the Folder interface.
type FolderFunc func(h *Hasher)

func (f FolderFunc) Fold(h *Hasher) {
	f(h)
}

// Hasher is a running xxHash64 digest fed field by field.
type Hasher struct {
	d   *xxhash.Digest
	buf [8]byte
}

// NewHasher creates an empty hasher.
func NewHasher() *Hasher {
	return &Hasher{d: xxhash.New()}
}

func (h *Hasher) write(n int) {
	_, _ = h.d.Write(h.buf[:n])
}

func (h *Hasher) Uint8(v uint8) {
	h.buf[0] = v
	h.write(1)
}

func (h *Hasher) Uint16(v uint16) {
	binary.LittleEndian.PutUint16(h.buf[:2], v)
	h.write(2)
}

func (h *Hasher) Uint32(v uint32) {
	binary.LittleEndian.PutUint32(h.buf[:4], v)
	h.write(4)
}

func (h *Hasher) Uint64(v uint64) {
	binary.LittleEndian.PutUint64(h.buf[:8], v)
	h.write(8)
}

func (h *Hasher) Int8(v int8)   { h.Uint8(uint8(v)) }   //nolint:gosec
func (h *Hasher) Int16(v int16) { h.Uint16(uint16(v)) } //nolint:gosec
func (h *Hasher) Int32(v int32) { h.Uint32(uint32(v)) } //nolint:gosec
func (h *Hasher) Int64(v int64) { h.Uint64(uint64(v)) } //nolint:gosec

// Float64 folds the IEEE-754 bits of v.
func (h *Hasher) Float64(v float64) {
	h.Uint64(math.Float64bits(v))
}

// Len folds a slice length, so that moving an element across a boundary changes the digest.
func (h *Hasher) Len(n int) {
	h.Uint64(uint64(n)) //nolint:gosec
}

// Fold folds f.
func (h *Hasher) Fold(f Folder) {
	f.Fold(h)
}

// Sum64 returns the current digest.
func (h *Hasher) Sum64() uint64 {
	return h.d.Sum64()
}

// Reset discards everything folded so far.
func (h *Hasher) Reset() {
	h.d.Reset()
}

// Of returns the digest of a single value.
func Of(f Folder) uint64 {
	h := NewHasher()
	f.Fold(h)

	return h.Sum64()
}
