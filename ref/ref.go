// Package ref replaces cross-container object pointers with compact integer tokens.
//
// A token combines an index into the writing container's link table with the
// key of the target record. The link table is positional: the writer registers
// each distinct target container the first time it is referenced, and the
// reader resolves indices against the table persisted alongside the container.
// Writers and readers must therefore traverse records in the same order.
//
// Two token layouts exist. Layout32 is the legacy layout used by old packing
// versions (4-bit link index, 28-bit key); Layout64 is the current layout
// (31-bit link index, 31-bit key). In both, Null (-1) means "no reference" and
// is never resolved.
package ref

import (
	"fmt"

	"github.com/arloliu/evpack/errs"
)

// Layout selects the bit layout of a token.
type Layout uint8

const (
	Layout32 Layout = 32
	Layout64 Layout = 64
)

// Null is the token of an absent reference in every layout.
const Null int64 = -1

const (
	shift32    = 28
	keyMask32  = 1<<shift32 - 1
	maxIndex32 = 1<<(32-shift32) - 1
	// maxKey32 excludes the all-ones key so that index 15 never forms the -1 sentinel.
	maxKey32 = keyMask32 - 1

	shift64    = 32
	keyMask64  = 1<<shift64 - 1
	maxIndex64 = 1<<31 - 1
	maxKey64   = 1<<31 - 1
)

func (l Layout) String() string {
	switch l {
	case Layout32:
		return "32-bit"
	case Layout64:
		return "64-bit"
	default:
		return fmt.Sprintf("Layout(%d)", uint8(l))
	}
}

// MaxLinks returns the number of distinct target containers the layout can address.
func (l Layout) MaxLinks() int {
	if l == Layout32 {
		return maxIndex32 + 1
	}

	return maxIndex64 + 1
}

// MaxKey returns the largest key the layout can carry.
func (l Layout) MaxKey() int32 {
	if l == Layout32 {
		return maxKey32
	}

	return maxKey64
}

// Pack combines a link index and a key into a token.
func (l Layout) Pack(index int, key int32) (int64, error) {
	if key < 0 || key > l.MaxKey() {
		return Null, fmt.Errorf("%w: key %d, layout %s", errs.ErrKeyOutOfRange, key, l)
	}
	if index < 0 || index >= l.MaxLinks() {
		return Null, fmt.Errorf("%w: index %d, layout %s", errs.ErrLinkTableFull, index, l)
	}

	switch l {
	case Layout32:
		// stored as a signed 32-bit value on the wire
		return int64(int32(uint32(index)<<shift32 | uint32(key))), nil //nolint:gosec
	case Layout64:
		return int64(index)<<shift64 | int64(key), nil
	default:
		return Null, errs.ErrInvalidLayout
	}
}

// Split separates a token into its link index and key.
func (l Layout) Split(token int64) (int, int32, error) {
	if token == Null {
		return 0, 0, errs.ErrNullReference
	}

	switch l {
	case Layout32:
		u := uint32(token) //nolint:gosec
		return int(u >> shift32), int32(u & keyMask32), nil
	case Layout64:
		if token < 0 {
			return 0, 0, &errs.ReferenceError{Token: token, Index: -1}
		}
		return int(token >> shift64), int32(token & keyMask64), nil //nolint:gosec
	default:
		return 0, 0, errs.ErrInvalidLayout
	}
}
