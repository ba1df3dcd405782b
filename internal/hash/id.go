// Package hash derives location ids from location names.
package hash

import "github.com/cespare/xxhash/v2"

// LocationID returns the low 31 bits of the xxHash64 of location, so ids stay
// non-negative in the signed 32-bit frame and link-table fields.
func LocationID(location string) int32 {
	return int32(xxhash.Sum64String(location) & 0x7FFFFFFF) //nolint:gosec
}
