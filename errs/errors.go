// Package errs defines the errors returned by the evpack packages.
//
// Simple conditions are reported with sentinel values. The four conditions of
// the decoding taxonomy carry context in structured types, each of which unwraps
// to its sentinel so callers can use errors.Is for the category and errors.As
// for the details:
//
//	var verr *errs.VersionError
//	if errors.As(err, &verr) {
//	    log.Printf("skip %s: version %d", verr.Class, verr.Version)
//	}
//	if errors.Is(err, errs.ErrFraming) {
//	    // abort the whole event
//	}
package errs

import (
	"errors"
	"fmt"
)

// Taxonomy sentinels.
var (
	ErrUnsupportedVersion = errors.New("unsupported packing version")
	ErrFraming            = errors.New("framing error")
	ErrDanglingReference  = errors.New("dangling reference")
	ErrIndexOverflow      = errors.New("side-array index overflow")
)

// Reference codec errors.
var (
	ErrNullReference    = errors.New("null reference cannot be resolved")
	ErrKeyOutOfRange    = errors.New("reference key out of range for token layout")
	ErrLinkTableFull    = errors.New("link table full for token layout")
	ErrInvalidLayout    = errors.New("invalid token layout")
	ErrUnknownLocation  = errors.New("unknown location")
	ErrInvalidLocation  = errors.New("invalid location name")
	ErrLocationConflict = errors.New("location id collision")
)

// Transport and bank errors.
var (
	ErrShortBuffer          = errors.New("buffer too short")
	ErrSizeOverflow         = errors.New("size does not fit in its field")
	ErrInvalidPosition      = errors.New("invalid reserved position")
	ErrInvalidCompression   = errors.New("invalid compression type")
	ErrInvalidMagicNumber   = errors.New("invalid bank magic number")
	ErrChecksumMismatch     = errors.New("checksum mismatch")
	ErrTooManyParts         = errors.New("too many bank parts")
	ErrInvalidBankPayload   = errors.New("invalid bank payload size")
	ErrNoBanks              = errors.New("no banks")
	ErrDecompressedSize     = errors.New("decompressed size mismatch")
	ErrMixedBankCompression = errors.New("banks use different compression methods")
)

// Packing errors.
var (
	ErrUnknownClass      = errors.New("unknown class id")
	ErrUnsupportedObject = errors.New("unsupported object type")
	ErrDuplicateKey      = errors.New("duplicate object key")
	ErrInvalidKey        = errors.New("invalid object key")
	ErrDuplicateLocation = errors.New("duplicate location in event")
	ErrInvalidRange      = errors.New("invalid side-array range")
	ErrTrailingBytes     = errors.New("trailing bytes after container payload")
)

// Storage errors.
var (
	ErrEventNotFound   = errors.New("event not found")
	ErrInvalidStoreKey = errors.New("invalid storage key")
)

// VersionError reports a container packing version outside the range a codec supports.
type VersionError struct {
	Class   string
	Version uint8
	Min     uint8
	Max     uint8
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("%s: packing version %d not in supported range [%d, %d]",
		e.Class, e.Version, e.Min, e.Max)
}

func (e *VersionError) Unwrap() error {
	return ErrUnsupportedVersion
}

// FramingError reports a malformed transport stream or bank sequence.
// It always aborts the decoding of the whole event.
type FramingError struct {
	Op     string
	Reason string
	Err    error
}

// Framing builds a FramingError with a formatted reason.
func Framing(op string, format string, args ...any) *FramingError {
	return &FramingError{Op: op, Reason: fmt.Sprintf(format, args...)}
}

func (e *FramingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Reason, e.Err)
	}

	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

func (e *FramingError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrFraming, e.Err}
	}

	return []error{ErrFraming}
}

// ReferenceError reports a reference token whose link index has no link table entry,
// or whose linked location id is unknown to the registry.
type ReferenceError struct {
	Location string // container holding the reference
	Field    string
	Token    int64
	Index    int
}

func (e *ReferenceError) Error() string {
	if e.Location == "" {
		return fmt.Sprintf("dangling reference: token %d has no link at index %d", e.Token, e.Index)
	}

	return fmt.Sprintf("%s.%s: dangling reference: token %d has no link at index %d",
		e.Location, e.Field, e.Token, e.Index)
}

func (e *ReferenceError) Unwrap() error {
	return ErrDanglingReference
}

// OverflowError reports a side-array range that wrapped past the width of its on-wire counter
// and could not be reconstructed.
type OverflowError struct {
	Class  string
	Field  string
	Record int
	Reason string
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("%s: %s range of record %d overflowed: %s", e.Class, e.Field, e.Record, e.Reason)
}

func (e *OverflowError) Unwrap() error {
	return ErrIndexOverflow
}
