package packed

import (
	"fmt"

	"github.com/arloliu/evpack/errs"
	"github.com/arloliu/evpack/transport"
)

// legacyIndexWidth is the wrap period of the 16-bit indices of old versions.
const legacyIndexWidth = 1 << 16

// Span is the half-open range [First, Last) of a record in a side array.
type Span struct {
	First uint32
	Last  uint32
}

// Len returns the number of side-array entries in the span.
func (s Span) Len() int {
	return int(s.Last) - int(s.First)
}

// appendSpan appends items to side and returns the span they occupy.
func appendSpan[T any](side []T, items []T) ([]T, Span) {
	first := len(side)
	side = append(side, items...)

	return side, Span{First: uint32(first), Last: uint32(len(side))} //nolint:gosec
}

// sliceSpan returns the entries of a span already checked by checkSpans.
func sliceSpan[T any](side []T, s Span) []T {
	if s.First == s.Last {
		return nil
	}

	return side[s.First:s.Last:s.Last]
}

// checkSpans validates the spans of one field across all records: each span
// must lie inside the side array and spans must not move backwards.
func checkSpans(class, field string, n int, span func(i int) Span, sideLen int) error {
	var prev uint32
	for i := range n {
		s := span(i)
		if s.First > s.Last || int(s.Last) > sideLen || s.First < prev {
			return fmt.Errorf("%w: %s.%s record %d [%d, %d) with %d entries, previous first %d",
				errs.ErrInvalidRange, class, field, i, s.First, s.Last, sideLen, prev)
		}
		prev = s.First
	}

	return nil
}

// unwrapSpans widens 16-bit spans read from a legacy payload in place.
//
// Old writers truncated indices to 16 bits. Because spans are written in
// insertion order they never decrease, so a value smaller than its predecessor
// marks a wrap and adds 65536 to the high word. The heuristic is best effort:
// a span longer than 65536 entries wraps without any decrease and cannot be
// seen. That case is caught when the last span does not end at the side-array
// length, and reported as an *errs.OverflowError.
func unwrapSpans(class, field string, spans []*Span, sideLen int) error {
	var high, prev uint64
	for i, s := range spans {
		first := uint64(s.First) + high
		if first < prev {
			high += legacyIndexWidth
			first += legacyIndexWidth
		}
		last := uint64(s.Last) + high
		if last < first {
			high += legacyIndexWidth
			last += legacyIndexWidth
		}
		if last > uint64(sideLen) {
			return &errs.OverflowError{Class: class, Field: field, Record: i,
				Reason: fmt.Sprintf("unwrapped end %d exceeds %d entries", last, sideLen)}
		}

		s.First, s.Last = uint32(first), uint32(last) //nolint:gosec
		prev = last
	}

	if len(spans) > 0 && prev < uint64(sideLen) && (uint64(sideLen)-prev)%legacyIndexWidth == 0 {
		return &errs.OverflowError{Class: class, Field: field, Record: len(spans) - 1,
			Reason: fmt.Sprintf("spans end at %d but %d entries are stored, a span wrapped undetected", prev, sideLen)}
	}

	return nil
}

func saveSpan(w *transport.Buffer, s Span, wide bool) {
	if wide {
		w.AppendUint32(s.First)
		w.AppendUint32(s.Last)

		return
	}

	// legacy layout truncates to 16 bits
	w.AppendUint16(uint16(s.First)) //nolint:gosec
	w.AppendUint16(uint16(s.Last))  //nolint:gosec
}

func loadSpan(r *transport.Reader, wide bool) Span {
	if wide {
		return Span{First: r.Uint32(), Last: r.Uint32()}
	}

	return Span{First: uint32(r.Uint16()), Last: uint32(r.Uint16())}
}
