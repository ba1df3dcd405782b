// Package bank cuts a transport stream into size-bounded banks and reassembles it.
//
// A stream is compressed as a whole, then split into banks of at most
// MaxPayload bytes. Every bank carries its part id and the compression method
// in a 16-bit source id, and a farm-hash checksum of its payload:
//
//	banks, err := bank.Encode(stream, format.CompressionLZMA, bank.MaxPayload, false)
//	...
//	stream, bigEndian, err := bank.Decode(banks)
//
// Any inconsistency found while reassembling (missing or duplicated parts,
// mixed methods, unknown versions, bad checksums, wrong sizes) is a
// *errs.FramingError, which aborts the decoding of the whole event.
package bank

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/dgryski/go-farm"

	"github.com/arloliu/evpack/errs"
	"github.com/arloliu/evpack/format"
)

// Bank is one size-bounded chunk of a (possibly compressed) transport stream.
type Bank struct {
	Header
	Payload []byte
}

// Part returns the part id of the bank.
func (b Bank) Part() int {
	return b.SourceID.Part()
}

// Method returns the compression method of the stream the bank belongs to.
func (b Bank) Method() format.CompressionType {
	return b.SourceID.Method()
}

// Checksum returns the payload checksum stored in bank headers.
func Checksum(payload []byte) uint32 {
	return uint32(farm.Hash64(payload)) //nolint:gosec
}

// Split partitions data into banks of at most maxPayload bytes with
// consecutive part ids starting at 0. It always returns at least one bank,
// so an empty stream still records its compression method.
//
// The bank payloads alias data.
func Split(data []byte, maxPayload int, method format.CompressionType, bigEndian bool) ([]Bank, error) {
	if maxPayload < 1 || maxPayload > MaxPayload {
		return nil, fmt.Errorf("%w: max payload %d not in [1, %d]", errs.ErrInvalidBankPayload, maxPayload, MaxPayload)
	}

	parts := max(1, (len(data)+maxPayload-1)/maxPayload)
	if parts > MaxParts {
		return nil, fmt.Errorf("%w: %d bytes need %d parts of %d bytes, limit is %d",
			errs.ErrTooManyParts, len(data), parts, maxPayload, MaxParts)
	}

	banks := make([]Bank, 0, parts)
	for part := range parts {
		start := part * maxPayload
		end := min(start+maxPayload, len(data))

		sid, err := NewSourceID(method, part)
		if err != nil {
			return nil, err
		}

		payload := data[start:end]
		h := Header{
			Magic:    Magic,
			Size:     uint16(len(payload)), //nolint:gosec
			Type:     TypeEventData,
			Version:  FormatVersion,
			SourceID: sid,
			Checksum: Checksum(payload),
		}
		if bigEndian {
			h.WithBigEndian()
		}

		banks = append(banks, Bank{Header: h, Payload: payload})
	}

	return banks, nil
}

// Sort orders banks by part id in place.
func Sort(banks []Bank) {
	slices.SortStableFunc(banks, func(a, b Bank) int {
		return cmp.Compare(a.Part(), b.Part())
	})
}

// Join concatenates sorted banks into the stream they were split from.
//
// It verifies that part ids are contiguous from 0, that every bank shares the
// compression method, endianness and format version of the first one, and
// that every declared size matches its payload.
func Join(banks []Bank) ([]byte, error) {
	if len(banks) == 0 {
		return nil, &errs.FramingError{Op: "join banks", Reason: "empty bank sequence", Err: errs.ErrNoBanks}
	}

	first := banks[0].Header
	total := 0
	for i, b := range banks {
		if b.Part() != i {
			return nil, errs.Framing("join banks", "part id %d at position %d, parts must be contiguous from 0", b.Part(), i)
		}
		if b.Version != FormatVersion {
			return nil, &errs.FramingError{
				Op:     "join banks",
				Reason: fmt.Sprintf("part %d", i),
				Err:    &errs.VersionError{Class: "bank", Version: b.Version, Min: FormatVersion, Max: FormatVersion},
			}
		}
		if b.Method() != first.SourceID.Method() || b.BigEndian() != first.BigEndian() {
			return nil, &errs.FramingError{
				Op:     "join banks",
				Reason: fmt.Sprintf("part %d uses %s, part 0 uses %s", i, b.Method(), first.SourceID.Method()),
				Err:    errs.ErrMixedBankCompression,
			}
		}
		if int(b.Size) != len(b.Payload) {
			return nil, errs.Framing("join banks", "part %d declares %d payload bytes, carries %d", i, b.Size, len(b.Payload))
		}
		total += len(b.Payload)
	}

	out := make([]byte, 0, total)
	for _, b := range banks {
		out = append(out, b.Payload...)
	}

	return out, nil
}

// Marshal serializes b as header followed by payload.
func Marshal(b Bank) []byte {
	out := make([]byte, 0, HeaderSize+len(b.Payload))
	out = b.Header.AppendTo(out)

	return append(out, b.Payload...)
}

// Parse reads one marshalled bank from the start of data and returns it with
// the number of bytes consumed. The payload aliases data.
func Parse(data []byte) (Bank, int, error) {
	h, err := ParseHeader(data)
	if err != nil {
		return Bank{}, 0, &errs.FramingError{Op: "parse bank", Reason: "invalid header", Err: err}
	}

	end := HeaderSize + int(h.Size)
	if end > len(data) {
		return Bank{}, 0, &errs.FramingError{
			Op:     "parse bank",
			Reason: fmt.Sprintf("payload of %d bytes exceeds %d remaining bytes", h.Size, len(data)-HeaderSize),
			Err:    errs.ErrShortBuffer,
		}
	}

	payload := data[HeaderSize:end]
	if sum := Checksum(payload); sum != h.Checksum {
		return Bank{}, 0, &errs.FramingError{
			Op:     "parse bank",
			Reason: fmt.Sprintf("part %d checksum 0x%08X, header says 0x%08X", h.SourceID.Part(), sum, h.Checksum),
			Err:    errs.ErrChecksumMismatch,
		}
	}

	return Bank{Header: h, Payload: payload}, end, nil
}

// ParseAll reads consecutive marshalled banks until data is exhausted.
func ParseAll(data []byte) ([]Bank, error) {
	var banks []Bank
	for len(data) > 0 {
		b, n, err := Parse(data)
		if err != nil {
			return nil, err
		}
		banks = append(banks, b)
		data = data[n:]
	}

	return banks, nil
}
