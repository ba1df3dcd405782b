package bank

import (
	"encoding/binary"
	"fmt"

	"github.com/arloliu/evpack/errs"
	"github.com/arloliu/evpack/format"
)

// SourceID packs the compression method and the part id of a bank:
//
//	bit 15..13: compression method
//	bit 12..0:  part id
type SourceID uint16

// NewSourceID packs method and part into a source id.
func NewSourceID(method format.CompressionType, part int) (SourceID, error) {
	if !method.IsValid() || uint8(method) >= 1<<MethodBits {
		return 0, fmt.Errorf("%w: %d", errs.ErrInvalidCompression, uint8(method))
	}
	if part < 0 || part >= MaxParts {
		return 0, fmt.Errorf("%w: part %d not in [0, %d)", errs.ErrTooManyParts, part, MaxParts)
	}

	return SourceID(uint16(method)<<PartBits | uint16(part)), nil //nolint:gosec
}

// Method returns the compression method.
func (s SourceID) Method() format.CompressionType {
	return format.CompressionType(s >> PartBits)
}

// Part returns the part id.
func (s SourceID) Part() int {
	return int(s & PartMask)
}

func (s SourceID) String() string {
	return fmt.Sprintf("%s/%d", s.Method(), s.Part())
}

// Header is the fixed-size bank header. It is always little-endian;
// the endianness bit only describes the payload.
type Header struct {
	Magic uint16 // byte offset 0-1
	// Size is the payload length in bytes.
	Size uint16 // byte offset 2-3
	// Type packs the bank type (bits 0-6) and the payload endianness (bit 7).
	Type     uint8    // byte offset 4
	Version  uint8    // byte offset 5
	SourceID SourceID // byte offset 6-7
	// Checksum is the low 32 bits of the farm hash of the payload.
	Checksum uint32 // byte offset 8-11
}

// BankType returns the bank type without the endianness bit.
func (h Header) BankType() uint8 {
	return h.Type & TypeMask
}

// BigEndian reports whether the payload was written big-endian.
func (h Header) BigEndian() bool {
	return h.Type&EndiannessMask != 0
}

// WithBigEndian marks the payload as big-endian.
func (h *Header) WithBigEndian() {
	h.Type |= EndiannessMask
}

// WithLittleEndian marks the payload as little-endian.
func (h *Header) WithLittleEndian() {
	h.Type &^= EndiannessMask
}

// Parse decodes exactly HeaderSize bytes into h and validates the result.
func (h *Header) Parse(data []byte) error {
	if len(data) != HeaderSize {
		return fmt.Errorf("%w: bank header is %d bytes, got %d", errs.ErrShortBuffer, HeaderSize, len(data))
	}

	h.Magic = binary.LittleEndian.Uint16(data[0:2])
	h.Size = binary.LittleEndian.Uint16(data[2:4])
	h.Type = data[4]
	h.Version = data[5]
	h.SourceID = SourceID(binary.LittleEndian.Uint16(data[6:8]))
	h.Checksum = binary.LittleEndian.Uint32(data[8:12])

	return h.Validate()
}

// Validate checks the magic number, the format version and the payload size.
func (h Header) Validate() error {
	if h.Magic != Magic {
		return fmt.Errorf("%w: 0x%04X", errs.ErrInvalidMagicNumber, h.Magic)
	}
	if h.Version != FormatVersion {
		return &errs.VersionError{Class: "bank", Version: h.Version, Min: FormatVersion, Max: FormatVersion}
	}
	if int(h.Size) > MaxPayload {
		return fmt.Errorf("%w: %d exceeds %d", errs.ErrInvalidBankPayload, h.Size, MaxPayload)
	}
	if !h.SourceID.Method().IsValid() {
		return fmt.Errorf("%w: %d", errs.ErrInvalidCompression, uint8(h.SourceID.Method()))
	}

	return nil
}

// Bytes serializes the header into a byte slice.
func (h Header) Bytes() []byte {
	return h.AppendTo(make([]byte, 0, HeaderSize))
}

// AppendTo appends the serialized header to dst.
func (h Header) AppendTo(dst []byte) []byte {
	dst = binary.LittleEndian.AppendUint16(dst, h.Magic)
	dst = binary.LittleEndian.AppendUint16(dst, h.Size)
	dst = append(dst, h.Type, h.Version)
	dst = binary.LittleEndian.AppendUint16(dst, uint16(h.SourceID))
	dst = binary.LittleEndian.AppendUint32(dst, h.Checksum)

	return dst
}

// ParseHeader parses a Header from the start of data.
func ParseHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, fmt.Errorf("%w: bank header is %d bytes, got %d", errs.ErrShortBuffer, HeaderSize, len(data))
	}

	h := Header{}
	if err := h.Parse(data[:HeaderSize]); err != nil {
		return Header{}, err
	}

	return h, nil
}
