package bank

const (
	// MaxPayload is the largest payload a bank may carry.
	MaxPayload = 65524
	// HeaderSize is the fixed size of a marshalled bank header.
	HeaderSize = 12
	// MaxBankSize is the largest marshalled bank.
	MaxBankSize = HeaderSize + MaxPayload

	// Magic marks the start of every marshalled bank.
	Magic uint16 = 0xCBCB
	// FormatVersion is the only bank framing version readers accept.
	FormatVersion uint8 = 2

	// TypeEventData is the bank type of packed event data.
	TypeEventData uint8 = 60

	// Bit masks of the type byte
	TypeMask       = 0x7F // Mask for bank type (bits 0-6)
	EndiannessMask = 0x80 // Mask for payload endianness bit (bit 7), 0=little, 1=big

	// Source id layout: low bits = part id, high bits = compression method.
	PartBits   = 13
	PartMask   = 1<<PartBits - 1
	MaxParts   = 1 << PartBits
	MethodBits = 16 - PartBits
)
