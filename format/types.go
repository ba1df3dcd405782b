package format

import "fmt"

type (
	CompressionType uint8
	ClassID         uint32
)

// Compression methods carried in the high bits of a bank source id.
//
// The set is closed: values are wire constants and must never be renumbered.
// Only three bits are available in the source id, so at most eight methods fit.
const (
	CompressionNone CompressionType = 0x0 // CompressionNone represents no compression.
	CompressionZlib CompressionType = 0x1 // CompressionZlib represents zlib (deflate) compression.
	CompressionLZMA CompressionType = 0x2 // CompressionLZMA represents LZMA compression.
	CompressionZstd CompressionType = 0x3 // CompressionZstd represents Zstandard compression.
	CompressionLZ4  CompressionType = 0x4 // CompressionLZ4 represents LZ4 block compression.
	CompressionS2   CompressionType = 0x5 // CompressionS2 represents S2 compression.

	MaxCompressionType = CompressionS2
)

// Class ids of the packed containers. They are persisted in every transport frame.
const (
	ClassTracks         ClassID = 1550
	ClassProtoParticles ClassID = 1552
	ClassRichPIDs       ClassID = 1561
	ClassMuonPIDs       ClassID = 1571
	ClassParticles      ClassID = 1581
	ClassVertices       ClassID = 1582
	ClassCaloHypos      ClassID = 1591
)

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionZlib:
		return "Zlib"
	case CompressionLZMA:
		return "LZMA"
	case CompressionZstd:
		return "Zstd"
	case CompressionLZ4:
		return "LZ4"
	case CompressionS2:
		return "S2"
	default:
		return "Unknown"
	}
}

// IsValid reports whether c is one of the known compression methods.
func (c CompressionType) IsValid() bool {
	return c <= MaxCompressionType
}

// ParseCompressionType parses the case-sensitive lower-case name of a compression method.
func ParseCompressionType(name string) (CompressionType, error) {
	switch name {
	case "none":
		return CompressionNone, nil
	case "zlib":
		return CompressionZlib, nil
	case "lzma":
		return CompressionLZMA, nil
	case "zstd":
		return CompressionZstd, nil
	case "lz4":
		return CompressionLZ4, nil
	case "s2":
		return CompressionS2, nil
	default:
		return 0, fmt.Errorf("unknown compression type: %q", name)
	}
}

func (c ClassID) String() string {
	switch c {
	case ClassTracks:
		return "Tracks"
	case ClassProtoParticles:
		return "ProtoParticles"
	case ClassRichPIDs:
		return "RichPIDs"
	case ClassMuonPIDs:
		return "MuonPIDs"
	case ClassParticles:
		return "Particles"
	case ClassVertices:
		return "Vertices"
	case ClassCaloHypos:
		return "CaloHypos"
	default:
		return fmt.Sprintf("Class(%d)", uint32(c))
	}
}

// ParseClassID parses a container class name as returned by ClassID.String.
func ParseClassID(name string) (ClassID, error) {
	for _, c := range []ClassID{
		ClassTracks, ClassProtoParticles, ClassRichPIDs, ClassMuonPIDs,
		ClassParticles, ClassVertices, ClassCaloHypos,
	} {
		if c.String() == name {
			return c, nil
		}
	}

	return 0, fmt.Errorf("unknown container class: %q", name)
}
