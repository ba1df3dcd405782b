package packed

import (
	"github.com/arloliu/evpack/errs"
	"github.com/arloliu/evpack/format"
	"github.com/arloliu/evpack/ref"
)

// VersionRange is the closed range of packing versions a container codec reads.
type VersionRange struct {
	Min uint8
	Max uint8
}

// Contains reports whether v lies in the range.
func (r VersionRange) Contains(v uint8) bool {
	return v >= r.Min && v <= r.Max
}

var versionTable = map[format.ClassID]VersionRange{
	format.ClassTracks:         {Min: 1, Max: 3},
	format.ClassProtoParticles: {Min: 1, Max: 2},
	format.ClassParticles:      {Min: 1, Max: 2},
	format.ClassVertices:       {Min: 1, Max: 2},
	format.ClassRichPIDs:       {Min: 1, Max: 3},
	format.ClassMuonPIDs:       {Min: 1, Max: 2},
	format.ClassCaloHypos:      {Min: 1, Max: 1},
}

// Versions returns the supported version range of class.
func Versions(class format.ClassID) (VersionRange, bool) {
	r, ok := versionTable[class]
	return r, ok
}

// DefaultVersion returns the version writers use for class: the newest one.
func DefaultVersion(class format.ClassID) uint8 {
	return versionTable[class].Max
}

// CheckVersion returns a *errs.VersionError when v is not a supported version of class.
func CheckVersion(class format.ClassID, v uint8) error {
	r, ok := versionTable[class]
	if !ok {
		return errs.ErrUnknownClass
	}
	if !r.Contains(v) {
		return &errs.VersionError{Class: class.String(), Version: v, Min: r.Min, Max: r.Max}
	}

	return nil
}

// tokenLayout returns the reference token layout of a class at version v.
func tokenLayout(class format.ClassID, v uint8) ref.Layout {
	switch class {
	case format.ClassTracks, format.ClassRichPIDs:
		if v < 3 {
			return ref.Layout32
		}
	case format.ClassProtoParticles, format.ClassParticles, format.ClassVertices, format.ClassMuonPIDs:
		if v < 2 {
			return ref.Layout32
		}
	}

	return ref.Layout64
}
