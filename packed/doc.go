// Package packed converts event containers to their compact, versioned form
// and moves that form through a transport stream.
//
// Every container type has a packed counterpart holding a dense record array,
// the side arrays its records address through [first, last) ranges, the
// packing version and the link table of its references:
//
//	event.Tracks  --Pack-->  *packed.Tracks  --Save-->  transport.Buffer
//	event.Tracks <--Unpack-- *packed.Tracks <--Load--  transport.Reader
//
// The packed containers form a closed set: Object is sealed, and Save, Load,
// Pack, Unpack and Checksum dispatch with exhaustive switches.
//
// Packing versions grow by appending fields. A container written with an older
// version carries defaults for the fields its version lacks, both after Pack
// and after Load, so checksums taken before and after transport agree.
//
// Failures follow the decoding taxonomy of package errs: an unsupported version
// or a malformed payload aborts one container, a dangling reference only drops
// that reference and is reported through the Context.
package packed
