package packed

import (
	"fmt"

	"github.com/arloliu/evpack/checksum"
	"github.com/arloliu/evpack/errs"
	"github.com/arloliu/evpack/event"
	"github.com/arloliu/evpack/format"
	"github.com/arloliu/evpack/ref"
	"github.com/arloliu/evpack/transport"
)

// Object is a packed container. The set of implementations is closed:
// *Tracks, *ProtoParticles, *Particles, *Vertices, *RichPIDs, *MuonPIDs and *CaloHypos.
type Object interface {
	ClassID() format.ClassID
	PackingVersion() uint8
	LinkTable() *ref.LinkTable
	Len() int

	isObject()
}

var (
	_ Object = (*Tracks)(nil)
	_ Object = (*ProtoParticles)(nil)
	_ Object = (*Particles)(nil)
	_ Object = (*Vertices)(nil)
	_ Object = (*RichPIDs)(nil)
	_ Object = (*MuonPIDs)(nil)
	_ Object = (*CaloHypos)(nil)
)

// ClassOf returns the class id a live container packs to.
func ClassOf(obj event.Object) (format.ClassID, error) {
	switch obj.(type) {
	case *event.Tracks:
		return format.ClassTracks, nil
	case *event.ProtoParticles:
		return format.ClassProtoParticles, nil
	case *event.Particles:
		return format.ClassParticles, nil
	case *event.Vertices:
		return format.ClassVertices, nil
	case *event.RichPIDs:
		return format.ClassRichPIDs, nil
	case *event.MuonPIDs:
		return format.ClassMuonPIDs, nil
	case *event.CaloHypos:
		return format.ClassCaloHypos, nil
	default:
		return 0, fmt.Errorf("%w: %T", errs.ErrUnsupportedObject, obj)
	}
}

// Pack packs a live container with version. Version 0 selects the default
// (newest) version of the container class.
func Pack(ctx *Context, obj event.Object, version uint8) (Object, error) {
	if version == 0 {
		class, err := ClassOf(obj)
		if err != nil {
			return nil, err
		}
		version = DefaultVersion(class)
	}

	switch live := obj.(type) {
	case *event.Tracks:
		return PackTracks(ctx, live, version)
	case *event.ProtoParticles:
		return PackProtoParticles(ctx, live, version)
	case *event.Particles:
		return PackParticles(ctx, live, version)
	case *event.Vertices:
		return PackVertices(ctx, live, version)
	case *event.RichPIDs:
		return PackRichPIDs(ctx, live, version)
	case *event.MuonPIDs:
		return PackMuonPIDs(ctx, live, version)
	case *event.CaloHypos:
		return PackCaloHypos(ctx, live, version)
	default:
		return nil, fmt.Errorf("%w: %T", errs.ErrUnsupportedObject, obj)
	}
}

// Unpack rebuilds the live container of obj, bound to location.
// Dangling references are dropped and recorded in ctx.
func Unpack(ctx *Context, location string, obj Object) (event.Object, error) {
	switch c := obj.(type) {
	case *Tracks:
		return UnpackTracks(ctx, location, c)
	case *ProtoParticles:
		return UnpackProtoParticles(ctx, location, c)
	case *Particles:
		return UnpackParticles(ctx, location, c)
	case *Vertices:
		return UnpackVertices(ctx, location, c)
	case *RichPIDs:
		return UnpackRichPIDs(ctx, location, c)
	case *MuonPIDs:
		return UnpackMuonPIDs(ctx, location, c)
	case *CaloHypos:
		return UnpackCaloHypos(ctx, location, c)
	default:
		return nil, fmt.Errorf("%w: %T", errs.ErrUnsupportedObject, obj)
	}
}

// Save frames obj into w as one transport object: the header carries the
// class, locationID and the link table; the payload starts with the version byte.
func Save(w *transport.Buffer, locationID int32, obj Object) error {
	if err := CheckVersion(obj.ClassID(), obj.PackingVersion()); err != nil {
		return err
	}

	var links []int32
	if lt := obj.LinkTable(); lt != nil {
		links = lt.IDs()
	}

	h := transport.FrameHeader{ClassID: obj.ClassID(), LocationID: locationID, Links: links}

	return w.SaveObject(h, func(w *transport.Buffer) error {
		w.AppendUint8(obj.PackingVersion())

		switch c := obj.(type) {
		case *Tracks:
			c.save(w)
		case *ProtoParticles:
			c.save(w)
		case *Particles:
			c.save(w)
		case *Vertices:
			c.save(w)
		case *RichPIDs:
			c.save(w)
		case *MuonPIDs:
			c.save(w)
		case *CaloHypos:
			c.save(w)
		default:
			return fmt.Errorf("%w: %T", errs.ErrUnsupportedObject, obj)
		}

		return nil
	})
}

// Load decodes the payload of one transport object.
//
// The class and version are checked before anything is consumed: an unknown
// class or an unsupported version leaves payload untouched. A payload with
// bytes left after the container is rejected with errs.ErrTrailingBytes.
func Load(h transport.FrameHeader, payload *transport.Reader) (Object, error) {
	if _, ok := versionTable[h.ClassID]; !ok {
		return nil, fmt.Errorf("%w: %d", errs.ErrUnknownClass, uint32(h.ClassID))
	}

	version, err := payload.PeekUint8()
	if err != nil {
		return nil, fmt.Errorf("%s version byte: %w", h.ClassID, err)
	}
	if err := CheckVersion(h.ClassID, version); err != nil {
		return nil, err
	}
	payload.Uint8()

	var obj Object
	switch h.ClassID {
	case format.ClassTracks:
		obj, err = loadTracks(payload, version)
	case format.ClassProtoParticles:
		obj, err = loadProtoParticles(payload, version)
	case format.ClassParticles:
		obj, err = loadParticles(payload, version)
	case format.ClassVertices:
		obj, err = loadVertices(payload, version)
	case format.ClassRichPIDs:
		obj, err = loadRichPIDs(payload, version)
	case format.ClassMuonPIDs:
		obj, err = loadMuonPIDs(payload, version)
	case format.ClassCaloHypos:
		obj, err = loadCaloHypos(payload, version)
	default:
		return nil, fmt.Errorf("%w: %d", errs.ErrUnknownClass, uint32(h.ClassID))
	}
	if err != nil {
		return nil, fmt.Errorf("load %s v%d: %w", h.ClassID, version, err)
	}

	if n := payload.Remaining(); n > 0 {
		return nil, fmt.Errorf("%w: %s v%d has %d bytes left", errs.ErrTrailingBytes, h.ClassID, version, n)
	}

	setLinks(obj, ref.NewLinkTableFrom(h.Links))

	return obj, nil
}

func setLinks(obj Object, links *ref.LinkTable) {
	switch c := obj.(type) {
	case *Tracks:
		c.Links = links
	case *ProtoParticles:
		c.Links = links
	case *Particles:
		c.Links = links
	case *Vertices:
		c.Links = links
	case *RichPIDs:
		c.Links = links
	case *MuonPIDs:
		c.Links = links
	case *CaloHypos:
		c.Links = links
	}
}

// Checksum folds every record and side array of obj into e, one running
// digest per record type. Equal containers fold to equal digests whatever
// their history, so a checksum taken after Pack matches one taken after Load.
func Checksum(e *checksum.Engine, obj Object) {
	switch c := obj.(type) {
	case *Tracks:
		c.fold(e)
	case *ProtoParticles:
		c.fold(e)
	case *Particles:
		c.fold(e)
	case *Vertices:
		c.fold(e)
	case *RichPIDs:
		c.fold(e)
	case *MuonPIDs:
		c.fold(e)
	case *CaloHypos:
		c.fold(e)
	}
}
