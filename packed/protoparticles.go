package packed

import (
	"github.com/arloliu/evpack/checksum"
	"github.com/arloliu/evpack/event"
	"github.com/arloliu/evpack/format"
	"github.com/arloliu/evpack/ref"
	"github.com/arloliu/evpack/transport"
)

// ProtoParticle versions: v1 uses 32-bit reference tokens, v2 64-bit ones.

// ProtoParticle is a packed proto-particle.
type ProtoParticle struct {
	Key       int32
	Track     int64
	RichPID   int64
	MuonPID   int64
	CaloHypos Span
	Extra     Span
}

func (p *ProtoParticle) Fold(h *checksum.Hasher) {
	h.Int32(p.Key)
	h.Int64(p.Track)
	h.Int64(p.RichPID)
	h.Int64(p.MuonPID)
	foldSpan(h, p.CaloHypos)
	foldSpan(h, p.Extra)
}

func saveProtoParticle(w *transport.Buffer, p *ProtoParticle, layout ref.Layout) {
	w.AppendInt32(p.Key)
	saveToken(w, p.Track, layout)
	saveToken(w, p.RichPID, layout)
	saveToken(w, p.MuonPID, layout)
	saveSpan(w, p.CaloHypos, true)
	saveSpan(w, p.Extra, true)
}

func loadProtoParticle(r *transport.Reader, layout ref.Layout) ProtoParticle {
	return ProtoParticle{
		Key:       r.Int32(),
		Track:     loadToken(r, layout),
		RichPID:   loadToken(r, layout),
		MuonPID:   loadToken(r, layout),
		CaloHypos: loadSpan(r, true),
		Extra:     loadSpan(r, true),
	}
}

// ProtoParticles is a packed proto-particle container.
type ProtoParticles struct {
	Version   uint8
	Links     *ref.LinkTable
	Records   []ProtoParticle
	CaloHypos []int64
	Extra     []ExtraInfo
}

func (c *ProtoParticles) ClassID() format.ClassID   { return format.ClassProtoParticles }
func (c *ProtoParticles) PackingVersion() uint8     { return c.Version }
func (c *ProtoParticles) LinkTable() *ref.LinkTable { return c.Links }
func (c *ProtoParticles) Len() int                  { return len(c.Records) }
func (c *ProtoParticles) isObject()                 {}

func (c *ProtoParticles) save(w *transport.Buffer) {
	layout := tokenLayout(format.ClassProtoParticles, c.Version)

	saveSlice(w, c.Records, func(w *transport.Buffer, p *ProtoParticle) { saveProtoParticle(w, p, layout) })
	saveTokens(w, c.CaloHypos, layout)
	saveSlice(w, c.Extra, saveExtraInfo)
}

func loadProtoParticles(r *transport.Reader, version uint8) (*ProtoParticles, error) {
	layout := tokenLayout(format.ClassProtoParticles, version)

	c := &ProtoParticles{Version: version}
	c.Records = loadSlice(r, 4, func(r *transport.Reader) ProtoParticle { return loadProtoParticle(r, layout) })
	c.CaloHypos = loadTokens(r, layout)
	c.Extra = loadSlice(r, 12, loadExtraInfo)
	if err := r.Err(); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *ProtoParticles) check() error {
	class := format.ClassProtoParticles.String()
	n := len(c.Records)

	if err := checkSpans(class, "CaloHypos", n, func(i int) Span { return c.Records[i].CaloHypos }, len(c.CaloHypos)); err != nil {
		return err
	}

	return checkSpans(class, "Extra", n, func(i int) Span { return c.Records[i].Extra }, len(c.Extra))
}

func (c *ProtoParticles) fold(e *checksum.Engine) {
	name := format.ClassProtoParticles.String()
	for i := range c.Records {
		e.Update(name, &c.Records[i])
	}
	e.Update(name+".CaloHypos", checksum.FolderFunc(func(h *checksum.Hasher) {
		foldTokens(h, c.CaloHypos)
	}))
	for i := range c.Extra {
		e.Update(name+".Extra", &c.Extra[i])
	}
}

// PackProtoParticles packs live proto-particles in insertion order.
func PackProtoParticles(ctx *Context, live *event.ProtoParticles, version uint8) (*ProtoParticles, error) {
	if err := CheckVersion(format.ClassProtoParticles, version); err != nil {
		return nil, err
	}

	c := &ProtoParticles{Version: version, Links: ref.NewLinkTable()}
	ctx.begin(live.Location(), c.Links, tokenLayout(format.ClassProtoParticles, version))

	c.Records = make([]ProtoParticle, 0, live.Len())
	for _, pp := range live.All() {
		p := ProtoParticle{Key: pp.Key}

		var err error
		if p.Track, err = ctx.encodeRef("Track", pp.Track); err != nil {
			return nil, err
		}
		if p.RichPID, err = ctx.encodeRef("RichPID", pp.RichPID); err != nil {
			return nil, err
		}
		if p.MuonPID, err = ctx.encodeRef("MuonPID", pp.MuonPID); err != nil {
			return nil, err
		}

		first := len(c.CaloHypos)
		if c.CaloHypos, err = ctx.encodeRefs("CaloHypos", c.CaloHypos, pp.CaloHypos); err != nil {
			return nil, err
		}
		p.CaloHypos = Span{First: uint32(first), Last: uint32(len(c.CaloHypos))} //nolint:gosec

		c.Extra, p.Extra = packExtraInfo(c.Extra, pp.ExtraInfo)

		c.Records = append(c.Records, p)
	}

	return c, nil
}

// UnpackProtoParticles rebuilds the live proto-particles of c, bound to location.
func UnpackProtoParticles(ctx *Context, location string, c *ProtoParticles) (*event.ProtoParticles, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	ctx.begin(location, c.Links, tokenLayout(format.ClassProtoParticles, c.Version))

	live := event.NewContainer[*event.ProtoParticle](location)
	for i := range c.Records {
		p := &c.Records[i]

		pp := &event.ProtoParticle{
			Key:       p.Key,
			CaloHypos: ctx.decodeRefs("CaloHypos", sliceSpan(c.CaloHypos, p.CaloHypos)),
			ExtraInfo: unpackExtraInfo(c.Extra, p.Extra),
		}
		pp.Track, _ = ctx.decodeRef("Track", p.Track)
		pp.RichPID, _ = ctx.decodeRef("RichPID", p.RichPID)
		pp.MuonPID, _ = ctx.decodeRef("MuonPID", p.MuonPID)

		if err := live.Insert(pp); err != nil {
			return nil, err
		}
	}

	return live, nil
}
