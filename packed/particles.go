package packed

import (
	"github.com/arloliu/evpack/checksum"
	"github.com/arloliu/evpack/event"
	"github.com/arloliu/evpack/format"
	"github.com/arloliu/evpack/quant"
	"github.com/arloliu/evpack/ref"
	"github.com/arloliu/evpack/transport"
)

// Particle versions: v2 switches to 64-bit reference tokens and adds ConfidenceLevel.
const particleVersionConfidence = 2

// Particle is a packed particle candidate.
type Particle struct {
	Key             int32
	PID             int32
	MeasuredMass    int32
	MeasuredMassErr int32
	Momentum        [4]int32
	MomErr          [4]int32
	ReferencePoint  [3]int32
	PosErr          [3]int32
	ConfidenceLevel int32
	EndVertex       int64
	Proto           int64
	Daughters       Span
	Extra           Span
}

func (p *Particle) Fold(h *checksum.Hasher) {
	h.Int32(p.Key)
	h.Int32(p.PID)
	h.Int32(p.MeasuredMass)
	h.Int32(p.MeasuredMassErr)
	for _, v := range p.Momentum {
		h.Int32(v)
	}
	for _, v := range p.MomErr {
		h.Int32(v)
	}
	for _, v := range p.ReferencePoint {
		h.Int32(v)
	}
	for _, v := range p.PosErr {
		h.Int32(v)
	}
	h.Int32(p.ConfidenceLevel)
	h.Int64(p.EndVertex)
	h.Int64(p.Proto)
	foldSpan(h, p.Daughters)
	foldSpan(h, p.Extra)
}

func (p *Particle) applyVersion(version uint8) {
	if version < particleVersionConfidence {
		p.ConfidenceLevel = quant.Table(quant.Probability).Quantize(event.DefaultConfidenceLevel)
	}
}

func saveParticle(w *transport.Buffer, p *Particle, version uint8, layout ref.Layout) {
	w.AppendInt32(p.Key)
	w.AppendInt32(p.PID)
	w.AppendInt32(p.MeasuredMass)
	w.AppendInt32(p.MeasuredMassErr)
	for _, v := range p.Momentum {
		w.AppendInt32(v)
	}
	for _, v := range p.MomErr {
		w.AppendInt32(v)
	}
	for _, v := range p.ReferencePoint {
		w.AppendInt32(v)
	}
	for _, v := range p.PosErr {
		w.AppendInt32(v)
	}
	saveToken(w, p.EndVertex, layout)
	saveToken(w, p.Proto, layout)
	saveSpan(w, p.Daughters, true)
	saveSpan(w, p.Extra, true)
	if version >= particleVersionConfidence {
		w.AppendInt32(p.ConfidenceLevel)
	}
}

func loadParticle(r *transport.Reader, version uint8, layout ref.Layout) Particle {
	p := Particle{
		Key:             r.Int32(),
		PID:             r.Int32(),
		MeasuredMass:    r.Int32(),
		MeasuredMassErr: r.Int32(),
	}
	for i := range p.Momentum {
		p.Momentum[i] = r.Int32()
	}
	for i := range p.MomErr {
		p.MomErr[i] = r.Int32()
	}
	for i := range p.ReferencePoint {
		p.ReferencePoint[i] = r.Int32()
	}
	for i := range p.PosErr {
		p.PosErr[i] = r.Int32()
	}
	p.EndVertex = loadToken(r, layout)
	p.Proto = loadToken(r, layout)
	p.Daughters = loadSpan(r, true)
	p.Extra = loadSpan(r, true)
	if version >= particleVersionConfidence {
		p.ConfidenceLevel = r.Int32()
	}
	p.applyVersion(version)

	return p
}

// Particles is a packed particle container.
type Particles struct {
	Version   uint8
	Links     *ref.LinkTable
	Records   []Particle
	Daughters []int64
	Extra     []ExtraInfo
}

func (c *Particles) ClassID() format.ClassID   { return format.ClassParticles }
func (c *Particles) PackingVersion() uint8     { return c.Version }
func (c *Particles) LinkTable() *ref.LinkTable { return c.Links }
func (c *Particles) Len() int                  { return len(c.Records) }
func (c *Particles) isObject()                 {}

func (c *Particles) save(w *transport.Buffer) {
	layout := tokenLayout(format.ClassParticles, c.Version)

	saveSlice(w, c.Records, func(w *transport.Buffer, p *Particle) { saveParticle(w, p, c.Version, layout) })
	saveTokens(w, c.Daughters, layout)
	saveSlice(w, c.Extra, saveExtraInfo)
}

func loadParticles(r *transport.Reader, version uint8) (*Particles, error) {
	layout := tokenLayout(format.ClassParticles, version)

	c := &Particles{Version: version}
	c.Records = loadSlice(r, 4, func(r *transport.Reader) Particle { return loadParticle(r, version, layout) })
	c.Daughters = loadTokens(r, layout)
	c.Extra = loadSlice(r, 12, loadExtraInfo)
	if err := r.Err(); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Particles) check() error {
	class := format.ClassParticles.String()
	n := len(c.Records)

	if err := checkSpans(class, "Daughters", n, func(i int) Span { return c.Records[i].Daughters }, len(c.Daughters)); err != nil {
		return err
	}

	return checkSpans(class, "Extra", n, func(i int) Span { return c.Records[i].Extra }, len(c.Extra))
}

func (c *Particles) fold(e *checksum.Engine) {
	name := format.ClassParticles.String()
	for i := range c.Records {
		e.Update(name, &c.Records[i])
	}
	e.Update(name+".Daughters", checksum.FolderFunc(func(h *checksum.Hasher) {
		foldTokens(h, c.Daughters)
	}))
	for i := range c.Extra {
		e.Update(name+".Extra", &c.Extra[i])
	}
}

// PackParticles packs live particles in insertion order.
func PackParticles(ctx *Context, live *event.Particles, version uint8) (*Particles, error) {
	if err := CheckVersion(format.ClassParticles, version); err != nil {
		return nil, err
	}

	c := &Particles{Version: version, Links: ref.NewLinkTable()}
	ctx.begin(live.Location(), c.Links, tokenLayout(format.ClassParticles, version))

	c.Records = make([]Particle, 0, live.Len())
	for _, part := range live.All() {
		p := Particle{
			Key:             part.Key,
			PID:             part.PID,
			MeasuredMass:    quant.Mass.Quantize(part.MeasuredMass),
			MeasuredMassErr: quant.Mass.Quantize(part.MeasuredMassErr),
			ConfidenceLevel: quant.Table(quant.Probability).Quantize(part.ConfidenceLevel),
		}
		for i, v := range part.Momentum {
			p.Momentum[i] = quant.Energy.Quantize(v)
		}
		for i, v := range part.MomErr {
			p.MomErr[i] = quant.Energy.Quantize(v)
		}
		for i, v := range part.ReferencePoint {
			p.ReferencePoint[i] = quant.Position.Quantize(v)
		}
		for i, v := range part.PosErr {
			p.PosErr[i] = quant.Position.Quantize(v)
		}
		p.applyVersion(version)

		var err error
		if p.EndVertex, err = ctx.encodeRef("EndVertex", part.EndVertex); err != nil {
			return nil, err
		}
		if p.Proto, err = ctx.encodeRef("Proto", part.Proto); err != nil {
			return nil, err
		}

		first := len(c.Daughters)
		if c.Daughters, err = ctx.encodeRefs("Daughters", c.Daughters, part.Daughters); err != nil {
			return nil, err
		}
		p.Daughters = Span{First: uint32(first), Last: uint32(len(c.Daughters))} //nolint:gosec

		c.Extra, p.Extra = packExtraInfo(c.Extra, part.ExtraInfo)

		c.Records = append(c.Records, p)
	}

	return c, nil
}

// UnpackParticles rebuilds the live particles of c, bound to location.
func UnpackParticles(ctx *Context, location string, c *Particles) (*event.Particles, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	ctx.begin(location, c.Links, tokenLayout(format.ClassParticles, c.Version))

	live := event.NewContainer[*event.Particle](location)
	for i := range c.Records {
		p := &c.Records[i]

		part := &event.Particle{
			Key:             p.Key,
			PID:             p.PID,
			MeasuredMass:    quant.Mass.Dequantize(p.MeasuredMass),
			MeasuredMassErr: quant.Mass.Dequantize(p.MeasuredMassErr),
			ConfidenceLevel: quant.Table(quant.Probability).Dequantize(p.ConfidenceLevel),
			Daughters:       ctx.decodeRefs("Daughters", sliceSpan(c.Daughters, p.Daughters)),
			ExtraInfo:       unpackExtraInfo(c.Extra, p.Extra),
		}
		for j, v := range p.Momentum {
			part.Momentum[j] = quant.Energy.Dequantize(v)
		}
		for j, v := range p.MomErr {
			part.MomErr[j] = quant.Energy.Dequantize(v)
		}
		for j, v := range p.ReferencePoint {
			part.ReferencePoint[j] = quant.Position.Dequantize(v)
		}
		for j, v := range p.PosErr {
			part.PosErr[j] = quant.Position.Dequantize(v)
		}
		part.EndVertex, _ = ctx.decodeRef("EndVertex", p.EndVertex)
		part.Proto, _ = ctx.decodeRef("Proto", p.Proto)

		if err := live.Insert(part); err != nil {
			return nil, err
		}
	}

	return live, nil
}
