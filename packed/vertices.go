package packed

import (
	"math"

	"github.com/arloliu/evpack/checksum"
	"github.com/arloliu/evpack/event"
	"github.com/arloliu/evpack/format"
	"github.com/arloliu/evpack/quant"
	"github.com/arloliu/evpack/ref"
	"github.com/arloliu/evpack/transport"
)

// Vertex versions: v2 switches to 64-bit reference tokens.

// Vertex is a packed vertex. The position covariance is stored as three
// uncertainties and the correlations (y,x), (z,x) and (z,y).
type Vertex struct {
	Key       int32
	Technique uint8
	Chi2      int32
	NDoF      int32
	Position  [3]int32
	Err       [3]int32
	Corr      [3]int16
	Outgoing  Span
	Extra     Span
}

func (v *Vertex) Fold(h *checksum.Hasher) {
	h.Int32(v.Key)
	h.Uint8(v.Technique)
	h.Int32(v.Chi2)
	h.Int32(v.NDoF)
	for _, x := range v.Position {
		h.Int32(x)
	}
	for _, x := range v.Err {
		h.Int32(x)
	}
	for _, x := range v.Corr {
		h.Int16(x)
	}
	foldSpan(h, v.Outgoing)
	foldSpan(h, v.Extra)
}

func saveVertex(w *transport.Buffer, v *Vertex) {
	w.AppendInt32(v.Key)
	w.AppendUint8(v.Technique)
	w.AppendInt32(v.Chi2)
	w.AppendInt32(v.NDoF)
	for _, x := range v.Position {
		w.AppendInt32(x)
	}
	for _, x := range v.Err {
		w.AppendInt32(x)
	}
	for _, x := range v.Corr {
		w.AppendInt16(x)
	}
	saveSpan(w, v.Outgoing, true)
	saveSpan(w, v.Extra, true)
}

func loadVertex(r *transport.Reader) Vertex {
	v := Vertex{
		Key:       r.Int32(),
		Technique: r.Uint8(),
		Chi2:      r.Int32(),
		NDoF:      r.Int32(),
	}
	for i := range v.Position {
		v.Position[i] = r.Int32()
	}
	for i := range v.Err {
		v.Err[i] = r.Int32()
	}
	for i := range v.Corr {
		v.Corr[i] = r.Int16()
	}
	v.Outgoing = loadSpan(r, true)
	v.Extra = loadSpan(r, true)

	return v
}

// Vertices is a packed vertex container.
type Vertices struct {
	Version  uint8
	Links    *ref.LinkTable
	Records  []Vertex
	Outgoing []int64
	Extra    []ExtraInfo
}

func (c *Vertices) ClassID() format.ClassID   { return format.ClassVertices }
func (c *Vertices) PackingVersion() uint8     { return c.Version }
func (c *Vertices) LinkTable() *ref.LinkTable { return c.Links }
func (c *Vertices) Len() int                  { return len(c.Records) }
func (c *Vertices) isObject()                 {}

func (c *Vertices) save(w *transport.Buffer) {
	layout := tokenLayout(format.ClassVertices, c.Version)

	saveSlice(w, c.Records, saveVertex)
	saveTokens(w, c.Outgoing, layout)
	saveSlice(w, c.Extra, saveExtraInfo)
}

func loadVertices(r *transport.Reader, version uint8) (*Vertices, error) {
	layout := tokenLayout(format.ClassVertices, version)

	c := &Vertices{Version: version}
	c.Records = loadSlice(r, 4, loadVertex)
	c.Outgoing = loadTokens(r, layout)
	c.Extra = loadSlice(r, 12, loadExtraInfo)
	if err := r.Err(); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Vertices) check() error {
	class := format.ClassVertices.String()
	n := len(c.Records)

	if err := checkSpans(class, "Outgoing", n, func(i int) Span { return c.Records[i].Outgoing }, len(c.Outgoing)); err != nil {
		return err
	}

	return checkSpans(class, "Extra", n, func(i int) Span { return c.Records[i].Extra }, len(c.Extra))
}

func (c *Vertices) fold(e *checksum.Engine) {
	name := format.ClassVertices.String()
	for i := range c.Records {
		e.Update(name, &c.Records[i])
	}
	e.Update(name+".Outgoing", checksum.FolderFunc(func(h *checksum.Hasher) {
		foldTokens(h, c.Outgoing)
	}))
	for i := range c.Extra {
		e.Update(name+".Extra", &c.Extra[i])
	}
}

// PackVertices packs live vertices in insertion order.
func PackVertices(ctx *Context, live *event.Vertices, version uint8) (*Vertices, error) {
	if err := CheckVersion(format.ClassVertices, version); err != nil {
		return nil, err
	}

	c := &Vertices{Version: version, Links: ref.NewLinkTable()}
	ctx.begin(live.Location(), c.Links, tokenLayout(format.ClassVertices, version))

	chi2 := quant.Table(quant.Chi2)
	c.Records = make([]Vertex, 0, live.Len())
	for _, vtx := range live.All() {
		p := Vertex{
			Key:       vtx.Key,
			Technique: vtx.Technique,
			Chi2:      chi2.Quantize(vtx.Chi2),
			NDoF:      vtx.NDoF,
		}

		var sig [3]float64
		for i := range 3 {
			sig[i] = math.Sqrt(math.Max(vtx.Cov[event.CovIndex(i, i)], 0))
			p.Position[i] = quant.Position.Quantize(vtx.Position[i])
			p.Err[i] = quant.Position.Quantize(sig[i])
		}
		p.Corr[0] = quant.Fraction.QuantizeRatio(vtx.Cov[event.CovIndex(1, 0)], sig[1]*sig[0])
		p.Corr[1] = quant.Fraction.QuantizeRatio(vtx.Cov[event.CovIndex(2, 0)], sig[2]*sig[0])
		p.Corr[2] = quant.Fraction.QuantizeRatio(vtx.Cov[event.CovIndex(2, 1)], sig[2]*sig[1])

		first := len(c.Outgoing)
		var err error
		if c.Outgoing, err = ctx.encodeRefs("Outgoing", c.Outgoing, vtx.Outgoing); err != nil {
			return nil, err
		}
		p.Outgoing = Span{First: uint32(first), Last: uint32(len(c.Outgoing))} //nolint:gosec

		c.Extra, p.Extra = packExtraInfo(c.Extra, vtx.ExtraInfo)

		c.Records = append(c.Records, p)
	}

	return c, nil
}

// UnpackVertices rebuilds the live vertices of c, bound to location.
func UnpackVertices(ctx *Context, location string, c *Vertices) (*event.Vertices, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	ctx.begin(location, c.Links, tokenLayout(format.ClassVertices, c.Version))

	chi2 := quant.Table(quant.Chi2)
	live := event.NewContainer[*event.Vertex](location)
	for i := range c.Records {
		p := &c.Records[i]

		vtx := &event.Vertex{
			Key:       p.Key,
			Technique: p.Technique,
			Chi2:      chi2.Dequantize(p.Chi2),
			NDoF:      p.NDoF,
			Outgoing:  ctx.decodeRefs("Outgoing", sliceSpan(c.Outgoing, p.Outgoing)),
			ExtraInfo: unpackExtraInfo(c.Extra, p.Extra),
		}

		var sig [3]float64
		for j := range 3 {
			vtx.Position[j] = quant.Position.Dequantize(p.Position[j])
			sig[j] = quant.Position.Dequantize(p.Err[j])
			vtx.Cov[event.CovIndex(j, j)] = sig[j] * sig[j]
		}
		vtx.Cov[event.CovIndex(1, 0)] = quant.Fraction.Dequantize(p.Corr[0]) * sig[1] * sig[0]
		vtx.Cov[event.CovIndex(2, 0)] = quant.Fraction.Dequantize(p.Corr[1]) * sig[2] * sig[0]
		vtx.Cov[event.CovIndex(2, 1)] = quant.Fraction.Dequantize(p.Corr[2]) * sig[2] * sig[1]

		if err := live.Insert(vtx); err != nil {
			return nil, err
		}
	}

	return live, nil
}
