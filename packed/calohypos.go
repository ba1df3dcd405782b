package packed

import (
	"github.com/arloliu/evpack/checksum"
	"github.com/arloliu/evpack/event"
	"github.com/arloliu/evpack/format"
	"github.com/arloliu/evpack/quant"
	"github.com/arloliu/evpack/ref"
	"github.com/arloliu/evpack/transport"
)

// CaloHypo is a packed calorimeter hypothesis. Energies use the log scale.
type CaloHypo struct {
	Key        int32
	Hypothesis uint8
	Lh         int32
	E          int16
	X          int32
	Y          int32
	Z          int32
	SigmaX     int32
	SigmaY     int32
	SigmaE     int16
	Hypos      Span
}

func (p *CaloHypo) Fold(h *checksum.Hasher) {
	h.Int32(p.Key)
	h.Uint8(p.Hypothesis)
	h.Int32(p.Lh)
	h.Int16(p.E)
	h.Int32(p.X)
	h.Int32(p.Y)
	h.Int32(p.Z)
	h.Int32(p.SigmaX)
	h.Int32(p.SigmaY)
	h.Int16(p.SigmaE)
	foldSpan(h, p.Hypos)
}

func saveCaloHypo(w *transport.Buffer, p *CaloHypo) {
	w.AppendInt32(p.Key)
	w.AppendUint8(p.Hypothesis)
	w.AppendInt32(p.Lh)
	w.AppendInt16(p.E)
	w.AppendInt32(p.X)
	w.AppendInt32(p.Y)
	w.AppendInt32(p.Z)
	w.AppendInt32(p.SigmaX)
	w.AppendInt32(p.SigmaY)
	w.AppendInt16(p.SigmaE)
	saveSpan(w, p.Hypos, true)
}

func loadCaloHypo(r *transport.Reader) CaloHypo {
	return CaloHypo{
		Key:        r.Int32(),
		Hypothesis: r.Uint8(),
		Lh:         r.Int32(),
		E:          r.Int16(),
		X:          r.Int32(),
		Y:          r.Int32(),
		Z:          r.Int32(),
		SigmaX:     r.Int32(),
		SigmaY:     r.Int32(),
		SigmaE:     r.Int16(),
		Hypos:      loadSpan(r, true),
	}
}

// CaloHypos is a packed calorimeter hypothesis container.
type CaloHypos struct {
	Version uint8
	Links   *ref.LinkTable
	Records []CaloHypo
	Hypos   []int64
}

func (c *CaloHypos) ClassID() format.ClassID   { return format.ClassCaloHypos }
func (c *CaloHypos) PackingVersion() uint8     { return c.Version }
func (c *CaloHypos) LinkTable() *ref.LinkTable { return c.Links }
func (c *CaloHypos) Len() int                  { return len(c.Records) }
func (c *CaloHypos) isObject()                 {}

func (c *CaloHypos) save(w *transport.Buffer) {
	saveSlice(w, c.Records, saveCaloHypo)
	saveTokens(w, c.Hypos, ref.Layout64)
}

func loadCaloHypos(r *transport.Reader, version uint8) (*CaloHypos, error) {
	c := &CaloHypos{Version: version}
	c.Records = loadSlice(r, 4, loadCaloHypo)
	c.Hypos = loadTokens(r, ref.Layout64)
	if err := r.Err(); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *CaloHypos) check() error {
	return checkSpans(format.ClassCaloHypos.String(), "Hypos", len(c.Records),
		func(i int) Span { return c.Records[i].Hypos }, len(c.Hypos))
}

func (c *CaloHypos) fold(e *checksum.Engine) {
	name := format.ClassCaloHypos.String()
	for i := range c.Records {
		e.Update(name, &c.Records[i])
	}
	e.Update(name+".Hypos", checksum.FolderFunc(func(h *checksum.Hasher) {
		foldTokens(h, c.Hypos)
	}))
}

// PackCaloHypos packs live calorimeter hypotheses in insertion order.
func PackCaloHypos(ctx *Context, live *event.CaloHypos, version uint8) (*CaloHypos, error) {
	if err := CheckVersion(format.ClassCaloHypos, version); err != nil {
		return nil, err
	}

	c := &CaloHypos{Version: version, Links: ref.NewLinkTable()}
	ctx.begin(live.Location(), c.Links, tokenLayout(format.ClassCaloHypos, version))

	c.Records = make([]CaloHypo, 0, live.Len())
	for _, hypo := range live.All() {
		p := CaloHypo{
			Key:        hypo.Key,
			Hypothesis: hypo.Hypothesis,
			Lh:         quant.Table(quant.DeltaLL).Quantize(hypo.Lh),
			E:          quant.LogEnergy.Quantize(hypo.E),
			X:          quant.Position.Quantize(hypo.X),
			Y:          quant.Position.Quantize(hypo.Y),
			Z:          quant.Position.Quantize(hypo.Z),
			SigmaX:     quant.Position.Quantize(hypo.SigmaX),
			SigmaY:     quant.Position.Quantize(hypo.SigmaY),
			SigmaE:     quant.LogEnergy.Quantize(hypo.SigmaE),
		}

		first := len(c.Hypos)
		var err error
		if c.Hypos, err = ctx.encodeRefs("Hypos", c.Hypos, hypo.Hypos); err != nil {
			return nil, err
		}
		p.Hypos = Span{First: uint32(first), Last: uint32(len(c.Hypos))} //nolint:gosec

		c.Records = append(c.Records, p)
	}

	return c, nil
}

// UnpackCaloHypos rebuilds the live calorimeter hypotheses of c, bound to location.
func UnpackCaloHypos(ctx *Context, location string, c *CaloHypos) (*event.CaloHypos, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	ctx.begin(location, c.Links, tokenLayout(format.ClassCaloHypos, c.Version))

	live := event.NewContainer[*event.CaloHypo](location)
	for i := range c.Records {
		p := &c.Records[i]

		hypo := &event.CaloHypo{
			Key:        p.Key,
			Hypothesis: p.Hypothesis,
			Lh:         quant.Table(quant.DeltaLL).Dequantize(p.Lh),
			E:          quant.LogEnergy.Dequantize(p.E),
			X:          quant.Position.Dequantize(p.X),
			Y:          quant.Position.Dequantize(p.Y),
			Z:          quant.Position.Dequantize(p.Z),
			SigmaX:     quant.Position.Dequantize(p.SigmaX),
			SigmaY:     quant.Position.Dequantize(p.SigmaY),
			SigmaE:     quant.LogEnergy.Dequantize(p.SigmaE),
			Hypos:      ctx.decodeRefs("Hypos", sliceSpan(c.Hypos, p.Hypos)),
		}

		if err := live.Insert(hypo); err != nil {
			return nil, err
		}
	}

	return live, nil
}
