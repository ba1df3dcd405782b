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

// Track versions:
//
//	v1: base layout, 16-bit side-array indices, 32-bit reference tokens
//	v2: appends Likelihood and GhostProb
//	v3: 32-bit side-array indices, 64-bit reference tokens
const (
	trackVersionLikelihood = 2
	trackVersionWide       = 3
)

// numCorrelations is the number of off-diagonal terms of a 5x5 covariance.
const numCorrelations = 10

// State is a packed track state. The covariance is stored as five
// uncertainties and ten correlation coefficients.
type State struct {
	Flags uint32
	X     int32
	Y     int32
	Z     int32
	Tx    int32
	Ty    int32
	// P is the signed momentum q*p.
	P         int32
	ErrX      int32
	ErrY      int32
	ErrTx     int32
	ErrTy     int32
	ErrQOverP int16
	// Corr holds the correlations (1,0), (2,0), (2,1), (3,0), ... (4,3).
	Corr [numCorrelations]int16
}

func (s *State) Fold(h *checksum.Hasher) {
	h.Uint32(s.Flags)
	h.Int32(s.X)
	h.Int32(s.Y)
	h.Int32(s.Z)
	h.Int32(s.Tx)
	h.Int32(s.Ty)
	h.Int32(s.P)
	h.Int32(s.ErrX)
	h.Int32(s.ErrY)
	h.Int32(s.ErrTx)
	h.Int32(s.ErrTy)
	h.Int16(s.ErrQOverP)
	for _, c := range s.Corr {
		h.Int16(c)
	}
}

const stateSize = 4 + 10*4 + 2 + numCorrelations*2

func saveState(w *transport.Buffer, s *State) {
	w.AppendUint32(s.Flags)
	w.AppendInt32(s.X)
	w.AppendInt32(s.Y)
	w.AppendInt32(s.Z)
	w.AppendInt32(s.Tx)
	w.AppendInt32(s.Ty)
	w.AppendInt32(s.P)
	w.AppendInt32(s.ErrX)
	w.AppendInt32(s.ErrY)
	w.AppendInt32(s.ErrTx)
	w.AppendInt32(s.ErrTy)
	w.AppendInt16(s.ErrQOverP)
	for _, c := range s.Corr {
		w.AppendInt16(c)
	}
}

func loadState(r *transport.Reader) State {
	s := State{
		Flags:     r.Uint32(),
		X:         r.Int32(),
		Y:         r.Int32(),
		Z:         r.Int32(),
		Tx:        r.Int32(),
		Ty:        r.Int32(),
		P:         r.Int32(),
		ErrX:      r.Int32(),
		ErrY:      r.Int32(),
		ErrTx:     r.Int32(),
		ErrTy:     r.Int32(),
		ErrQOverP: r.Int16(),
	}
	for i := range s.Corr {
		s.Corr[i] = r.Int16()
	}

	return s
}

func stateSigmas(s *event.State) [5]float64 {
	var sig [5]float64
	for i := range sig {
		sig[i] = math.Sqrt(math.Max(s.CovAt(i, i), 0))
	}

	return sig
}

func packState(s *event.State) State {
	sig := stateSigmas(s)

	p := State{
		Flags:     s.Flags,
		X:         quant.Position.Quantize(s.X),
		Y:         quant.Position.Quantize(s.Y),
		Z:         quant.Position.Quantize(s.Z),
		Tx:        quant.Slope.Quantize(s.Tx),
		Ty:        quant.Slope.Quantize(s.Ty),
		ErrX:      quant.Position.Quantize(sig[0]),
		ErrY:      quant.Position.Quantize(sig[1]),
		ErrTx:     quant.Slope.Quantize(sig[2]),
		ErrTy:     quant.Slope.Quantize(sig[3]),
		ErrQOverP: quant.LogCurvature.Quantize(sig[4]),
	}
	if s.QOverP != 0 {
		p.P = quant.Energy.Quantize(1 / s.QOverP)
	}

	k := 0
	for i := 1; i < 5; i++ {
		for j := range i {
			p.Corr[k] = quant.Fraction.QuantizeRatio(s.CovAt(i, j), sig[i]*sig[j])
			k++
		}
	}

	return p
}

func unpackState(p *State) event.State {
	s := event.State{
		Flags: p.Flags,
		X:     quant.Position.Dequantize(p.X),
		Y:     quant.Position.Dequantize(p.Y),
		Z:     quant.Position.Dequantize(p.Z),
		Tx:    quant.Slope.Dequantize(p.Tx),
		Ty:    quant.Slope.Dequantize(p.Ty),
	}
	if p.P != 0 {
		s.QOverP = 1 / quant.Energy.Dequantize(p.P)
	}

	sig := [5]float64{
		quant.Position.Dequantize(p.ErrX),
		quant.Position.Dequantize(p.ErrY),
		quant.Slope.Dequantize(p.ErrTx),
		quant.Slope.Dequantize(p.ErrTy),
		quant.LogCurvature.Dequantize(p.ErrQOverP),
	}
	for i := range sig {
		s.SetCov(i, i, sig[i]*sig[i])
	}

	k := 0
	for i := 1; i < 5; i++ {
		for j := range i {
			s.SetCov(i, j, quant.Fraction.Dequantize(p.Corr[k])*sig[i]*sig[j])
			k++
		}
	}

	return s
}

// Track is a packed track.
type Track struct {
	Key        int32
	Flags      uint32
	Chi2PerDoF int32
	NDoF       int32
	IDs        Span
	States     Span
	Extra      Span
	Ancestors  Span
	Likelihood int32
	GhostProb  int32
}

func (t *Track) Fold(h *checksum.Hasher) {
	h.Int32(t.Key)
	h.Uint32(t.Flags)
	h.Int32(t.Chi2PerDoF)
	h.Int32(t.NDoF)
	foldSpan(h, t.IDs)
	foldSpan(h, t.States)
	foldSpan(h, t.Extra)
	foldSpan(h, t.Ancestors)
	h.Int32(t.Likelihood)
	h.Int32(t.GhostProb)
}

// applyVersion resets the fields version does not carry to their defaults.
func (t *Track) applyVersion(version uint8) {
	if version < trackVersionLikelihood {
		t.Likelihood = 0
		t.GhostProb = quant.Table(quant.Probability).Quantize(event.DefaultGhostProbability)
	}
}

func saveTrack(w *transport.Buffer, t *Track, version uint8) {
	wide := version >= trackVersionWide

	w.AppendInt32(t.Key)
	w.AppendUint32(t.Flags)
	w.AppendInt32(t.Chi2PerDoF)
	w.AppendInt32(t.NDoF)
	saveSpan(w, t.IDs, wide)
	saveSpan(w, t.States, wide)
	saveSpan(w, t.Extra, wide)
	saveSpan(w, t.Ancestors, wide)
	if version >= trackVersionLikelihood {
		w.AppendInt32(t.Likelihood)
		w.AppendInt32(t.GhostProb)
	}
}

func loadTrack(r *transport.Reader, version uint8) Track {
	wide := version >= trackVersionWide

	t := Track{
		Key:        r.Int32(),
		Flags:      r.Uint32(),
		Chi2PerDoF: r.Int32(),
		NDoF:       r.Int32(),
		IDs:        loadSpan(r, wide),
		States:     loadSpan(r, wide),
		Extra:      loadSpan(r, wide),
		Ancestors:  loadSpan(r, wide),
	}
	if version >= trackVersionLikelihood {
		t.Likelihood = r.Int32()
		t.GhostProb = r.Int32()
	}
	t.applyVersion(version)

	return t
}

// Tracks is a packed track container.
type Tracks struct {
	Version   uint8
	Links     *ref.LinkTable
	Records   []Track
	IDs       []uint32
	States    []State
	Extra     []ExtraInfo
	Ancestors []int64
}

func (c *Tracks) ClassID() format.ClassID   { return format.ClassTracks }
func (c *Tracks) PackingVersion() uint8     { return c.Version }
func (c *Tracks) LinkTable() *ref.LinkTable { return c.Links }
func (c *Tracks) Len() int                  { return len(c.Records) }
func (c *Tracks) isObject()                 {}

func (c *Tracks) save(w *transport.Buffer) {
	layout := tokenLayout(format.ClassTracks, c.Version)

	saveSlice(w, c.Records, func(w *transport.Buffer, t *Track) { saveTrack(w, t, c.Version) })
	saveSlice(w, c.IDs, func(w *transport.Buffer, id *uint32) { w.AppendUint32(*id) })
	saveSlice(w, c.States, saveState)
	saveSlice(w, c.Extra, saveExtraInfo)
	saveTokens(w, c.Ancestors, layout)
}

func loadTracks(r *transport.Reader, version uint8) (*Tracks, error) {
	layout := tokenLayout(format.ClassTracks, version)

	c := &Tracks{Version: version}
	c.Records = loadSlice(r, 4, func(r *transport.Reader) Track { return loadTrack(r, version) })
	c.IDs = loadSlice(r, 4, func(r *transport.Reader) uint32 { return r.Uint32() })
	c.States = loadSlice(r, stateSize, loadState)
	c.Extra = loadSlice(r, 12, loadExtraInfo)
	c.Ancestors = loadTokens(r, layout)
	if err := r.Err(); err != nil {
		return nil, err
	}

	if version < trackVersionWide {
		if err := c.unwrap(); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// unwrap widens the 16-bit spans of a legacy payload.
func (c *Tracks) unwrap() error {
	fields := []struct {
		name    string
		span    func(t *Track) *Span
		sideLen int
	}{
		{"IDs", func(t *Track) *Span { return &t.IDs }, len(c.IDs)},
		{"States", func(t *Track) *Span { return &t.States }, len(c.States)},
		{"Extra", func(t *Track) *Span { return &t.Extra }, len(c.Extra)},
		{"Ancestors", func(t *Track) *Span { return &t.Ancestors }, len(c.Ancestors)},
	}

	spans := make([]*Span, len(c.Records))
	for _, f := range fields {
		for i := range c.Records {
			spans[i] = f.span(&c.Records[i])
		}
		if err := unwrapSpans(format.ClassTracks.String(), f.name, spans, f.sideLen); err != nil {
			return err
		}
	}

	return nil
}

func (c *Tracks) check() error {
	class := format.ClassTracks.String()
	n := len(c.Records)

	if err := checkSpans(class, "IDs", n, func(i int) Span { return c.Records[i].IDs }, len(c.IDs)); err != nil {
		return err
	}
	if err := checkSpans(class, "States", n, func(i int) Span { return c.Records[i].States }, len(c.States)); err != nil {
		return err
	}
	if err := checkSpans(class, "Extra", n, func(i int) Span { return c.Records[i].Extra }, len(c.Extra)); err != nil {
		return err
	}

	return checkSpans(class, "Ancestors", n, func(i int) Span { return c.Records[i].Ancestors }, len(c.Ancestors))
}

func (c *Tracks) fold(e *checksum.Engine) {
	name := format.ClassTracks.String()
	for i := range c.Records {
		e.Update(name, &c.Records[i])
	}
	e.Update(name+".IDs", checksum.FolderFunc(func(h *checksum.Hasher) {
		h.Len(len(c.IDs))
		for _, id := range c.IDs {
			h.Uint32(id)
		}
	}))
	for i := range c.States {
		e.Update(name+".States", &c.States[i])
	}
	for i := range c.Extra {
		e.Update(name+".Extra", &c.Extra[i])
	}
	e.Update(name+".Ancestors", checksum.FolderFunc(func(h *checksum.Hasher) {
		foldTokens(h, c.Ancestors)
	}))
}

// PackTracks packs live tracks in insertion order.
func PackTracks(ctx *Context, live *event.Tracks, version uint8) (*Tracks, error) {
	if err := CheckVersion(format.ClassTracks, version); err != nil {
		return nil, err
	}

	c := &Tracks{Version: version, Links: ref.NewLinkTable()}
	ctx.begin(live.Location(), c.Links, tokenLayout(format.ClassTracks, version))

	chi2 := quant.Table(quant.Chi2)
	c.Records = make([]Track, 0, live.Len())
	for _, t := range live.All() {
		p := Track{
			Key:        t.Key,
			Flags:      t.Flags,
			Chi2PerDoF: chi2.Quantize(t.Chi2PerDoF),
			NDoF:       t.NDoF,
			Likelihood: quant.Table(quant.DeltaLL).Quantize(t.Likelihood),
			GhostProb:  quant.Table(quant.Probability).Quantize(t.GhostProbability),
		}
		p.applyVersion(version)

		c.IDs, p.IDs = appendSpan(c.IDs, t.LHCbIDs)

		first := len(c.States)
		for i := range t.States {
			c.States = append(c.States, packState(&t.States[i]))
		}
		p.States = Span{First: uint32(first), Last: uint32(len(c.States))} //nolint:gosec

		c.Extra, p.Extra = packExtraInfo(c.Extra, t.ExtraInfo)

		first = len(c.Ancestors)
		var err error
		if c.Ancestors, err = ctx.encodeRefs("Ancestors", c.Ancestors, t.Ancestors); err != nil {
			return nil, err
		}
		p.Ancestors = Span{First: uint32(first), Last: uint32(len(c.Ancestors))} //nolint:gosec

		c.Records = append(c.Records, p)
	}

	return c, nil
}

// UnpackTracks rebuilds the live tracks of c, bound to location.
func UnpackTracks(ctx *Context, location string, c *Tracks) (*event.Tracks, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	ctx.begin(location, c.Links, tokenLayout(format.ClassTracks, c.Version))

	chi2 := quant.Table(quant.Chi2)
	live := event.NewContainer[*event.Track](location)
	for i := range c.Records {
		p := &c.Records[i]

		t := &event.Track{
			Key:              p.Key,
			Flags:            p.Flags,
			Chi2PerDoF:       chi2.Dequantize(p.Chi2PerDoF),
			NDoF:             p.NDoF,
			Likelihood:       quant.Table(quant.DeltaLL).Dequantize(p.Likelihood),
			GhostProbability: quant.Table(quant.Probability).Dequantize(p.GhostProb),
			ExtraInfo:        unpackExtraInfo(c.Extra, p.Extra),
			Ancestors:        ctx.decodeRefs("Ancestors", sliceSpan(c.Ancestors, p.Ancestors)),
		}
		if ids := sliceSpan(c.IDs, p.IDs); len(ids) > 0 {
			t.LHCbIDs = append([]uint32(nil), ids...)
		}
		if states := sliceSpan(c.States, p.States); len(states) > 0 {
			t.States = make([]event.State, len(states))
			for j := range states {
				t.States[j] = unpackState(&states[j])
			}
		}

		if err := live.Insert(t); err != nil {
			return nil, err
		}
	}

	return live, nil
}
