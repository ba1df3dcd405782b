package packed

import (
	"github.com/arloliu/evpack/checksum"
	"github.com/arloliu/evpack/event"
	"github.com/arloliu/evpack/format"
	"github.com/arloliu/evpack/quant"
	"github.com/arloliu/evpack/ref"
	"github.com/arloliu/evpack/transport"
)

// RichPID versions:
//
//	v1: electron, muon, pion, kaon and proton DLLs, 32-bit reference tokens
//	v2: appends the deuteron DLL
//	v3: 64-bit reference tokens, appends the below-threshold DLL
const (
	richVersionDeuteron       = 2
	richVersionBelowThreshold = 3
)

// richHypotheses returns how many DLL values version carries.
func richHypotheses(version uint8) int {
	switch {
	case version >= richVersionBelowThreshold:
		return event.NumRichHypotheses
	case version >= richVersionDeuteron:
		return event.RichDeuteron + 1
	default:
		return event.RichProton + 1
	}
}

// RichPID is a packed RICH identification result.
type RichPID struct {
	Key   int32
	Flags uint32
	DLL   [event.NumRichHypotheses]int32
	Track int64
}

func (p *RichPID) Fold(h *checksum.Hasher) {
	h.Int32(p.Key)
	h.Uint32(p.Flags)
	for _, v := range p.DLL {
		h.Int32(v)
	}
	h.Int64(p.Track)
}

func (p *RichPID) applyVersion(version uint8) {
	for i := richHypotheses(version); i < len(p.DLL); i++ {
		p.DLL[i] = 0
	}
}

func saveRichPID(w *transport.Buffer, p *RichPID, version uint8, layout ref.Layout) {
	w.AppendInt32(p.Key)
	w.AppendUint32(p.Flags)
	for _, v := range p.DLL[:event.RichProton+1] {
		w.AppendInt32(v)
	}
	saveToken(w, p.Track, layout)
	for _, v := range p.DLL[event.RichProton+1 : richHypotheses(version)] {
		w.AppendInt32(v)
	}
}

func loadRichPID(r *transport.Reader, version uint8, layout ref.Layout) RichPID {
	p := RichPID{Key: r.Int32(), Flags: r.Uint32()}
	for i := range event.RichProton + 1 {
		p.DLL[i] = r.Int32()
	}
	p.Track = loadToken(r, layout)
	for i := event.RichProton + 1; i < richHypotheses(version); i++ {
		p.DLL[i] = r.Int32()
	}

	return p
}

// RichPIDs is a packed RICH identification container.
type RichPIDs struct {
	Version uint8
	Links   *ref.LinkTable
	Records []RichPID
}

func (c *RichPIDs) ClassID() format.ClassID   { return format.ClassRichPIDs }
func (c *RichPIDs) PackingVersion() uint8     { return c.Version }
func (c *RichPIDs) LinkTable() *ref.LinkTable { return c.Links }
func (c *RichPIDs) Len() int                  { return len(c.Records) }
func (c *RichPIDs) isObject()                 {}

func (c *RichPIDs) save(w *transport.Buffer) {
	layout := tokenLayout(format.ClassRichPIDs, c.Version)
	saveSlice(w, c.Records, func(w *transport.Buffer, p *RichPID) { saveRichPID(w, p, c.Version, layout) })
}

func loadRichPIDs(r *transport.Reader, version uint8) (*RichPIDs, error) {
	layout := tokenLayout(format.ClassRichPIDs, version)

	c := &RichPIDs{Version: version}
	c.Records = loadSlice(r, 4, func(r *transport.Reader) RichPID { return loadRichPID(r, version, layout) })
	if err := r.Err(); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *RichPIDs) fold(e *checksum.Engine) {
	name := format.ClassRichPIDs.String()
	for i := range c.Records {
		e.Update(name, &c.Records[i])
	}
}

// PackRichPIDs packs live RICH identification results in insertion order.
// DLL values the version does not carry are dropped.
func PackRichPIDs(ctx *Context, live *event.RichPIDs, version uint8) (*RichPIDs, error) {
	if err := CheckVersion(format.ClassRichPIDs, version); err != nil {
		return nil, err
	}

	c := &RichPIDs{Version: version, Links: ref.NewLinkTable()}
	ctx.begin(live.Location(), c.Links, tokenLayout(format.ClassRichPIDs, version))

	dll := quant.Table(quant.DeltaLL)
	c.Records = make([]RichPID, 0, live.Len())
	for _, pid := range live.All() {
		p := RichPID{Key: pid.Key, Flags: pid.Flags}
		for i, v := range pid.DLL {
			p.DLL[i] = dll.Quantize(v)
		}
		p.applyVersion(version)

		var err error
		if p.Track, err = ctx.encodeRef("Track", pid.Track); err != nil {
			return nil, err
		}

		c.Records = append(c.Records, p)
	}

	return c, nil
}

// UnpackRichPIDs rebuilds the live RICH identification results of c, bound to location.
func UnpackRichPIDs(ctx *Context, location string, c *RichPIDs) (*event.RichPIDs, error) {
	ctx.begin(location, c.Links, tokenLayout(format.ClassRichPIDs, c.Version))

	dll := quant.Table(quant.DeltaLL)
	live := event.NewContainer[*event.RichPID](location)
	for i := range c.Records {
		p := &c.Records[i]

		pid := &event.RichPID{Key: p.Key, Flags: p.Flags}
		for j, v := range p.DLL {
			pid.DLL[j] = dll.Dequantize(v)
		}
		pid.Track, _ = ctx.decodeRef("Track", p.Track)

		if err := live.Insert(pid); err != nil {
			return nil, err
		}
	}

	return live, nil
}
