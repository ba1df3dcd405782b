package packed

import (
	"github.com/arloliu/evpack/checksum"
	"github.com/arloliu/evpack/event"
	"github.com/arloliu/evpack/format"
	"github.com/arloliu/evpack/quant"
	"github.com/arloliu/evpack/ref"
	"github.com/arloliu/evpack/transport"
)

// MuonPID versions: v2 switches to 64-bit reference tokens and appends Chi2Corr and MuonMVA.
const muonVersionMVA = 2

// MuonPID is a packed muon identification result.
type MuonPID struct {
	Key       int32
	MuonLLMu  int32
	MuonLLBg  int32
	NShared   int32
	Status    uint32
	IDTrack   int64
	MuonTrack int64
	Chi2Corr  int32
	MuonMVA   int32
}

func (p *MuonPID) Fold(h *checksum.Hasher) {
	h.Int32(p.Key)
	h.Int32(p.MuonLLMu)
	h.Int32(p.MuonLLBg)
	h.Int32(p.NShared)
	h.Uint32(p.Status)
	h.Int64(p.IDTrack)
	h.Int64(p.MuonTrack)
	h.Int32(p.Chi2Corr)
	h.Int32(p.MuonMVA)
}

func (p *MuonPID) applyVersion(version uint8) {
	if version < muonVersionMVA {
		p.Chi2Corr = 0
		p.MuonMVA = 0
	}
}

func saveMuonPID(w *transport.Buffer, p *MuonPID, version uint8, layout ref.Layout) {
	w.AppendInt32(p.Key)
	w.AppendInt32(p.MuonLLMu)
	w.AppendInt32(p.MuonLLBg)
	w.AppendInt32(p.NShared)
	w.AppendUint32(p.Status)
	saveToken(w, p.IDTrack, layout)
	saveToken(w, p.MuonTrack, layout)
	if version >= muonVersionMVA {
		w.AppendInt32(p.Chi2Corr)
		w.AppendInt32(p.MuonMVA)
	}
}

func loadMuonPID(r *transport.Reader, version uint8, layout ref.Layout) MuonPID {
	p := MuonPID{
		Key:       r.Int32(),
		MuonLLMu:  r.Int32(),
		MuonLLBg:  r.Int32(),
		NShared:   r.Int32(),
		Status:    r.Uint32(),
		IDTrack:   loadToken(r, layout),
		MuonTrack: loadToken(r, layout),
	}
	if version >= muonVersionMVA {
		p.Chi2Corr = r.Int32()
		p.MuonMVA = r.Int32()
	}

	return p
}

// MuonPIDs is a packed muon identification container.
type MuonPIDs struct {
	Version uint8
	Links   *ref.LinkTable
	Records []MuonPID
}

func (c *MuonPIDs) ClassID() format.ClassID   { return format.ClassMuonPIDs }
func (c *MuonPIDs) PackingVersion() uint8     { return c.Version }
func (c *MuonPIDs) LinkTable() *ref.LinkTable { return c.Links }
func (c *MuonPIDs) Len() int                  { return len(c.Records) }
func (c *MuonPIDs) isObject()                 {}

func (c *MuonPIDs) save(w *transport.Buffer) {
	layout := tokenLayout(format.ClassMuonPIDs, c.Version)
	saveSlice(w, c.Records, func(w *transport.Buffer, p *MuonPID) { saveMuonPID(w, p, c.Version, layout) })
}

func loadMuonPIDs(r *transport.Reader, version uint8) (*MuonPIDs, error) {
	layout := tokenLayout(format.ClassMuonPIDs, version)

	c := &MuonPIDs{Version: version}
	c.Records = loadSlice(r, 4, func(r *transport.Reader) MuonPID { return loadMuonPID(r, version, layout) })
	if err := r.Err(); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *MuonPIDs) fold(e *checksum.Engine) {
	name := format.ClassMuonPIDs.String()
	for i := range c.Records {
		e.Update(name, &c.Records[i])
	}
}

// PackMuonPIDs packs live muon identification results in insertion order.
func PackMuonPIDs(ctx *Context, live *event.MuonPIDs, version uint8) (*MuonPIDs, error) {
	if err := CheckVersion(format.ClassMuonPIDs, version); err != nil {
		return nil, err
	}

	c := &MuonPIDs{Version: version, Links: ref.NewLinkTable()}
	ctx.begin(live.Location(), c.Links, tokenLayout(format.ClassMuonPIDs, version))

	dll := quant.Table(quant.DeltaLL)
	c.Records = make([]MuonPID, 0, live.Len())
	for _, pid := range live.All() {
		p := MuonPID{
			Key:      pid.Key,
			MuonLLMu: dll.Quantize(pid.MuonLLMu),
			MuonLLBg: dll.Quantize(pid.MuonLLBg),
			NShared:  pid.NShared,
			Status:   pid.Status,
			Chi2Corr: quant.Table(quant.Chi2).Quantize(pid.Chi2Corr),
			MuonMVA:  quant.Table(quant.MVA).Quantize(pid.MuonMVA),
		}
		p.applyVersion(version)

		var err error
		if p.IDTrack, err = ctx.encodeRef("IDTrack", pid.IDTrack); err != nil {
			return nil, err
		}
		if p.MuonTrack, err = ctx.encodeRef("MuonTrack", pid.MuonTrack); err != nil {
			return nil, err
		}

		c.Records = append(c.Records, p)
	}

	return c, nil
}

// UnpackMuonPIDs rebuilds the live muon identification results of c, bound to location.
func UnpackMuonPIDs(ctx *Context, location string, c *MuonPIDs) (*event.MuonPIDs, error) {
	ctx.begin(location, c.Links, tokenLayout(format.ClassMuonPIDs, c.Version))

	dll := quant.Table(quant.DeltaLL)
	live := event.NewContainer[*event.MuonPID](location)
	for i := range c.Records {
		p := &c.Records[i]

		pid := &event.MuonPID{
			Key:      p.Key,
			MuonLLMu: dll.Dequantize(p.MuonLLMu),
			MuonLLBg: dll.Dequantize(p.MuonLLBg),
			NShared:  p.NShared,
			Status:   p.Status,
			Chi2Corr: quant.Table(quant.Chi2).Dequantize(p.Chi2Corr),
			MuonMVA:  quant.Table(quant.MVA).Dequantize(p.MuonMVA),
		}
		pid.IDTrack, _ = ctx.decodeRef("IDTrack", p.IDTrack)
		pid.MuonTrack, _ = ctx.decodeRef("MuonTrack", p.MuonTrack)

		if err := live.Insert(pid); err != nil {
			return nil, err
		}
	}

	return live, nil
}
