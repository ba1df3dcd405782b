package packed

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/evpack/checksum"
	"github.com/arloliu/evpack/endian"
	"github.com/arloliu/evpack/errs"
	"github.com/arloliu/evpack/event"
	"github.com/arloliu/evpack/format"
	"github.com/arloliu/evpack/internal/synth"
	"github.com/arloliu/evpack/ref"
	"github.com/arloliu/evpack/registry"
	"github.com/arloliu/evpack/transport"
)

func fixture(t *testing.T) (*event.Event, *registry.Hashed) {
	t.Helper()

	cfg := synth.DefaultConfig()
	cfg.Tracks = 200
	cfg.CaloHypos = 40
	cfg.Particles = 60

	ev, err := synth.New(cfg).Event(1, 1)
	require.NoError(t, err)

	reg, err := registry.NewHashed(synth.Locations()...)
	require.NoError(t, err)

	return ev, reg
}

// saveLoad frames obj into a transport stream and reads it back.
func saveLoad(t *testing.T, obj Object, engine endian.EndianEngine) Object {
	t.Helper()

	w := transport.NewBuffer(engine)
	defer w.Release()
	require.NoError(t, Save(w, 17, obj))

	data := append([]byte(nil), w.Bytes()...)
	r := transport.NewReader(data, engine)
	h, payload, err := r.NextObject()
	require.NoError(t, err)
	require.Equal(t, obj.ClassID(), h.ClassID)
	require.Equal(t, int32(17), h.LocationID)

	loaded, err := Load(h, payload)
	require.NoError(t, err)
	require.Zero(t, r.Remaining())

	return loaded
}

// requireSameObject compares two packed containers, link tables by content.
func requireSameObject(t *testing.T, want, got Object) {
	t.Helper()

	wl, gl := want.LinkTable(), got.LinkTable()
	require.Equal(t, wl.Len(), gl.Len())
	for i := range wl.Len() {
		w, _ := wl.Lookup(i)
		g, _ := gl.Lookup(i)
		require.Equal(t, w, g, "link %d", i)
	}

	setLinks(got, wl)
	require.Equal(t, want, got)
}

func sums(obj Object) *checksum.Engine {
	e := checksum.NewEngine()
	Checksum(e, obj)

	return e
}

func TestSaveLoad_AllVersions(t *testing.T) {
	ev, reg := fixture(t)

	engines := map[string]endian.EndianEngine{
		"little": endian.GetLittleEndianEngine(),
		"big":    endian.GetBigEndianEngine(),
	}

	for _, live := range ev.Objects() {
		class, err := ClassOf(live)
		require.NoError(t, err)
		versions, ok := Versions(class)
		require.True(t, ok)

		for v := versions.Min; v <= versions.Max; v++ {
			for name, engine := range engines {
				t.Run(fmt.Sprintf("%s/v%d/%s", class, v, name), func(t *testing.T) {
					packed, err := Pack(NewContext(reg, nil), live, v)
					require.NoError(t, err)
					require.Equal(t, v, packed.PackingVersion())
					require.Equal(t, live.Len(), packed.Len())

					loaded := saveLoad(t, packed, engine)
					require.Empty(t, sums(packed).Compare(sums(loaded)))
					requireSameObject(t, packed, loaded)
				})
			}
		}
	}
}

func TestPack_Idempotent(t *testing.T) {
	ev, reg := fixture(t)

	for _, live := range ev.Objects() {
		class, err := ClassOf(live)
		require.NoError(t, err)
		versions, _ := Versions(class)

		for v := versions.Min; v <= versions.Max; v++ {
			t.Run(fmt.Sprintf("%s/v%d", class, v), func(t *testing.T) {
				packed, err := Pack(NewContext(reg, nil), live, v)
				require.NoError(t, err)

				ctx := NewContext(reg, nil)
				unpacked, err := Unpack(ctx, live.Location(), saveLoad(t, packed, endian.GetLittleEndianEngine()))
				require.NoError(t, err)
				require.Empty(t, ctx.ReferenceErrors())
				require.Equal(t, live.Location(), unpacked.Location())

				repacked, err := Pack(NewContext(reg, nil), unpacked, v)
				require.NoError(t, err)
				require.Empty(t, sums(packed).Compare(sums(repacked)))
				requireSameObject(t, packed, repacked)
			})
		}
	}
}

func TestPack_DefaultVersion(t *testing.T) {
	ev, reg := fixture(t)

	for _, live := range ev.Objects() {
		packed, err := Pack(NewContext(reg, nil), live, 0)
		require.NoError(t, err)
		require.Equal(t, DefaultVersion(packed.ClassID()), packed.PackingVersion())
	}
}

func TestUnpack_Values(t *testing.T) {
	ev, reg := fixture(t)

	tracks, ok := event.Get[*event.Track](ev, synth.TracksLocation)
	require.True(t, ok)

	packed, err := PackTracks(NewContext(reg, nil), tracks, 3)
	require.NoError(t, err)
	got, err := UnpackTracks(NewContext(reg, nil), synth.TracksLocation, packed)
	require.NoError(t, err)
	require.Equal(t, tracks.Len(), got.Len())

	for i, want := range tracks.All() {
		trk := got.At(i)
		require.Equal(t, want.Key, trk.Key)
		require.Equal(t, want.Flags, trk.Flags)
		require.Equal(t, want.NDoF, trk.NDoF)
		require.Equal(t, want.LHCbIDs, trk.LHCbIDs)
		require.Equal(t, want.Ancestors, trk.Ancestors)
		require.Equal(t, want.ExtraInfo, trk.ExtraInfo)
		require.InDelta(t, want.Chi2PerDoF, trk.Chi2PerDoF, 0.005+1e-9)
		require.InDelta(t, want.GhostProbability, trk.GhostProbability, 0.5e-4+1e-9)

		require.Len(t, trk.States, len(want.States))
		for j := range want.States {
			ws, gs := want.States[j], trk.States[j]
			require.InDelta(t, ws.X, gs.X, 0.5e-4+1e-9)
			require.InDelta(t, ws.Tx, gs.Tx, 0.5e-8+1e-12)
			require.InEpsilon(t, ws.QOverP, gs.QOverP, 1e-5)
			require.InEpsilon(t, ws.CovAt(4, 4), gs.CovAt(4, 4), 3e-3)
		}
	}
}

func TestPack_VersionDefaults(t *testing.T) {
	ev, reg := fixture(t)

	t.Run("Tracks v1 drops likelihood", func(t *testing.T) {
		tracks, _ := event.Get[*event.Track](ev, synth.TracksLocation)
		packed, err := PackTracks(NewContext(reg, nil), tracks, 1)
		require.NoError(t, err)

		got, err := UnpackTracks(NewContext(reg, nil), synth.TracksLocation, packed)
		require.NoError(t, err)
		for _, trk := range got.All() {
			require.Zero(t, trk.Likelihood)
			require.Equal(t, event.DefaultGhostProbability, trk.GhostProbability)
		}
	})

	t.Run("Particles v1 drops confidence level", func(t *testing.T) {
		parts, _ := event.Get[*event.Particle](ev, synth.ParticlesLocation)
		packed, err := PackParticles(NewContext(reg, nil), parts, 1)
		require.NoError(t, err)

		got, err := UnpackParticles(NewContext(reg, nil), synth.ParticlesLocation, packed)
		require.NoError(t, err)
		for _, p := range got.All() {
			require.Equal(t, event.DefaultConfidenceLevel, p.ConfidenceLevel)
		}
	})

	t.Run("RichPIDs per version", func(t *testing.T) {
		pids, _ := event.Get[*event.RichPID](ev, synth.RichLocation)
		for v, carried := range map[uint8]int{1: 5, 2: 6, 3: 7} {
			packed, err := PackRichPIDs(NewContext(reg, nil), pids, v)
			require.NoError(t, err)

			loaded := saveLoad(t, packed, endian.GetLittleEndianEngine()).(*RichPIDs)
			got, err := UnpackRichPIDs(NewContext(reg, nil), synth.RichLocation, loaded)
			require.NoError(t, err)
			for i, pid := range got.All() {
				want := pids.At(i)
				for h := range event.NumRichHypotheses {
					if h < carried {
						require.InDelta(t, want.DLL[h], pid.DLL[h], 0.5e-4+1e-9)
					} else {
						require.Zero(t, pid.DLL[h])
					}
				}
			}
		}
	})

	t.Run("MuonPIDs v1 drops MVA", func(t *testing.T) {
		pids, _ := event.Get[*event.MuonPID](ev, synth.MuonLocation)
		packed, err := PackMuonPIDs(NewContext(reg, nil), pids, 1)
		require.NoError(t, err)
		for _, p := range packed.Records {
			require.Zero(t, p.Chi2Corr)
			require.Zero(t, p.MuonMVA)
		}
	})
}

func TestLoad_VersionRejected(t *testing.T) {
	engine := endian.GetLittleEndianEngine()

	for _, v := range []uint8{0, 4, 255} {
		w := transport.NewBuffer(engine)
		err := w.SaveObject(transport.FrameHeader{ClassID: format.ClassTracks, LocationID: 1}, func(w *transport.Buffer) error {
			w.AppendUint8(v)
			w.AppendUvarint(0)

			return nil
		})
		require.NoError(t, err)

		r := transport.NewReader(append([]byte(nil), w.Bytes()...), engine)
		w.Release()

		h, payload, err := r.NextObject()
		require.NoError(t, err)

		_, err = Load(h, payload)
		var verr *errs.VersionError
		require.ErrorAs(t, err, &verr)
		require.ErrorIs(t, err, errs.ErrUnsupportedVersion)
		require.Equal(t, v, verr.Version)
		require.Equal(t, uint8(1), verr.Min)
		require.Equal(t, uint8(3), verr.Max)
		// nothing consumed
		require.Zero(t, payload.Pos())
	}
}

func TestLoad_Errors(t *testing.T) {
	engine := endian.GetLittleEndianEngine()

	frame := func(class format.ClassID, body func(w *transport.Buffer)) (transport.FrameHeader, *transport.Reader) {
		w := transport.NewBuffer(engine)
		defer w.Release()
		require.NoError(t, w.SaveObject(transport.FrameHeader{ClassID: class}, func(w *transport.Buffer) error {
			body(w)
			return nil
		}))

		r := transport.NewReader(append([]byte(nil), w.Bytes()...), engine)
		h, payload, err := r.NextObject()
		require.NoError(t, err)

		return h, payload
	}

	t.Run("unknown class", func(t *testing.T) {
		h, payload := frame(9999, func(w *transport.Buffer) { w.AppendUint8(1) })
		_, err := Load(h, payload)
		require.ErrorIs(t, err, errs.ErrUnknownClass)
		require.Zero(t, payload.Pos())
	})

	t.Run("empty payload", func(t *testing.T) {
		h, payload := frame(format.ClassVertices, func(*transport.Buffer) {})
		_, err := Load(h, payload)
		require.ErrorIs(t, err, errs.ErrShortBuffer)
	})

	t.Run("truncated records", func(t *testing.T) {
		h, payload := frame(format.ClassMuonPIDs, func(w *transport.Buffer) {
			w.AppendUint8(2)
			w.AppendUvarint(5)
			w.AppendInt32(1)
		})
		_, err := Load(h, payload)
		require.ErrorIs(t, err, errs.ErrShortBuffer)
	})

	t.Run("trailing bytes", func(t *testing.T) {
		c := &CaloHypos{Version: 1, Links: ref.NewLinkTable()}
		h, payload := frame(format.ClassCaloHypos, func(w *transport.Buffer) {
			w.AppendUint8(1)
			c.save(w)
			w.AppendUint8(0xFF)
		})
		_, err := Load(h, payload)
		require.ErrorIs(t, err, errs.ErrTrailingBytes)
	})
}

func TestSave_Rejects(t *testing.T) {
	w := transport.NewBuffer(endian.GetLittleEndianEngine())
	defer w.Release()

	err := Save(w, 1, &Tracks{Version: 7, Links: ref.NewLinkTable()})
	require.ErrorIs(t, err, errs.ErrUnsupportedVersion)
	require.Zero(t, w.Len())
}

type foreign struct{}

func (foreign) Location() string { return "Foreign" }
func (foreign) Len() int         { return 0 }

func TestPack_UnsupportedObject(t *testing.T) {
	_, reg := fixture(t)

	_, err := Pack(NewContext(reg, nil), foreign{}, 1)
	require.ErrorIs(t, err, errs.ErrUnsupportedObject)
	_, err = ClassOf(foreign{})
	require.ErrorIs(t, err, errs.ErrUnsupportedObject)
}

func TestPack_Errors(t *testing.T) {
	_, reg := fixture(t)

	t.Run("bad version", func(t *testing.T) {
		_, err := PackVertices(NewContext(reg, nil), event.NewContainer[*event.Vertex]("Rec/Vertex/Primary"), 3)
		var verr *errs.VersionError
		require.ErrorAs(t, err, &verr)
	})

	t.Run("key too large for 32-bit tokens", func(t *testing.T) {
		protos := event.NewContainer[*event.ProtoParticle](synth.ProtosLocation)
		require.NoError(t, protos.Insert(&event.ProtoParticle{Key: 0, Track: event.NewRef(synth.TracksLocation, 1<<29)}))

		_, err := PackProtoParticles(NewContext(reg, nil), protos, 1)
		require.ErrorIs(t, err, errs.ErrKeyOutOfRange)

		// the 64-bit layout holds it
		_, err = PackProtoParticles(NewContext(reg, nil), protos, 2)
		require.NoError(t, err)
	})
}

func TestUnpack_DanglingReferences(t *testing.T) {
	ev, reg := fixture(t)
	protos, _ := event.Get[*event.ProtoParticle](ev, synth.ProtosLocation)

	packed, err := PackProtoParticles(NewContext(reg, nil), protos, 2)
	require.NoError(t, err)

	t.Run("location unknown to the reader", func(t *testing.T) {
		var known []string
		for _, loc := range synth.Locations() {
			if loc != synth.RichLocation {
				known = append(known, loc)
			}
		}
		readerReg, err := registry.NewHashed(known...)
		require.NoError(t, err)

		ctx := NewContext(readerReg, nil)
		got, err := UnpackProtoParticles(ctx, synth.ProtosLocation, packed)
		require.NoError(t, err)
		require.Equal(t, protos.Len(), got.Len())
		require.Len(t, ctx.ReferenceErrors(), protos.Len())

		for i, pp := range got.All() {
			require.True(t, pp.RichPID.IsNull())
			require.Equal(t, protos.At(i).Track, pp.Track)
		}

		var rerr *errs.ReferenceError
		require.ErrorAs(t, ctx.ReferenceErrors()[0], &rerr)
		require.ErrorIs(t, rerr, errs.ErrDanglingReference)
		require.Equal(t, synth.ProtosLocation, rerr.Location)
		require.Equal(t, "RichPID", rerr.Field)

		ctx.TruncateReferenceErrors(protos.Len() + 1)
		require.Len(t, ctx.ReferenceErrors(), protos.Len())
		ctx.TruncateReferenceErrors(1)
		require.Len(t, ctx.ReferenceErrors(), 1)
		ctx.TruncateReferenceErrors(0)
		require.Empty(t, ctx.ReferenceErrors())
	})

	t.Run("index missing from link table", func(t *testing.T) {
		broken := *packed
		broken.Links = ref.NewLinkTableFrom(packed.Links.IDs()[:1])

		ctx := NewContext(reg, nil)
		got, err := UnpackProtoParticles(ctx, synth.ProtosLocation, &broken)
		require.NoError(t, err)
		require.NotEmpty(t, ctx.ReferenceErrors())

		for _, pp := range got.All() {
			require.False(t, pp.Track.IsNull())
			require.True(t, pp.RichPID.IsNull())
			require.Empty(t, pp.CaloHypos)
		}

		ctx.Reset()
		require.Empty(t, ctx.ReferenceErrors())
		require.Zero(t, ctx.CacheHits())
	})
}

func TestUnpack_InvalidRange(t *testing.T) {
	ev, reg := fixture(t)
	tracks, _ := event.Get[*event.Track](ev, synth.TracksLocation)

	cases := map[string]func(c *Tracks){
		"first after last":  func(c *Tracks) { c.Records[1].IDs = Span{First: 20, Last: 10} },
		"past side array":   func(c *Tracks) { c.Records[len(c.Records)-1].States.Last = uint32(len(c.States) + 1) },
		"moving backwards":  func(c *Tracks) { c.Records[3].Ancestors = Span{First: 0, Last: 1} },
		"extra out of side": func(c *Tracks) { c.Records[0].Extra = Span{First: 0, Last: uint32(len(c.Extra) + 5)} },
	}

	for name, corrupt := range cases {
		t.Run(name, func(t *testing.T) {
			packed, err := PackTracks(NewContext(reg, nil), tracks, 3)
			require.NoError(t, err)
			corrupt(packed)

			_, err = UnpackTracks(NewContext(reg, nil), synth.TracksLocation, packed)
			require.ErrorIs(t, err, errs.ErrInvalidRange)
		})
	}
}

func tracksWithIDs(t *testing.T, perTrack ...int) *event.Tracks {
	t.Helper()

	tracks := event.NewContainer[*event.Track](synth.TracksLocation)
	for i, n := range perTrack {
		trk := event.NewTrack(int32(i)) //nolint:gosec
		trk.LHCbIDs = make([]uint32, n)
		for j := range trk.LHCbIDs {
			trk.LHCbIDs[j] = uint32(i<<20 | j) //nolint:gosec
		}
		require.NoError(t, tracks.Insert(trk))
	}

	return tracks
}

func TestLegacyIndices(t *testing.T) {
	_, reg := fixture(t)

	t.Run("wrap across records is recovered", func(t *testing.T) {
		// 10 x 8000 ids cross the 16-bit boundary once
		tracks := tracksWithIDs(t, 8000, 8000, 8000, 8000, 8000, 8000, 8000, 8000, 8000, 8000)

		for _, v := range []uint8{1, 2} {
			packed, err := PackTracks(NewContext(reg, nil), tracks, v)
			require.NoError(t, err)

			loaded := saveLoad(t, packed, endian.GetLittleEndianEngine())
			requireSameObject(t, packed, loaded)

			got, err := UnpackTracks(NewContext(reg, nil), synth.TracksLocation, loaded.(*Tracks))
			require.NoError(t, err)
			require.Equal(t, tracks.At(9).LHCbIDs, got.At(9).LHCbIDs)
		}
	})

	t.Run("single oversized record is reported", func(t *testing.T) {
		tracks := tracksWithIDs(t, 70000)

		packed, err := PackTracks(NewContext(reg, nil), tracks, 2)
		require.NoError(t, err)

		w := transport.NewBuffer(endian.GetLittleEndianEngine())
		defer w.Release()
		require.NoError(t, Save(w, 1, packed))

		r := transport.NewReader(w.Bytes(), w.Engine())
		h, payload, err := r.NextObject()
		require.NoError(t, err)

		_, err = Load(h, payload)
		var oerr *errs.OverflowError
		require.ErrorAs(t, err, &oerr)
		require.ErrorIs(t, err, errs.ErrIndexOverflow)
		require.Equal(t, "IDs", oerr.Field)
	})

	t.Run("wide indices need no recovery", func(t *testing.T) {
		tracks := tracksWithIDs(t, 70000)

		packed, err := PackTracks(NewContext(reg, nil), tracks, 3)
		require.NoError(t, err)
		requireSameObject(t, packed, saveLoad(t, packed, endian.GetLittleEndianEngine()))
	})
}

func TestUnwrapSpans(t *testing.T) {
	spans := []*Span{{0, 60000}, {60000, 64000}, {64000, 4464}, {4464, 4500}}
	require.NoError(t, unwrapSpans("Tracks", "IDs", spans, 70036))
	require.Equal(t, Span{64000, 70000}, *spans[2])
	require.Equal(t, Span{70000, 70036}, *spans[3])

	err := unwrapSpans("Tracks", "IDs", []*Span{{0, 100}}, 50)
	require.ErrorIs(t, err, errs.ErrIndexOverflow)
}

func TestContext_CacheHits(t *testing.T) {
	ev, reg := fixture(t)
	tracks, _ := event.Get[*event.Track](ev, synth.TracksLocation)

	ctx := NewContext(reg, nil)
	packed, err := PackTracks(ctx, tracks, 3)
	require.NoError(t, err)
	require.Equal(t, 1, packed.Links.Len())
	// every ancestor after the first one hits the cache
	require.Equal(t, len(packed.Ancestors)-1, ctx.CacheHits())
	require.Same(t, reg, ctx.Registry())
}

func TestChecksum_DetectsChange(t *testing.T) {
	ev, reg := fixture(t)
	vertices, _ := event.Get[*event.Vertex](ev, synth.VerticesLocation)

	packed, err := PackVertices(NewContext(reg, nil), vertices, 2)
	require.NoError(t, err)
	changed, err := PackVertices(NewContext(reg, nil), vertices, 2)
	require.NoError(t, err)
	changed.Records[1].Chi2++

	mismatches := sums(packed).Compare(sums(changed))
	require.Len(t, mismatches, 1)
	require.Equal(t, "Vertices", mismatches[0].Name)
}

func TestCheckVersion(t *testing.T) {
	require.NoError(t, CheckVersion(format.ClassCaloHypos, 1))
	require.ErrorIs(t, CheckVersion(format.ClassCaloHypos, 2), errs.ErrUnsupportedVersion)
	require.True(t, errors.Is(CheckVersion(42, 1), errs.ErrUnknownClass))

	require.Equal(t, ref.Layout32, tokenLayout(format.ClassTracks, 2))
	require.Equal(t, ref.Layout64, tokenLayout(format.ClassTracks, 3))
	require.Equal(t, ref.Layout32, tokenLayout(format.ClassParticles, 1))
	require.Equal(t, ref.Layout64, tokenLayout(format.ClassCaloHypos, 1))
}

func BenchmarkPackTracks(b *testing.B) {
	ev, err := synth.New(synth.DefaultConfig()).Event(1, 1)
	require.NoError(b, err)
	reg, err := registry.NewHashed(synth.Locations()...)
	require.NoError(b, err)
	tracks, _ := event.Get[*event.Track](ev, synth.TracksLocation)

	ctx := NewContext(reg, nil)
	b.ReportAllocs()
	for b.Loop() {
		ctx.Reset()
		if _, err := PackTracks(ctx, tracks, 3); err != nil {
			b.Fatal(err)
		}
	}
}
