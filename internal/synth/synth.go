// Package synth generates deterministic synthetic events for tests, benchmarks
// and the command line tool.
package synth

import (
	"math"
	"math/rand/v2"

	"github.com/arloliu/evpack/event"
)

// Default locations of the generated containers.
const (
	TracksLocation    = "Rec/Track/Best"
	ProtosLocation    = "Rec/ProtoP/Charged"
	RichLocation      = "Rec/Rich/PIDs"
	MuonLocation      = "Rec/Muon/MuonPID"
	CaloLocation      = "Rec/Calo/Photons"
	ParticlesLocation = "Phys/StdAllLooseKaons/Particles"
	VerticesLocation  = "Rec/Vertex/Primary"
)

// Locations returns every location a generated event may use, in insertion order.
func Locations() []string {
	return []string{
		TracksLocation, RichLocation, MuonLocation, CaloLocation,
		ProtosLocation, ParticlesLocation, VerticesLocation,
	}
}

// Config controls the size of a generated event.
type Config struct {
	Seed              uint64
	Tracks            int
	StatesPerTrack    int
	IDsPerTrack       int
	AncestorsPerTrack int
	// MuonEvery gives one muon identification per MuonEvery tracks; 0 disables muons.
	MuonEvery int
	CaloHypos int
	// Particles are built from the first proto-particles; at most Tracks.
	Particles int
	Vertices  int
}

// DefaultConfig returns a moderately sized event: 1000 tracks with three ancestor references each.
func DefaultConfig() Config {
	return Config{
		Seed:              42,
		Tracks:            1000,
		StatesPerTrack:    2,
		IDsPerTrack:       12,
		AncestorsPerTrack: 3,
		MuonEvery:         4,
		CaloHypos:         100,
		Particles:         200,
		Vertices:          4,
	}
}

// Generator builds events from a Config. Equal configs yield equal events.
type Generator struct {
	cfg Config
	rng *rand.Rand
}

// New creates a generator seeded from cfg.Seed.
func New(cfg Config) *Generator {
	return &Generator{
		cfg: cfg,
		rng: rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9E3779B97F4A7C15)), //nolint:gosec
	}
}

// Event generates the next event. Containers are added in the order of Locations,
// skipping the empty ones.
func (g *Generator) Event(run uint32, number uint64) (*event.Event, error) {
	ev := event.New(run, number)

	objects := []event.Object{
		g.tracks(),
		g.richPIDs(),
	}
	if g.cfg.MuonEvery > 0 {
		objects = append(objects, g.muonPIDs())
	}
	if g.cfg.CaloHypos > 0 {
		objects = append(objects, g.caloHypos())
	}
	objects = append(objects, g.protos())
	if g.cfg.Particles > 0 {
		objects = append(objects, g.particles())
	}
	if g.cfg.Vertices > 0 {
		objects = append(objects, g.vertices())
	}

	for _, obj := range objects {
		if err := ev.Add(obj); err != nil {
			return nil, err
		}
	}

	return ev, nil
}

func (g *Generator) uniform(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}

func (g *Generator) state(z float64) event.State {
	p := g.uniform(2.0e3, 1.0e5)
	if g.rng.IntN(2) == 0 {
		p = -p
	}

	s := event.State{
		Flags:  uint32(g.rng.IntN(8)), //nolint:gosec
		X:      g.uniform(-500, 500),
		Y:      g.uniform(-500, 500),
		Z:      z,
		Tx:     g.uniform(-0.3, 0.3),
		Ty:     g.uniform(-0.25, 0.25),
		QOverP: 1 / p,
	}

	sig := [5]float64{
		g.uniform(0.005, 0.2),
		g.uniform(0.005, 0.2),
		g.uniform(1e-5, 1e-3),
		g.uniform(1e-5, 1e-3),
		math.Abs(s.QOverP) * g.uniform(0.002, 0.01),
	}
	for i := range sig {
		s.SetCov(i, i, sig[i]*sig[i])
		for j := range i {
			s.SetCov(i, j, g.uniform(-0.6, 0.6)*sig[i]*sig[j])
		}
	}

	return s
}

func (g *Generator) tracks() *event.Tracks {
	tracks := event.NewContainer[*event.Track](TracksLocation)
	for i := range g.cfg.Tracks {
		t := event.NewTrack(int32(i))         //nolint:gosec
		t.Flags = uint32(g.rng.IntN(1 << 16)) //nolint:gosec
		t.Chi2PerDoF = g.uniform(0.2, 3)
		t.NDoF = int32(g.rng.IntN(40) + 5) //nolint:gosec
		t.Likelihood = g.uniform(-40, 0)
		t.GhostProbability = g.uniform(0, 1)

		for range g.cfg.IDsPerTrack {
			t.LHCbIDs = append(t.LHCbIDs, g.rng.Uint32())
		}
		for k := range g.cfg.StatesPerTrack {
			t.States = append(t.States, g.state(float64(k)*2500))
		}
		if i%5 == 0 {
			t.ExtraInfo = []event.ExtraInfo{{Key: 1, Value: g.rng.Float64()}}
		}
		for range g.cfg.AncestorsPerTrack {
			t.Ancestors = append(t.Ancestors, event.NewRef(TracksLocation, int32(g.rng.IntN(g.cfg.Tracks)))) //nolint:gosec
		}

		_ = tracks.Insert(t)
	}

	return tracks
}

func (g *Generator) richPIDs() *event.RichPIDs {
	pids := event.NewContainer[*event.RichPID](RichLocation)
	for i := range g.cfg.Tracks {
		pid := &event.RichPID{
			Key:   int32(i),                               //nolint:gosec
			Flags: uint32(g.rng.IntN(1 << 8)),             //nolint:gosec
			Track: event.NewRef(TracksLocation, int32(i)), //nolint:gosec
		}
		for h := range pid.DLL {
			if h != event.RichPion {
				pid.DLL[h] = g.uniform(-60, 60)
			}
		}
		_ = pids.Insert(pid)
	}

	return pids
}

func (g *Generator) muonPIDs() *event.MuonPIDs {
	pids := event.NewContainer[*event.MuonPID](MuonLocation)
	for i := 0; i < g.cfg.Tracks; i += g.cfg.MuonEvery {
		_ = pids.Insert(&event.MuonPID{
			Key:      int32(i), //nolint:gosec
			MuonLLMu: g.uniform(-10, 0),
			MuonLLBg: g.uniform(-10, 0),
			NShared:  int32(g.rng.IntN(3)),  //nolint:gosec
			Status:   uint32(g.rng.IntN(4)), //nolint:gosec
			Chi2Corr: g.uniform(0, 20),
			MuonMVA:  g.uniform(-1, 1),
			IDTrack:  event.NewRef(TracksLocation, int32(i)), //nolint:gosec
		})
	}

	return pids
}

func (g *Generator) caloHypos() *event.CaloHypos {
	hypos := event.NewContainer[*event.CaloHypo](CaloLocation)
	for i := range g.cfg.CaloHypos {
		h := &event.CaloHypo{
			Key:        int32(i),             //nolint:gosec
			Hypothesis: uint8(g.rng.IntN(4)), //nolint:gosec
			Lh:         g.uniform(-5, 5),
			E:          g.uniform(200, 50000),
			X:          g.uniform(-3000, 3000),
			Y:          g.uniform(-2500, 2500),
			Z:          12650,
			SigmaX:     g.uniform(1, 20),
			SigmaY:     g.uniform(1, 20),
			SigmaE:     g.uniform(10, 500),
		}
		if i > 0 && i%10 == 0 {
			h.Hypos = []event.Ref{event.NewRef(CaloLocation, int32(i-1))} //nolint:gosec
		}
		_ = hypos.Insert(h)
	}

	return hypos
}

func (g *Generator) protos() *event.ProtoParticles {
	protos := event.NewContainer[*event.ProtoParticle](ProtosLocation)
	for i := range g.cfg.Tracks {
		key := int32(i) //nolint:gosec
		pp := &event.ProtoParticle{
			Key:     key,
			Track:   event.NewRef(TracksLocation, key),
			RichPID: event.NewRef(RichLocation, key),
		}
		if g.cfg.MuonEvery > 0 && i%g.cfg.MuonEvery == 0 {
			pp.MuonPID = event.NewRef(MuonLocation, key)
		}
		if g.cfg.CaloHypos > 0 && i%7 == 0 {
			pp.CaloHypos = []event.Ref{event.NewRef(CaloLocation, int32(g.rng.IntN(g.cfg.CaloHypos)))} //nolint:gosec
		}
		if i%3 == 0 {
			pp.ExtraInfo = []event.ExtraInfo{{Key: 100, Value: g.uniform(0, 1)}, {Key: 101, Value: g.uniform(0, 1)}}
		}
		_ = protos.Insert(pp)
	}

	return protos
}

func (g *Generator) particles() *event.Particles {
	parts := event.NewContainer[*event.Particle](ParticlesLocation)
	n := min(g.cfg.Particles, g.cfg.Tracks)
	for i := range n {
		key := int32(i) //nolint:gosec
		p := event.NewParticle(key)
		p.PID = 321
		if g.rng.IntN(2) == 0 {
			p.PID = -321
		}
		p.MeasuredMass = 493.677
		p.MeasuredMassErr = 0.016
		px, py, pz := g.uniform(-2000, 2000), g.uniform(-2000, 2000), g.uniform(5000, 80000)
		p.Momentum = [4]float64{px, py, pz, math.Sqrt(px*px + py*py + pz*pz + p.MeasuredMass*p.MeasuredMass)}
		p.MomErr = [4]float64{g.uniform(1, 20), g.uniform(1, 20), g.uniform(10, 400), g.uniform(10, 400)}
		p.ReferencePoint = [3]float64{g.uniform(-1, 1), g.uniform(-1, 1), g.uniform(-100, 100)}
		p.PosErr = [3]float64{g.uniform(0.01, 0.1), g.uniform(0.01, 0.1), g.uniform(0.1, 1)}
		p.ConfidenceLevel = g.uniform(0, 1)
		p.Proto = event.NewRef(ProtosLocation, key)
		if g.cfg.Vertices > 0 {
			p.EndVertex = event.NewRef(VerticesLocation, int32(g.rng.IntN(g.cfg.Vertices))) //nolint:gosec
		}
		if i >= 2 && i%10 == 0 {
			p.Daughters = []event.Ref{
				event.NewRef(ParticlesLocation, key-1),
				event.NewRef(ParticlesLocation, key-2),
			}
		}
		_ = parts.Insert(p)
	}

	return parts
}

func (g *Generator) vertices() *event.Vertices {
	vertices := event.NewContainer[*event.Vertex](VerticesLocation)
	n := min(g.cfg.Particles, g.cfg.Tracks)
	for i := range g.cfg.Vertices {
		v := &event.Vertex{
			Key:       int32(i),             //nolint:gosec
			Technique: uint8(g.rng.IntN(3)), //nolint:gosec
			Chi2:      g.uniform(1, 50),
			NDoF:      int32(g.rng.IntN(60) + 3), //nolint:gosec
			Position:  [3]float64{g.uniform(-0.1, 0.1), g.uniform(-0.1, 0.1), g.uniform(-100, 100)},
		}
		sig := [3]float64{g.uniform(0.005, 0.02), g.uniform(0.005, 0.02), g.uniform(0.02, 0.1)}
		for a := range sig {
			v.Cov[event.CovIndex(a, a)] = sig[a] * sig[a]
			for b := range a {
				v.Cov[event.CovIndex(a, b)] = g.uniform(-0.3, 0.3) * sig[a] * sig[b]
			}
		}
		for k := i; k < n; k += g.cfg.Vertices {
			v.Outgoing = append(v.Outgoing, event.NewRef(ParticlesLocation, int32(k))) //nolint:gosec
		}
		_ = vertices.Insert(v)
	}

	return vertices
}
