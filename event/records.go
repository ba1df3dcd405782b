package event

// Ref is a lazy reference to a keyed record in another container.
// The zero Ref is the null reference.
type Ref struct {
	Location string
	Key      int32
}

// NewRef creates a reference to the record with key in location.
func NewRef(location string, key int32) Ref {
	return Ref{Location: location, Key: key}
}

// IsNull reports whether r refers to nothing.
func (r Ref) IsNull() bool {
	return r.Location == ""
}

// ExtraInfo is a (key, value) annotation attached to a record.
type ExtraInfo struct {
	Key   int32
	Value float64
}

// Default values of fields that newer packing versions added.
const (
	DefaultGhostProbability = -1.0
	DefaultConfidenceLevel  = -1.0
)

// State is a track state vector (x, y, tx, ty, q/p) at z with its covariance.
type State struct {
	Flags  uint32
	X      float64
	Y      float64
	Z      float64
	Tx     float64
	Ty     float64
	QOverP float64
	// Cov is the lower triangle of the symmetric 5x5 covariance, row by row.
	Cov [15]float64
}

// CovIndex returns the position of element (i, j) in a packed lower-triangle covariance.
func CovIndex(i, j int) int {
	if i < j {
		i, j = j, i
	}

	return i*(i+1)/2 + j
}

// CovAt returns covariance element (i, j).
func (s *State) CovAt(i, j int) float64 {
	return s.Cov[CovIndex(i, j)]
}

// SetCov sets covariance element (i, j), which is also element (j, i).
func (s *State) SetCov(i, j int, v float64) {
	s.Cov[CovIndex(i, j)] = v
}

// Track is a reconstructed charged-particle trajectory.
type Track struct {
	Key              int32
	Flags            uint32
	Chi2PerDoF       float64
	NDoF             int32
	Likelihood       float64
	GhostProbability float64
	LHCbIDs          []uint32
	States           []State
	ExtraInfo        []ExtraInfo
	Ancestors        []Ref
}

// NewTrack creates a track with default field values.
func NewTrack(key int32) *Track {
	return &Track{Key: key, GhostProbability: DefaultGhostProbability}
}

func (t *Track) ObjectKey() int32 { return t.Key }

// ProtoParticle links a track or calorimeter objects to particle-identification results.
type ProtoParticle struct {
	Key       int32
	Track     Ref
	RichPID   Ref
	MuonPID   Ref
	CaloHypos []Ref
	ExtraInfo []ExtraInfo
}

func (p *ProtoParticle) ObjectKey() int32 { return p.Key }

// Particle is a physics-analysis particle candidate.
type Particle struct {
	Key             int32
	PID             int32
	MeasuredMass    float64
	MeasuredMassErr float64
	// Momentum is (px, py, pz, E).
	Momentum       [4]float64
	ReferencePoint [3]float64
	// PosErr and MomErr are the square roots of the covariance diagonals.
	PosErr          [3]float64
	MomErr          [4]float64
	ConfidenceLevel float64
	EndVertex       Ref
	Proto           Ref
	Daughters       []Ref
	ExtraInfo       []ExtraInfo
}

// NewParticle creates a particle with default field values.
func NewParticle(key int32) *Particle {
	return &Particle{Key: key, ConfidenceLevel: DefaultConfidenceLevel}
}

func (p *Particle) ObjectKey() int32 { return p.Key }

// Vertex is a decay or primary vertex.
type Vertex struct {
	Key       int32
	Technique uint8
	Chi2      float64
	NDoF      int32
	Position  [3]float64
	// Cov is the lower triangle of the symmetric 3x3 position covariance.
	Cov       [6]float64
	Outgoing  []Ref
	ExtraInfo []ExtraInfo
}

func (v *Vertex) ObjectKey() int32 { return v.Key }

// RICH particle hypotheses, in the order of RichPID.DLL.
const (
	RichElectron = iota
	RichMuon
	RichPion
	RichKaon
	RichProton
	RichDeuteron
	RichBelowThreshold

	NumRichHypotheses
)

// RichPID holds RICH log-likelihood differences with respect to the pion hypothesis.
type RichPID struct {
	Key   int32
	Flags uint32
	DLL   [NumRichHypotheses]float64
	Track Ref
}

func (r *RichPID) ObjectKey() int32 { return r.Key }

// MuonPID holds the muon-system identification result of a track.
type MuonPID struct {
	Key       int32
	MuonLLMu  float64
	MuonLLBg  float64
	NShared   int32
	Status    uint32
	Chi2Corr  float64
	MuonMVA   float64
	IDTrack   Ref
	MuonTrack Ref
}

func (m *MuonPID) ObjectKey() int32 { return m.Key }

// CaloHypo is a calorimeter cluster interpreted under a particle hypothesis.
type CaloHypo struct {
	Key        int32
	Hypothesis uint8
	Lh         float64
	E          float64
	X          float64
	Y          float64
	Z          float64
	SigmaX     float64
	SigmaY     float64
	SigmaE     float64
	Hypos      []Ref
}

func (h *CaloHypo) ObjectKey() int32 { return h.Key }

// Container aliases of the record types.
type (
	Tracks         = Container[*Track]
	ProtoParticles = Container[*ProtoParticle]
	Particles      = Container[*Particle]
	Vertices       = Container[*Vertex]
	RichPIDs       = Container[*RichPID]
	MuonPIDs       = Container[*MuonPID]
	CaloHypos      = Container[*CaloHypo]
)
