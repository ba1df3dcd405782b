package checksum

import (
	"fmt"
	"maps"
	"slices"
)

// Engine keeps one running digest per record type.
//
// Engine is NOT safe for concurrent use.
type Engine struct {
	hashers map[string]*Hasher
	counts  map[string]int
}

// NewEngine creates an empty engine.
func NewEngine() *Engine {
	return &Engine{
		hashers: make(map[string]*Hasher),
		counts:  make(map[string]int),
	}
}

// Update folds f into the digest of name.
func (e *Engine) Update(name string, f Folder) {
	h, ok := e.hashers[name]
	if !ok {
		h = NewHasher()
		e.hashers[name] = h
	}

	f.Fold(h)
	e.counts[name]++
}

// Sum returns the digest of name and whether anything was folded into it.
func (e *Engine) Sum(name string) (uint64, bool) {
	h, ok := e.hashers[name]
	if !ok {
		return 0, false
	}

	return h.Sum64(), true
}

// Count returns the number of values folded into name.
func (e *Engine) Count(name string) int {
	return e.counts[name]
}

// Names returns the record type names in sorted order.
func (e *Engine) Names() []string {
	return slices.Sorted(maps.Keys(e.hashers))
}

// Sums returns the digest of every record type.
func (e *Engine) Sums() map[string]uint64 {
	sums := make(map[string]uint64, len(e.hashers))
	for name, h := range e.hashers {
		sums[name] = h.Sum64()
	}

	return sums
}

// Reset discards all digests.
func (e *Engine) Reset() {
	clear(e.hashers)
	clear(e.counts)
}

// Mismatch describes a record type whose digests differ between two engines.
// A type missing on one side has a zero count there.
type Mismatch struct {
	Name      string
	Want      uint64
	Got       uint64
	WantCount int
	GotCount  int
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s: want 0x%016X (%d records), got 0x%016X (%d records)",
		m.Name, m.Want, m.WantCount, m.Got, m.GotCount)
}

// Compare returns the record types whose digests differ between e (want) and
// other (got), sorted by name. An empty result means the engines agree.
func (e *Engine) Compare(other *Engine) []Mismatch {
	names := make(map[string]struct{}, len(e.hashers)+len(other.hashers))
	for name := range e.hashers {
		names[name] = struct{}{}
	}
	for name := range other.hashers {
		names[name] = struct{}{}
	}

	var mismatches []Mismatch
	for _, name := range slices.Sorted(maps.Keys(names)) {
		want, _ := e.Sum(name)
		got, _ := other.Sum(name)
		if want == got && e.counts[name] == other.counts[name] {
			continue
		}

		mismatches = append(mismatches, Mismatch{
			Name:      name,
			Want:      want,
			Got:       got,
			WantCount: e.counts[name],
			GotCount:  other.counts[name],
		})
	}

	return mismatches
}
