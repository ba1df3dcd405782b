// Package registry maps logical location names to the integer ids persisted in
// transport frames and link tables.
//
// Writers and readers must share the same registry contents: a reader can only
// resolve ids whose names it has seen, either because it registered them up
// front or because it looked them up by name earlier.
package registry

import (
	"fmt"
	"sync"

	"github.com/arloliu/evpack/errs"
	"github.com/arloliu/evpack/internal/collision"
	"github.com/arloliu/evpack/internal/hash"
)

// Registry resolves location names to ids and back.
type Registry interface {
	// ID returns the id of location, registering it if needed.
	ID(location string) (int32, error)
	// Location returns the name registered under id.
	Location(id int32) (string, error)
}

// Hashed derives ids from the xxHash64 of the location name, truncated to 31 bits.
// Two names hashing to the same id are rejected with errs.ErrLocationConflict.
//
// Hashed is safe for concurrent use.
type Hashed struct {
	mu      sync.RWMutex
	tracker *collision.Tracker
}

var _ Registry = (*Hashed)(nil)

// NewHashed creates a registry with the given locations pre-registered.
func NewHashed(locations ...string) (*Hashed, error) {
	r := &Hashed{tracker: collision.NewTracker()}
	if err := r.Register(locations...); err != nil {
		return nil, err
	}

	return r, nil
}

// Register adds locations to the registry.
func (r *Hashed) Register(locations ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, loc := range locations {
		if err := r.tracker.Track(loc, hash.LocationID(loc)); err != nil {
			return err
		}
	}

	return nil
}

// ID returns the id of location, registering it on first use.
func (r *Hashed) ID(location string) (int32, error) {
	id := hash.LocationID(location)

	r.mu.RLock()
	name, ok := r.tracker.Name(id)
	r.mu.RUnlock()
	if ok && name == location {
		return id, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.tracker.Track(location, id); err != nil {
		return 0, err
	}

	return id, nil
}

// Location returns the name registered under id.
func (r *Hashed) Location(id int32) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name, ok := r.tracker.Name(id)
	if !ok {
		return "", fmt.Errorf("%w: id %d", errs.ErrUnknownLocation, id)
	}

	return name, nil
}

// Locations returns the registered names in registration order.
func (r *Hashed) Locations() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]string(nil), r.tracker.Names()...)
}
