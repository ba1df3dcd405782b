package collision

import (
	"fmt"

	"github.com/arloliu/evpack/errs"
)

// Tracker records location names by their derived id and detects id collisions.
// It maintains a map of id-to-name mappings and the names in registration order.
type Tracker struct {
	names     map[int32]string
	namesList []string
}

// NewTracker creates a new collision tracker.
func NewTracker() *Tracker {
	return &Tracker{
		names:     make(map[int32]string),
		namesList: make([]string, 0),
	}
}

// Track records name under id.
//
// Tracking the same name twice is a no-op. Returns:
//   - errs.ErrInvalidLocation if name is empty
//   - errs.ErrLocationConflict if a different name already owns id
func (t *Tracker) Track(name string, id int32) error {
	if name == "" {
		return errs.ErrInvalidLocation
	}

	if existing, exists := t.names[id]; exists {
		if existing == name {
			return nil
		}

		return fmt.Errorf("%w: %q and %q both map to id %d", errs.ErrLocationConflict, existing, name, id)
	}

	t.names[id] = name
	t.namesList = append(t.namesList, name)

	return nil
}

// Name returns the name tracked under id.
func (t *Tracker) Name(id int32) (string, bool) {
	name, ok := t.names[id]
	return name, ok
}

// Names returns the tracked names in registration order.
func (t *Tracker) Names() []string {
	return t.namesList
}

// Count returns the number of tracked names.
func (t *Tracker) Count() int {
	return len(t.namesList)
}

// Reset clears all tracked names.
func (t *Tracker) Reset() {
	clear(t.names)
	t.namesList = t.namesList[:0]
}
