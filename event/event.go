// Package event is the in-memory model of a reconstructed event: keyed record
// containers bound to location names, linked to each other by lazy references.
//
// The model carries no physics behavior. It is the input of the packers and
// the output of the unpackers in package packed.
package event

import (
	"fmt"

	"github.com/arloliu/evpack/errs"
)

// Event is the set of containers of one event, kept in insertion order.
type Event struct {
	Run    uint32
	Number uint64

	objects    []Object
	byLocation map[string]Object
}

// New creates an empty event.
func New(run uint32, number uint64) *Event {
	return &Event{
		Run:        run,
		Number:     number,
		byLocation: make(map[string]Object),
	}
}

// Add appends obj. Locations must be unique within an event.
func (e *Event) Add(obj Object) error {
	loc := obj.Location()
	if loc == "" {
		return errs.ErrInvalidLocation
	}
	if _, exists := e.byLocation[loc]; exists {
		return fmt.Errorf("%w: %s", errs.ErrDuplicateLocation, loc)
	}

	e.objects = append(e.objects, obj)
	e.byLocation[loc] = obj

	return nil
}

// Objects returns the containers in insertion order. The slice must not be modified.
func (e *Event) Objects() []Object {
	return e.objects
}

// Lookup returns the container at location.
func (e *Event) Lookup(location string) (Object, bool) {
	obj, ok := e.byLocation[location]
	return obj, ok
}

// Get returns the container at location if it holds records of type T.
func Get[T Keyed](e *Event, location string) (*Container[T], bool) {
	obj, ok := e.byLocation[location]
	if !ok {
		return nil, false
	}

	c, ok := obj.(*Container[T])

	return c, ok
}

// Resolve follows r to its record. It fails for null references, missing
// containers, containers of another record type and missing keys.
func Resolve[T Keyed](e *Event, r Ref) (T, bool) {
	var zero T
	if r.IsNull() {
		return zero, false
	}

	c, ok := Get[T](e, r.Location)
	if !ok {
		return zero, false
	}

	return c.Get(r.Key)
}
