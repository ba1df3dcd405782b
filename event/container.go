package event

import (
	"fmt"

	"github.com/arloliu/evpack/errs"
)

// Keyed is implemented by every record stored in a Container.
type Keyed interface {
	ObjectKey() int32
}

// Object is a location-bound container of records.
type Object interface {
	Location() string
	Len() int
}

// Container holds keyed records in insertion order.
// Keys are unique and non-negative.
type Container[T Keyed] struct {
	location string
	items    []T
	index    map[int32]int
}

// NewContainer creates an empty container bound to location.
func NewContainer[T Keyed](location string) *Container[T] {
	return &Container[T]{
		location: location,
		index:    make(map[int32]int),
	}
}

// Location returns the location the container is bound to.
func (c *Container[T]) Location() string {
	return c.location
}

// Len returns the number of records.
func (c *Container[T]) Len() int {
	return len(c.items)
}

// Insert appends obj, rejecting negative and duplicate keys.
func (c *Container[T]) Insert(obj T) error {
	key := obj.ObjectKey()
	if key < 0 {
		return fmt.Errorf("%w: %s key %d", errs.ErrInvalidKey, c.location, key)
	}
	if _, exists := c.index[key]; exists {
		return fmt.Errorf("%w: %s key %d", errs.ErrDuplicateKey, c.location, key)
	}

	c.index[key] = len(c.items)
	c.items = append(c.items, obj)

	return nil
}

// Get returns the record with key.
func (c *Container[T]) Get(key int32) (T, bool) {
	i, ok := c.index[key]
	if !ok {
		var zero T
		return zero, false
	}

	return c.items[i], true
}

// All returns the records in insertion order. The slice must not be modified.
func (c *Container[T]) All() []T {
	return c.items
}

// At returns the i-th record in insertion order.
func (c *Container[T]) At(i int) T {
	return c.items[i]
}
