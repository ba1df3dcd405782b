package packed

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/arloliu/evpack/errs"
	"github.com/arloliu/evpack/event"
	"github.com/arloliu/evpack/ref"
	"github.com/arloliu/evpack/registry"
)

// Context carries the state of one pack or unpack pass over an event.
//
// The link table, hint cache and token layout belong to the container being
// processed and are replaced at the start of every container. Recoverable
// reference errors accumulate for the whole event.
//
// Context is NOT safe for concurrent use; create one per event or per worker.
type Context struct {
	registry registry.Registry
	logger   *slog.Logger

	location string
	links    *ref.LinkTable
	cache    ref.Cache
	layout   ref.Layout

	cacheHits int
	refErrs   []error
}

// NewContext creates a context resolving locations through reg.
// A nil logger discards diagnostics.
func NewContext(reg registry.Registry, logger *slog.Logger) *Context {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Context{registry: reg, logger: logger}
}

// Registry returns the location registry.
func (c *Context) Registry() registry.Registry {
	return c.registry
}

// ReferenceErrors returns the dangling references met so far, as *errs.ReferenceError values.
func (c *Context) ReferenceErrors() []error {
	return c.refErrs
}

// TruncateReferenceErrors forgets the reference errors recorded after the first n,
// for a container whose unpacked records are discarded.
func (c *Context) TruncateReferenceErrors(n int) {
	if n >= 0 && n < len(c.refErrs) {
		c.refErrs = c.refErrs[:n]
	}
}

// CacheHits returns the number of references resolved through the hint cache.
func (c *Context) CacheHits() int {
	return c.cacheHits + c.cache.Hits()
}

// Reset prepares the context for another event.
func (c *Context) Reset() {
	c.location = ""
	c.links = nil
	c.cache.Reset()
	c.layout = 0
	c.cacheHits = 0
	c.refErrs = nil
}

func (c *Context) begin(location string, links *ref.LinkTable, layout ref.Layout) {
	c.cacheHits += c.cache.Hits()
	c.cache.Reset()
	c.location = location
	c.links = links
	c.layout = layout
}

// encodeRef returns the token of r, ref.Null for the null reference.
func (c *Context) encodeRef(field string, r event.Ref) (int64, error) {
	if r.IsNull() {
		return ref.Null, nil
	}

	id, err := c.registry.ID(r.Location)
	if err != nil {
		return ref.Null, fmt.Errorf("%s.%s: %w", c.location, field, err)
	}

	token, err := ref.Encode(c.links, &c.cache, c.layout, id, r.Key)
	if err != nil {
		return ref.Null, fmt.Errorf("%s.%s -> %s/%d: %w", c.location, field, r.Location, r.Key, err)
	}

	return token, nil
}

// decodeRef resolves token. A dangling token is recorded, logged and
// resolved to the null reference; ok reports whether the token was usable.
func (c *Context) decodeRef(field string, token int64) (event.Ref, bool) {
	if token == ref.Null {
		return event.Ref{}, true
	}

	id, key, err := ref.Decode(c.links, &c.cache, c.layout, token)
	if err != nil {
		var rerr *errs.ReferenceError
		if !errors.As(err, &rerr) {
			rerr = &errs.ReferenceError{Token: token, Index: -1}
		}
		c.dangling(field, rerr)

		return event.Ref{}, false
	}

	location, err := c.registry.Location(id)
	if err != nil {
		index, _ := c.links.Index(id)
		c.dangling(field, &errs.ReferenceError{Token: token, Index: index})

		return event.Ref{}, false
	}

	return event.NewRef(location, key), true
}

func (c *Context) dangling(field string, rerr *errs.ReferenceError) {
	rerr.Location = c.location
	rerr.Field = field
	c.refErrs = append(c.refErrs, rerr)

	c.logger.Warn("dangling reference skipped",
		slog.String("location", c.location),
		slog.String("field", field),
		slog.Int64("token", rerr.Token),
		slog.Int("index", rerr.Index),
	)
}

// decodeRefs resolves a token range, dropping dangling entries.
func (c *Context) decodeRefs(field string, tokens []int64) []event.Ref {
	if len(tokens) == 0 {
		return nil
	}

	refs := make([]event.Ref, 0, len(tokens))
	for _, tok := range tokens {
		if r, ok := c.decodeRef(field, tok); ok {
			refs = append(refs, r)
		}
	}

	return refs
}

// encodeRefs appends the tokens of refs to side and returns the grown side array.
func (c *Context) encodeRefs(field string, side []int64, refs []event.Ref) ([]int64, error) {
	for _, r := range refs {
		tok, err := c.encodeRef(field, r)
		if err != nil {
			return side, err
		}
		side = append(side, tok)
	}

	return side, nil
}
