package ref

import "github.com/arloliu/evpack/errs"

// Cache remembers the last target container seen by Encode or Decode.
//
// Consecutive references into the same container (the common case: all the
// daughters of a particle, all the ancestors of a track) skip the link table
// lookup. A Cache belongs to one container pack or unpack operation; it is
// not safe for concurrent use and must be reset or discarded between containers.
type Cache struct {
	id    int32
	index int
	valid bool
	hits  int
}

// Hits returns the number of lookups answered from the cache.
func (c *Cache) Hits() int {
	return c.hits
}

// Reset invalidates the cached entry and the hit counter.
func (c *Cache) Reset() {
	*c = Cache{}
}

func (c *Cache) remember(id int32, index int) {
	c.id = id
	c.index = index
	c.valid = true
}

// Encode registers target in links if needed and returns the token for (target, key).
// cache may be nil.
func Encode(links *LinkTable, cache *Cache, layout Layout, target int32, key int32) (int64, error) {
	if cache != nil && cache.valid && cache.id == target {
		cache.hits++
		return layout.Pack(cache.index, key)
	}

	// check capacity before registering so a failed encode leaves the table untouched
	index, known := links.Index(target)
	if !known {
		if links.Len() >= layout.MaxLinks() {
			return Null, errs.ErrLinkTableFull
		}
		index = links.Add(target)
	}

	token, err := layout.Pack(index, key)
	if err != nil {
		return Null, err
	}
	if cache != nil {
		cache.remember(target, index)
	}

	return token, nil
}

// Decode splits token and resolves its link index through links.
// It returns errs.ErrNullReference for the Null token and an *errs.ReferenceError
// when the index has no link table entry. cache may be nil.
func Decode(links *LinkTable, cache *Cache, layout Layout, token int64) (int32, int32, error) {
	index, key, err := layout.Split(token)
	if err != nil {
		return 0, 0, err
	}

	if cache != nil && cache.valid && cache.index == index {
		cache.hits++
		return cache.id, key, nil
	}

	id, ok := links.Lookup(index)
	if !ok {
		return 0, 0, &errs.ReferenceError{Token: token, Index: index}
	}
	if cache != nil {
		cache.remember(id, index)
	}

	return id, key, nil
}
