package ref

// LinkTable is the ordered list of target container ids referenced by one container.
// Indices are assigned in first-reference order.
type LinkTable struct {
	ids []int32
	pos map[int32]int
}

// NewLinkTable creates an empty link table.
func NewLinkTable() *LinkTable {
	return &LinkTable{pos: make(map[int32]int)}
}

// NewLinkTableFrom rebuilds a link table from persisted ids, preserving their order.
func NewLinkTableFrom(ids []int32) *LinkTable {
	t := &LinkTable{
		ids: make([]int32, 0, len(ids)),
		pos: make(map[int32]int, len(ids)),
	}
	for _, id := range ids {
		t.ids = append(t.ids, id)
		if _, ok := t.pos[id]; !ok {
			t.pos[id] = len(t.ids) - 1
		}
	}

	return t
}

// Add registers id if it is new and returns its index.
func (t *LinkTable) Add(id int32) int {
	if i, ok := t.pos[id]; ok {
		return i
	}

	t.ids = append(t.ids, id)
	t.pos[id] = len(t.ids) - 1

	return len(t.ids) - 1
}

// Index returns the index of id without registering it.
func (t *LinkTable) Index(id int32) (int, bool) {
	i, ok := t.pos[id]
	return i, ok
}

// Lookup returns the id stored at index.
func (t *LinkTable) Lookup(index int) (int32, bool) {
	if index < 0 || index >= len(t.ids) {
		return 0, false
	}

	return t.ids[index], true
}

// IDs returns the registered ids in index order. The slice must not be modified.
func (t *LinkTable) IDs() []int32 {
	return t.ids
}

// Len returns the number of registered ids.
func (t *LinkTable) Len() int {
	return len(t.ids)
}

// Reset clears the table while keeping its allocations.
func (t *LinkTable) Reset() {
	t.ids = t.ids[:0]
	clear(t.pos)
}
