package engine

// Matching binds rows to existing entities in two passes.
//
// The first pass follows item links in prototype sub-record order: for
// each item the row resolves to, the first unclaimed entity owning a
// sub-record on that item is claimed. Rows processed earlier win. Rows left over are matched in a second pass
// by their substituted key against the entities still unclaimed, and
// create a new entity only when that fails too. The second pass keeps an
// entity's identity when every link of its row moved to another item.

// linkMatcher describes how to inspect an entity for matching.
type linkMatcher[E any] struct {
	claimed func(E) bool
	owns    func(e E, itemID uint64) bool
	key     func(E) string
}

// byItems walks items in order and returns the first unclaimed entity
// owning a sub-record on the earliest item any entity owns.
func (m linkMatcher[E]) byItems(pool []E, items []uint64) (E, bool) {
	for _, id := range items {
		for _, e := range pool {
			if !m.claimed(e) && m.owns(e, id) {
				return e, true
			}
		}
	}
	var zero E
	return zero, false
}

// byKey returns the first unclaimed entity whose key equals key.
func (m linkMatcher[E]) byKey(pool []E, key string) (E, bool) {
	for _, e := range pool {
		if !m.claimed(e) && m.key(e) == key {
			return e, true
		}
	}
	var zero E
	return zero, false
}
