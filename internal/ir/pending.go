package ir

// Pending is a field value together with its change state: either
// unchanged, or changed from an old (persisted) value to a new one.
//
// Pending values are immutable; Set and Revert return the new state.
type Pending[T comparable] struct {
	value   T
	old     T
	changed bool
}

// Unchanged returns a field holding v with no pending change.
func Unchanged[T comparable](v T) Pending[T] {
	return Pending[T]{value: v, old: v}
}

// Get returns the current value.
func (p Pending[T]) Get() T {
	return p.value
}

// Old returns the persisted value. It equals Get for unchanged fields.
func (p Pending[T]) Old() T {
	return p.old
}

// Changed reports whether the current value differs from the persisted one.
func (p Pending[T]) Changed() bool {
	return p.changed
}

// Set returns the field holding v. Setting the persisted value back
// clears the change.
func (p Pending[T]) Set(v T) Pending[T] {
	if v == p.old {
		return Unchanged(v)
	}
	return Pending[T]{value: v, old: p.old, changed: true}
}

// Revert returns the field restored to its persisted value.
func (p Pending[T]) Revert() Pending[T] {
	return Unchanged(p.old)
}
