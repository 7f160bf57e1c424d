package ir

// Flags records the per-run state of an entity or sub-record.
type Flags uint8

const (
	// FlagDiscovered marks an entity or sub-record claimed by a row in this run.
	FlagDiscovered Flags = 1 << iota

	// FlagDelete marks a sub-record for deletion.
	FlagDelete
)

// Has reports whether all bits of x are set.
func (f Flags) Has(x Flags) bool {
	return f&x == x
}

// With returns f with x set.
func (f Flags) With(x Flags) Flags {
	return f | x
}

// Without returns f with x cleared.
func (f Flags) Without(x Flags) Flags {
	return f &^ x
}

// Discovery flags stored in the flags column of items, triggers and graphs.
const (
	DiscoveryNormal    = 0
	DiscoveryPrototype = 2
	DiscoveryCreated   = 4
)
