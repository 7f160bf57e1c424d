package ir

import (
	"database/sql/driver"
	"fmt"
	"strconv"
)

// ID is a database identifier that may not be assigned yet.
//
// New entities and sub-records carry an unset ID until the persister
// allocates one. The zero value is unset.
type ID struct {
	value uint64
	valid bool
}

// NoID is the unset identifier.
var NoID ID

// NewID returns an assigned identifier.
func NewID(v uint64) ID {
	return ID{value: v, valid: true}
}

// Get returns the identifier and whether it is assigned.
func (id ID) Get() (uint64, bool) {
	return id.value, id.valid
}

// Valid reports whether the identifier is assigned.
func (id ID) Valid() bool {
	return id.valid
}

// Uint64 returns the identifier value, 0 when unset.
func (id ID) Uint64() uint64 {
	if !id.valid {
		return 0
	}
	return id.value
}

// Compare orders unset identifiers after assigned ones.
func (id ID) Compare(other ID) int {
	switch {
	case id.valid && !other.valid:
		return -1
	case !id.valid && other.valid:
		return 1
	case id.value < other.value:
		return -1
	case id.value > other.value:
		return 1
	}
	return 0
}

func (id ID) String() string {
	if !id.valid {
		return "-"
	}
	return strconv.FormatUint(id.value, 10)
}

// Scan implements sql.Scanner. NULL scans to NoID.
func (id *ID) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*id = NoID
	case int64:
		if v < 0 {
			return fmt.Errorf("scan id: negative value %d", v)
		}
		*id = NewID(uint64(v))
	case []byte:
		return id.scanString(string(v))
	case string:
		return id.scanString(v)
	default:
		return fmt.Errorf("scan id: unsupported type %T", src)
	}
	return nil
}

func (id *ID) scanString(s string) error {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("scan id: %w", err)
	}
	*id = NewID(v)
	return nil
}

// Value implements driver.Valuer. Unset identifiers are written as NULL.
func (id ID) Value() (driver.Value, error) {
	if !id.valid {
		return nil, nil
	}
	return int64(id.value), nil
}
