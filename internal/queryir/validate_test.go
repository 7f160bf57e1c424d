package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Insert(t *testing.T) {
	stmt := Insert{
		Table:   "functions",
		Columns: []string{"functionid", "itemid", "triggerid", "function", "parameter"},
		Rows: [][]any{
			{uint64(1), uint64(100), uint64(10), "last", ""},
			{uint64(2), uint64(101), uint64(11), "last", ""},
		},
	}

	result := Validate(stmt)
	assert.True(t, result.IsValid)
	assert.Empty(t, result.Errors)
}

func TestValidate_InsertRowWidthMismatch(t *testing.T) {
	stmt := &Insert{
		Table:   "functions",
		Columns: []string{"functionid", "itemid"},
		Rows:    [][]any{{uint64(1)}},
	}

	result := Validate(stmt)
	assert.False(t, result.IsValid)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "row 0 has 1 values, want 2")
}

func TestValidate_InsertWithoutRows(t *testing.T) {
	result := Validate(Insert{Table: "triggers", Columns: []string{"triggerid"}})
	assert.False(t, result.IsValid)
}

func TestValidate_UpdateRequiresWhere(t *testing.T) {
	result := Validate(Update{
		Table: "triggers",
		Set:   []Assignment{{Column: "priority", Value: 4}},
	})

	assert.False(t, result.IsValid)
	assert.Contains(t, result.Errors[0], "no WHERE clause")
}

func TestValidate_UpdateRequiresColumns(t *testing.T) {
	result := Validate(Update{
		Table: "triggers",
		Where: Equals{Column: "triggerid", Value: uint64(1)},
	})

	assert.False(t, result.IsValid)
	assert.Contains(t, result.Errors[0], "sets no columns")
}

func TestValidate_RejectsUnsafeNames(t *testing.T) {
	result := Validate(Update{
		Table: "triggers; drop table items",
		Set:   []Assignment{{Column: "Priority", Value: 4}},
		Where: Equals{Column: "triggerid", Value: uint64(1)},
	})

	assert.False(t, result.IsValid)
	assert.Len(t, result.Errors, 2)
}

func TestValidate_DeleteWithEmptyIn(t *testing.T) {
	result := Validate(Delete{Table: "functions", Where: In{Column: "functionid"}})

	assert.False(t, result.IsValid)
	assert.Contains(t, result.Errors[0], "no values")
}

func TestValidate_NestedAnd(t *testing.T) {
	result := Validate(&Delete{
		Table: "graphs_items",
		Where: And{Predicates: []Predicate{
			Equals{Column: "graphid", Value: uint64(5)},
			&In{Column: "gitemid", Values: IDs([]uint64{1, 2})},
		}},
	})

	assert.True(t, result.IsValid)
}

func TestValidate_Nil(t *testing.T) {
	result := Validate(nil)
	assert.False(t, result.IsValid)
}

func TestIDs(t *testing.T) {
	assert.Equal(t, []any{uint64(3), uint64(4)}, IDs([]uint64{3, 4}))
}

func TestValidIdentifier(t *testing.T) {
	assert.True(t, ValidIdentifier("graphs_items"))
	assert.True(t, ValidIdentifier("key_"))
	assert.False(t, ValidIdentifier("1table"))
	assert.False(t, ValidIdentifier("items i"))
	assert.False(t, ValidIdentifier(""))
}
