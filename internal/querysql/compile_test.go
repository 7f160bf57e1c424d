package querysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lldsync/internal/queryir"
)

func TestCompile_Insert(t *testing.T) {
	compiler := NewSQLCompiler(SQLite)

	sql, params, err := compiler.Compile(queryir.Insert{
		Table:   "trigger_discovery",
		Columns: []string{"triggerdiscoveryid", "triggerid", "parent_triggerid"},
		Rows: [][]any{
			{uint64(1), uint64(20), uint64(10)},
			{uint64(2), uint64(21), uint64(10)},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "INSERT INTO trigger_discovery (triggerdiscoveryid,triggerid,parent_triggerid) VALUES (?,?,?),(?,?,?)", sql)
	assert.Equal(t, []any{uint64(1), uint64(20), uint64(10), uint64(2), uint64(21), uint64(10)}, params)
}

func TestCompile_InsertPostgres(t *testing.T) {
	compiler := NewSQLCompiler(Postgres)

	sql, _, err := compiler.Compile(&queryir.Insert{
		Table:   "functions",
		Columns: []string{"functionid", "itemid"},
		Rows:    [][]any{{uint64(1), uint64(2)}, {uint64(3), uint64(4)}},
	})
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO functions (functionid,itemid) VALUES ($1,$2),($3,$4)", sql)
}

func TestCompile_Update(t *testing.T) {
	compiler := NewSQLCompiler(Postgres)

	sql, params, err := compiler.Compile(queryir.Update{
		Table: "triggers",
		Set: []queryir.Assignment{
			{Column: "description", Value: "CPU load on cpu0"},
			{Column: "priority", Value: 4},
		},
		Where: queryir.Equals{Column: "triggerid", Value: uint64(7)},
	})
	require.NoError(t, err)

	assert.Equal(t, "UPDATE triggers SET description=$1,priority=$2 WHERE triggerid=$3", sql)
	assert.Equal(t, []any{"CPU load on cpu0", 4, uint64(7)}, params)
	assert.NotContains(t, sql, "cpu0")
}

func TestCompile_Delete(t *testing.T) {
	compiler := NewSQLCompiler(SQLite)

	sql, params, err := compiler.Compile(queryir.Delete{
		Table: "functions",
		Where: queryir.In{Column: "functionid", Values: queryir.IDs([]uint64{5, 6, 9})},
	})
	require.NoError(t, err)

	assert.Equal(t, "DELETE FROM functions WHERE functionid IN (?,?,?)", sql)
	assert.Len(t, params, 3)
}

func TestCompile_DeleteSingleID(t *testing.T) {
	compiler := NewSQLCompiler(SQLite)

	sql, _, err := compiler.Compile(queryir.Delete{
		Table: "graphs_items",
		Where: queryir.In{Column: "gitemid", Values: []any{uint64(5)}},
	})
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM graphs_items WHERE gitemid=?", sql)
}

func TestCompile_And(t *testing.T) {
	compiler := NewSQLCompiler(Postgres)

	sql, params, err := compiler.Compile(queryir.Update{
		Table: "ids",
		Set:   []queryir.Assignment{{Column: "nextid", Value: uint64(10)}},
		Where: queryir.And{Predicates: []queryir.Predicate{
			queryir.Equals{Column: "table_name", Value: "triggers"},
			queryir.Equals{Column: "field_name", Value: "triggerid"},
		}},
	})
	require.NoError(t, err)

	assert.Equal(t, "UPDATE ids SET nextid=$1 WHERE (table_name=$2 AND field_name=$3)", sql)
	assert.Equal(t, []any{uint64(10), "triggers", "triggerid"}, params)
}

func TestCompile_RejectsInvalid(t *testing.T) {
	compiler := NewSQLCompiler(SQLite)

	_, _, err := compiler.Compile(queryir.Delete{Table: "functions"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no WHERE clause")

	_, _, err = compiler.Compile(nil)
	require.Error(t, err)
}

func TestCompile_PlaceholdersRestartPerStatement(t *testing.T) {
	compiler := NewSQLCompiler(Postgres)
	stmt := queryir.Delete{Table: "functions", Where: queryir.Equals{Column: "functionid", Value: uint64(1)}}

	first, _, err := compiler.Compile(stmt)
	require.NoError(t, err)
	second, _, err := compiler.Compile(stmt)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, "DELETE FROM functions WHERE functionid=$1", second)
}
