package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lldsync/internal/testutil"
)

func TestEvaluateAssertions(t *testing.T) {
	st := testutil.OpenStore(t)
	testutil.Exec(t, st, testutil.HostFixture, testutil.TriggerFixture)

	tests := []struct {
		name      string
		assertion Assertion
		wantErr   string
	}{
		{
			name: "final_state match",
			assertion: Assertion{Type: AssertFinalState, Table: "triggers",
				Where:  map[string]any{"triggerid": 500},
				Expect: map[string]any{"description": "CPU load on {#CPUNAME}", "priority": 3, "flags": 2}},
		},
		{
			name: "final_state mismatch",
			assertion: Assertion{Type: AssertFinalState, Table: "triggers",
				Where:  map[string]any{"triggerid": 500},
				Expect: map[string]any{"priority": 4}},
			wantErr: "expected triggers.priority = 4, got 3",
		},
		{
			name: "final_state missing row",
			assertion: Assertion{Type: AssertFinalState, Table: "triggers",
				Where:  map[string]any{"triggerid": 501},
				Expect: map[string]any{"priority": 3}},
			wantErr: "row not found",
		},
		{
			name: "final_state ambiguous",
			assertion: Assertion{Type: AssertFinalState, Table: "items",
				Where:  map[string]any{"flags": 4},
				Expect: map[string]any{"hostid": 1}},
			wantErr: "multiple rows matched",
		},
		{
			name: "final_state unknown column",
			assertion: Assertion{Type: AssertFinalState, Table: "hosts",
				Where:  map[string]any{"hostid": 1},
				Expect: map[string]any{"name": "web01"}},
			wantErr: `field "name" to exist`,
		},
		{
			name:      "row_count match",
			assertion: Assertion{Type: AssertRowCount, Table: "item_discovery", Where: map[string]any{"parent_itemid": 1000}, Count: 3},
		},
		{
			name:      "row_count without where",
			assertion: Assertion{Type: AssertRowCount, Table: "functions", Count: 1},
		},
		{
			name:      "row_count mismatch",
			assertion: Assertion{Type: AssertRowCount, Table: "triggers", Where: map[string]any{"flags": 4}, Count: 2},
			wantErr:   "expected 2 rows in triggers where flags=4, got 0 rows",
		},
		{
			name:      "query error",
			assertion: Assertion{Type: AssertRowCount, Table: "missing", Count: 0},
			wantErr:   "query error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := EvaluateAssertions(t.Context(), st, []Assertion{tt.assertion})
			if tt.wantErr == "" {
				assert.Empty(t, errs)
				return
			}
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0], tt.wantErr)
		})
	}
}

func TestStateValuesEqual(t *testing.T) {
	assert.True(t, stateValuesEqual(5, int64(5)))
	assert.True(t, stateValuesEqual(5, int32(5)))
	assert.True(t, stateValuesEqual("cpu0", []byte("cpu0")))
	assert.True(t, stateValuesEqual(true, int64(1)))
	assert.True(t, stateValuesEqual(2.0, int64(2)))
	assert.True(t, stateValuesEqual(nil, nil))
	assert.False(t, stateValuesEqual(nil, int64(0)))
	assert.False(t, stateValuesEqual("5", int64(5)))
	assert.False(t, stateValuesEqual(false, int64(1)))
}

func TestBuildWhereClause(t *testing.T) {
	sql, args := buildWhereClause(map[string]any{"b": 2, "a": "x"})
	assert.Equal(t, " WHERE a = ? AND b = ?", sql)
	assert.Equal(t, []any{"x", 2}, args)

	sql, args = buildWhereClause(nil)
	assert.Empty(t, sql)
	assert.Nil(t, args)
}
