package engine

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/lldsync/internal/ir"
	"github.com/roach88/lldsync/internal/store"
	"github.com/roach88/lldsync/internal/testutil"
)

type testHarness struct {
	store  *store.Store
	engine *Engine
	rec    *store.Recorder
}

// newHarness opens a SQLite store with the host fixture plus the given
// fixtures and records every committed statement.
func newHarness(t *testing.T, fixtures ...[]string) *testHarness {
	t.Helper()
	rec := &store.Recorder{}
	st := testutil.OpenStore(t, store.WithObserver(rec.Observe))
	return setupHarness(t, st, rec, fixtures...)
}

func setupHarness(t *testing.T, st *store.Store, rec *store.Recorder, fixtures ...[]string) *testHarness {
	t.Helper()
	testutil.Exec(t, st, append([][]string{testutil.HostFixture}, fixtures...)...)
	return &testHarness{
		store: st,
		engine: New(st,
			WithLogger(discardLogger()),
			WithRunIDGenerator(testutil.NewFixedRunIDs("test")),
		),
		rec: rec,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// cpuRow is a row of the CPU discovery rule: one CPU name and the load
// item discovered for it.
func cpuRow(name string, loadItem uint64, extra ...ir.ItemLink) ir.Row {
	links := append([]ir.ItemLink{{PrototypeID: testutil.CPUItemPrototype, ItemID: loadItem}}, extra...)
	return ir.NewRow(map[string]string{"{#CPUNAME}": name}, links...)
}

func (h *testHarness) exec(t *testing.T, stmts ...string) {
	t.Helper()
	testutil.Exec(t, h.store, stmts)
}

// texts returns the first column of every result row.
func (h *testHarness) texts(t *testing.T, query string, args ...any) []string {
	t.Helper()
	rows, err := h.store.Query(t.Context(), query, args...)
	require.NoError(t, err)
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		require.NoError(t, rows.Scan(&s))
		out = append(out, s)
	}
	require.NoError(t, rows.Err())
	return out
}

// ids returns the first column of every result row.
func (h *testHarness) ids(t *testing.T, query string, args ...any) []uint64 {
	t.Helper()
	rows, err := h.store.Query(t.Context(), query, args...)
	require.NoError(t, err)
	defer rows.Close()

	var out []uint64
	for rows.Next() {
		var id uint64
		require.NoError(t, rows.Scan(&id))
		out = append(out, id)
	}
	require.NoError(t, rows.Err())
	return out
}

func (h *testHarness) sql() []string {
	out := make([]string, len(h.rec.Statements))
	for i, e := range h.rec.Statements {
		out[i] = e.SQL
	}
	return out
}
