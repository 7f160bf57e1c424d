package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/lldsync/internal/store"
)

// Identifiers used by the standard fixtures.
const (
	HostID = 1

	// CPUItemPrototype is the item prototype cpu.load[{#CPUNAME}].
	CPUItemPrototype = 1000
	// CPUUtilPrototype is the item prototype cpu.util[{#CPUNAME}].
	CPUUtilPrototype = 1001
	// SystemLoadItem is a plain item on the host.
	SystemLoadItem = 50

	// TriggerPrototype is "CPU load on {#CPUNAME}" with expression {600}>5.
	TriggerPrototype  = 500
	FunctionPrototype = 600

	// GraphPrototype is "CPU {#CPUNAME}" drawing the load prototype and
	// the plain system load item.
	GraphPrototype = 700
)

// HostFixture creates the host, its items and item prototypes.
// Items 100, 101 and 200 were discovered from CPUItemPrototype, items
// 110 and 111 from CPUUtilPrototype.
var HostFixture = []string{
	"INSERT INTO hosts (hostid, host) VALUES (1, 'web01')",
	"INSERT INTO items (itemid, hostid, name, key_, flags) VALUES (50, 1, 'System load', 'system.cpu.load', 0)",
	"INSERT INTO items (itemid, hostid, name, key_, flags) VALUES (1000, 1, 'CPU load on {#CPUNAME}', 'cpu.load[{#CPUNAME}]', 2)",
	"INSERT INTO items (itemid, hostid, name, key_, flags) VALUES (1001, 1, 'CPU util on {#CPUNAME}', 'cpu.util[{#CPUNAME}]', 2)",
	"INSERT INTO items (itemid, hostid, name, key_, flags) VALUES (100, 1, 'CPU load on cpu0', 'cpu.load[cpu0]', 4)",
	"INSERT INTO items (itemid, hostid, name, key_, flags) VALUES (101, 1, 'CPU load on cpu1', 'cpu.load[cpu1]', 4)",
	"INSERT INTO items (itemid, hostid, name, key_, flags) VALUES (200, 1, 'CPU load on cpu0', 'cpu.load[cpu0]', 4)",
	"INSERT INTO items (itemid, hostid, name, key_, flags) VALUES (110, 1, 'CPU util on cpu0', 'cpu.util[cpu0]', 4)",
	"INSERT INTO items (itemid, hostid, name, key_, flags) VALUES (111, 1, 'CPU util on cpu1', 'cpu.util[cpu1]', 4)",
	"INSERT INTO item_discovery (itemdiscoveryid, itemid, parent_itemid) VALUES (1, 100, 1000)",
	"INSERT INTO item_discovery (itemdiscoveryid, itemid, parent_itemid) VALUES (2, 101, 1000)",
	"INSERT INTO item_discovery (itemdiscoveryid, itemid, parent_itemid) VALUES (3, 200, 1000)",
	"INSERT INTO item_discovery (itemdiscoveryid, itemid, parent_itemid) VALUES (4, 110, 1001)",
	"INSERT INTO item_discovery (itemdiscoveryid, itemid, parent_itemid) VALUES (5, 111, 1001)",
}

// TriggerFixture creates the CPU load trigger prototype.
var TriggerFixture = []string{
	"INSERT INTO triggers (triggerid, description, expression, priority, status, comments, url, type, flags) VALUES (500, 'CPU load on {#CPUNAME}', '{600}>5', 3, 0, 'Load of {#CPUNAME} is high', '', 0, 2)",
	"INSERT INTO functions (functionid, itemid, triggerid, function, parameter) VALUES (600, 1000, 500, 'last', '')",
}

// GraphFixture creates the CPU graph prototype.
var GraphFixture = []string{
	"INSERT INTO graphs (graphid, name, width, height, yaxismin, yaxismax, graphtype, ymin_type, ymax_type, flags) VALUES (700, 'CPU {#CPUNAME}', 900, 200, 0, 100, 0, 0, 0, 2)",
	"INSERT INTO graphs_items (gitemid, graphid, itemid, drawtype, sortorder, color, yaxisside, calc_fnc, type) VALUES (800, 700, 1000, 0, 0, 'FF0000', 0, 2, 0)",
	"INSERT INTO graphs_items (gitemid, graphid, itemid, drawtype, sortorder, color, yaxisside, calc_fnc, type) VALUES (801, 700, 50, 1, 1, '00AA00', 0, 2, 0)",
}

// OpenStore opens a store in a temp dir, closed on cleanup.
func OpenStore(t *testing.T, opts ...store.Option) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"), opts...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

// Exec runs fixture statements directly against the database.
func Exec(t *testing.T, st *store.Store, stmts ...[]string) {
	t.Helper()
	for _, group := range stmts {
		for _, stmt := range group {
			if _, err := st.DB().ExecContext(context.Background(), st.Dialect().Rebind(stmt)); err != nil {
				t.Fatalf("fixture %q: %v", stmt, err)
			}
		}
	}
}
