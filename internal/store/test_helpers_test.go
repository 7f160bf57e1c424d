package store

import (
	"context"
	"path/filepath"
	"testing"
)

// createTestStore creates a new temp-dir store for testing.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, opts...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// seedHost inserts a host with one item prototype (1000) and two
// discovered items (100, 101).
func seedHost(t *testing.T, s *Store) {
	t.Helper()
	stmts := []string{
		"INSERT INTO hosts (hostid, host) VALUES (1, 'web01')",
		"INSERT INTO items (itemid, hostid, name, key_, flags) VALUES (1000, 1, 'CPU $1 load', 'cpu.load[{#CPUNAME}]', 2)",
		"INSERT INTO items (itemid, hostid, name, key_, flags) VALUES (100, 1, 'CPU cpu0 load', 'cpu.load[cpu0]', 4)",
		"INSERT INTO items (itemid, hostid, name, key_, flags) VALUES (101, 1, 'CPU cpu1 load', 'cpu.load[cpu1]', 4)",
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(context.Background(), stmt); err != nil {
			t.Fatalf("seed %q: %v", stmt, err)
		}
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
