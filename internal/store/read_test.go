package store

import (
	"testing"

	"github.com/roach88/lldsync/internal/ir"
)

func TestListPrototypes(t *testing.T) {
	s := createTestStore(t)
	seedHost(t, s)

	stmts := []string{
		"INSERT INTO triggers (triggerid, description, expression, flags) VALUES (10, 'CPU load on {#CPUNAME}', '{1}>5', 2)",
		"INSERT INTO triggers (triggerid, description, expression, flags) VALUES (20, 'CPU load on cpu0', '{2}>5', 4)",
		"INSERT INTO trigger_discovery (triggerdiscoveryid, triggerid, parent_triggerid) VALUES (1, 20, 10)",
		"INSERT INTO triggers (triggerid, description, expression, flags) VALUES (30, 'plain', '{3}>5', 0)",
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	protos, err := s.ListPrototypes(t.Context(), ir.KindTrigger)
	if err != nil {
		t.Fatalf("ListPrototypes() failed: %v", err)
	}
	if len(protos) != 1 {
		t.Fatalf("prototypes = %d, want 1", len(protos))
	}
	if protos[0].ID != 10 || protos[0].Discovered != 1 {
		t.Errorf("prototype = %+v", protos[0])
	}

	discovered, err := s.ListDiscovered(t.Context(), ir.KindTrigger, 10)
	if err != nil {
		t.Fatalf("ListDiscovered() failed: %v", err)
	}
	if len(discovered) != 1 || discovered[0].Name != "CPU load on cpu0" {
		t.Errorf("discovered = %+v", discovered)
	}
}

func TestListPrototypes_EmptyNotNil(t *testing.T) {
	s := createTestStore(t)

	protos, err := s.ListPrototypes(t.Context(), ir.KindGraph)
	if err != nil {
		t.Fatalf("ListPrototypes() failed: %v", err)
	}
	if protos == nil {
		t.Error("ListPrototypes() returned nil, want empty slice")
	}

	if _, err := s.ListPrototypes(t.Context(), ir.Kind("item")); err == nil {
		t.Error("expected error for unknown kind")
	}
}
