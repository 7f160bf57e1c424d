package testutil

import (
	"fmt"
	"sync"
)

// FixedRunIDs returns run ids "<prefix>-1", "<prefix>-2", ... in order.
//
// This enables deterministic test execution and golden snapshot comparison:
// the same scenario produces byte-identical reports.
//
// Implements engine.RunIDGenerator.
//
// Thread-safety: FixedRunIDs is safe for concurrent use via internal mutex.
type FixedRunIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewFixedRunIDs creates a generator. An empty prefix means "run".
func NewFixedRunIDs(prefix string) *FixedRunIDs {
	if prefix == "" {
		prefix = "run"
	}
	return &FixedRunIDs{prefix: prefix}
}

// Generate returns the next run id.
func (g *FixedRunIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
