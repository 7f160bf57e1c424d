package store

import "github.com/roach88/lldsync/internal/queryir"

// Executed describes one committed data-changing statement.
type Executed struct {
	Statement    queryir.Statement
	SQL          string
	Args         []any
	RowsAffected int64
}

// Observer is notified of every statement of a transaction once the
// transaction commits, in execution order. Rolled back statements are
// never reported. Id allocator bookkeeping is not reported either.
type Observer func(Executed)

// Recorder is an Observer that keeps every executed statement.
type Recorder struct {
	Statements []Executed
}

// Observe implements Observer.
func (r *Recorder) Observe(e Executed) {
	r.Statements = append(r.Statements, e)
}

// Reset forgets recorded statements.
func (r *Recorder) Reset() {
	r.Statements = nil
}

// Count returns the number of recorded statements of the given type
// (queryir.Insert, queryir.Update or queryir.Delete) on table. An empty
// table matches every table.
func (r *Recorder) Count(kind queryir.Statement, table string) int {
	n := 0
	for _, e := range r.Statements {
		if table != "" && e.Statement.Target() != table {
			continue
		}
		if sameKind(e.Statement, kind) {
			n++
		}
	}
	return n
}

func sameKind(a, b queryir.Statement) bool {
	switch a.(type) {
	case queryir.Insert, *queryir.Insert:
		switch b.(type) {
		case queryir.Insert, *queryir.Insert:
			return true
		}
	case queryir.Update, *queryir.Update:
		switch b.(type) {
		case queryir.Update, *queryir.Update:
			return true
		}
	case queryir.Delete, *queryir.Delete:
		switch b.(type) {
		case queryir.Delete, *queryir.Delete:
			return true
		}
	}
	return false
}
