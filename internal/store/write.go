package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/lldsync/internal/queryir"
	"github.com/roach88/lldsync/internal/querysql"
)

// Tx is a store transaction. Data-changing statements go through Exec
// (or the InsertBatch, Update and Delete helpers) so that observers see
// them after Commit.
//
// A Tx must be finished with Commit or Rollback. Rollback after Commit is
// a no-op, so the usual pattern is:
//
//	tx, err := st.Begin(ctx)
//	if err != nil {
//		return err
//	}
//	defer tx.Rollback()
//	...
//	return tx.Commit()
type Tx struct {
	tx       *sql.Tx
	store    *Store
	compiler *querysql.SQLCompiler
	executed []Executed
	done     bool
}

// Begin starts a transaction.
func (s *Store) Begin(ctx context.Context) (*Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &Tx{
		tx:       tx,
		store:    s,
		compiler: querysql.NewSQLCompiler(s.dialect),
	}, nil
}

// Exec compiles and executes a statement and returns the affected rows.
func (t *Tx) Exec(ctx context.Context, stmt queryir.Statement) (int64, error) {
	query, args, err := t.compiler.Compile(stmt)
	if err != nil {
		return 0, err
	}

	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("exec %s: %w", stmt.Target(), err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		affected = -1
	}

	t.executed = append(t.executed, Executed{
		Statement:    stmt,
		SQL:          query,
		Args:         args,
		RowsAffected: affected,
	})
	return affected, nil
}

// InsertBatch inserts rows with multi-row INSERT statements of at most
// the store batch size.
func (t *Tx) InsertBatch(ctx context.Context, table string, columns []string, rows [][]any) error {
	for start := 0; start < len(rows); start += t.store.batchSize {
		end := min(start+t.store.batchSize, len(rows))
		stmt := queryir.Insert{Table: table, Columns: columns, Rows: rows[start:end]}
		if _, err := t.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("insert %s: %w", table, err)
		}
	}
	return nil
}

// Update sets the given columns of one row identified by idColumn.
func (t *Tx) Update(ctx context.Context, table string, set []queryir.Assignment, idColumn string, id uint64) error {
	stmt := queryir.Update{
		Table: table,
		Set:   set,
		Where: queryir.Equals{Column: idColumn, Value: id},
	}
	if _, err := t.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("update %s: %w", table, err)
	}
	return nil
}

// Delete removes the rows whose idColumn is one of ids.
func (t *Tx) Delete(ctx context.Context, table, idColumn string, ids []uint64) error {
	for start := 0; start < len(ids); start += t.store.batchSize {
		end := min(start+t.store.batchSize, len(ids))
		stmt := queryir.Delete{
			Table: table,
			Where: queryir.In{Column: idColumn, Values: queryir.IDs(ids[start:end])},
		}
		if _, err := t.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("delete %s: %w", table, err)
		}
	}
	return nil
}

// Query runs a hand-written query inside the transaction.
func (t *Tx) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, t.store.dialect.Rebind(query), args...)
}

// Commit commits the transaction and notifies observers.
func (t *Tx) Commit() error {
	if t.done {
		return fmt.Errorf("commit: transaction already finished")
	}
	t.done = true
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	t.store.mu.Lock()
	observers := append([]Observer(nil), t.store.observers...)
	t.store.mu.Unlock()

	for _, e := range t.executed {
		for _, o := range observers {
			o(e)
		}
	}
	return nil
}

// Rollback aborts the transaction. It is a no-op once the transaction is
// finished.
func (t *Tx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.executed = nil
	if err := t.tx.Rollback(); err != nil {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}
