package engine

import (
	"context"

	"github.com/roach88/lldsync/internal/ir"
	"github.com/roach88/lldsync/internal/queryir"
	"github.com/roach88/lldsync/internal/store"
)

// changeSet accumulates the statements of one evaluation in execution
// order: inserts, then updates, then deletes.
type changeSet struct {
	inserts []insertBatch
	updates []rowUpdate
	deletes []rowDelete
}

type insertBatch struct {
	table   string
	columns []string
	rows    [][]any
}

type rowUpdate struct {
	table    string
	set      []queryir.Assignment
	idColumn string
	id       uint64
}

type rowDelete struct {
	table    string
	idColumn string
	ids      []uint64
}

func (c *changeSet) insert(table string, columns []string, rows [][]any) {
	if len(rows) == 0 {
		return
	}
	c.inserts = append(c.inserts, insertBatch{table: table, columns: columns, rows: rows})
}

func (c *changeSet) delete(table, idColumn string, ids []uint64) {
	if len(ids) == 0 {
		return
	}
	c.deletes = append(c.deletes, rowDelete{table: table, idColumn: idColumn, ids: ids})
}

func (c *changeSet) apply(ctx context.Context, tx *store.Tx) error {
	for _, b := range c.inserts {
		if err := tx.InsertBatch(ctx, b.table, b.columns, b.rows); err != nil {
			return err
		}
	}
	for _, u := range c.updates {
		if err := tx.Update(ctx, u.table, u.set, u.idColumn, u.id); err != nil {
			return err
		}
	}
	for _, d := range c.deletes {
		if err := tx.Delete(ctx, d.table, d.idColumn, d.ids); err != nil {
			return err
		}
	}
	return nil
}

// persist runs build inside one transaction and commits the statements it
// returns. Any failure rolls everything back.
func (e *Engine) persist(ctx context.Context, ev *evaluation, build func(tx *store.Tx) (*changeSet, error)) error {
	tx, err := e.store.Begin(ctx)
	if err != nil {
		return ev.persistenceError(err)
	}
	defer tx.Rollback()

	cs, err := build(tx)
	if err != nil {
		return ev.persistenceError(err)
	}
	if err := cs.apply(ctx, tx); err != nil {
		return ev.persistenceError(err)
	}
	if err := tx.Commit(); err != nil {
		return ev.persistenceError(err)
	}

	ev.logger.Debug("changes committed",
		"inserts", len(cs.inserts),
		"updates", len(cs.updates),
		"deletes", len(cs.deletes),
	)
	return nil
}

// allocator hands out consecutive ids reserved by AllocateIDs.
type allocator struct {
	next uint64
}

func allocate(ctx context.Context, tx *store.Tx, table, idColumn string, count int) (*allocator, error) {
	if count == 0 {
		return &allocator{}, nil
	}
	first, err := tx.AllocateIDs(ctx, table, idColumn, count)
	if err != nil {
		return nil, err
	}
	return &allocator{next: first}, nil
}

func (a *allocator) take() uint64 {
	id := a.next
	a.next++
	return id
}

// assign appends column=value when the field has a pending change.
func assign[T comparable](set []queryir.Assignment, column string, p ir.Pending[T]) []queryir.Assignment {
	if !p.Changed() {
		return set
	}
	return append(set, queryir.Assignment{Column: column, Value: p.Get()})
}
