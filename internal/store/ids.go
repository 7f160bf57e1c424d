package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/lldsync/internal/queryir"
)

// AllocateIDs reserves count consecutive identifiers for idColumn of table
// and returns the first one.
//
// The next free identifier is kept in the ids table. On first use for a
// table it is seeded from the table's current maximum.
func (t *Tx) AllocateIDs(ctx context.Context, table, idColumn string, count int) (uint64, error) {
	if count <= 0 {
		return 0, fmt.Errorf("allocate %s.%s: invalid count %d", table, idColumn, count)
	}
	if !queryir.ValidIdentifier(table) || !queryir.ValidIdentifier(idColumn) {
		return 0, fmt.Errorf("allocate %s.%s: invalid name", table, idColumn)
	}

	d := t.store.dialect
	var last uint64
	err := t.tx.QueryRowContext(ctx,
		d.Rebind("SELECT nextid FROM ids WHERE table_name=? AND field_name=?"+d.ForUpdate()),
		table, idColumn,
	).Scan(&last)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		var maxID sql.NullInt64
		query := fmt.Sprintf("SELECT MAX(%s) FROM %s", idColumn, table)
		if err := t.tx.QueryRowContext(ctx, query).Scan(&maxID); err != nil {
			return 0, fmt.Errorf("allocate %s.%s: %w", table, idColumn, err)
		}
		last = uint64(maxID.Int64)
		if _, err := t.tx.ExecContext(ctx,
			d.Rebind("INSERT INTO ids (table_name,field_name,nextid) VALUES (?,?,?)"),
			table, idColumn, last,
		); err != nil {
			return 0, fmt.Errorf("allocate %s.%s: %w", table, idColumn, err)
		}
	case err != nil:
		return 0, fmt.Errorf("allocate %s.%s: %w", table, idColumn, err)
	}

	if _, err := t.tx.ExecContext(ctx,
		d.Rebind("UPDATE ids SET nextid=? WHERE table_name=? AND field_name=?"),
		last+uint64(count), table, idColumn,
	); err != nil {
		return 0, fmt.Errorf("allocate %s.%s: %w", table, idColumn, err)
	}

	return last + 1, nil
}
