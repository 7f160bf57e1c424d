package engine

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/roach88/lldsync/internal/ir"
	"github.com/roach88/lldsync/internal/querysql"
)

// itemIndex holds the items referenced by a prototype and its entities,
// sorted by id.
type itemIndex struct {
	items []ir.Item
}

func newItemIndex(items []ir.Item) itemIndex {
	sorted := slices.Clone(items)
	slices.SortFunc(sorted, func(a, b ir.Item) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return itemIndex{items: sorted}
}

func (x itemIndex) lookup(id uint64) (ir.Item, bool) {
	i, ok := slices.BinarySearchFunc(x.items, id, func(it ir.Item, id uint64) int {
		return cmp.Compare(it.ID, id)
	})
	if !ok {
		return ir.Item{}, false
	}
	return x.items[i], true
}

// resolve maps an item referenced by a prototype to the item used by the
// entity materialized for row. Plain items map to themselves; item
// prototypes map through the row's links.
func (x itemIndex) resolve(itemID uint64, row ir.Row) (uint64, error) {
	item, ok := x.lookup(itemID)
	if !ok {
		return 0, fmt.Errorf("cannot find item [%d]", itemID)
	}
	if !item.IsPrototype() {
		return itemID, nil
	}
	resolved, ok := row.Resolve(itemID)
	if !ok {
		return 0, fmt.Errorf("item prototype [%d] is not discovered", itemID)
	}
	return resolved, nil
}

// loadItems reads the flags of the given items.
func (e *Engine) loadItems(ctx context.Context, ids []uint64) (itemIndex, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return itemIndex{}, nil
	}

	query := "SELECT itemid, flags FROM items WHERE itemid IN (" + querysql.InList(len(ids)) + ")"
	rows, err := e.store.Query(ctx, query, idArgs(ids)...)
	if err != nil {
		return itemIndex{}, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	items := make([]ir.Item, 0, len(ids))
	for rows.Next() {
		var id uint64
		var flags int
		if err := rows.Scan(&id, &flags); err != nil {
			return itemIndex{}, fmt.Errorf("scan item: %w", err)
		}
		item := ir.Item{ID: id}
		if flags == ir.DiscoveryPrototype {
			item.Flags = ir.ItemPrototype
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return itemIndex{}, fmt.Errorf("iterate items: %w", err)
	}
	return newItemIndex(items), nil
}

// uniqueIDs returns the sorted distinct non-zero ids.
func uniqueIDs(ids []uint64) []uint64 {
	out := slices.Clone(ids)
	slices.Sort(out)
	out = slices.Compact(out)
	if len(out) > 0 && out[0] == 0 {
		out = out[1:]
	}
	return out
}

func idArgs(ids []uint64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
