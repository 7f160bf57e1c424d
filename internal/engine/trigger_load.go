package engine

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/lldsync/internal/expr"
	"github.com/roach88/lldsync/internal/ir"
	"github.com/roach88/lldsync/internal/querysql"
)

// loadTriggerPrototype reads a trigger prototype with its functions and tags. The
// expression is simplified and functions are ordered by deferred index.
// Returns sql.ErrNoRows if the prototype does not exist.
func (e *Engine) loadTriggerPrototype(ctx context.Context, id uint64) (*ir.TriggerPrototype, error) {
	proto := &ir.TriggerPrototype{ID: id}
	err := e.store.QueryRow(ctx, `
		SELECT description, expression, comments, priority, status, type, url
		FROM triggers
		WHERE triggerid=? AND flags=?`,
		id, ir.DiscoveryPrototype,
	).Scan(&proto.Description, &proto.Expression, &proto.Comments,
		&proto.Priority, &proto.Status, &proto.Type, &proto.URL)
	if err != nil {
		return nil, err
	}

	functions, err := e.loadFunctionRows(ctx, []uint64{id})
	if err != nil {
		return nil, err
	}

	simplified, indices := expr.Simplify(proto.Expression)
	proto.Expression = simplified
	for _, f := range functions[id] {
		proto.Functions = append(proto.Functions, ir.FunctionPrototype{
			ID:        f.id,
			Index:     indices[f.id],
			ItemID:    f.itemID,
			Function:  f.function,
			Parameter: f.parameter,
		})
	}
	slices.SortFunc(proto.Functions, func(a, b ir.FunctionPrototype) int {
		return compareIndex(a.Index, a.ID, b.Index, b.ID)
	})

	tags, err := e.loadTagRows(ctx, []uint64{id})
	if err != nil {
		return nil, err
	}
	for _, t := range tags[id] {
		proto.Tags = append(proto.Tags, ir.TagPrototype{Tag: t.tag, Value: t.value})
	}

	err = e.store.QueryRow(ctx, `
		SELECT i.hostid FROM items i
		JOIN functions f ON f.itemid=i.itemid
		WHERE f.triggerid=?
		ORDER BY i.hostid
		LIMIT 1`, id,
	).Scan(&proto.HostID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("query trigger prototype host: %w", err)
	}

	return proto, nil
}

// loadTriggers reads the triggers discovered from proto, ordered by id.
// Scalar fields differing from the prototype come back with a pending
// change; templated fields are left for the rows.
func (e *Engine) loadTriggers(ctx context.Context, proto *ir.TriggerPrototype) ([]*ir.Trigger, error) {
	rows, err := e.store.Query(ctx, `
		SELECT t.triggerid, t.description, t.expression, t.comments, t.priority, t.status, t.type, t.url
		FROM triggers t
		JOIN trigger_discovery td ON td.triggerid=t.triggerid
		WHERE td.parent_triggerid=?
		ORDER BY t.triggerid`, proto.ID)
	if err != nil {
		return nil, fmt.Errorf("query triggers: %w", err)
	}
	defer rows.Close()

	var triggers []*ir.Trigger
	var ids []uint64
	for rows.Next() {
		var (
			id                                uint64
			description, expression, comments string
			url                               string
			priority, status, triggerType     int
		)
		if err := rows.Scan(&id, &description, &expression, &comments,
			&priority, &status, &triggerType, &url); err != nil {
			return nil, fmt.Errorf("scan trigger: %w", err)
		}
		triggers = append(triggers, &ir.Trigger{
			ID:          ir.NewID(id),
			Description: ir.Unchanged(description),
			Expression:  ir.Unchanged(expression),
			Comments:    ir.Unchanged(comments),
			Priority:    ir.Unchanged(priority).Set(proto.Priority),
			Type:        ir.Unchanged(triggerType).Set(proto.Type),
			URL:         ir.Unchanged(url).Set(proto.URL),
			Status:      status,
		})
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate triggers: %w", err)
	}
	if len(triggers) == 0 {
		return nil, nil
	}

	functions, err := e.loadFunctionRows(ctx, ids)
	if err != nil {
		return nil, err
	}
	tags, err := e.loadTagRows(ctx, ids)
	if err != nil {
		return nil, err
	}

	for _, t := range triggers {
		for _, tag := range tags[t.ID.Uint64()] {
			t.Tags = append(t.Tags, &ir.TriggerTag{
				ID:    ir.NewID(tag.id),
				Tag:   ir.Unchanged(tag.tag),
				Value: ir.Unchanged(tag.value),
			})
		}
		simplified, indices := expr.Simplify(t.Expression.Get())
		t.Expression = ir.Unchanged(simplified)
		for _, f := range functions[t.ID.Uint64()] {
			t.Functions = append(t.Functions, &ir.Function{
				ID:        ir.NewID(f.id),
				Index:     ir.Unchanged(indices[f.id]),
				ItemID:    ir.Unchanged(f.itemID),
				Function:  ir.Unchanged(f.function),
				Parameter: ir.Unchanged(f.parameter),
			})
		}
		sortFunctions(t.Functions)
	}
	return triggers, nil
}

type functionRow struct {
	id        uint64
	itemID    uint64
	function  string
	parameter string
}

// loadFunctionRows reads the functions of the given triggers grouped by
// trigger id, each group ordered by function id.
func (e *Engine) loadFunctionRows(ctx context.Context, triggerIDs []uint64) (map[uint64][]functionRow, error) {
	query := "SELECT functionid, triggerid, itemid, function, parameter FROM functions" +
		" WHERE triggerid IN (" + querysql.InList(len(triggerIDs)) + ")" +
		" ORDER BY functionid"
	rows, err := e.store.Query(ctx, query, idArgs(triggerIDs)...)
	if err != nil {
		return nil, fmt.Errorf("query functions: %w", err)
	}
	defer rows.Close()

	out := make(map[uint64][]functionRow)
	for rows.Next() {
		var f functionRow
		var triggerID uint64
		if err := rows.Scan(&f.id, &triggerID, &f.itemID, &f.function, &f.parameter); err != nil {
			return nil, fmt.Errorf("scan function: %w", err)
		}
		out[triggerID] = append(out[triggerID], f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate functions: %w", err)
	}
	return out, nil
}

type tagRow struct {
	id    uint64
	tag   string
	value string
}

// loadTagRows reads the tags of the given triggers grouped by trigger id,
// each group ordered by tag id.
func (e *Engine) loadTagRows(ctx context.Context, triggerIDs []uint64) (map[uint64][]tagRow, error) {
	query := "SELECT triggertagid, triggerid, tag, value FROM trigger_tag" +
		" WHERE triggerid IN (" + querysql.InList(len(triggerIDs)) + ")" +
		" ORDER BY triggertagid"
	rows, err := e.store.Query(ctx, query, idArgs(triggerIDs)...)
	if err != nil {
		return nil, fmt.Errorf("query trigger tags: %w", err)
	}
	defer rows.Close()

	out := make(map[uint64][]tagRow)
	for rows.Next() {
		var t tagRow
		var triggerID uint64
		if err := rows.Scan(&t.id, &triggerID, &t.tag, &t.value); err != nil {
			return nil, fmt.Errorf("scan trigger tag: %w", err)
		}
		out[triggerID] = append(out[triggerID], t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trigger tags: %w", err)
	}
	return out, nil
}

// compareIndex orders functions by deferred index. Functions the
// expression does not reference (index 0) go last; ties break by id.
func compareIndex(ai, aid, bi, bid uint64) int {
	switch {
	case ai == bi:
		return cmp.Compare(aid, bid)
	case ai == 0:
		return 1
	case bi == 0:
		return -1
	default:
		return cmp.Compare(ai, bi)
	}
}

func sortFunctions(functions []*ir.Function) {
	slices.SortFunc(functions, func(a, b *ir.Function) int {
		return compareIndex(a.Index.Get(), a.ID.Uint64(), b.Index.Get(), b.ID.Uint64())
	})
}
