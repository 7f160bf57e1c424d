package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/lldsync/internal/ir"
	"github.com/roach88/lldsync/internal/querysql"
)

// validateGraphs checks graph names, then their uniqueness within the
// batch and on the prototype's host.
func (e *Engine) validateGraphs(ctx context.Context, ev *evaluation, proto *ir.GraphPrototype, graphs []*ir.Graph) error {
	for _, g := range graphs {
		validateGraphName(ev, g)
	}

	seen := make(map[string]bool)
	for _, g := range graphs {
		if g.Discovered() && !g.IsNew() && !g.Name.Changed() {
			seen[g.Name.Get()] = true
		}
	}

	var candidates []*ir.Graph
	for _, g := range graphs {
		if !g.Discovered() || (!g.IsNew() && !g.Name.Changed()) {
			continue
		}
		if seen[g.Name.Get()] {
			duplicateGraph(ev, g)
			if g.Discovered() {
				seen[g.Name.Get()] = true
			}
			continue
		}
		seen[g.Name.Get()] = true
		candidates = append(candidates, g)
	}

	if len(candidates) == 0 || proto.HostID == 0 {
		return nil
	}

	existing, err := e.hostGraphNames(ctx, proto.HostID, graphs, candidates)
	if err != nil {
		return err
	}
	for _, g := range candidates {
		if existing[g.Name.Get()] {
			duplicateGraph(ev, g)
		}
	}
	return nil
}

func validateGraphName(ev *evaluation, g *ir.Graph) {
	if !g.Discovered() || (!g.IsNew() && !g.Name.Changed()) {
		return
	}
	op := opName(g.IsNew())
	name := g.Name.Get()
	code, msg := checkText(ir.KindGraph, op, name, graphNameMax)
	if code == "" && name == "" {
		code, msg = ErrCodeEmptyName, fmt.Sprintf("Cannot %s graph: name is empty.", op)
	}
	if code == "" {
		return
	}
	ev.problem(Problem{Code: code, Op: op, EntityID: g.ID.Uint64(), Message: msg})
	dropGraph(g)
}

func duplicateGraph(ev *evaluation, g *ir.Graph) {
	op := opName(g.IsNew())
	ev.problem(Problem{
		Code:     ErrCodeDuplicate,
		Op:       op,
		EntityID: g.ID.Uint64(),
		Message: fmt.Sprintf("Cannot %s graph: graph with the same name \"%s\" already exists.",
			op, ir.DisplayValue(g.Name.Get())),
	})
	dropGraph(g)
}

// dropGraph discards a new graph or reverts the name of an existing one.
func dropGraph(g *ir.Graph) {
	if g.IsNew() {
		g.Flags = g.Flags.Without(ir.FlagDiscovered)
		return
	}
	g.Name = g.Name.Revert()
}

// hostGraphNames returns the names of persisted non-prototype graphs on
// host matching a candidate name. Graphs claimed in this batch are
// excluded.
func (e *Engine) hostGraphNames(ctx context.Context, hostID uint64, batch, candidates []*ir.Graph) (map[string]bool, error) {
	names := make(map[string]bool)
	args := []any{hostID, ir.DiscoveryPrototype}
	for _, g := range candidates {
		if n := g.Name.Get(); !names[n] {
			names[n] = true
			args = append(args, n)
		}
	}

	var query strings.Builder
	query.WriteString(`SELECT DISTINCT g.name
		FROM graphs g
		JOIN graphs_items gi ON gi.graphid=g.graphid
		JOIN items i ON i.itemid=gi.itemid
		WHERE i.hostid=? AND g.flags<>? AND g.name IN (`)
	query.WriteString(querysql.InList(len(names)))
	query.WriteString(")")

	var exclude []uint64
	for _, g := range batch {
		if g.Discovered() && !g.IsNew() {
			exclude = append(exclude, g.ID.Uint64())
		}
	}
	if len(exclude) > 0 {
		query.WriteString(" AND g.graphid NOT IN (" + querysql.InList(len(exclude)) + ")")
		args = append(args, idArgs(exclude)...)
	}

	rows, err := e.store.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query host graphs: %w", err)
	}
	defer rows.Close()

	found := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan host graph: %w", err)
		}
		found[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate host graphs: %w", err)
	}
	return found, nil
}
