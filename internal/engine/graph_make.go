package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/lldsync/internal/ir"
	"github.com/roach88/lldsync/internal/macro"
)

func (e *Engine) reconcileGraphs(ctx context.Context, ev *evaluation, rows []ir.Row) error {
	proto, err := e.loadGraphPrototype(ctx, ev.prototypeID)
	if errors.Is(err, sql.ErrNoRows) {
		return ev.notFound()
	}
	if err != nil {
		return ev.loadError("graph prototype", err)
	}

	graphs, err := e.loadGraphs(ctx, proto)
	if err != nil {
		return ev.loadError("graphs", err)
	}

	itemIDs := []uint64{proto.YMinItemID.Uint64(), proto.YMaxItemID.Uint64()}
	for _, gi := range proto.Items {
		itemIDs = append(itemIDs, gi.ItemID)
	}
	for _, g := range graphs {
		for _, gi := range g.Items {
			itemIDs = append(itemIDs, gi.ItemID.Get())
		}
	}
	items, err := e.loadItems(ctx, itemIDs)
	if err != nil {
		return ev.loadError("items", err)
	}

	ev.logger.Debug("graph prototype loaded",
		"items", len(proto.Items),
		"existing", len(graphs),
	)

	graphs = e.makeGraphs(ev, proto, graphs, items, rows)

	if err := e.validateGraphs(ctx, ev, proto, graphs); err != nil {
		return ev.loadError("conflicting graphs", err)
	}

	return e.saveGraphs(ctx, ev, proto, graphs)
}

// graphRow is a row prepared against a graph prototype.
type graphRow struct {
	name       string
	items      []uint64
	yMinItemID ir.ID
	yMaxItemID ir.ID

	code ProblemCode
	err  error
}

func (e *Engine) prepareGraph(proto *ir.GraphPrototype, items itemIndex, row ir.Row) graphRow {
	var r graphRow
	for _, gi := range proto.Items {
		id, err := items.resolve(gi.ItemID, row)
		if err != nil {
			if r.err == nil {
				r.code, r.err = ErrCodeResolution, err
			}
			continue
		}
		r.items = append(r.items, id)
	}
	if r.err != nil {
		return r
	}

	var err error
	if r.yMinItemID, err = resolveAxisItem(items, row, proto.YMinType, proto.YMinItemID); err != nil {
		r.code, r.err = ErrCodeResolution, err
		return r
	}
	if r.yMaxItemID, err = resolveAxisItem(items, row, proto.YMaxType, proto.YMaxItemID); err != nil {
		r.code, r.err = ErrCodeResolution, err
		return r
	}

	if r.name, err = e.subst.Substitute(proto.Name, row.Macros, macro.Any); err != nil {
		r.code, r.err = ErrCodeSubstitution, err
		return r
	}
	r.name = strings.TrimSpace(r.name)
	return r
}

// resolveAxisItem resolves the item of a y axis limit. Only limits of type
// item value reference an item.
func resolveAxisItem(items itemIndex, row ir.Row, limitType int, itemID ir.ID) (ir.ID, error) {
	if limitType != ir.YAxisItemValue || !itemID.Valid() {
		return ir.NoID, nil
	}
	id, err := items.resolve(itemID.Uint64(), row)
	if err != nil {
		return ir.NoID, err
	}
	return ir.NewID(id), nil
}

// makeGraphs binds rows to graphs and returns the graphs extended with the
// new ones, in creation order.
func (e *Engine) makeGraphs(ev *evaluation, proto *ir.GraphPrototype, graphs []*ir.Graph, items itemIndex, rows []ir.Row) []*ir.Graph {
	m := linkMatcher[*ir.Graph]{
		claimed: (*ir.Graph).Discovered,
		owns: func(g *ir.Graph, itemID uint64) bool {
			for _, gi := range g.Items {
				if gi.ItemID.Get() == itemID {
					return true
				}
			}
			return false
		},
		key: func(g *ir.Graph) string {
			return g.Name.Get()
		},
	}

	var unmatched []graphRow
	for _, row := range rows {
		r := e.prepareGraph(proto, items, row)
		g, found := m.byItems(graphs, r.items)
		if r.err != nil {
			op := opName(!found)
			p := Problem{Code: r.code, Op: op, Message: fmt.Sprintf("Cannot %s graph: %s.", op, r.err)}
			if found {
				p.EntityID = g.ID.Uint64()
			}
			ev.problem(p)
			continue
		}
		if !found {
			unmatched = append(unmatched, r)
			continue
		}
		updateGraph(g, proto, r)
	}

	for _, r := range unmatched {
		if g, ok := m.byKey(graphs, r.name); ok {
			updateGraph(g, proto, r)
			continue
		}
		graphs = append(graphs, newGraph(proto, r))
	}
	return graphs
}

func updateGraph(g *ir.Graph, proto *ir.GraphPrototype, r graphRow) {
	g.Name = g.Name.Set(r.name)
	g.YMinItemID = g.YMinItemID.Set(r.yMinItemID)
	g.YMaxItemID = g.YMaxItemID.Set(r.yMaxItemID)
	g.Flags = g.Flags.With(ir.FlagDiscovered)
	g.Items = makeGraphItems(proto.Items, g.Items, r.items)
}

func newGraph(proto *ir.GraphPrototype, r graphRow) *ir.Graph {
	return &ir.Graph{
		Name:           ir.Unchanged(r.name),
		Width:          ir.Unchanged(proto.Width),
		Height:         ir.Unchanged(proto.Height),
		YAxisMin:       ir.Unchanged(proto.YAxisMin),
		YAxisMax:       ir.Unchanged(proto.YAxisMax),
		ShowWorkPeriod: ir.Unchanged(proto.ShowWorkPeriod),
		ShowTriggers:   ir.Unchanged(proto.ShowTriggers),
		GraphType:      ir.Unchanged(proto.GraphType),
		ShowLegend:     ir.Unchanged(proto.ShowLegend),
		Show3D:         ir.Unchanged(proto.Show3D),
		PercentLeft:    ir.Unchanged(proto.PercentLeft),
		PercentRight:   ir.Unchanged(proto.PercentRight),
		YMinType:       ir.Unchanged(proto.YMinType),
		YMaxType:       ir.Unchanged(proto.YMaxType),
		YMinItemID:     ir.Unchanged(r.yMinItemID),
		YMaxItemID:     ir.Unchanged(r.yMaxItemID),
		Flags:          ir.FlagDiscovered,
		Items:          makeGraphItems(proto.Items, nil, r.items),
	}
}

// makeGraphItems reconciles graph items with the prototype's positionally,
// both ordered by id. Missing items are created, surplus ones are marked
// for deletion.
func makeGraphItems(protos []ir.GraphItemPrototype, items []*ir.GraphItem, resolved []uint64) []*ir.GraphItem {
	for i, p := range protos {
		if i >= len(items) {
			items = append(items, &ir.GraphItem{
				ItemID:    ir.Unchanged(resolved[i]),
				DrawType:  ir.Unchanged(p.DrawType),
				SortOrder: ir.Unchanged(p.SortOrder),
				Color:     ir.Unchanged(p.Color),
				YAxisSide: ir.Unchanged(p.YAxisSide),
				CalcFnc:   ir.Unchanged(p.CalcFnc),
				Type:      ir.Unchanged(p.Type),
				Flags:     ir.FlagDiscovered,
			})
			continue
		}
		gi := items[i]
		gi.ItemID = gi.ItemID.Set(resolved[i])
		gi.DrawType = gi.DrawType.Set(p.DrawType)
		gi.SortOrder = gi.SortOrder.Set(p.SortOrder)
		gi.Color = gi.Color.Set(p.Color)
		gi.YAxisSide = gi.YAxisSide.Set(p.YAxisSide)
		gi.CalcFnc = gi.CalcFnc.Set(p.CalcFnc)
		gi.Type = gi.Type.Set(p.Type)
		gi.Flags = gi.Flags.With(ir.FlagDiscovered)
	}

	for _, gi := range items[len(protos):] {
		if !gi.Flags.Has(ir.FlagDiscovered) {
			gi.Flags = gi.Flags.With(ir.FlagDelete)
		}
	}
	return items
}
