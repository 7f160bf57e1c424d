package engine

import (
	"context"
	"slices"

	"github.com/roach88/lldsync/internal/ir"
	"github.com/roach88/lldsync/internal/queryir"
	"github.com/roach88/lldsync/internal/store"
)

var (
	graphColumns = []string{
		"graphid", "name", "width", "height", "yaxismin", "yaxismax",
		"show_work_period", "show_triggers", "graphtype", "show_legend", "show_3d",
		"percent_left", "percent_right", "ymin_type", "ymax_type",
		"ymin_itemid", "ymax_itemid", "flags",
	}
	graphDiscoveryColumns = []string{"graphdiscoveryid", "graphid", "parent_graphid"}
	graphItemColumns      = []string{
		"gitemid", "graphid", "itemid", "drawtype", "sortorder",
		"color", "yaxisside", "calc_fnc", "type",
	}
)

type graphCounts struct {
	created, updated       int
	subCreated, subUpdated int
	deleted                []uint64
}

func countGraphs(graphs []*ir.Graph) graphCounts {
	var c graphCounts
	for _, g := range graphs {
		if !g.Discovered() {
			continue
		}
		switch {
		case g.IsNew():
			c.created++
		case g.Changed():
			c.updated++
		}
		for _, gi := range g.Items {
			switch {
			case gi.Flags.Has(ir.FlagDelete):
				c.deleted = append(c.deleted, gi.ID.Uint64())
			case !gi.Flags.Has(ir.FlagDiscovered):
			case !gi.ID.Valid():
				c.subCreated++
			case gi.Changed():
				c.subUpdated++
			}
		}
	}
	slices.Sort(c.deleted)
	return c
}

func (c graphCounts) empty() bool {
	return c.created+c.updated+c.subCreated+c.subUpdated+len(c.deleted) == 0
}

// saveGraphs writes the batch in one transaction. Nothing is written when
// no graph or graph item has a pending change.
func (e *Engine) saveGraphs(ctx context.Context, ev *evaluation, proto *ir.GraphPrototype, graphs []*ir.Graph) error {
	counts := countGraphs(graphs)
	if counts.empty() {
		ev.logger.Debug("graphs up to date")
		return nil
	}

	err := e.persist(ctx, ev, func(tx *store.Tx) (*changeSet, error) {
		graphIDs, err := allocate(ctx, tx, "graphs", "graphid", counts.created)
		if err != nil {
			return nil, err
		}
		discoveryIDs, err := allocate(ctx, tx, "graph_discovery", "graphdiscoveryid", counts.created)
		if err != nil {
			return nil, err
		}
		itemIDs, err := allocate(ctx, tx, "graphs_items", "gitemid", counts.subCreated)
		if err != nil {
			return nil, err
		}
		return buildGraphChanges(proto, graphs, counts, graphIDs, discoveryIDs, itemIDs), nil
	})
	if err != nil {
		return err
	}

	ev.report.Created = counts.created
	ev.report.Updated = counts.updated
	ev.report.SubCreated = counts.subCreated
	ev.report.SubUpdated = counts.subUpdated
	ev.report.SubDeleted = len(counts.deleted)
	return nil
}

func buildGraphChanges(proto *ir.GraphPrototype, graphs []*ir.Graph, counts graphCounts,
	graphIDs, discoveryIDs, itemIDs *allocator) *changeSet {
	var (
		graphRows, discoveryRows, itemRows [][]any
		graphUpdates, itemUpdates          []rowUpdate
	)

	for _, g := range graphs {
		if !g.Discovered() {
			continue
		}
		if g.IsNew() {
			g.ID = ir.NewID(graphIDs.take())
			graphRows = append(graphRows, []any{
				g.ID.Uint64(), g.Name.Get(), g.Width.Get(), g.Height.Get(),
				g.YAxisMin.Get(), g.YAxisMax.Get(), g.ShowWorkPeriod.Get(), g.ShowTriggers.Get(),
				g.GraphType.Get(), g.ShowLegend.Get(), g.Show3D.Get(),
				g.PercentLeft.Get(), g.PercentRight.Get(), g.YMinType.Get(), g.YMaxType.Get(),
				g.YMinItemID.Get(), g.YMaxItemID.Get(), ir.DiscoveryCreated,
			})
			discoveryRows = append(discoveryRows, []any{discoveryIDs.take(), g.ID.Uint64(), proto.ID})
		} else {
			var set []queryir.Assignment
			set = assign(set, "name", g.Name)
			set = assign(set, "width", g.Width)
			set = assign(set, "height", g.Height)
			set = assign(set, "yaxismin", g.YAxisMin)
			set = assign(set, "yaxismax", g.YAxisMax)
			set = assign(set, "show_work_period", g.ShowWorkPeriod)
			set = assign(set, "show_triggers", g.ShowTriggers)
			set = assign(set, "graphtype", g.GraphType)
			set = assign(set, "show_legend", g.ShowLegend)
			set = assign(set, "show_3d", g.Show3D)
			set = assign(set, "percent_left", g.PercentLeft)
			set = assign(set, "percent_right", g.PercentRight)
			set = assign(set, "ymin_type", g.YMinType)
			set = assign(set, "ymax_type", g.YMaxType)
			set = assign(set, "ymin_itemid", g.YMinItemID)
			set = assign(set, "ymax_itemid", g.YMaxItemID)
			if len(set) > 0 {
				graphUpdates = append(graphUpdates, rowUpdate{
					table: "graphs", set: set, idColumn: "graphid", id: g.ID.Uint64(),
				})
			}
		}

		for _, gi := range g.Items {
			if gi.Flags.Has(ir.FlagDelete) || !gi.Flags.Has(ir.FlagDiscovered) {
				continue
			}
			if !gi.ID.Valid() {
				gi.ID = ir.NewID(itemIDs.take())
				itemRows = append(itemRows, []any{
					gi.ID.Uint64(), g.ID.Uint64(), gi.ItemID.Get(), gi.DrawType.Get(), gi.SortOrder.Get(),
					gi.Color.Get(), gi.YAxisSide.Get(), gi.CalcFnc.Get(), gi.Type.Get(),
				})
				continue
			}
			var set []queryir.Assignment
			set = assign(set, "itemid", gi.ItemID)
			set = assign(set, "drawtype", gi.DrawType)
			set = assign(set, "sortorder", gi.SortOrder)
			set = assign(set, "color", gi.Color)
			set = assign(set, "yaxisside", gi.YAxisSide)
			set = assign(set, "calc_fnc", gi.CalcFnc)
			set = assign(set, "type", gi.Type)
			if len(set) > 0 {
				itemUpdates = append(itemUpdates, rowUpdate{
					table: "graphs_items", set: set, idColumn: "gitemid", id: gi.ID.Uint64(),
				})
			}
		}
	}

	cs := &changeSet{}
	cs.insert("graphs", graphColumns, graphRows)
	cs.insert("graph_discovery", graphDiscoveryColumns, discoveryRows)
	cs.insert("graphs_items", graphItemColumns, itemRows)
	cs.updates = append(graphUpdates, itemUpdates...)
	cs.delete("graphs_items", "gitemid", counts.deleted)
	return cs
}
