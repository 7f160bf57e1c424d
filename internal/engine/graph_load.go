package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/lldsync/internal/ir"
	"github.com/roach88/lldsync/internal/querysql"
)

const graphSelect = `SELECT g.graphid, g.name, g.width, g.height, g.yaxismin, g.yaxismax,
	g.show_work_period, g.show_triggers, g.graphtype, g.show_legend, g.show_3d,
	g.percent_left, g.percent_right, g.ymin_type, g.ymax_type, g.ymin_itemid, g.ymax_itemid
	FROM graphs g`

// loadGraphPrototype reads a graph prototype with its items ordered by id.
// Returns sql.ErrNoRows if the prototype does not exist.
func (e *Engine) loadGraphPrototype(ctx context.Context, id uint64) (*ir.GraphPrototype, error) {
	p := &ir.GraphPrototype{}
	err := e.store.QueryRow(ctx, graphSelect+" WHERE g.graphid=? AND g.flags=?", id, ir.DiscoveryPrototype).Scan(
		&p.ID, &p.Name, &p.Width, &p.Height, &p.YAxisMin, &p.YAxisMax,
		&p.ShowWorkPeriod, &p.ShowTriggers, &p.GraphType, &p.ShowLegend, &p.Show3D,
		&p.PercentLeft, &p.PercentRight, &p.YMinType, &p.YMaxType, &p.YMinItemID, &p.YMaxItemID,
	)
	if err != nil {
		return nil, err
	}

	items, err := e.loadGraphItemRows(ctx, []uint64{id})
	if err != nil {
		return nil, err
	}
	for _, gi := range items[id] {
		p.Items = append(p.Items, ir.GraphItemPrototype{
			ID:        gi.id,
			ItemID:    gi.itemID,
			DrawType:  gi.drawType,
			SortOrder: gi.sortOrder,
			Color:     gi.color,
			YAxisSide: gi.yAxisSide,
			CalcFnc:   gi.calcFnc,
			Type:      gi.itemType,
		})
	}

	err = e.store.QueryRow(ctx, `
		SELECT i.hostid FROM items i
		JOIN graphs_items gi ON gi.itemid=i.itemid
		WHERE gi.graphid=?
		ORDER BY i.hostid
		LIMIT 1`, id,
	).Scan(&p.HostID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("query graph prototype host: %w", err)
	}

	return p, nil
}

// loadGraphs reads the graphs discovered from proto, ordered by id. Every
// field except the name and the y axis items is taken from the prototype
// and comes back with a pending change where it differs.
func (e *Engine) loadGraphs(ctx context.Context, proto *ir.GraphPrototype) ([]*ir.Graph, error) {
	rows, err := e.store.Query(ctx, graphSelect+`
		JOIN graph_discovery gd ON gd.graphid=g.graphid
		WHERE gd.parent_graphid=?
		ORDER BY g.graphid`, proto.ID)
	if err != nil {
		return nil, fmt.Errorf("query graphs: %w", err)
	}
	defer rows.Close()

	var graphs []*ir.Graph
	var ids []uint64
	for rows.Next() {
		var s ir.GraphPrototype
		if err := rows.Scan(
			&s.ID, &s.Name, &s.Width, &s.Height, &s.YAxisMin, &s.YAxisMax,
			&s.ShowWorkPeriod, &s.ShowTriggers, &s.GraphType, &s.ShowLegend, &s.Show3D,
			&s.PercentLeft, &s.PercentRight, &s.YMinType, &s.YMaxType, &s.YMinItemID, &s.YMaxItemID,
		); err != nil {
			return nil, fmt.Errorf("scan graph: %w", err)
		}
		graphs = append(graphs, &ir.Graph{
			ID:             ir.NewID(s.ID),
			Name:           ir.Unchanged(s.Name),
			Width:          ir.Unchanged(s.Width).Set(proto.Width),
			Height:         ir.Unchanged(s.Height).Set(proto.Height),
			YAxisMin:       ir.Unchanged(s.YAxisMin).Set(proto.YAxisMin),
			YAxisMax:       ir.Unchanged(s.YAxisMax).Set(proto.YAxisMax),
			ShowWorkPeriod: ir.Unchanged(s.ShowWorkPeriod).Set(proto.ShowWorkPeriod),
			ShowTriggers:   ir.Unchanged(s.ShowTriggers).Set(proto.ShowTriggers),
			GraphType:      ir.Unchanged(s.GraphType).Set(proto.GraphType),
			ShowLegend:     ir.Unchanged(s.ShowLegend).Set(proto.ShowLegend),
			Show3D:         ir.Unchanged(s.Show3D).Set(proto.Show3D),
			PercentLeft:    ir.Unchanged(s.PercentLeft).Set(proto.PercentLeft),
			PercentRight:   ir.Unchanged(s.PercentRight).Set(proto.PercentRight),
			YMinType:       ir.Unchanged(s.YMinType).Set(proto.YMinType),
			YMaxType:       ir.Unchanged(s.YMaxType).Set(proto.YMaxType),
			YMinItemID:     ir.Unchanged(s.YMinItemID),
			YMaxItemID:     ir.Unchanged(s.YMaxItemID),
		})
		ids = append(ids, s.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate graphs: %w", err)
	}
	if len(graphs) == 0 {
		return nil, nil
	}

	items, err := e.loadGraphItemRows(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, g := range graphs {
		for _, gi := range items[g.ID.Uint64()] {
			g.Items = append(g.Items, &ir.GraphItem{
				ID:        ir.NewID(gi.id),
				ItemID:    ir.Unchanged(gi.itemID),
				DrawType:  ir.Unchanged(gi.drawType),
				SortOrder: ir.Unchanged(gi.sortOrder),
				Color:     ir.Unchanged(gi.color),
				YAxisSide: ir.Unchanged(gi.yAxisSide),
				CalcFnc:   ir.Unchanged(gi.calcFnc),
				Type:      ir.Unchanged(gi.itemType),
			})
		}
	}
	return graphs, nil
}

type graphItemRow struct {
	id        uint64
	itemID    uint64
	drawType  int
	sortOrder int
	color     string
	yAxisSide int
	calcFnc   int
	itemType  int
}

// loadGraphItemRows reads the items of the given graphs grouped by graph
// id, each group ordered by graph item id.
func (e *Engine) loadGraphItemRows(ctx context.Context, graphIDs []uint64) (map[uint64][]graphItemRow, error) {
	query := "SELECT gitemid, graphid, itemid, drawtype, sortorder, color, yaxisside, calc_fnc, type" +
		" FROM graphs_items WHERE graphid IN (" + querysql.InList(len(graphIDs)) + ")" +
		" ORDER BY gitemid"
	rows, err := e.store.Query(ctx, query, idArgs(graphIDs)...)
	if err != nil {
		return nil, fmt.Errorf("query graph items: %w", err)
	}
	defer rows.Close()

	out := make(map[uint64][]graphItemRow)
	for rows.Next() {
		var gi graphItemRow
		var graphID uint64
		if err := rows.Scan(&gi.id, &graphID, &gi.itemID, &gi.drawType, &gi.sortOrder,
			&gi.color, &gi.yAxisSide, &gi.calcFnc, &gi.itemType); err != nil {
			return nil, fmt.Errorf("scan graph item: %w", err)
		}
		out[graphID] = append(out[graphID], gi)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate graph items: %w", err)
	}
	return out, nil
}
