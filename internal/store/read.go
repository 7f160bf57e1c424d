package store

import (
	"context"
	"fmt"

	"github.com/roach88/lldsync/internal/ir"
)

// PrototypeSummary describes a prototype and how many entities were
// materialized from it.
type PrototypeSummary struct {
	ID         uint64  `json:"id"`
	Kind       ir.Kind `json:"kind"`
	Name       string  `json:"name"`
	Discovered int     `json:"discovered"`
}

// EntitySummary describes one materialized entity.
type EntitySummary struct {
	ID         uint64 `json:"id"`
	Name       string `json:"name"`
	Expression string `json:"expression,omitempty"`
}

// ListPrototypes returns the prototypes of a kind ordered by id.
//
// Returns an empty slice (not nil) if there are none.
func (s *Store) ListPrototypes(ctx context.Context, kind ir.Kind) ([]PrototypeSummary, error) {
	var query string
	switch kind {
	case ir.KindTrigger:
		query = `
			SELECT t.triggerid, t.description, COUNT(td.triggerid)
			FROM triggers t
			LEFT JOIN trigger_discovery td ON td.parent_triggerid = t.triggerid
			WHERE t.flags = ?
			GROUP BY t.triggerid, t.description
			ORDER BY t.triggerid`
	case ir.KindGraph:
		query = `
			SELECT g.graphid, g.name, COUNT(gd.graphid)
			FROM graphs g
			LEFT JOIN graph_discovery gd ON gd.parent_graphid = g.graphid
			WHERE g.flags = ?
			GROUP BY g.graphid, g.name
			ORDER BY g.graphid`
	default:
		return nil, fmt.Errorf("list prototypes: unknown kind %q", kind)
	}

	rows, err := s.Query(ctx, query, ir.DiscoveryPrototype)
	if err != nil {
		return nil, fmt.Errorf("query prototypes: %w", err)
	}
	defer rows.Close()

	protos := []PrototypeSummary{}
	for rows.Next() {
		p := PrototypeSummary{Kind: kind}
		if err := rows.Scan(&p.ID, &p.Name, &p.Discovered); err != nil {
			return nil, fmt.Errorf("scan prototype: %w", err)
		}
		protos = append(protos, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate prototypes: %w", err)
	}

	return protos, nil
}

// ListDiscovered returns the entities materialized from a prototype ordered
// by id. Trigger expressions are returned as stored.
//
// Returns an empty slice (not nil) if there are none.
func (s *Store) ListDiscovered(ctx context.Context, kind ir.Kind, prototypeID uint64) ([]EntitySummary, error) {
	var query string
	switch kind {
	case ir.KindTrigger:
		query = `
			SELECT t.triggerid, t.description, t.expression
			FROM triggers t
			JOIN trigger_discovery td ON td.triggerid = t.triggerid
			WHERE td.parent_triggerid = ?
			ORDER BY t.triggerid`
	case ir.KindGraph:
		query = `
			SELECT g.graphid, g.name, ''
			FROM graphs g
			JOIN graph_discovery gd ON gd.graphid = g.graphid
			WHERE gd.parent_graphid = ?
			ORDER BY g.graphid`
	default:
		return nil, fmt.Errorf("list discovered: unknown kind %q", kind)
	}

	rows, err := s.Query(ctx, query, prototypeID)
	if err != nil {
		return nil, fmt.Errorf("query discovered: %w", err)
	}
	defer rows.Close()

	entities := []EntitySummary{}
	for rows.Next() {
		var e EntitySummary
		if err := rows.Scan(&e.ID, &e.Name, &e.Expression); err != nil {
			return nil, fmt.Errorf("scan discovered: %w", err)
		}
		entities = append(entities, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate discovered: %w", err)
	}

	return entities, nil
}
