package engine

import (
	"context"
	"slices"

	"github.com/roach88/lldsync/internal/expr"
	"github.com/roach88/lldsync/internal/ir"
	"github.com/roach88/lldsync/internal/queryir"
	"github.com/roach88/lldsync/internal/store"
)

var (
	triggerColumns = []string{
		"triggerid", "description", "expression", "priority", "status",
		"comments", "url", "type", "value", "state", "flags",
	}
	triggerDiscoveryColumns = []string{"triggerdiscoveryid", "triggerid", "parent_triggerid"}
	functionColumns         = []string{"functionid", "itemid", "triggerid", "function", "parameter"}
	triggerTagColumns       = []string{"triggertagid", "triggerid", "tag", "value"}
)

// triggerCounts tallies the writes a batch of triggers needs.
type triggerCounts struct {
	created, updated       int
	subCreated, subUpdated int
	deleted                []uint64
	tagsCreated            int
	tagsUpdated            int
	tagsDeleted            []uint64
}

func countTriggers(triggers []*ir.Trigger) triggerCounts {
	var c triggerCounts
	for _, t := range triggers {
		if !t.Discovered() {
			continue
		}
		switch {
		case t.IsNew():
			c.created++
		case t.Changed():
			c.updated++
		}
		for _, f := range t.Functions {
			switch {
			case f.Flags.Has(ir.FlagDelete):
				c.deleted = append(c.deleted, f.ID.Uint64())
			case !f.Flags.Has(ir.FlagDiscovered):
			case !f.ID.Valid():
				c.subCreated++
			case f.Changed():
				c.subUpdated++
			}
		}
		for _, tag := range t.Tags {
			switch {
			case tag.Flags.Has(ir.FlagDelete):
				c.tagsDeleted = append(c.tagsDeleted, tag.ID.Uint64())
			case !tag.Flags.Has(ir.FlagDiscovered):
			case !tag.ID.Valid():
				c.tagsCreated++
			case tag.Changed():
				c.tagsUpdated++
			}
		}
	}
	slices.Sort(c.deleted)
	slices.Sort(c.tagsDeleted)
	return c
}

func (c triggerCounts) empty() bool {
	return c.created+c.updated+c.subCreated+c.subUpdated+len(c.deleted)+
		c.tagsCreated+c.tagsUpdated+len(c.tagsDeleted) == 0
}

// saveTriggers writes the batch in one transaction. Nothing is written when
// no trigger, function or tag has a pending change.
func (e *Engine) saveTriggers(ctx context.Context, ev *evaluation, proto *ir.TriggerPrototype, triggers []*ir.Trigger) error {
	counts := countTriggers(triggers)
	if counts.empty() {
		ev.logger.Debug("triggers up to date")
		return nil
	}

	err := e.persist(ctx, ev, func(tx *store.Tx) (*changeSet, error) {
		triggerIDs, err := allocate(ctx, tx, "triggers", "triggerid", counts.created)
		if err != nil {
			return nil, err
		}
		discoveryIDs, err := allocate(ctx, tx, "trigger_discovery", "triggerdiscoveryid", counts.created)
		if err != nil {
			return nil, err
		}
		functionIDs, err := allocate(ctx, tx, "functions", "functionid", counts.subCreated)
		if err != nil {
			return nil, err
		}
		tagIDs, err := allocate(ctx, tx, "trigger_tag", "triggertagid", counts.tagsCreated)
		if err != nil {
			return nil, err
		}
		return buildTriggerChanges(proto, triggers, counts, triggerIDs, discoveryIDs, functionIDs, tagIDs), nil
	})
	if err != nil {
		return err
	}

	ev.report.Created = counts.created
	ev.report.Updated = counts.updated
	ev.report.SubCreated = counts.subCreated
	ev.report.SubUpdated = counts.subUpdated
	ev.report.SubDeleted = len(counts.deleted)
	ev.report.TagsCreated = counts.tagsCreated
	ev.report.TagsUpdated = counts.tagsUpdated
	ev.report.TagsDeleted = len(counts.tagsDeleted)
	return nil
}

func buildTriggerChanges(proto *ir.TriggerPrototype, triggers []*ir.Trigger, counts triggerCounts,
	triggerIDs, discoveryIDs, functionIDs, tagIDs *allocator) *changeSet {
	var (
		triggerRows, discoveryRows, functionRows, tagRows [][]any
		triggerUpdates, functionUpdates, tagUpdates       []rowUpdate
	)

	for _, t := range triggers {
		if !t.Discovered() {
			continue
		}
		isNew := t.IsNew()
		if isNew {
			t.ID = ir.NewID(triggerIDs.take())
		}
		triggerID := t.ID.Uint64()

		for _, f := range t.Functions {
			if f.Flags.Has(ir.FlagDelete) || !f.Flags.Has(ir.FlagDiscovered) {
				continue
			}
			if !f.ID.Valid() {
				f.ID = ir.NewID(functionIDs.take())
				functionRows = append(functionRows, []any{
					f.ID.Uint64(), f.ItemID.Get(), triggerID, f.Function.Get(), f.Parameter.Get(),
				})
				continue
			}
			var set []queryir.Assignment
			set = assign(set, "itemid", f.ItemID)
			set = assign(set, "function", f.Function)
			set = assign(set, "parameter", f.Parameter)
			if len(set) > 0 {
				functionUpdates = append(functionUpdates, rowUpdate{
					table: "functions", set: set, idColumn: "functionid", id: f.ID.Uint64(),
				})
			}
		}

		for _, tag := range t.Tags {
			if tag.Flags.Has(ir.FlagDelete) || !tag.Flags.Has(ir.FlagDiscovered) {
				continue
			}
			if !tag.ID.Valid() {
				tag.ID = ir.NewID(tagIDs.take())
				tagRows = append(tagRows, []any{tag.ID.Uint64(), triggerID, tag.Tag.Get(), tag.Value.Get()})
				continue
			}
			var set []queryir.Assignment
			set = assign(set, "tag", tag.Tag)
			set = assign(set, "value", tag.Value)
			if len(set) > 0 {
				tagUpdates = append(tagUpdates, rowUpdate{
					table: "trigger_tag", set: set, idColumn: "triggertagid", id: tag.ID.Uint64(),
				})
			}
		}

		var expression string
		if isNew || t.Expression.Changed() {
			expression = createExpression(t)
		}

		if isNew {
			triggerRows = append(triggerRows, []any{
				triggerID, t.Description.Get(), expression, t.Priority.Get(), t.Status,
				t.Comments.Get(), t.URL.Get(), t.Type.Get(), 0, 0, ir.DiscoveryCreated,
			})
			discoveryRows = append(discoveryRows, []any{discoveryIDs.take(), triggerID, proto.ID})
			continue
		}

		var set []queryir.Assignment
		set = assign(set, "description", t.Description)
		if t.Expression.Changed() {
			set = append(set, queryir.Assignment{Column: "expression", Value: expression})
		}
		set = assign(set, "comments", t.Comments)
		set = assign(set, "priority", t.Priority)
		set = assign(set, "type", t.Type)
		set = assign(set, "url", t.URL)
		if len(set) > 0 {
			triggerUpdates = append(triggerUpdates, rowUpdate{
				table: "triggers", set: set, idColumn: "triggerid", id: triggerID,
			})
		}
	}

	cs := &changeSet{}
	cs.insert("triggers", triggerColumns, triggerRows)
	cs.insert("trigger_discovery", triggerDiscoveryColumns, discoveryRows)
	cs.insert("functions", functionColumns, functionRows)
	cs.insert("trigger_tag", triggerTagColumns, tagRows)
	cs.updates = append(triggerUpdates, functionUpdates...)
	cs.updates = append(cs.updates, tagUpdates...)
	cs.delete("functions", "functionid", counts.deleted)
	cs.delete("trigger_tag", "triggertagid", counts.tagsDeleted)
	return cs
}

// createExpression turns the simplified expression into its persisted form
// by replacing deferred indices with function ids.
func createExpression(t *ir.Trigger) string {
	return expr.Create(t.Expression.Get(), func(index uint64) (uint64, bool) {
		f, ok := functionByIndex(t, index)
		if !ok || !f.ID.Valid() {
			return 0, false
		}
		return f.ID.Uint64(), true
	})
}
