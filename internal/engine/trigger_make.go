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

func (e *Engine) reconcileTriggers(ctx context.Context, ev *evaluation, rows []ir.Row) error {
	proto, err := e.loadTriggerPrototype(ctx, ev.prototypeID)
	if errors.Is(err, sql.ErrNoRows) {
		return ev.notFound()
	}
	if err != nil {
		return ev.loadError("trigger prototype", err)
	}

	triggers, err := e.loadTriggers(ctx, proto)
	if err != nil {
		return ev.loadError("triggers", err)
	}

	var itemIDs []uint64
	for _, f := range proto.Functions {
		itemIDs = append(itemIDs, f.ItemID)
	}
	for _, t := range triggers {
		for _, f := range t.Functions {
			itemIDs = append(itemIDs, f.ItemID.Get())
		}
	}
	items, err := e.loadItems(ctx, itemIDs)
	if err != nil {
		return ev.loadError("items", err)
	}

	ev.logger.Debug("trigger prototype loaded",
		"functions", len(proto.Functions),
		"existing", len(triggers),
	)

	triggers = e.makeTriggers(ev, proto, triggers, items, rows)

	if err := e.validateTriggers(ctx, ev, proto, triggers); err != nil {
		return ev.loadError("conflicting triggers", err)
	}

	return e.saveTriggers(ctx, ev, proto, triggers)
}

// triggerRow is a row prepared against a trigger prototype: every templated
// field substituted and every function item resolved.
type triggerRow struct {
	description string
	comments    string
	expression  string
	items       []uint64
	tags        []ir.TagPrototype

	code ProblemCode
	err  error
}

func (e *Engine) prepareTrigger(proto *ir.TriggerPrototype, items itemIndex, row ir.Row) triggerRow {
	var r triggerRow
	for _, f := range proto.Functions {
		id, err := items.resolve(f.ItemID, row)
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
	if r.description, err = e.subst.Substitute(proto.Description, row.Macros, macro.Any); err != nil {
		r.code, r.err = ErrCodeSubstitution, err
		return r
	}
	r.description = strings.TrimSpace(r.description)

	if r.comments, err = e.subst.Substitute(proto.Comments, row.Macros, macro.Any); err != nil {
		r.code, r.err = ErrCodeSubstitution, err
		return r
	}
	r.comments = strings.TrimSpace(r.comments)

	if r.expression, err = e.subst.Substitute(proto.Expression, row.Macros, macro.Numeric); err != nil {
		r.code, r.err = ErrCodeSubstitution, err
		return r
	}

	for _, p := range proto.Tags {
		tag, err := e.subst.Substitute(p.Tag, row.Macros, macro.Any)
		if err != nil {
			r.code, r.err = ErrCodeSubstitution, err
			return r
		}
		value, err := e.subst.Substitute(p.Value, row.Macros, macro.Any)
		if err != nil {
			r.code, r.err = ErrCodeSubstitution, err
			return r
		}
		r.tags = append(r.tags, ir.TagPrototype{
			Tag:   strings.TrimSpace(tag),
			Value: strings.TrimSpace(value),
		})
	}
	return r
}

// makeTriggers binds rows to triggers and returns the triggers extended
// with the new ones, in creation order.
func (e *Engine) makeTriggers(ev *evaluation, proto *ir.TriggerPrototype, triggers []*ir.Trigger, items itemIndex, rows []ir.Row) []*ir.Trigger {
	m := linkMatcher[*ir.Trigger]{
		claimed: (*ir.Trigger).Discovered,
		owns: func(t *ir.Trigger, itemID uint64) bool {
			for _, f := range t.Functions {
				if f.ItemID.Get() == itemID {
					return true
				}
			}
			return false
		},
		key: func(t *ir.Trigger) string {
			return t.Description.Get()
		},
	}

	var unmatched []triggerRow
	for _, row := range rows {
		r := e.prepareTrigger(proto, items, row)
		t, found := m.byItems(triggers, r.items)
		if r.err != nil {
			op := opName(!found)
			p := Problem{Code: r.code, Op: op, Message: fmt.Sprintf("Cannot %s trigger: %s.", op, r.err)}
			if found {
				p.EntityID = t.ID.Uint64()
			}
			ev.problem(p)
			continue
		}
		if !found {
			unmatched = append(unmatched, r)
			continue
		}
		updateTrigger(t, proto, r)
	}

	for _, r := range unmatched {
		if t, ok := m.byKey(triggers, r.description); ok {
			updateTrigger(t, proto, r)
			continue
		}
		triggers = append(triggers, newTrigger(proto, r))
	}
	return triggers
}

func updateTrigger(t *ir.Trigger, proto *ir.TriggerPrototype, r triggerRow) {
	t.Description = t.Description.Set(r.description)
	t.Comments = t.Comments.Set(r.comments)
	t.Expression = t.Expression.Set(r.expression)
	t.Flags = t.Flags.With(ir.FlagDiscovered)
	t.Functions = makeFunctions(proto.Functions, t.Functions, r.items)
	t.Tags = makeTags(r.tags, t.Tags)
}

func newTrigger(proto *ir.TriggerPrototype, r triggerRow) *ir.Trigger {
	return &ir.Trigger{
		Description: ir.Unchanged(r.description),
		Expression:  ir.Unchanged(r.expression),
		Comments:    ir.Unchanged(r.comments),
		Priority:    ir.Unchanged(proto.Priority),
		Type:        ir.Unchanged(proto.Type),
		URL:         ir.Unchanged(proto.URL),
		Status:      proto.Status,
		Flags:       ir.FlagDiscovered,
		Functions:   makeFunctions(proto.Functions, nil, r.items),
		Tags:        makeTags(r.tags, nil),
	}
}

// makeFunctions reconciles functions with the prototype's positionally.
// Both lists are ordered by deferred index. Missing functions are created,
// surplus ones are marked for deletion.
func makeFunctions(protos []ir.FunctionPrototype, functions []*ir.Function, items []uint64) []*ir.Function {
	for i, p := range protos {
		if i >= len(functions) {
			functions = append(functions, &ir.Function{
				Index:     ir.Unchanged(p.Index),
				ItemID:    ir.Unchanged(items[i]),
				Function:  ir.Unchanged(p.Function),
				Parameter: ir.Unchanged(p.Parameter),
				Flags:     ir.FlagDiscovered,
			})
			continue
		}
		f := functions[i]
		f.Index = f.Index.Set(p.Index)
		f.ItemID = f.ItemID.Set(items[i])
		f.Function = f.Function.Set(p.Function)
		f.Parameter = f.Parameter.Set(p.Parameter)
		f.Flags = f.Flags.With(ir.FlagDiscovered)
	}

	for _, f := range functions[len(protos):] {
		if !f.Flags.Has(ir.FlagDiscovered) {
			f.Flags = f.Flags.With(ir.FlagDelete)
		}
	}
	return functions
}

// makeTags reconciles tags with the substituted prototype tags
// positionally. Tags beyond the prototype's are marked for deletion.
func makeTags(protos []ir.TagPrototype, tags []*ir.TriggerTag) []*ir.TriggerTag {
	for i, p := range protos {
		if i >= len(tags) {
			tags = append(tags, &ir.TriggerTag{
				Tag:   ir.Unchanged(p.Tag),
				Value: ir.Unchanged(p.Value),
				Flags: ir.FlagDiscovered,
			})
			continue
		}
		t := tags[i]
		t.Tag = t.Tag.Set(p.Tag)
		t.Value = t.Value.Set(p.Value)
		t.Flags = t.Flags.With(ir.FlagDiscovered)
	}

	for _, t := range tags[len(protos):] {
		if !t.Flags.Has(ir.FlagDiscovered) {
			t.Flags = t.Flags.With(ir.FlagDelete)
		}
	}
	return tags
}
