package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/lldsync/internal/expr"
	"github.com/roach88/lldsync/internal/ir"
	"github.com/roach88/lldsync/internal/querysql"
)

// validateTriggers checks field values, then uniqueness of description and
// expanded expression within the batch and on the prototype's host, then
// tags. Offending existing triggers are rolled back, new ones dropped.
func (e *Engine) validateTriggers(ctx context.Context, ev *evaluation, proto *ir.TriggerPrototype, triggers []*ir.Trigger) error {
	if err := e.validateTriggerKeys(ctx, ev, proto, triggers); err != nil {
		return err
	}
	for _, t := range triggers {
		validateTriggerTags(ev, t)
	}
	return nil
}

func (e *Engine) validateTriggerKeys(ctx context.Context, ev *evaluation, proto *ir.TriggerPrototype, triggers []*ir.Trigger) error {
	for _, t := range triggers {
		validateTriggerField(ev, t, &t.Description, triggerDescriptionMax)
		validateTriggerField(ev, t, &t.Comments, triggerCommentsMax)
	}

	seen := make(map[string]bool)
	for _, t := range triggers {
		if t.Discovered() && !triggerKeyChanged(t) {
			seen[triggerKey(t)] = true
		}
	}

	var candidates []*ir.Trigger
	for _, t := range triggers {
		if !t.Discovered() || !triggerKeyChanged(t) {
			continue
		}
		key := triggerKey(t)
		if seen[key] {
			duplicateTrigger(ev, t)
			if t.Discovered() {
				seen[triggerKey(t)] = true
			}
			continue
		}
		seen[key] = true
		candidates = append(candidates, t)
	}

	if len(candidates) == 0 || proto.HostID == 0 {
		return nil
	}

	existing, err := e.hostTriggerKeys(ctx, proto.HostID, triggers, candidates)
	if err != nil {
		return err
	}
	for _, t := range candidates {
		if existing[triggerKey(t)] {
			duplicateTrigger(ev, t)
		}
	}
	return nil
}

func validateTriggerField(ev *evaluation, t *ir.Trigger, field *ir.Pending[string], maxLen int) {
	if !t.Discovered() || (!t.IsNew() && !field.Changed()) {
		return
	}
	op := opName(t.IsNew())
	code, msg := checkText(ir.KindTrigger, op, field.Get(), maxLen)
	if code == "" {
		return
	}
	ev.problem(Problem{Code: code, Op: op, EntityID: t.ID.Uint64(), Message: msg})
	if t.IsNew() {
		t.Flags = t.Flags.Without(ir.FlagDiscovered)
		return
	}
	*field = field.Revert()
}

const kindTriggerTag ir.Kind = "trigger tag"

// validateTriggerTags checks new and changed tags of a discovered trigger.
// A failing existing tag is deleted, a failing new one dropped together
// with its trigger if the trigger is new.
func validateTriggerTags(ev *evaluation, t *ir.Trigger) {
	if !t.Discovered() {
		return
	}
	for i, tag := range t.Tags {
		if !tag.Flags.Has(ir.FlagDiscovered) {
			continue
		}
		validateTagField(ev, t, tag, tag.Tag)
		validateTagField(ev, t, tag, tag.Value)
		if tag.Flags.Has(ir.FlagDiscovered) && duplicateTag(t.Tags[:i], tag) {
			ev.problem(Problem{
				Code:     ErrCodeDuplicate,
				Op:       "create",
				EntityID: t.ID.Uint64(),
				Message: fmt.Sprintf("Cannot create trigger tag: tag \"%s\",\"%s\" already exists.",
					ir.DisplayValue(tag.Tag.Get()), ir.DisplayValue(tag.Value.Get())),
			})
			discardTag(tag)
		}
		if t.IsNew() && !tag.Flags.Has(ir.FlagDiscovered) {
			t.Flags = t.Flags.Without(ir.FlagDiscovered)
			return
		}
	}
}

func validateTagField(ev *evaluation, t *ir.Trigger, tag *ir.TriggerTag, field ir.Pending[string]) {
	if !tag.Flags.Has(ir.FlagDiscovered) || (tag.ID.Valid() && !field.Changed()) {
		return
	}
	code, msg := checkText(kindTriggerTag, "create", field.Get(), triggerTagMax)
	if code == "" {
		return
	}
	ev.problem(Problem{Code: code, Op: "create", EntityID: t.ID.Uint64(), Message: msg})
	discardTag(tag)
}

// discardTag deletes a persisted tag and drops a new one.
func discardTag(tag *ir.TriggerTag) {
	if tag.ID.Valid() {
		tag.Flags = ir.FlagDelete
		return
	}
	tag.Flags = tag.Flags.Without(ir.FlagDiscovered)
}

func duplicateTag(earlier []*ir.TriggerTag, tag *ir.TriggerTag) bool {
	for _, o := range earlier {
		if o.Flags.Has(ir.FlagDiscovered) && o.Tag.Get() == tag.Tag.Get() && o.Value.Get() == tag.Value.Get() {
			return true
		}
	}
	return false
}

func duplicateTrigger(ev *evaluation, t *ir.Trigger) {
	op := opName(t.IsNew())
	ev.problem(Problem{
		Code:     ErrCodeDuplicate,
		Op:       op,
		EntityID: t.ID.Uint64(),
		Message: fmt.Sprintf("Cannot %s trigger: trigger \"%s\" already exists.",
			op, ir.DisplayValue(t.Description.Get())),
	})
	rollbackTrigger(t)
}

// rollbackTrigger undoes the row's changes to the fields that make up the
// trigger key. A new trigger is dropped instead.
func rollbackTrigger(t *ir.Trigger) {
	if t.IsNew() {
		t.Flags = t.Flags.Without(ir.FlagDiscovered)
		return
	}
	t.Description = t.Description.Revert()
	t.Expression = t.Expression.Revert()
	for _, f := range t.Functions {
		if !f.ID.Valid() {
			f.Flags = f.Flags.Without(ir.FlagDiscovered)
			continue
		}
		f.Index = f.Index.Revert()
		f.ItemID = f.ItemID.Revert()
		f.Function = f.Function.Revert()
		f.Parameter = f.Parameter.Revert()
		f.Flags = f.Flags.Without(ir.FlagDelete)
	}
	sortFunctions(t.Functions)
}

// liveFunction reports whether f belongs to the trigger after persistence.
func liveFunction(f *ir.Function) bool {
	if f.Flags.Has(ir.FlagDelete) {
		return false
	}
	return f.ID.Valid() || f.Flags.Has(ir.FlagDiscovered)
}

func functionByIndex(t *ir.Trigger, index uint64) (*ir.Function, bool) {
	for _, f := range t.Functions {
		if liveFunction(f) && f.Index.Get() == index {
			return f, true
		}
	}
	return nil, false
}

// expandTrigger renders the expression with every reference replaced by
// the function it stands for.
func expandTrigger(t *ir.Trigger) string {
	return expr.Expand(t.Expression.Get(), func(n uint64) (expr.Function, bool) {
		f, ok := functionByIndex(t, n)
		if !ok {
			return expr.Function{}, false
		}
		return expr.Function{ItemID: f.ItemID.Get(), Function: f.Function.Get(), Parameter: f.Parameter.Get()}, true
	})
}

func triggerKey(t *ir.Trigger) string {
	return t.Description.Get() + "\x00" + expandTrigger(t)
}

func triggerKeyChanged(t *ir.Trigger) bool {
	if t.IsNew() || t.Description.Changed() || t.Expression.Changed() {
		return true
	}
	for _, f := range t.Functions {
		if f.Flags.Has(ir.FlagDelete) {
			return true
		}
		if !liveFunction(f) {
			continue
		}
		if !f.ID.Valid() || f.Changed() || f.Index.Changed() {
			return true
		}
	}
	return false
}

// hostTriggerKeys returns the keys of the persisted non-prototype triggers
// on host sharing a description with one of candidates. Triggers claimed
// in this batch are excluded; their keys are already known.
func (e *Engine) hostTriggerKeys(ctx context.Context, hostID uint64, batch, candidates []*ir.Trigger) (map[string]bool, error) {
	descriptions := make(map[string]bool)
	args := []any{hostID, ir.DiscoveryPrototype}
	for _, t := range candidates {
		if d := t.Description.Get(); !descriptions[d] {
			descriptions[d] = true
			args = append(args, d)
		}
	}

	var query strings.Builder
	query.WriteString(`SELECT DISTINCT t.triggerid, t.description, t.expression
		FROM triggers t
		JOIN functions f ON f.triggerid=t.triggerid
		JOIN items i ON i.itemid=f.itemid
		WHERE i.hostid=? AND t.flags<>? AND t.description IN (`)
	query.WriteString(querysql.InList(len(descriptions)))
	query.WriteString(")")

	var exclude []uint64
	for _, t := range batch {
		if t.Discovered() && !t.IsNew() {
			exclude = append(exclude, t.ID.Uint64())
		}
	}
	if len(exclude) > 0 {
		query.WriteString(" AND t.triggerid NOT IN (" + querysql.InList(len(exclude)) + ")")
		args = append(args, idArgs(exclude)...)
	}

	rows, err := e.store.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query host triggers: %w", err)
	}
	defer rows.Close()

	type hostTrigger struct {
		id          uint64
		description string
		expression  string
	}
	var found []hostTrigger
	var ids []uint64
	for rows.Next() {
		var ht hostTrigger
		if err := rows.Scan(&ht.id, &ht.description, &ht.expression); err != nil {
			return nil, fmt.Errorf("scan host trigger: %w", err)
		}
		found = append(found, ht)
		ids = append(ids, ht.id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate host triggers: %w", err)
	}
	if len(found) == 0 {
		return nil, nil
	}

	functions, err := e.loadFunctionRows(ctx, ids)
	if err != nil {
		return nil, err
	}

	keys := make(map[string]bool, len(found))
	for _, ht := range found {
		byID := make(map[uint64]functionRow)
		for _, f := range functions[ht.id] {
			byID[f.id] = f
		}
		expanded := expr.Expand(ht.expression, func(n uint64) (expr.Function, bool) {
			f, ok := byID[n]
			if !ok {
				return expr.Function{}, false
			}
			return expr.Function{ItemID: f.itemID, Function: f.function, Parameter: f.parameter}, true
		})
		keys[ht.description+"\x00"+expanded] = true
	}
	return keys, nil
}
