// Package engine reconciles trigger and graph prototypes with the rows a
// low-level discovery rule produced.
//
// One evaluation handles one prototype:
//
//  1. Load the prototype and its sub-records (functions or graph items)
//  2. Load every entity already materialized from it, pre-setting changes
//     of scalar fields that differ from the prototype
//  3. For every row: match an existing entity through the row's item
//     links, then substitute macros and reconcile sub-records positionally
//  4. Rows no link claims are matched by their substituted key (trigger
//     description, graph name) or create a new entity
//  5. Validate the batch: field encoding and length, then uniqueness
//     within the batch and against the host; offenders are rolled back
//     (existing) or dropped (new) one entity at a time
//  6. Persist inside one transaction: allocate ids, insert new entities,
//     links and sub-records, update changed columns, delete surplus
//     sub-records
//
// Pending field changes (ir.Pending) and flags are the only input of step 6.
// Running an evaluation twice with the same input writes nothing the
// second time.
//
// Trigger expressions are held in simplified form while in memory: every
// {functionid} is replaced by a deferred index numbered by first occurrence,
// so expressions compare equal before new functions have ids. The final
// expression is created at persistence time.
//
// Evaluation is single-threaded and synchronous. Problems local to a row or
// an entity are returned in the Report; an error return means nothing was
// committed.
package engine
