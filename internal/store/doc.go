// Package store provides database access for the monitoring configuration
// that discovery reconciles: hosts, items, triggers, functions, graphs,
// graph items and their discovery links.
//
// Two dialects are supported:
//   - SQLite via github.com/mattn/go-sqlite3 (Open), the default
//   - PostgreSQL via the github.com/jackc/pgx/v5 stdlib driver (OpenPostgres)
//
// Both embed their schema and apply versioned migrations on open.
//
// # Writes
//
// All writes happen inside a Tx. Data-changing statements are built as
// queryir values, compiled by querysql for the store's dialect and
// executed with bound parameters. After Commit every executed statement is
// passed to the registered observers; rolled back work is never reported.
//
// Identifiers are allocated per table through the ids table
// (AllocateIDs), one contiguous range per call.
//
// # Reads
//
// Hand-written queries use ? placeholders and are rebound for the dialect
// (Query, QueryRow, Tx.Query).
//
// # Database Configuration (SQLite)
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
