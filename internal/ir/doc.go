// Package ir provides the in-memory model shared by the reconciliation engine,
// the store and the row loader.
//
// This package contains type definitions and pure helpers only. All other
// internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Identifiers that are not persisted yet are ID values with Valid() == false,
//     never a zero sentinel
//   - Every persisted field of an entity carries its change state (Pending),
//     which is the only input to SQL generation
//   - Flag and field transitions return new values; nothing mutates in place
//     behind the caller's back
//   - Item links inside a Row are kept sorted for binary search
package ir
