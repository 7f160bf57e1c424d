// Package queryir describes the data-changing statements the engine issues
// as plain values.
//
// The persister builds Insert, Update and Delete values; internal/querysql
// compiles them to parameterized SQL for a dialect and internal/store
// executes them. Keeping statements as values lets the store validate them
// before execution and lets observers (metrics, the scenario harness) see
// exactly what was written without parsing SQL.
//
// SEALED INTERFACES:
//
// Statement and Predicate are sealed with marker methods, so backends can
// switch exhaustively:
//
//	switch s := stmt.(type) {
//	case Insert:
//	case Update:
//	case Delete:
//	}
//
// Statements carry no SQL fragments. Every value ends up as a bound
// parameter.
package queryir
