package harness

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/roach88/lldsync/internal/store"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("assertion failed: %s: expected %s, got %s", e.Type, e.Expected, e.Actual)
}

// EvaluateAssertions evaluates all assertions against the database.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(ctx context.Context, st *store.Store, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertFinalState:
			err = assertFinalState(ctx, st, assertion)
		case AssertRowCount:
			err = assertRowCount(ctx, st, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

// assertFinalState checks that exactly one row matches the where clause
// and that it holds the expected values (subset semantics).
//
// Table and column names were validated when the scenario was loaded;
// values are always passed as parameters.
func assertFinalState(ctx context.Context, st *store.Store, assertion Assertion) error {
	whereSQL, whereArgs := buildWhereClause(assertion.Where)
	query := "SELECT * FROM " + assertion.Table + whereSQL

	rows, err := st.Query(ctx, query, whereArgs...)
	if err != nil {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("query table %s", assertion.Table),
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("get columns: %w", err)
	}

	if !rows.Next() {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("row in %s where %s", assertion.Table, formatWhereClause(assertion.Where)),
			Actual:   "row not found",
		}
	}

	values := make([]any, len(columns))
	valuePtrs := make([]any, len(columns))
	for i := range values {
		valuePtrs[i] = &values[i]
	}
	if err := rows.Scan(valuePtrs...); err != nil {
		return fmt.Errorf("scan row: %w", err)
	}

	if rows.Next() {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("exactly one row in %s where %s", assertion.Table, formatWhereClause(assertion.Where)),
			Actual:   "multiple rows matched (assertion is ambiguous)",
		}
	}

	actualRow := make(map[string]any, len(columns))
	for i, col := range columns {
		actualRow[strings.ToLower(col)] = values[i]
	}

	for _, key := range sortedKeys(assertion.Expect) {
		expected := assertion.Expect[key]
		actual, exists := actualRow[key]
		if !exists {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q to exist", key),
				Actual:   fmt.Sprintf("columns %v", columns),
			}
		}
		if !stateValuesEqual(expected, actual) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("%s.%s = %v", assertion.Table, key, expected),
				Actual:   fmt.Sprintf("%v", normalize(actual)),
			}
		}
	}

	return nil
}

// assertRowCount counts the rows matching the where clause.
func assertRowCount(ctx context.Context, st *store.Store, assertion Assertion) error {
	whereSQL, whereArgs := buildWhereClause(assertion.Where)

	var count int
	if err := st.QueryRow(ctx, "SELECT COUNT(*) FROM "+assertion.Table+whereSQL, whereArgs...).Scan(&count); err != nil {
		return &AssertionError{
			Type:     AssertRowCount,
			Expected: fmt.Sprintf("query table %s", assertion.Table),
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertRowCount,
			Expected: fmt.Sprintf("%d rows in %s where %s", assertion.Count, assertion.Table, formatWhereClause(assertion.Where)),
			Actual:   fmt.Sprintf("%d rows", count),
		}
	}
	return nil
}

// buildWhereClause constructs a parameterized WHERE clause, including the
// leading " WHERE ". Keys are sorted for determinism.
func buildWhereClause(where map[string]any) (string, []any) {
	if len(where) == 0 {
		return "", nil
	}

	keys := sortedKeys(where)
	clauses := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys))
	for _, key := range keys {
		clauses = append(clauses, key+" = ?")
		args = append(args, where[key])
	}

	return " WHERE " + strings.Join(clauses, " AND "), args
}

// formatWhereClause creates a human-readable description of WHERE conditions.
func formatWhereClause(where map[string]any) string {
	if len(where) == 0 {
		return "(no conditions)"
	}

	keys := sortedKeys(where)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, where[k]))
	}
	return strings.Join(parts, " AND ")
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// stateValuesEqual compares a YAML value with a database value. Drivers
// return integers with different widths and text as string or []byte.
func stateValuesEqual(expected, actual any) bool {
	if expected == nil || actual == nil {
		return expected == nil && actual == nil
	}

	exp := normalize(expected)
	act := normalize(actual)

	if b, ok := exp.(bool); ok {
		if n, ok := act.(int64); ok {
			return b == (n != 0)
		}
	}
	if f, ok := exp.(float64); ok {
		if n, ok := act.(int64); ok {
			return f == float64(n)
		}
	}
	if n, ok := exp.(int64); ok {
		if f, ok := act.(float64); ok {
			return float64(n) == f
		}
	}
	return reflect.DeepEqual(exp, act)
}

func normalize(v any) any {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case int16:
		return int64(x)
	case uint64:
		return int64(x)
	case float32:
		return float64(x)
	case []byte:
		return string(x)
	default:
		return v
	}
}
