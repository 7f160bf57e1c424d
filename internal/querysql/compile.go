// Package querysql compiles queryir statements to parameterized SQL.
package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/lldsync/internal/queryir"
)

// SQLCompiler compiles queryir statements to SQL for one dialect.
//
// All values are parameterized, never interpolated. Only table and column
// names reach the SQL text, and queryir.Validate restricts those to plain
// identifiers.
type SQLCompiler struct {
	Dialect Dialect

	// n is the number of placeholders written for the current statement.
	n int
}

// NewSQLCompiler creates a compiler for the dialect.
func NewSQLCompiler(d Dialect) *SQLCompiler {
	return &SQLCompiler{Dialect: d}
}

// Compile converts a statement to SQL and its parameters.
func (c *SQLCompiler) Compile(stmt queryir.Statement) (string, []any, error) {
	if stmt == nil {
		return "", nil, fmt.Errorf("cannot compile nil statement")
	}
	if res := queryir.Validate(stmt); !res.IsValid {
		return "", nil, fmt.Errorf("invalid statement: %s", strings.Join(res.Errors, "; "))
	}

	c.n = 0
	switch s := stmt.(type) {
	case queryir.Insert:
		return c.compileInsert(s)
	case *queryir.Insert:
		return c.compileInsert(*s)
	case queryir.Update:
		return c.compileUpdate(s)
	case *queryir.Update:
		return c.compileUpdate(*s)
	case queryir.Delete:
		return c.compileDelete(s)
	case *queryir.Delete:
		return c.compileDelete(*s)
	default:
		return "", nil, fmt.Errorf("unsupported statement type: %T", stmt)
	}
}

func (c *SQLCompiler) next() string {
	c.n++
	return c.Dialect.Placeholder(c.n)
}

func (c *SQLCompiler) compileInsert(s queryir.Insert) (string, []any, error) {
	var b strings.Builder
	params := make([]any, 0, len(s.Rows)*len(s.Columns))

	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", s.Table, strings.Join(s.Columns, ","))
	for i, row := range s.Rows {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('(')
		for j, v := range row {
			if j > 0 {
				b.WriteByte(',')
			}
			b.WriteString(c.next())
			params = append(params, v)
		}
		b.WriteByte(')')
	}
	return b.String(), params, nil
}

func (c *SQLCompiler) compileUpdate(s queryir.Update) (string, []any, error) {
	sets := make([]string, len(s.Set))
	params := make([]any, 0, len(s.Set)+1)
	for i, a := range s.Set {
		sets[i] = a.Column + "=" + c.next()
		params = append(params, a.Value)
	}

	where, whereParams, err := c.compilePredicate(s.Where)
	if err != nil {
		return "", nil, fmt.Errorf("compile where: %w", err)
	}
	params = append(params, whereParams...)

	return fmt.Sprintf("UPDATE %s SET %s WHERE %s", s.Table, strings.Join(sets, ","), where), params, nil
}

func (c *SQLCompiler) compileDelete(s queryir.Delete) (string, []any, error) {
	where, params, err := c.compilePredicate(s.Where)
	if err != nil {
		return "", nil, fmt.Errorf("compile where: %w", err)
	}
	return fmt.Sprintf("DELETE FROM %s WHERE %s", s.Table, where), params, nil
}

func (c *SQLCompiler) compilePredicate(p queryir.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case queryir.Equals:
		return c.compileEquals(pred)
	case *queryir.Equals:
		return c.compileEquals(*pred)
	case queryir.In:
		return c.compileIn(pred)
	case *queryir.In:
		return c.compileIn(*pred)
	case queryir.And:
		return c.compileAnd(pred)
	case *queryir.And:
		return c.compileAnd(*pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func (c *SQLCompiler) compileEquals(eq queryir.Equals) (string, []any, error) {
	return eq.Column + "=" + c.next(), []any{eq.Value}, nil
}

func (c *SQLCompiler) compileIn(in queryir.In) (string, []any, error) {
	if len(in.Values) == 1 {
		return in.Column + "=" + c.next(), []any{in.Values[0]}, nil
	}
	marks := make([]string, len(in.Values))
	for i := range in.Values {
		marks[i] = c.next()
	}
	return in.Column + " IN (" + strings.Join(marks, ",") + ")", in.Values, nil
}

func (c *SQLCompiler) compileAnd(and queryir.And) (string, []any, error) {
	parts := make([]string, 0, len(and.Predicates))
	var params []any
	for _, p := range and.Predicates {
		sql, ps, err := c.compilePredicate(p)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
		params = append(params, ps...)
	}
	if len(parts) == 1 {
		return parts[0], params, nil
	}
	return "(" + strings.Join(parts, " AND ") + ")", params, nil
}
