package querysql

import (
	"strconv"
	"strings"
)

// Dialect selects placeholder syntax and a few dialect-specific clauses.
type Dialect int

const (
	// SQLite uses ? placeholders.
	SQLite Dialect = iota

	// Postgres uses $1, $2, ... placeholders.
	Postgres
)

func (d Dialect) String() string {
	if d == Postgres {
		return "postgres"
	}
	return "sqlite"
}

// ParseDialect maps a driver or dialect name to a Dialect.
func ParseDialect(name string) (Dialect, bool) {
	switch strings.ToLower(name) {
	case "sqlite", "sqlite3":
		return SQLite, true
	case "postgres", "postgresql", "pgx":
		return Postgres, true
	}
	return SQLite, false
}

// Placeholder returns the n-th (1-based) parameter placeholder.
func (d Dialect) Placeholder(n int) string {
	if d == Postgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// ForUpdate returns the row-locking suffix for a SELECT inside a transaction.
func (d Dialect) ForUpdate() string {
	if d == Postgres {
		return " FOR UPDATE"
	}
	return ""
}

// Rebind rewrites ? placeholders of a hand-written query for the dialect.
// Question marks inside single-quoted literals are left alone.
func (d Dialect) Rebind(query string) string {
	if d == SQLite {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)

	n := 0
	quoted := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			quoted = !quoted
			b.WriteByte(c)
		case c == '?' && !quoted:
			n++
			b.WriteString(d.Placeholder(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// InList returns "?,?,?" with n placeholders for a hand-written IN clause.
// Use Rebind on the final query.
func InList(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}
