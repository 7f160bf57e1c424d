package queryir

import (
	"fmt"
	"regexp"
)

// ValidationResult lists the structural problems of a statement.
type ValidationResult struct {
	// IsValid is true when Errors is empty.
	IsValid bool

	// Errors describes every problem found.
	Errors []string
}

// identifier matches table and column names. Names are interpolated into
// SQL, so anything else is rejected.
var identifier = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Validate checks that a statement can be compiled safely:
//  1. Table and column names are plain identifiers
//  2. Insert rows have one value per column
//  3. Updates set at least one column and always have a WHERE clause
//  4. Deletes always have a WHERE clause
//  5. In predicates list at least one value
//
// Validate is a pure function with no side effects.
func Validate(stmt Statement) ValidationResult {
	v := &validator{errors: []string{}}
	v.validateStatement(stmt)

	return ValidationResult{
		IsValid: len(v.errors) == 0,
		Errors:  v.errors,
	}
}

type validator struct {
	errors []string
}

func (v *validator) addError(format string, args ...any) {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
}

func (v *validator) validateStatement(stmt Statement) {
	switch s := stmt.(type) {
	case nil:
		v.addError("nil statement")
	case Insert:
		v.validateInsert(s)
	case *Insert:
		v.validateInsert(*s)
	case Update:
		v.validateUpdate(s)
	case *Update:
		v.validateUpdate(*s)
	case Delete:
		v.validateDelete(s)
	case *Delete:
		v.validateDelete(*s)
	default:
		v.addError("unknown statement type: %T", stmt)
	}
}

// ValidIdentifier reports whether name may be used as a table or column name.
func ValidIdentifier(name string) bool {
	return identifier.MatchString(name)
}

func (v *validator) validateName(kind, name string) {
	if !ValidIdentifier(name) {
		v.addError("invalid %s name %q", kind, name)
	}
}

func (v *validator) validateInsert(s Insert) {
	v.validateName("table", s.Table)
	if len(s.Columns) == 0 {
		v.addError("insert into %s has no columns", s.Table)
	}
	for _, col := range s.Columns {
		v.validateName("column", col)
	}
	if len(s.Rows) == 0 {
		v.addError("insert into %s has no rows", s.Table)
	}
	for i, row := range s.Rows {
		if len(row) != len(s.Columns) {
			v.addError("insert into %s: row %d has %d values, want %d", s.Table, i, len(row), len(s.Columns))
		}
	}
}

func (v *validator) validateUpdate(s Update) {
	v.validateName("table", s.Table)
	if len(s.Set) == 0 {
		v.addError("update of %s sets no columns", s.Table)
	}
	for _, a := range s.Set {
		v.validateName("column", a.Column)
	}
	if s.Where == nil {
		v.addError("update of %s has no WHERE clause", s.Table)
		return
	}
	v.validatePredicate(s.Where)
}

func (v *validator) validateDelete(s Delete) {
	v.validateName("table", s.Table)
	if s.Where == nil {
		v.addError("delete from %s has no WHERE clause", s.Table)
		return
	}
	v.validatePredicate(s.Where)
}

func (v *validator) validatePredicate(p Predicate) {
	switch pred := p.(type) {
	case Equals:
		v.validateName("column", pred.Column)
	case *Equals:
		v.validateName("column", pred.Column)
	case In:
		v.validateIn(pred)
	case *In:
		v.validateIn(*pred)
	case And:
		v.validateAnd(pred)
	case *And:
		v.validateAnd(*pred)
	default:
		v.addError("unknown predicate type: %T", p)
	}
}

func (v *validator) validateIn(in In) {
	v.validateName("column", in.Column)
	if len(in.Values) == 0 {
		v.addError("IN on %s has no values", in.Column)
	}
}

func (v *validator) validateAnd(and And) {
	if len(and.Predicates) == 0 {
		v.addError("empty AND")
	}
	for _, p := range and.Predicates {
		v.validatePredicate(p)
	}
}
