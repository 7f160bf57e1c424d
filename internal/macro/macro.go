// Package macro substitutes discovery macros of the form {#NAME} with
// the values of a discovered row.
package macro

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind selects what a macro value may contain in a given context.
type Kind int

const (
	// Any accepts every value.
	Any Kind = iota

	// Numeric accepts only values that parse as numbers; used inside
	// trigger expressions.
	Numeric
)

func (k Kind) String() string {
	if k == Numeric {
		return "numeric"
	}
	return "any"
}

// Substituter replaces discovery macros in a template.
type Substituter interface {
	Substitute(template string, macros map[string]string, kind Kind) (string, error)
}

// Standard is the default Substituter. Macros without a value in the row
// are left in place.
type Standard struct{}

// Substitute implements Substituter.
func (Standard) Substitute(template string, macros map[string]string, kind Kind) (string, error) {
	if !strings.Contains(template, "{#") {
		return template, nil
	}

	var b strings.Builder
	b.Grow(len(template))

	rest := template
	for {
		start := strings.Index(rest, "{#")
		if start < 0 {
			b.WriteString(rest)
			break
		}
		end := strings.IndexByte(rest[start:], '}')
		if end < 0 {
			b.WriteString(rest)
			break
		}
		end += start

		name := rest[start : end+1]
		if !ValidName(name) {
			// "{#" may start a real macro inside the malformed one.
			b.WriteString(rest[:start+2])
			rest = rest[start+2:]
			continue
		}
		b.WriteString(rest[:start])
		value, ok := macros[name]
		switch {
		case !ok:
			b.WriteString(name)
		case kind == Numeric && !isNumeric(value):
			return "", fmt.Errorf("cannot substitute macro %q: value %q is not numeric", name, value)
		default:
			b.WriteString(value)
		}
		rest = rest[end+1:]
	}
	return b.String(), nil
}

// ValidName reports whether name is a well-formed discovery macro:
// {# followed by upper-case letters, digits, '_' or '.', then }.
func ValidName(name string) bool {
	if len(name) < 4 || !strings.HasPrefix(name, "{#") || name[len(name)-1] != '}' {
		return false
	}
	for _, c := range name[2 : len(name)-1] {
		switch {
		case c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_', c == '.':
		default:
			return false
		}
	}
	return true
}

func isNumeric(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}
