// Package expr rewrites function references inside trigger expressions.
//
// A reference is a token of the form {N} where N is a decimal number that
// fits in 64 bits. Persisted expressions reference real function ids;
// in-memory expressions reference deferred indices, assigned by first
// occurrence, so that two expressions can be compared before the
// functions they use have ids.
package expr

import (
	"fmt"
	"strconv"
	"strings"
)

// Function describes the function behind a reference for expansion.
type Function struct {
	ItemID    uint64
	Function  string
	Parameter string
}

// Rewrite copies expr, replacing every {N} token for which fn returns
// ok with the returned text. Other tokens and text are copied verbatim.
func Rewrite(expr string, fn func(n uint64) (string, bool)) string {
	var b strings.Builder
	b.Grow(len(expr))

	last := 0
	for i := 0; i < len(expr); i++ {
		if expr[i] != '{' {
			continue
		}
		n, end, ok := scanReference(expr, i)
		if !ok {
			continue
		}
		repl, ok := fn(n)
		if !ok {
			i = end - 1
			continue
		}
		b.WriteString(expr[last:i])
		b.WriteString(repl)
		last = end
		i = end - 1
	}
	b.WriteString(expr[last:])
	return b.String()
}

// scanReference parses a {N} token starting at expr[start] and returns its
// number and the offset just past the closing brace.
func scanReference(expr string, start int) (uint64, int, bool) {
	j := start + 1
	for j < len(expr) && expr[j] >= '0' && expr[j] <= '9' {
		j++
	}
	if j == start+1 || j >= len(expr) || expr[j] != '}' {
		return 0, 0, false
	}
	n, err := strconv.ParseUint(expr[start+1:j], 10, 64)
	if err != nil {
		return 0, 0, false
	}
	return n, j + 1, true
}

// References returns the numbers referenced by expr in order of first
// occurrence.
func References(expr string) []uint64 {
	var refs []uint64
	seen := make(map[uint64]bool)
	Rewrite(expr, func(n uint64) (string, bool) {
		if !seen[n] {
			seen[n] = true
			refs = append(refs, n)
		}
		return "", false
	})
	return refs
}

// Simplify replaces function ids with deferred indices numbered from 1 by
// first occurrence. It returns the simplified expression and a map from
// function id to its index.
func Simplify(expr string) (string, map[uint64]uint64) {
	indices := make(map[uint64]uint64)
	out := Rewrite(expr, func(id uint64) (string, bool) {
		idx, ok := indices[id]
		if !ok {
			idx = uint64(len(indices) + 1)
			indices[id] = idx
		}
		return reference(idx), true
	})
	return out, indices
}

// Expand replaces references with {itemid:function(parameter)} using
// lookup. References lookup does not know are kept.
func Expand(expr string, lookup func(n uint64) (Function, bool)) string {
	return Rewrite(expr, func(n uint64) (string, bool) {
		f, ok := lookup(n)
		if !ok {
			return "", false
		}
		return fmt.Sprintf("{%d:%s(%s)}", f.ItemID, f.Function, f.Parameter), true
	})
}

// Create replaces deferred indices with the function ids returned by lookup.
func Create(expr string, lookup func(index uint64) (uint64, bool)) string {
	return Rewrite(expr, func(idx uint64) (string, bool) {
		id, ok := lookup(idx)
		if !ok {
			return "", false
		}
		return reference(id), true
	})
}

func reference(n uint64) string {
	return "{" + strconv.FormatUint(n, 10) + "}"
}
