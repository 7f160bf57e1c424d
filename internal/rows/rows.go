// Package rows loads discovered rows from YAML or JSON files.
//
// A file holds a list of rows, each with its macro values and the items
// discovered for each item prototype:
//
//	rows:
//	  - macros:
//	      CPUNAME: cpu0
//	    links:
//	      - {prototype: 1000, item: 100}
//
// Files are validated against an embedded CUE schema before decoding.
package rows

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/roach88/lldsync/internal/ir"
)

//go:embed schema.cue
var schemaSource string

// ValidationError reports a file that does not match the row schema.
type ValidationError struct {
	File    string
	Details []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: invalid row file: %s", e.File, strings.Join(e.Details, "; "))
}

// Loader parses row files. A Loader is not safe for concurrent use.
type Loader struct {
	ctx    *cue.Context
	schema cue.Value
}

// NewLoader compiles the row schema.
func NewLoader() (*Loader, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compile row schema: %w", err)
	}
	return &Loader{ctx: ctx, schema: v.LookupPath(cue.ParsePath("#File"))}, nil
}

// LoadFile reads and parses a row file.
func (l *Loader) LoadFile(path string) ([]ir.Row, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	return l.Parse(path, data)
}

type fileDoc struct {
	Rows []rowDoc `yaml:"rows"`
}

type rowDoc struct {
	Macros map[string]string `yaml:"macros"`
	Links  []ir.ItemLink     `yaml:"links"`
}

// Parse validates and decodes row file content. name is used in errors.
func (l *Loader) Parse(name string, data []byte) ([]ir.Row, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	if raw == nil {
		return nil, &ValidationError{File: name, Details: []string{"file is empty"}}
	}

	v := l.schema.Unify(l.ctx.Encode(raw))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, &ValidationError{File: name, Details: details(err)}
	}

	var doc fileDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}

	rows := make([]ir.Row, 0, len(doc.Rows))
	var problems []string
	for i, r := range doc.Rows {
		macros := make(map[string]string, len(r.Macros))
		for k, v := range r.Macros {
			full := MacroName(k)
			if _, dup := macros[full]; dup {
				problems = append(problems, fmt.Sprintf("rows.%d.macros: macro %s is defined more than once", i, full))
			}
			macros[full] = v
		}
		problems = append(problems, duplicateLinks(i, r.Links)...)
		rows = append(rows, ir.NewRow(macros, r.Links...))
	}
	if len(problems) > 0 {
		return nil, &ValidationError{File: name, Details: problems}
	}
	return rows, nil
}

// duplicateLinks reports item prototypes linked more than once by a row.
// A row resolves each item prototype to exactly one item.
func duplicateLinks(row int, links []ir.ItemLink) []string {
	var out []string
	seen := make(map[uint64]bool, len(links))
	for _, l := range links {
		if seen[l.PrototypeID] {
			out = append(out, fmt.Sprintf("rows.%d.links: item prototype %d is linked more than once", row, l.PrototypeID))
			continue
		}
		seen[l.PrototypeID] = true
	}
	return out
}

// MacroName returns the full form {#NAME} of a macro name.
func MacroName(name string) string {
	if strings.HasPrefix(name, "{#") {
		return name
	}
	return "{#" + name + "}"
}

func details(err error) []string {
	var out []string
	for _, e := range cueerrors.Errors(err) {
		out = append(out, strings.TrimSpace(cueerrors.Details(e, nil)))
	}
	if len(out) == 0 {
		out = append(out, err.Error())
	}
	return out
}
