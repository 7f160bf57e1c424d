package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/lldsync/internal/ir"
	"github.com/roach88/lldsync/internal/queryir"
	"github.com/roach88/lldsync/internal/testutil"
)

// Scenario defines one reconciliation scenario: a database state, a
// prototype and a sequence of evaluations with their expected outcome.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	Description string `yaml:"description"`

	// Kind is the entity kind of the prototype ("trigger" or "graph").
	Kind ir.Kind `yaml:"kind"`

	Prototype uint64 `yaml:"prototype"`

	// Fixtures names standard fixture sets loaded before Setup.
	Fixtures []string `yaml:"fixtures,omitempty"`

	// Setup contains SQL statements run once before the first evaluation.
	Setup []string `yaml:"setup,omitempty"`

	Runs []RunStep `yaml:"runs"`

	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// RunStep is one evaluation of the scenario prototype.
type RunStep struct {
	// Setup contains SQL statements run right before this evaluation.
	Setup []string `yaml:"setup,omitempty"`

	// Rows is the discovered row list, in row file format.
	Rows yaml.Node `yaml:"rows"`

	// Expect specifies the expected report. If nil, only a successful
	// evaluation is required.
	Expect *RunExpect `yaml:"expect,omitempty"`
}

// RunExpect lists expected report values. Unset counters are not checked.
type RunExpect struct {
	Created    *int `yaml:"created,omitempty"`
	Updated    *int `yaml:"updated,omitempty"`
	SubCreated *int `yaml:"sub_created,omitempty"`
	SubUpdated *int `yaml:"sub_updated,omitempty"`
	SubDeleted *int `yaml:"sub_deleted,omitempty"`

	// Statements is the number of committed statements.
	Statements *int `yaml:"statements,omitempty"`

	// Problems holds one substring per expected problem, in order. When
	// set, the number of problems must match exactly.
	Problems []string `yaml:"problems,omitempty"`

	// Error is the expected evaluation error code, e.g. PROTOTYPE_NOT_FOUND.
	Error string `yaml:"error,omitempty"`
}

// Assertion validates the final database state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "final_state": Query one row and verify expected values
	// - "row_count": Count matching rows
	Type string `yaml:"type"`

	Table string `yaml:"table"`

	// Where specifies query filters. All fields must match exactly.
	Where map[string]any `yaml:"where,omitempty"`

	// Expect contains expected field values (used by final_state).
	// Subset match - only specified fields are validated.
	Expect map[string]any `yaml:"expect,omitempty"`

	// Count is the expected number of rows (used by row_count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertFinalState = "final_state"
	AssertRowCount   = "row_count"
)

// fixtureSets are the fixture names scenarios may load.
var fixtureSets = map[string][]string{
	"host":    testutil.HostFixture,
	"trigger": testutil.TriggerFixture,
	"graph":   testutil.GraphFixture,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML content.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadDir loads every *.yaml scenario in dir whose name matches the glob
// filter (empty matches all), sorted by name.
func LoadDir(dir, filter string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}

	var scenarios []*Scenario
	seen := make(map[string]string)
	for _, path := range paths {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		if prev, ok := seen[s.Name]; ok {
			return nil, fmt.Errorf("%s: scenario %q already defined in %s", filepath.Base(path), s.Name, prev)
		}
		seen[s.Name] = filepath.Base(path)

		if filter != "" {
			ok, err := filepath.Match(filter, s.Name)
			if err != nil {
				return nil, fmt.Errorf("invalid filter %q: %w", filter, err)
			}
			if !ok {
				continue
			}
		}
		scenarios = append(scenarios, s)
	}

	sort.Slice(scenarios, func(i, j int) bool { return scenarios[i].Name < scenarios[j].Name })
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if strings.ContainsAny(s.Name, `/\ `) {
		return fmt.Errorf("name %q must not contain path separators or spaces", s.Name)
	}

	switch s.Kind {
	case ir.KindTrigger, ir.KindGraph:
	case "":
		return fmt.Errorf("kind is required")
	default:
		return fmt.Errorf("unknown kind %q", s.Kind)
	}

	if s.Prototype == 0 {
		return fmt.Errorf("prototype is required")
	}

	for _, name := range s.Fixtures {
		if _, ok := fixtureSets[name]; !ok {
			return fmt.Errorf("unknown fixture %q", name)
		}
	}

	if len(s.Runs) == 0 {
		return fmt.Errorf("runs list is required and must be non-empty")
	}

	for i, run := range s.Runs {
		if run.Rows.Kind != 0 && run.Rows.Kind != yaml.SequenceNode {
			return fmt.Errorf("runs[%d]: rows must be a list", i)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if !queryir.ValidIdentifier(a.Table) {
		return fmt.Errorf("assertions[%d]: invalid table name %q", index, a.Table)
	}
	for col := range a.Where {
		if !queryir.ValidIdentifier(col) {
			return fmt.Errorf("assertions[%d]: invalid column name %q", index, col)
		}
	}

	switch a.Type {
	case AssertFinalState:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	case AssertRowCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for row_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
