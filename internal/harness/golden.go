package harness

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/lldsync/internal/queryir"
)

// FormatLog renders the statement log of a scenario execution: one block
// per evaluation with its report counters, problems and committed
// statements. The log is stable for a given scenario.
func FormatLog(scenario *Scenario, result *Result) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "scenario: %s\n", scenario.Name)
	fmt.Fprintf(&buf, "prototype: %s %d\n", scenario.Kind, scenario.Prototype)

	for i, run := range result.Runs {
		r := run.Report
		fmt.Fprintf(&buf, "\nrun %d (%s): rows=%d created=%d updated=%d sub_created=%d sub_updated=%d sub_deleted=%d\n",
			i+1, r.RunID, r.Rows, r.Created, r.Updated, r.SubCreated, r.SubUpdated, r.SubDeleted)
		if run.ErrorCode != "" {
			fmt.Fprintf(&buf, "  error: %s\n", run.ErrorCode)
		}
		for _, p := range r.Problems {
			fmt.Fprintf(&buf, "  problem: %s\n", p.Message)
		}
		for _, e := range run.Statements {
			fmt.Fprintf(&buf, "  %s\n", describe(e.Statement))
		}
	}
	return buf.Bytes()
}

// describe renders a statement with its values, independent of dialect.
func describe(stmt queryir.Statement) string {
	switch s := stmt.(type) {
	case *queryir.Insert:
		return describe(*s)
	case *queryir.Update:
		return describe(*s)
	case *queryir.Delete:
		return describe(*s)
	case queryir.Insert:
		return fmt.Sprintf("INSERT %s rows=%d", s.Table, len(s.Rows))
	case queryir.Update:
		set := make([]string, len(s.Set))
		for i, a := range s.Set {
			set[i] = a.Column + "=" + formatValue(a.Value)
		}
		return fmt.Sprintf("UPDATE %s SET %s WHERE %s", s.Table, strings.Join(set, ","), describePredicate(s.Where))
	case queryir.Delete:
		return fmt.Sprintf("DELETE %s WHERE %s", s.Table, describePredicate(s.Where))
	default:
		return fmt.Sprintf("%T %s", stmt, stmt.Target())
	}
}

func describePredicate(p queryir.Predicate) string {
	switch w := p.(type) {
	case queryir.Equals:
		return w.Column + "=" + formatValue(w.Value)
	case queryir.In:
		values := make([]string, len(w.Values))
		for i, v := range w.Values {
			values[i] = formatValue(v)
		}
		return fmt.Sprintf("%s IN (%s)", w.Column, strings.Join(values, ","))
	case queryir.And:
		parts := make([]string, len(w.Predicates))
		for i, sub := range w.Predicates {
			parts[i] = describePredicate(sub)
		}
		return strings.Join(parts, " AND ")
	default:
		return fmt.Sprintf("%v", p)
	}
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return fmt.Sprintf("%q", x)
	default:
		return fmt.Sprintf("%v", x)
	}
}

// RunWithGolden executes a scenario, fails the test on any failed
// expectation and compares the statement log against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) *Result {
	t.Helper()

	result, err := Run(t.Context(), scenario)
	if err != nil {
		t.Fatalf("run scenario %s: %v", scenario.Name, err)
	}
	for _, msg := range result.Errors {
		t.Error(msg)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, FormatLog(scenario, result))
	return result
}

// CheckGolden compares a statement log with {dir}/{name}.golden outside of
// go test. With update set, the golden file is (re)written instead.
// Returns false when the log differs from the golden file or the golden
// file does not exist.
func CheckGolden(dir, name string, log []byte, update bool) (bool, error) {
	path := filepath.Join(dir, name+".golden")
	if update {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return false, fmt.Errorf("create golden dir: %w", err)
		}
		if err := os.WriteFile(path, log, 0o644); err != nil {
			return false, fmt.Errorf("write golden file: %w", err)
		}
		return true, nil
	}

	want, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read golden file: %w", err)
	}
	return bytes.Equal(want, log), nil
}

// RunDir runs every scenario and checks it against its golden file in
// {dir}/golden when one exists or update is set.
func RunDir(ctx context.Context, scenarios []*Scenario, dir string, update bool, opts ...Option) ([]*Result, error) {
	goldenDir := filepath.Join(dir, "golden")
	results := make([]*Result, 0, len(scenarios))
	for _, s := range scenarios {
		result, err := Run(ctx, s, opts...)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
		}

		log := FormatLog(s, result)
		_, statErr := os.Stat(filepath.Join(goldenDir, s.Name+".golden"))
		if update || statErr == nil {
			ok, err := CheckGolden(goldenDir, s.Name, log, update)
			if err != nil {
				return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
			}
			if !ok {
				result.AddError("statement log differs from golden file %s.golden", s.Name)
			}
		}
		results = append(results, result)
	}
	return results, nil
}
