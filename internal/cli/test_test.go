package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passingScenario = `name: cpu_triggers
kind: trigger
prototype: 500
fixtures: [host, trigger]
runs:
  - rows:
      - macros: {CPUNAME: cpu0}
        links: [{prototype: 1000, item: 100}]
    expect:
      created: 1
      sub_created: 1
assertions:
  - type: row_count
    table: trigger_discovery
    where: {parent_triggerid: 500}
    count: 1
`

const failingScenario = `name: wrong_count
kind: trigger
prototype: 500
fixtures: [host, trigger]
runs:
  - rows:
      - macros: {CPUNAME: cpu0}
        links: [{prototype: 1000, item: 100}]
    expect:
      created: 2
`

func TestTestCommandMissingArgs(t *testing.T) {
	_, _, err := execute(t, "test")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentDir(t *testing.T) {
	_, _, err := execute(t, "test", "/nonexistent/scenarios")

	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTestCommandPassing(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "cpu_triggers.yaml", passingScenario)

	stdout, _, err := execute(t, "test", dir)

	require.NoError(t, err)
	assert.Contains(t, stdout, "cpu_triggers")
	assert.Contains(t, stdout, "Test Summary: 1 passed, 0 failed, 1 total")
	assert.Contains(t, stdout, "All scenarios passed")
}

func TestTestCommandFailing(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "cpu_triggers.yaml", passingScenario)
	writeFile(t, dir, "wrong_count.yaml", failingScenario)

	stdout, _, err := execute(t, "test", dir)

	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "run 1: created = 1, want 2")
	assert.Contains(t, stdout, "Test Summary: 1 passed, 1 failed, 2 total")
}

func TestTestCommandJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "cpu_triggers.yaml", passingScenario)
	writeFile(t, dir, "wrong_count.yaml", failingScenario)

	stdout, _, err := execute(t, "test", "--format", "json", dir)
	require.Error(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
		Error  *CLIError  `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, 2, resp.Data.Total)
	assert.Equal(t, 1, resp.Data.Passed)
	assert.Equal(t, 1, resp.Data.Failed)
	require.Len(t, resp.Data.Scenarios, 2)
	assert.Equal(t, "cpu_triggers", resp.Data.Scenarios[0].Name)
	assert.True(t, resp.Data.Scenarios[0].Pass)
	assert.False(t, resp.Data.Scenarios[1].Pass)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeScenario, resp.Error.Code)
}

func TestTestCommandFilter(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "cpu_triggers.yaml", passingScenario)
	writeFile(t, dir, "wrong_count.yaml", failingScenario)

	stdout, _, err := execute(t, "test", "--filter", "cpu_*", dir)

	require.NoError(t, err)
	assert.Contains(t, stdout, "Test Summary: 1 passed, 0 failed, 1 total")
}

func TestTestCommandUpdateGolden(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "cpu_triggers.yaml", passingScenario)

	stdout, _, err := execute(t, "test", "--update", dir)
	require.NoError(t, err)
	assert.Contains(t, stdout, "golden updated")

	golden, err := os.ReadFile(filepath.Join(dir, "golden", "cpu_triggers.golden"))
	require.NoError(t, err)
	assert.Contains(t, string(golden), "INSERT triggers rows=1")

	// The written golden file is now checked.
	_, _, err = execute(t, "test", dir)
	require.NoError(t, err)
}

func TestTestCommandInvalidScenario(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.yaml", "name: broken\nkind: trigger\n")

	_, _, err := execute(t, "test", dir)

	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load scenarios")
}

func TestTestCommandEmptyDir(t *testing.T) {
	stdout, _, err := execute(t, "test", t.TempDir())

	require.NoError(t, err)
	assert.Contains(t, stdout, "No scenarios found.")
}
