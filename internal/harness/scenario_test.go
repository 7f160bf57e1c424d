package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lldsync/internal/ir"
)

func writeScenario(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/cpu_load_triggers.yaml")
	require.NoError(t, err)

	assert.Equal(t, "cpu_load_triggers", scenario.Name)
	assert.Equal(t, ir.KindTrigger, scenario.Kind)
	assert.Equal(t, uint64(500), scenario.Prototype)
	assert.Equal(t, []string{"host", "trigger"}, scenario.Fixtures)
	require.Len(t, scenario.Runs, 4)
	require.NotNil(t, scenario.Runs[0].Expect)
	assert.Equal(t, 2, *scenario.Runs[0].Expect.Created)
	assert.NotNil(t, scenario.Runs[0].Expect.Problems)
	assert.Nil(t, scenario.Runs[0].Expect.Updated)
	assert.Equal(t, []string{"UPDATE triggers SET priority=5 WHERE triggerid=500"}, scenario.Runs[3].Setup)
	assert.Len(t, scenario.Assertions, 3)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing name",
			content: "kind: trigger\nprototype: 500\nruns: [{rows: []}]\n",
			wantErr: "name is required",
		},
		{
			name:    "missing kind",
			content: "name: a\nprototype: 500\nruns: [{rows: []}]\n",
			wantErr: "kind is required",
		},
		{
			name:    "unknown kind",
			content: "name: a\nkind: item\nprototype: 500\nruns: [{rows: []}]\n",
			wantErr: `unknown kind "item"`,
		},
		{
			name:    "missing prototype",
			content: "name: a\nkind: graph\nruns: [{rows: []}]\n",
			wantErr: "prototype is required",
		},
		{
			name:    "no runs",
			content: "name: a\nkind: graph\nprototype: 700\n",
			wantErr: "runs list is required",
		},
		{
			name:    "unknown fixture",
			content: "name: a\nkind: graph\nprototype: 700\nfixtures: [web]\nruns: [{rows: []}]\n",
			wantErr: `unknown fixture "web"`,
		},
		{
			name:    "rows not a list",
			content: "name: a\nkind: graph\nprototype: 700\nruns: [{rows: {a: 1}}]\n",
			wantErr: "runs[0]: rows must be a list",
		},
		{
			name:    "unknown field",
			content: "name: a\nkind: graph\nprototype: 700\nruns: [{rows: []}]\nasserts: []\n",
			wantErr: "failed to parse YAML",
		},
		{
			name:    "name with separator",
			content: "name: a/b\nkind: graph\nprototype: 700\nruns: [{rows: []}]\n",
			wantErr: "must not contain path separators",
		},
		{
			name: "unknown assertion type",
			content: "name: a\nkind: graph\nprototype: 700\nruns: [{rows: []}]\n" +
				"assertions: [{type: trace_contains, table: graphs}]\n",
			wantErr: `unknown assertion type "trace_contains"`,
		},
		{
			name: "final_state without expect",
			content: "name: a\nkind: graph\nprototype: 700\nruns: [{rows: []}]\n" +
				"assertions: [{type: final_state, table: graphs}]\n",
			wantErr: "expect is required for final_state",
		},
		{
			name: "invalid table",
			content: "name: a\nkind: graph\nprototype: 700\nruns: [{rows: []}]\n" +
				"assertions: [{type: row_count, table: \"graphs; DROP TABLE graphs\"}]\n",
			wantErr: "invalid table name",
		},
		{
			name: "invalid column",
			content: "name: a\nkind: graph\nprototype: 700\nruns: [{rows: []}]\n" +
				"assertions: [{type: row_count, table: graphs, where: {\"name or 1\": 1}}]\n",
			wantErr: "invalid column name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadDir(t *testing.T) {
	scenarios, err := LoadDir("testdata/scenarios", "")
	require.NoError(t, err)

	names := make([]string, len(scenarios))
	for i, s := range scenarios {
		names[i] = s.Name
	}
	assert.Equal(t, []string{"cpu_graphs", "cpu_load_triggers", "missing_prototype", "trigger_problems"}, names)
}

func TestLoadDir_Filter(t *testing.T) {
	scenarios, err := LoadDir("testdata/scenarios", "cpu_*")
	require.NoError(t, err)
	require.Len(t, scenarios, 2)
	assert.Equal(t, "cpu_graphs", scenarios[0].Name)

	_, err = LoadDir("testdata/scenarios", "[")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid filter")
}

func TestLoadDir_DuplicateName(t *testing.T) {
	dir := t.TempDir()
	content := "name: same\nkind: graph\nprototype: 700\nruns: [{rows: []}]\n"
	writeScenario(t, dir, "a.yaml", content)
	writeScenario(t, dir, "b.yaml", content)

	_, err := LoadDir(dir, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `scenario "same" already defined in a.yaml`)
}

func TestLoadDir_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "broken.yaml", "name: [\n")

	_, err := LoadDir(dir, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.yaml")
}
