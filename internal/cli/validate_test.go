package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateValidRows(t *testing.T) {
	rowsPath := writeFile(t, t.TempDir(), "rows.yaml", cpuRows)

	stdout, _, err := execute(t, "validate", rowsPath)

	require.NoError(t, err)
	assert.Contains(t, stdout, rowsPath+": 2 row(s) valid")
}

func TestValidateValidRowsJSON(t *testing.T) {
	rowsPath := writeFile(t, t.TempDir(), "rows.json",
		`{"rows": [{"macros": {"CPUNAME": "cpu0", "LIMIT": 7.5}, "links": [{"prototype": 1000, "item": 100}]}]}`)

	stdout, _, err := execute(t, "validate", "--format", "json", rowsPath)
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, 1, resp.Data.Rows)
}

func TestValidateEmptyRows(t *testing.T) {
	rowsPath := writeFile(t, t.TempDir(), "rows.yaml", "rows: []\n")

	stdout, _, err := execute(t, "validate", rowsPath)

	require.NoError(t, err)
	assert.Contains(t, stdout, "0 row(s) valid")
}

func TestValidateInvalidRows(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"lower_case_macro", "rows:\n  - macros: {cpuname: cpu0}\n"},
		{"negative_item", "rows:\n  - links: [{prototype: 1000, item: -1}]\n"},
		{"missing_rows", "links: []\n"},
		{"unknown_field", "rows:\n  - macros: {CPUNAME: cpu0}\n    hosts: [1]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rowsPath := writeFile(t, t.TempDir(), "rows.yaml", tt.content)

			stdout, _, err := execute(t, "validate", rowsPath)

			require.Error(t, err)
			assert.Equal(t, ExitFailure, GetExitCode(err))
			assert.Contains(t, stdout, "validation error(s)")
		})
	}
}

func TestValidateInvalidRowsJSON(t *testing.T) {
	rowsPath := writeFile(t, t.TempDir(), "rows.yaml", "rows:\n  - macros: {cpuname: cpu0}\n")

	stdout, _, err := execute(t, "validate", "--format", "json", rowsPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  *CLIError        `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	assert.NotEmpty(t, resp.Data.Errors)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeRowsInvalid, resp.Error.Code)
}

func TestValidateNonExistentFile(t *testing.T) {
	_, _, err := execute(t, "validate", "/nonexistent/rows.yaml")

	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to read rows file")
}

func TestValidateMissingArgs(t *testing.T) {
	_, _, err := execute(t, "validate")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}
