package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/lldsync/internal/store"
	"github.com/roach88/lldsync/internal/testutil"
)

// seedDatabase creates a SQLite database loaded with fixtures and returns
// its path. The store is closed so commands can reopen it.
func seedDatabase(t *testing.T, fixtures ...[]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lldsync.db")
	st, err := store.Open(path)
	require.NoError(t, err)
	testutil.Exec(t, st, fixtures...)
	require.NoError(t, st.Close())
	return path
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

const cpuRows = `rows:
  - macros: {CPUNAME: cpu0}
    links: [{prototype: 1000, item: 100}]
  - macros: {CPUNAME: cpu1}
    links: [{prototype: 1000, item: 101}]
`
