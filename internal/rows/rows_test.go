package rows

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lldsync/internal/ir"
)

func newLoader(t *testing.T) *Loader {
	t.Helper()
	l, err := NewLoader()
	require.NoError(t, err)
	return l
}

func TestLoadFile_YAML(t *testing.T) {
	rows, err := newLoader(t).LoadFile("testdata/cpu.yaml")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, map[string]string{"{#CPUNAME}": "cpu0"}, rows[0].Macros)
	assert.Equal(t, []ir.ItemLink{{PrototypeID: 1000, ItemID: 100}, {PrototypeID: 1001, ItemID: 110}}, rows[0].Links)

	assert.Equal(t, map[string]string{"{#CPUNAME}": "cpu1", "{#LIMIT}": "7.5"}, rows[1].Macros)
	item, ok := rows[1].Resolve(1000)
	assert.True(t, ok)
	assert.Equal(t, uint64(101), item)
}

func TestLoadFile_JSON(t *testing.T) {
	rows, err := newLoader(t).LoadFile("testdata/cpu.json")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "cpu1", rows[1].Macros["{#CPUNAME}"])
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := newLoader(t).LoadFile("testdata/missing.yaml")
	require.Error(t, err)
}

func TestParse_LinksAreSorted(t *testing.T) {
	rows, err := newLoader(t).Parse("inline", []byte(`
rows:
  - links:
      - {prototype: 1001, item: 110}
      - {prototype: 1000, item: 100}
`))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, uint64(1000), rows[0].Links[0].PrototypeID)
	assert.NotNil(t, rows[0].Macros)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"missing rows", "items: []\n"},
		{"lower-case macro", "rows:\n  - macros:\n      cpuname: cpu0\n"},
		{"negative item", "rows:\n  - links:\n      - {prototype: 1000, item: -1}\n"},
		{"missing prototype", "rows:\n  - links:\n      - {item: 100}\n"},
		{"unknown row field", "rows:\n  - name: cpu0\n"},
		{"nested macro value", "rows:\n  - macros:\n      CPUNAME: {a: 1}\n"},
		{"duplicate link", "rows:\n  - links:\n      - {prototype: 1000, item: 100}\n      - {prototype: 1000, item: 200}\n"},
		{"macro in both forms", "rows:\n  - macros:\n      CPUNAME: cpu0\n      \"{#CPUNAME}\": cpu1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newLoader(t).Parse(tt.name, []byte(tt.data))
			require.Error(t, err)

			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "got %T: %v", err, err)
			assert.Equal(t, tt.name, ve.File)
			assert.NotEmpty(t, ve.Details)
		})
	}
}

func TestParse_DuplicateLinkDetails(t *testing.T) {
	data := "rows:\n  - links: [{prototype: 1001, item: 110}]\n  - links:\n      - {prototype: 1000, item: 100}\n      - {prototype: 1000, item: 101}\n"

	_, err := newLoader(t).Parse("rows.yaml", []byte(data))

	var ve *ValidationError
	require.True(t, errors.As(err, &ve), "got %T: %v", err, err)
	assert.Equal(t, []string{"rows.1.links: item prototype 1000 is linked more than once"}, ve.Details)
}

func TestParse_MalformedYAML(t *testing.T) {
	_, err := newLoader(t).Parse("broken", []byte("rows: [\n"))
	require.Error(t, err)

	var ve *ValidationError
	assert.False(t, errors.As(err, &ve))
}

func TestMacroName(t *testing.T) {
	assert.Equal(t, "{#IFNAME}", MacroName("IFNAME"))
	assert.Equal(t, "{#IFNAME}", MacroName("{#IFNAME}"))
}
