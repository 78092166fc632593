package seed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/dmwcoord/pkg/store"
)

const sampleYAML = `
dungeons:
  - name: "Forsaken Tower"
    short_code: "FT"
    is_active: true
    sort_order: 1
  - name: "Sunken Vault"
    short_code: "SV"
    is_active: true
    sort_order: 2
  - name: ""
    short_code: "skip-me"
`

func writeSeedFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dungeons.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadDungeonsInsertsNamedEntriesOnly(t *testing.T) {
	path := writeSeedFile(t, sampleYAML)
	s := store.New()

	n, err := LoadDungeons(path, s)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "the entry with an empty name must be skipped")
	assert.Len(t, s.Dungeons, 2)
}

func TestLoadDungeonsNoopsWhenStoreAlreadyHasRows(t *testing.T) {
	path := writeSeedFile(t, sampleYAML)
	s := store.New()
	s.AddDungeon("Existing", "EX", true, 0)

	n, err := LoadDungeons(path, s)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Len(t, s.Dungeons, 1)
}

func TestLoadDungeonsNoopsWithoutAPath(t *testing.T) {
	s := store.New()
	n, err := LoadDungeons("", s)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
