package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/painel-rs/enrich-cli/internal/model"
)

func TestWriteSnapshot_CreatesDirsAndKeepsUTF8(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "instituicoes.json")

	records := []model.InstitutionRecord{
		{Name: "Associação Beneficente", Sector: "Saúde", City: "São Leopoldo", State: "RS", Site: "https://example.com.br/?a=1&b=2"},
	}
	require.NoError(t, WriteSnapshot(path, records))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	// Accents and URL ampersands are written literally, not escaped.
	assert.Contains(t, string(data), "São Leopoldo")
	assert.Contains(t, string(data), "?a=1&b=2")
	assert.Contains(t, string(data), "\n  ")
}

func TestWriteSnapshot_BareFilename(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(cwd) }) //nolint:errcheck

	require.NoError(t, WriteSnapshot("summary.json", map[string]int{"total": 3}))

	data, err := os.ReadFile(filepath.Join(dir, "summary.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"total": 3`)
}
