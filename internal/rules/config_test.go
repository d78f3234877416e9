package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTables(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadTables_PartialOverride(t *testing.T) {
	path := writeTables(t, `
categories:
  contraband:
    - widget
weapon_categories:
  - contraband
`)

	tables, err := LoadTables(path)
	require.NoError(t, err)

	// Overridden sections replace, untouched sections keep defaults.
	assert.Equal(t, []string{"widget"}, tables.Categories["contraband"])
	assert.Equal(t, []string{"contraband"}, tables.WeaponCategories)
	assert.Equal(t, DefaultTables().TransactionVerbs, tables.TransactionVerbs)
	assert.Equal(t, DefaultTables().HighRiskPatterns, tables.HighRiskPatterns)
}

func TestLoadTables_OverriddenEngineScores(t *testing.T) {
	path := writeTables(t, `
categories:
  contraband:
    - widget
weapon_categories:
  - contraband
`)

	tables, err := LoadTables(path)
	require.NoError(t, err)

	e, err := NewEngine(tables)
	require.NoError(t, err)

	sig := e.Score("selling a widget tonight")
	assert.GreaterOrEqual(t, sig.Score, 0.7, "custom weapon category should floor")
}

func TestLoadTables_MissingFile(t *testing.T) {
	_, err := LoadTables(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadTables_InvalidYAML(t *testing.T) {
	path := writeTables(t, "categories: [not: a: map")
	_, err := LoadTables(path)
	assert.Error(t, err)
}
