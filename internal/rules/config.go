package rules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadTables reads rule tables from a YAML file. Sections omitted from the
// file keep their built-in defaults, so a deployment can override just the
// keyword lists without restating the patterns.
func LoadTables(path string) (Tables, error) {
	tables := DefaultTables()

	data, err := os.ReadFile(path)
	if err != nil {
		return Tables{}, fmt.Errorf("failed to read rule tables %s: %w", path, err)
	}

	var overrides Tables
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return Tables{}, fmt.Errorf("failed to parse rule tables %s: %w", path, err)
	}

	if len(overrides.Categories) > 0 {
		tables.Categories = overrides.Categories
	}
	if len(overrides.WeaponCategories) > 0 {
		tables.WeaponCategories = overrides.WeaponCategories
	}
	if overrides.ViolenceCategory != "" {
		tables.ViolenceCategory = overrides.ViolenceCategory
	}
	if len(overrides.TransactionVerbs) > 0 {
		tables.TransactionVerbs = overrides.TransactionVerbs
	}
	if len(overrides.NamedWeapons) > 0 {
		tables.NamedWeapons = overrides.NamedWeapons
	}
	if len(overrides.HighRiskPatterns) > 0 {
		tables.HighRiskPatterns = overrides.HighRiskPatterns
	}
	if len(overrides.MediumRiskPatterns) > 0 {
		tables.MediumRiskPatterns = overrides.MediumRiskPatterns
	}

	return tables, nil
}
