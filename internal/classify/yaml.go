package classify

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadTables reads a rule-set override file. The YAML mirrors TableSet,
// keeping categories and labels as ordered lists so tie-breaking stays
// deterministic.
func LoadTables(path string) (TableSet, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return TableSet{}, fmt.Errorf("read tables file: %w", err)
	}
	var set TableSet
	if err := yaml.Unmarshal(raw, &set); err != nil {
		return TableSet{}, fmt.Errorf("parse tables file: %w", err)
	}
	if len(set.Categories) == 0 {
		return TableSet{}, fmt.Errorf("tables file %s declares no categories", path)
	}
	return set, nil
}
