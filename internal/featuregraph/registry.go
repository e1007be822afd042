package featuregraph

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// RegistryEntry is one declared feature in spec/features.yaml.
type RegistryEntry struct {
	ID         string   `yaml:"id"`
	Title      string   `yaml:"title"`
	Spec       string   `yaml:"spec"`
	Governance string   `yaml:"governance"`
	Owner      string   `yaml:"owner"`
	Group      string   `yaml:"group"`
	DependsOn  []string `yaml:"depends_on"`
}

type registryFile struct {
	Features []RegistryEntry `yaml:"features"`
}

// Registry is the parsed, indexed spec/features.yaml manifest.
type Registry struct {
	ByID []RegistryEntry
}

// LoadRegistry reads and parses spec/features.yaml under repoRoot. A missing
// file is not an error: it is treated as an empty registry, since a fresh
// repository may not have adopted feature governance yet.
func LoadRegistry(repoRoot string) (*Registry, []Violation, error) {
	path := filepath.Join(repoRoot, "spec", "features.yaml")
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Registry{}, nil, nil
		}
		return nil, nil, fmt.Errorf("featuregraph: read registry: %w", err)
	}

	var doc registryFile
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, nil, fmt.Errorf("featuregraph: parse registry %s: %w", path, err)
	}

	reg := &Registry{}
	seen := map[string]bool{}
	var violations []Violation
	for _, entry := range doc.Features {
		if seen[entry.ID] {
			violations = append(violations, Violation{
				Code:      CodeDuplicateFeatureID,
				Severity:  SeverityError,
				Path:      "spec/features.yaml",
				FeatureID: entry.ID,
				Message:   fmt.Sprintf("feature id %q declared more than once in registry", entry.ID),
			})
			continue
		}
		seen[entry.ID] = true
		reg.ByID = append(reg.ByID, entry)
	}

	for _, entry := range reg.ByID {
		specAbs := filepath.Join(repoRoot, entry.Spec)
		if _, err := os.Stat(specAbs); err != nil {
			violations = append(violations, Violation{
				Code:      CodeMissingSpecFile,
				Severity:  SeverityError,
				Path:      entry.Spec,
				FeatureID: entry.ID,
				Message:   fmt.Sprintf("registry spec path %q does not exist on disk", entry.Spec),
			})
		}
	}

	sort.Slice(violations, func(i, j int) bool {
		if violations[i].Code != violations[j].Code {
			return violations[i].Code < violations[j].Code
		}
		return violations[i].Path < violations[j].Path
	})

	return reg, violations, nil
}

// Find returns the registry entry for id, if any.
func (r *Registry) Find(id string) (RegistryEntry, bool) {
	if r == nil {
		return RegistryEntry{}, false
	}
	for _, e := range r.ByID {
		if e.ID == id {
			return e, true
		}
	}
	return RegistryEntry{}, false
}
