package module

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LoadManifest decodes and validates the manifest inside dir. The store
// never rewrites manifests; this is read-only.
func LoadManifest(dir string) (Manifest, error) {
	path := filepath.Join(dir, filepath.FromSlash(ManifestRelPath))
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Manifest{}, &ValidationError{Module: filepath.Base(dir), Problems: []string{"missing " + ManifestRelPath}}
		}
		return Manifest{}, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("MOD_MANIFEST_PARSE: %w", err)
	}
	if problems := validateManifest(m); len(problems) > 0 {
		name := m.Name
		if name == "" {
			name = filepath.Base(dir)
		}
		return Manifest{}, &ValidationError{Module: name, Problems: problems}
	}
	return m, nil
}

func validateManifest(m Manifest) []string {
	var problems []string
	if m.Name == "" {
		problems = append(problems, "name is required")
	}
	if m.Version == "" {
		problems = append(problems, "version is required")
	}
	seen := map[string]bool{}
	for _, s := range m.Skills {
		if s == "" {
			problems = append(problems, "empty skill name")
			continue
		}
		if seen[s] {
			problems = append(problems, fmt.Sprintf("duplicate skill %q", s))
		}
		seen[s] = true
	}
	return problems
}
