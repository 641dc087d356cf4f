package registry

import "time"

// RegistryVersion is the frozen v1 document schema.
const RegistryVersion = 1

// Artifact kinds determine how an uninstall removes the artifact.
const (
	// ArtifactFile is removed with a plain delete.
	ArtifactFile = "file"
	// ArtifactTree is a directory removed recursively.
	ArtifactTree = "tree"
	// ArtifactSection is a managed block inside a shared file, removed
	// by marker splice; the file itself is never deleted.
	ArtifactSection = "section"
)

// Artifact records one path an installation produced.
type Artifact struct {
	Path string `toml:"path"`
	Kind string `toml:"kind"`
	Key  string `toml:"key,omitempty"`
}

// Installation records one successful install. At most one exists per
// (module, assistant, scope, project path) tuple.
type Installation struct {
	Module      string     `toml:"module"`
	Assistant   string     `toml:"assistant"`
	Scope       string     `toml:"scope"`
	ProjectPath string     `toml:"project_path,omitempty"`
	Skills      []string   `toml:"skills"`
	Commands    []string   `toml:"commands,omitempty"`
	Artifacts   []Artifact `toml:"artifacts"`
	InstalledAt time.Time  `toml:"installed_at"`
}

// Identity is the uniqueness tuple for an installation.
type Identity struct {
	Module      string
	Assistant   string
	Scope       string
	ProjectPath string
}

func (i Installation) Identity() Identity {
	return Identity{Module: i.Module, Assistant: i.Assistant, Scope: i.Scope, ProjectPath: i.ProjectPath}
}

// Document is the persisted registry: the single source of truth for
// what lola wrote to disk.
type Document struct {
	Version       int            `toml:"version"`
	Installations []Installation `toml:"installations"`
}
