package module

import (
	"fmt"
	"strings"
)

// ManifestRelPath is the manifest location inside every module directory.
const ManifestRelPath = ".lola/module.yml"

// SkillFileName is the skill definition file inside each skill directory.
const SkillFileName = "SKILL.md"

// CommandsDirName holds a module's command prompt files.
const CommandsDirName = "commands"

// Origin describes where a module was fetched from, so updates can
// re-fetch it.
type Origin struct {
	Kind    string `yaml:"kind"`
	Locator string `yaml:"locator"`
	Ref     string `yaml:"ref,omitempty"`
}

// Manifest is the declared shape of a module, decoded from
// .lola/module.yml exactly as fetched.
type Manifest struct {
	Name        string   `yaml:"name"`
	Version     string   `yaml:"version"`
	Description string   `yaml:"description,omitempty"`
	Skills      []string `yaml:"skills"`
	Commands    []string `yaml:"commands,omitempty"`
	Source      Origin   `yaml:"source,omitempty"`
}

// Module is a manifest materialized in the store.
type Module struct {
	Manifest
	Dir      string
	Checksum string
}

// Skill is one named, described unit of instructional content. Skills
// are immutable once loaded for an installer invocation.
type Skill struct {
	Name        string
	Description string
	Body        string
	Raw         []byte
	Extra       map[string]any
	Dir         string
	// AuxFiles are paths relative to Dir, excluding SKILL.md.
	AuxFiles []string
}

// Command is a prompt file converted per assistant alongside skills.
type Command struct {
	Name        string
	Description string
	Prompt      string
}

// NotFoundError reports a module absent from the store.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("MOD_NOT_FOUND: module %q is not in the store", e.Name)
}

// ValidationError reports a malformed manifest or skill. It is terminal:
// nothing is written when validation fails.
type ValidationError struct {
	Module   string
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("MOD_VALIDATE: module %q: %s", e.Module, strings.Join(e.Problems, "; "))
}
