// Package adapterapi defines the contract between the installer and the
// per-assistant format adapters. Adapters translate skills into artifact
// writes; they never perform the writes themselves.
package adapterapi

import (
	"fmt"

	"lola/internal/module"
)

// Context carries everything an adapter needs to compute artifact paths.
type Context struct {
	Assistant   string
	Scope       string
	ProjectPath string
	Module      string
	// Home is the user's home directory, threaded explicitly so tests
	// can redirect user-scope roots.
	Home string
}

// Artifact kinds, mirrored by the installation registry.
const (
	KindFile    = "file"
	KindTree    = "tree"
	KindSection = "section"
)

// FileWrite is a whole-file artifact: writing is a pure overwrite.
type FileWrite struct {
	Path    string
	Content []byte
}

// SectionWrite is a managed block inside a shared file: writing replaces
// only the marker-delimited span for Key, preserving everything else
// byte-for-byte. Preamble is used only when the file must be created.
type SectionWrite struct {
	Path     string
	Key      string
	Body     []byte
	Preamble []byte
}

// Target identifies one recorded artifact for removal.
type Target struct {
	Path string
	Kind string
	Key  string
}

// Result is the output of adapting one skill or command.
type Result struct {
	Files    []FileWrite
	Sections []SectionWrite
	// Records are the artifacts to register; they are also the exact
	// set to delete when rolling back or uninstalling this unit.
	Records []Target
}

// Adapter converts skills and commands into one assistant's native
// artifact layout.
type Adapter interface {
	Name() string
	Skill(sk module.Skill, ctx Context) (Result, error)
	Command(cmd module.Command, ctx Context) (Result, error)
	// SkillTargets computes the removal targets for a skill from the
	// naming scheme alone, without adapting content.
	SkillTargets(moduleName, skillName string, ctx Context) []Target
	CommandTargets(moduleName, commandName string, ctx Context) []Target
}

// ArtifactName is the deterministic, collision-resistant artifact naming
// scheme: two modules can each contribute a skill with the same local
// name without clashing.
func ArtifactName(moduleName, unitName string) string {
	return moduleName + "." + unitName
}

// ConversionError reports that required fields could not be translated
// into the target schema. It aborts the whole install for the assistant.
type ConversionError struct {
	Assistant string
	Module    string
	Unit      string
	Reason    string
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("ADP_CONVERT: cannot convert %s for %s: %s",
		ArtifactName(e.Module, e.Unit), e.Assistant, e.Reason)
}
