package config

import "sort"

// LayoutKind describes how an assistant consumes installed skills.
type LayoutKind string

const (
	// LayoutIsolated: one directory per skill, pure overwrite semantics.
	LayoutIsolated LayoutKind = "isolated"
	// LayoutConverted: one translated file per skill with the target's
	// frontmatter schema.
	LayoutConverted LayoutKind = "converted"
	// LayoutManaged: all skills rendered into one shared file as
	// marker-delimited managed sections.
	LayoutManaged LayoutKind = "managed"
)

// Assistant is the static capability descriptor for one supported
// assistant. The set is a closed enumeration; there is no plugin
// discovery.
type Assistant struct {
	Name   string
	Layout LayoutKind
	Scopes []Scope
}

func (a Assistant) SupportsScope(s Scope) bool {
	for _, have := range a.Scopes {
		if have == s {
			return true
		}
	}
	return false
}

var assistants = map[string]Assistant{
	"claude-code": {Name: "claude-code", Layout: LayoutIsolated, Scopes: []Scope{ScopeUser, ScopeProject}},
	// Cursor only supports project-level rules for skills.
	"cursor": {Name: "cursor", Layout: LayoutConverted, Scopes: []Scope{ScopeProject}},
	// Gemini CLI reads a single shared GEMINI.md inside the project
	// workspace; user-wide skill files are not picked up.
	"gemini-cli": {Name: "gemini-cli", Layout: LayoutManaged, Scopes: []Scope{ScopeProject}},
}

// FindAssistant looks up a capability descriptor by name.
func FindAssistant(name string) (Assistant, bool) {
	a, ok := assistants[name]
	return a, ok
}

// AssistantNames returns the supported assistant names, sorted.
func AssistantNames() []string {
	out := make([]string, 0, len(assistants))
	for name := range assistants {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// AssistantsForScope returns the assistants that support the given scope,
// sorted by name.
func AssistantsForScope(scope Scope) []Assistant {
	out := make([]Assistant, 0, len(assistants))
	for _, a := range assistants {
		if a.SupportsScope(scope) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
