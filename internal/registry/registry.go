package registry

import (
	"fmt"
	"os"
	"sort"

	"github.com/pelletier/go-toml/v2"

	"lola/internal/fsutil"
)

// Registry persists installations as a single TOML document. Writes are
// atomic (tmp+rename): a crash leaves either the previous document or
// the new one, never a half-written file. The registry only touches its
// own document, never the recorded artifacts.
type Registry struct {
	path string
}

func New(path string) *Registry {
	return &Registry{path: path}
}

func (r *Registry) load() (Document, error) {
	blob, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Document{Version: RegistryVersion}, nil
		}
		return Document{}, err
	}
	var doc Document
	if err := toml.Unmarshal(blob, &doc); err != nil {
		return Document{}, fmt.Errorf("REG_PARSE: %w", err)
	}
	if doc.Version == 0 {
		doc.Version = RegistryVersion
	}
	if doc.Version != RegistryVersion {
		return Document{}, fmt.Errorf("REG_VERSION: unsupported registry version %d", doc.Version)
	}
	for _, inst := range doc.Installations {
		if inst.Module == "" || inst.Assistant == "" {
			return Document{}, fmt.Errorf("REG_SCHEMA: installation entry missing module or assistant")
		}
	}
	return doc, nil
}

func (r *Registry) save(doc Document) error {
	doc.Version = RegistryVersion
	sort.SliceStable(doc.Installations, func(i, j int) bool {
		a, b := doc.Installations[i], doc.Installations[j]
		if a.Module != b.Module {
			return a.Module < b.Module
		}
		if a.Assistant != b.Assistant {
			return a.Assistant < b.Assistant
		}
		if a.Scope != b.Scope {
			return a.Scope < b.Scope
		}
		return a.ProjectPath < b.ProjectPath
	})
	blob, err := toml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("REG_ENCODE: %w", err)
	}
	return fsutil.AtomicWrite(r.path, blob, 0o644)
}

// Record upserts an installation by its identity tuple. A second install
// of the same tuple replaces the record, never duplicates it.
func (r *Registry) Record(inst Installation) error {
	doc, err := r.load()
	if err != nil {
		return err
	}
	id := inst.Identity()
	replaced := false
	for i := range doc.Installations {
		if doc.Installations[i].Identity() == id {
			doc.Installations[i] = inst
			replaced = true
			break
		}
	}
	if !replaced {
		doc.Installations = append(doc.Installations, inst)
	}
	return r.save(doc)
}

// Find returns the installation for an identity tuple, if any.
func (r *Registry) Find(id Identity) (Installation, bool, error) {
	doc, err := r.load()
	if err != nil {
		return Installation{}, false, err
	}
	for _, inst := range doc.Installations {
		if inst.Identity() == id {
			return inst, true, nil
		}
	}
	return Installation{}, false, nil
}

// ForModule returns every installation of a module, in document order.
func (r *Registry) ForModule(name string) ([]Installation, error) {
	doc, err := r.load()
	if err != nil {
		return nil, err
	}
	var out []Installation
	for _, inst := range doc.Installations {
		if inst.Module == name {
			out = append(out, inst)
		}
	}
	return out, nil
}

// All returns every installation.
func (r *Registry) All() ([]Installation, error) {
	doc, err := r.load()
	if err != nil {
		return nil, err
	}
	return doc.Installations, nil
}

// Remove deletes the installation for an identity tuple and returns the
// artifacts that were registered, so the caller can delete exactly those
// paths and nothing else.
func (r *Registry) Remove(id Identity) ([]Artifact, bool, error) {
	doc, err := r.load()
	if err != nil {
		return nil, false, err
	}
	for i, inst := range doc.Installations {
		if inst.Identity() == id {
			doc.Installations = append(doc.Installations[:i], doc.Installations[i+1:]...)
			if err := r.save(doc); err != nil {
				return nil, false, err
			}
			return inst.Artifacts, true, nil
		}
	}
	return nil, false, nil
}
