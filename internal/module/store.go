package module

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"golang.org/x/mod/sumdb/dirhash"
	"gopkg.in/yaml.v3"

	"lola/internal/fsutil"
)

// originRelPath is a store-written sidecar inside the module directory
// for modules whose manifest does not declare its own origin. Skill
// content is never rewritten.
const originRelPath = ".lola/origin.yml"

// Store is the on-disk collection of registered modules: one directory
// per module name under dir, holding the manifest and skill bodies
// exactly as fetched. The store copies content, it never rewrites it.
type Store struct {
	dir     string
	staging string
}

func NewStore(modulesDir, stagingDir string) *Store {
	return &Store{dir: modulesDir, staging: stagingDir}
}

// Dir returns the module directory for name without checking existence.
func (s *Store) Dir(name string) string {
	return filepath.Join(s.dir, name)
}

// Get loads a registered module by name.
func (s *Store) Get(name string) (Module, error) {
	dir := s.Dir(name)
	if st, err := os.Stat(dir); err != nil || !st.IsDir() {
		return Module{}, &NotFoundError{Name: name}
	}
	m, err := LoadManifest(dir)
	if err != nil {
		return Module{}, err
	}
	sum, err := dirhash.HashDir(dir, "", dirhash.DefaultHash)
	if err != nil {
		return Module{}, fmt.Errorf("MOD_CHECKSUM: %w", err)
	}
	if m.Source.Kind == "" {
		if origin, ok := s.readOrigin(name); ok {
			m.Source = origin
		}
	}
	return Module{Manifest: m, Dir: dir, Checksum: sum}, nil
}

// SetOrigin records where a module came from without touching the
// fetched manifest or skill bodies.
func (s *Store) SetOrigin(name string, origin Origin) error {
	blob, err := yaml.Marshal(origin)
	if err != nil {
		return fmt.Errorf("MOD_ORIGIN_ENCODE: %w", err)
	}
	return fsutil.AtomicWrite(filepath.Join(s.Dir(name), filepath.FromSlash(originRelPath)), blob, 0o644)
}

func (s *Store) readOrigin(name string) (Origin, bool) {
	blob, err := os.ReadFile(filepath.Join(s.Dir(name), filepath.FromSlash(originRelPath)))
	if err != nil {
		return Origin{}, false
	}
	var origin Origin
	if err := yaml.Unmarshal(blob, &origin); err != nil {
		return Origin{}, false
	}
	return origin, origin.Kind != ""
}

// Put registers the module tree at srcDir under its manifest name. An
// existing module of the same name is fully replaced, never merged;
// replacement is staged copy + rename so a failure leaves the previous
// content intact. srcDir is not consumed.
func (s *Store) Put(srcDir string) (Module, error) {
	m, err := LoadManifest(srcDir)
	if err != nil {
		return Module{}, err
	}
	if err := os.MkdirAll(s.staging, 0o755); err != nil {
		return Module{}, err
	}
	stage := filepath.Join(s.staging, fmt.Sprintf("put-%s-%d", m.Name, time.Now().UnixNano()))
	if err := fsutil.CopyTree(srcDir, stage); err != nil {
		_ = os.RemoveAll(stage)
		return Module{}, fmt.Errorf("MOD_PUT_STAGE: %w", err)
	}
	if err := fsutil.ReplaceTree(stage, s.Dir(m.Name)); err != nil {
		_ = os.RemoveAll(stage)
		return Module{}, fmt.Errorf("MOD_PUT_COMMIT: %w", err)
	}
	return s.Get(m.Name)
}

// Remove deregisters a module. Removing an absent module is an error so
// callers can report typos.
func (s *Store) Remove(name string) error {
	dir := s.Dir(name)
	if _, err := os.Stat(dir); err != nil {
		return &NotFoundError{Name: name}
	}
	return os.RemoveAll(dir)
}

// List returns all registered modules sorted by name. Directories with
// broken manifests are skipped; `lola doctor` reports them.
func (s *Store) List() ([]Module, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	out := make([]Module, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		m, err := s.Get(e.Name())
		if err != nil {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// LoadSkills loads and validates every skill the module declares, in
// manifest order. A single invalid skill fails the whole load.
func (s *Store) LoadSkills(m Module) ([]Skill, error) {
	out := make([]Skill, 0, len(m.Skills))
	for _, name := range m.Skills {
		sk, err := LoadSkill(m.Name, name, filepath.Join(m.Dir, name))
		if err != nil {
			return nil, err
		}
		out = append(out, sk)
	}
	return out, nil
}

// LoadCommands loads the module's command prompts, in manifest order.
func (s *Store) LoadCommands(m Module) ([]Command, error) {
	out := make([]Command, 0, len(m.Commands))
	for _, name := range m.Commands {
		cmd, err := LoadCommand(m.Name, name, filepath.Join(m.Dir, CommandsDirName, name+".md"))
		if err != nil {
			return nil, err
		}
		out = append(out, cmd)
	}
	return out, nil
}
