package market

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"lola/internal/fsutil"
	"lola/internal/logging"
)

// Manager owns the marketplace reference files and their cached
// catalogs, and serves the read-only Catalog Lookup contract the
// resolver depends on.
type Manager struct {
	dir      string
	cacheDir string
	client   *http.Client
}

func NewManager(dir, cacheDir string, client *http.Client) *Manager {
	if client == nil {
		client = http.DefaultClient
	}
	return &Manager{dir: dir, cacheDir: cacheDir, client: client}
}

func (m *Manager) refPath(name string) string {
	return filepath.Join(m.dir, name+".yml")
}

func (m *Manager) cachePath(name string) string {
	return filepath.Join(m.cacheDir, name+".yml")
}

// Add registers a marketplace, enabled by default. The catalog is not
// fetched until Refresh.
func (m *Manager) Add(name, url string) (Marketplace, error) {
	if name == "" || url == "" {
		return Marketplace{}, fmt.Errorf("MKT_ADD: name and url are required")
	}
	if strings.ContainsAny(name, "/\\ ") {
		return Marketplace{}, fmt.Errorf("MKT_ADD: invalid marketplace name %q", name)
	}
	if _, err := os.Stat(m.refPath(name)); err == nil {
		return Marketplace{}, fmt.Errorf("MKT_ADD: marketplace %q already exists", name)
	}
	mk := Marketplace{Name: name, URL: url, Enabled: true}
	if err := m.saveRef(mk); err != nil {
		return Marketplace{}, err
	}
	return mk, nil
}

// Remove deletes a marketplace reference and its cache.
func (m *Manager) Remove(name string) error {
	if _, err := os.Stat(m.refPath(name)); err != nil {
		return fmt.Errorf("MKT_REMOVE: marketplace %q not found", name)
	}
	if err := os.Remove(m.refPath(name)); err != nil {
		return err
	}
	_ = os.Remove(m.cachePath(name))
	return nil
}

// SetEnabled toggles a marketplace without touching its cache.
func (m *Manager) SetEnabled(name string, enabled bool) (Marketplace, error) {
	mk, err := m.loadRef(m.refPath(name))
	if err != nil {
		return Marketplace{}, fmt.Errorf("MKT_ENABLE: marketplace %q not found", name)
	}
	mk.Enabled = enabled
	if err := m.saveRef(mk); err != nil {
		return Marketplace{}, err
	}
	return mk, nil
}

// List returns all registered marketplaces sorted by name.
func (m *Manager) List() ([]Marketplace, error) {
	refs, err := filepath.Glob(filepath.Join(m.dir, "*.yml"))
	if err != nil {
		return nil, err
	}
	out := make([]Marketplace, 0, len(refs))
	for _, ref := range refs {
		mk, err := m.loadRef(ref)
		if err != nil {
			logging.L().WithField("ref", ref).WithError(err).Warn("skipping unreadable marketplace reference")
			continue
		}
		out = append(out, mk)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Refresh fetches catalogs into the cache. With an empty name every
// enabled marketplace is refreshed. A catalog that fails to parse never
// replaces a previously good cache.
func (m *Manager) Refresh(ctx context.Context, name string) ([]Marketplace, error) {
	var targets []Marketplace
	if name == "" {
		all, err := m.List()
		if err != nil {
			return nil, err
		}
		for _, mk := range all {
			if mk.Enabled {
				targets = append(targets, mk)
			}
		}
	} else {
		mk, err := m.loadRef(m.refPath(name))
		if err != nil {
			return nil, fmt.Errorf("MKT_REFRESH: marketplace %q not found", name)
		}
		targets = append(targets, mk)
	}
	for _, mk := range targets {
		blob, err := m.fetchCatalog(ctx, mk)
		if err != nil {
			return nil, err
		}
		var cat Catalog
		if err := yaml.Unmarshal(blob, &cat); err != nil {
			return nil, fmt.Errorf("MKT_CATALOG_PARSE: %s: %w", mk.Name, err)
		}
		if err := fsutil.AtomicWrite(m.cachePath(mk.Name), blob, 0o644); err != nil {
			return nil, err
		}
		logging.L().WithField("marketplace", mk.Name).WithField("modules", len(cat.Modules)).Debug("catalog refreshed")
	}
	return targets, nil
}

func (m *Manager) fetchCatalog(ctx context.Context, mk Marketplace) ([]byte, error) {
	if strings.HasPrefix(mk.URL, "http://") || strings.HasPrefix(mk.URL, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, mk.URL, nil)
		if err != nil {
			return nil, fmt.Errorf("MKT_FETCH: %s: %w", mk.Name, err)
		}
		resp, err := m.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("MKT_FETCH: %s: %w", mk.Name, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("MKT_FETCH: %s: unexpected status %s", mk.Name, resp.Status)
		}
		return io.ReadAll(resp.Body)
	}
	blob, err := os.ReadFile(mk.URL)
	if err != nil {
		return nil, fmt.Errorf("MKT_FETCH: %s: %w", mk.Name, err)
	}
	return blob, nil
}

// enabledCatalogs loads the cached catalog of every enabled marketplace
// that has one. Marketplaces without a cache are silently skipped; a
// cache that no longer parses is an error, not a silent miss.
func (m *Manager) enabledCatalogs() ([]Marketplace, []Catalog, error) {
	all, err := m.List()
	if err != nil {
		return nil, nil, err
	}
	var names []Marketplace
	var catalogs []Catalog
	for _, mk := range all {
		if !mk.Enabled {
			continue
		}
		blob, err := os.ReadFile(m.cachePath(mk.Name))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, nil, err
		}
		var cat Catalog
		if err := yaml.Unmarshal(blob, &cat); err != nil {
			return nil, nil, fmt.Errorf("MKT_CACHE_PARSE: %s: %w", mk.Name, err)
		}
		names = append(names, mk)
		catalogs = append(catalogs, cat)
	}
	return names, catalogs, nil
}

// FindModule is the Catalog Lookup contract: every entry matching name
// exactly, from enabled catalogs only, in marketplace order.
func (m *Manager) FindModule(name string) ([]Candidate, error) {
	marketplaces, catalogs, err := m.enabledCatalogs()
	if err != nil {
		return nil, err
	}
	var out []Candidate
	for i, cat := range catalogs {
		for _, entry := range cat.Modules {
			if !strings.EqualFold(entry.Name, name) {
				continue
			}
			out = append(out, Candidate{
				Name:        entry.Name,
				Version:     entry.Version,
				Description: entry.Description,
				Marketplace: marketplaces[i].Name,
				Origin:      entry.Source,
			})
		}
	}
	return out, nil
}

// Search matches query as a case-insensitive substring of module name,
// description, or tags across all enabled catalogs.
func (m *Manager) Search(query string) ([]SearchResult, error) {
	marketplaces, catalogs, err := m.enabledCatalogs()
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(query)
	var out []SearchResult
	for i, cat := range catalogs {
		for _, entry := range cat.Modules {
			if !matchEntry(entry, q) {
				continue
			}
			out = append(out, SearchResult{
				Name:        entry.Name,
				Version:     entry.Version,
				Marketplace: marketplaces[i].Name,
				Description: truncate(entry.Description, 60),
			})
		}
	}
	return out, nil
}

func matchEntry(entry CatalogEntry, q string) bool {
	if strings.Contains(strings.ToLower(entry.Name), q) {
		return true
	}
	if strings.Contains(strings.ToLower(entry.Description), q) {
		return true
	}
	for _, tag := range entry.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

func (m *Manager) loadRef(path string) (Marketplace, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return Marketplace{}, err
	}
	var mk Marketplace
	if err := yaml.Unmarshal(blob, &mk); err != nil {
		return Marketplace{}, fmt.Errorf("MKT_REF_PARSE: %s: %w", path, err)
	}
	if mk.Name == "" {
		mk.Name = strings.TrimSuffix(filepath.Base(path), ".yml")
	}
	return mk, nil
}

func (m *Manager) saveRef(mk Marketplace) error {
	blob, err := yaml.Marshal(mk)
	if err != nil {
		return fmt.Errorf("MKT_REF_ENCODE: %w", err)
	}
	return fsutil.AtomicWrite(m.refPath(mk.Name), blob, 0o644)
}
