package market

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleCatalog = `name: main
modules:
  - name: git-tools
    description: Git workflow skills
    version: 1.2.0
    tags: [git, vcs]
    source:
      kind: git
      locator: https://example.com/git-tools.git
  - name: sql-helpers
    description: Query tuning guidance
    version: 0.3.0
    tags: [sql]
    source:
      kind: zip
      locator: https://example.com/sql-helpers.zip
`

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	base := t.TempDir()
	return NewManager(filepath.Join(base, "market"), filepath.Join(base, "market", "cache"), nil)
}

func addCatalog(t *testing.T, m *Manager, name, catalog string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), name+".yml")
	if err := os.WriteFile(path, []byte(catalog), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Add(name, path); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if _, err := m.Refresh(context.Background(), name); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
}

func TestAddValidation(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.Add("", "x"); err == nil {
		t.Fatal("empty name accepted")
	}
	if _, err := m.Add("bad name", "x"); err == nil {
		t.Fatal("name with space accepted")
	}
	if _, err := m.Add("main", "/tmp/cat.yml"); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if _, err := m.Add("main", "/tmp/other.yml"); err == nil {
		t.Fatal("duplicate name accepted")
	}
}

func TestListSorted(t *testing.T) {
	m := newTestManager(t)
	m.Add("zeta", "/tmp/z.yml")
	m.Add("alpha", "/tmp/a.yml")
	markets, err := m.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(markets) != 2 || markets[0].Name != "alpha" || markets[1].Name != "zeta" {
		t.Fatalf("unexpected list: %+v", markets)
	}
}

func TestFindModule(t *testing.T) {
	m := newTestManager(t)
	addCatalog(t, m, "main", sampleCatalog)

	candidates, err := m.FindModule("git-tools")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("expected one candidate, got %+v", candidates)
	}
	c := candidates[0]
	if c.Marketplace != "main" || c.Origin.Kind != "git" || c.Version != "1.2.0" {
		t.Fatalf("unexpected candidate: %+v", c)
	}

	// Exact matching only; substrings never resolve.
	candidates, err = m.FindModule("git")
	if err != nil {
		t.Fatal(err)
	}
	if len(candidates) != 0 {
		t.Fatalf("substring matched: %+v", candidates)
	}
}

func TestFindModuleAcrossMarketplaces(t *testing.T) {
	m := newTestManager(t)
	addCatalog(t, m, "main", sampleCatalog)
	addCatalog(t, m, "mirror", sampleCatalog)

	candidates, err := m.FindModule("git-tools")
	if err != nil {
		t.Fatal(err)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected two candidates, got %+v", candidates)
	}
}

func TestDisabledMarketplaceIsInvisible(t *testing.T) {
	m := newTestManager(t)
	addCatalog(t, m, "main", sampleCatalog)
	if _, err := m.SetEnabled("main", false); err != nil {
		t.Fatal(err)
	}
	candidates, err := m.FindModule("git-tools")
	if err != nil {
		t.Fatal(err)
	}
	if len(candidates) != 0 {
		t.Fatalf("disabled marketplace still resolves: %+v", candidates)
	}
	if _, err := m.SetEnabled("main", true); err != nil {
		t.Fatal(err)
	}
	candidates, _ = m.FindModule("git-tools")
	if len(candidates) != 1 {
		t.Fatal("re-enabled marketplace not resolving")
	}
}

func TestSearch(t *testing.T) {
	m := newTestManager(t)
	addCatalog(t, m, "main", sampleCatalog)

	results, err := m.Search("GIT")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Name != "git-tools" {
		t.Fatalf("unexpected results: %+v", results)
	}

	// Tag match.
	results, err = m.Search("sql")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Name != "sql-helpers" {
		t.Fatalf("tag search failed: %+v", results)
	}

	results, _ = m.Search("nonexistent")
	if len(results) != 0 {
		t.Fatalf("phantom matches: %+v", results)
	}
}

func TestRefreshRejectsBadCatalog(t *testing.T) {
	m := newTestManager(t)
	addCatalog(t, m, "main", sampleCatalog)

	bad := filepath.Join(t.TempDir(), "bad.yml")
	os.WriteFile(bad, []byte("modules: [not: valid: yaml"), 0o644)
	mk, _ := m.loadRef(m.refPath("main"))
	mk.URL = bad
	if err := m.saveRef(mk); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Refresh(context.Background(), "main"); err == nil {
		t.Fatal("bad catalog accepted")
	}
	// The previously good cache must survive.
	candidates, err := m.FindModule("git-tools")
	if err != nil || len(candidates) != 1 {
		t.Fatalf("good cache lost: %+v err=%v", candidates, err)
	}
}

func TestRemoveDropsCache(t *testing.T) {
	m := newTestManager(t)
	addCatalog(t, m, "main", sampleCatalog)
	if err := m.Remove("main"); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if _, err := os.Stat(m.cachePath("main")); !os.IsNotExist(err) {
		t.Fatal("cache survived removal")
	}
	if err := m.Remove("main"); err == nil || !strings.Contains(err.Error(), "MKT_REMOVE") {
		t.Fatalf("expected MKT_REMOVE on double remove, got %v", err)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 60); got != "short" {
		t.Fatalf("short string changed: %q", got)
	}
	long := strings.Repeat("x", 80)
	got := truncate(long, 60)
	if len([]rune(got)) != 63 || !strings.HasSuffix(got, "...") {
		t.Fatalf("unexpected truncation: %q", got)
	}
}
