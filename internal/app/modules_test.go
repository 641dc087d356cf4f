package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lola/internal/config"
	"lola/internal/module"
	"lola/internal/registry"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	base := t.TempDir()
	svc, err := New(Options{
		Home:       filepath.Join(base, "home"),
		ConfigPath: filepath.Join(base, "home", "config.toml"),
	})
	if err != nil {
		t.Fatalf("service init failed: %v", err)
	}
	return svc
}

func writeModuleFixture(t *testing.T, name string, skills ...string) string {
	t.Helper()
	dir := t.TempDir()
	manifest := "name: " + name + "\nversion: 1.0.0\nskills:\n"
	for _, s := range skills {
		manifest += "  - " + s + "\n"
		skillDir := filepath.Join(dir, s)
		os.MkdirAll(skillDir, 0o755)
		os.WriteFile(filepath.Join(skillDir, module.SkillFileName),
			[]byte("---\ndescription: "+s+" skill\n---\n# "+s+"\n"), 0o644)
	}
	os.MkdirAll(filepath.Join(dir, ".lola"), 0o755)
	os.WriteFile(filepath.Join(dir, filepath.FromSlash(module.ManifestRelPath)), []byte(manifest), 0o644)
	return dir
}

func TestModAddFromFolder(t *testing.T) {
	svc := newTestService(t)
	src := writeModuleFixture(t, "git-tools", "commit-helper")

	m, err := svc.ModAdd(context.Background(), src, "", "")
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if m.Name != "git-tools" {
		t.Fatalf("unexpected module: %+v", m)
	}
	// Kind was inferred as folder and recorded as the origin.
	if m.Source.Kind != "folder" || m.Source.Locator != src {
		t.Fatalf("origin not recorded: %+v", m.Source)
	}
	if _, err := svc.Store.Get("git-tools"); err != nil {
		t.Fatalf("module not in store: %v", err)
	}
}

func TestModAddKeepsDeclaredOrigin(t *testing.T) {
	svc := newTestService(t)
	src := writeModuleFixture(t, "git-tools", "commit-helper")
	manifest := "name: git-tools\nversion: 1.0.0\nskills: [commit-helper]\nsource:\n  kind: git\n  locator: https://example.com/git-tools.git\n"
	os.WriteFile(filepath.Join(src, filepath.FromSlash(module.ManifestRelPath)), []byte(manifest), 0o644)

	m, err := svc.ModAdd(context.Background(), src, "folder", "")
	if err != nil {
		t.Fatal(err)
	}
	if m.Source.Kind != "git" {
		t.Fatalf("declared origin overridden: %+v", m.Source)
	}
}

func TestModRemoveBlockedByInstallations(t *testing.T) {
	svc := newTestService(t)
	src := writeModuleFixture(t, "git-tools", "commit-helper")
	if _, err := svc.ModAdd(context.Background(), src, "", ""); err != nil {
		t.Fatal(err)
	}
	if err := svc.Registry.Record(registry.Installation{
		Module: "git-tools", Assistant: "claude-code", Scope: "user",
	}); err != nil {
		t.Fatal(err)
	}

	err := svc.ModRemove("git-tools", false)
	if err == nil || !strings.Contains(err.Error(), "MOD_IN_USE") {
		t.Fatalf("expected MOD_IN_USE, got %v", err)
	}
	if !strings.Contains(err.Error(), "claude-code/user") {
		t.Fatalf("installations not named: %v", err)
	}

	if err := svc.ModRemove("git-tools", true); err != nil {
		t.Fatalf("forced remove failed: %v", err)
	}
	if _, err := svc.Store.Get("git-tools"); err == nil {
		t.Fatal("module survived forced removal")
	} else if !strings.Contains(err.Error(), "MOD_NOT_FOUND") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestModRefresh(t *testing.T) {
	svc := newTestService(t)
	src := writeModuleFixture(t, "git-tools", "commit-helper")
	if _, err := svc.ModAdd(context.Background(), src, "", ""); err != nil {
		t.Fatal(err)
	}

	// The origin folder gains a skill; refresh picks it up.
	skillDir := filepath.Join(src, "rebase-guide")
	os.MkdirAll(skillDir, 0o755)
	os.WriteFile(filepath.Join(skillDir, module.SkillFileName), []byte("---\ndescription: d\n---\nbody\n"), 0o644)
	manifest := "name: git-tools\nversion: 1.1.0\nskills: [commit-helper, rebase-guide]\n"
	os.WriteFile(filepath.Join(src, filepath.FromSlash(module.ManifestRelPath)), []byte(manifest), 0o644)

	m, err := svc.ModRefresh(context.Background(), "git-tools")
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if m.Version != "1.1.0" || len(m.Skills) != 2 {
		t.Fatalf("refresh did not replace content: %+v", m)
	}
	// The origin sidecar survives the replacement.
	if m.Source.Kind != "folder" {
		t.Fatalf("origin lost on refresh: %+v", m.Source)
	}
}

func TestModRefreshWithoutOrigin(t *testing.T) {
	svc := newTestService(t)
	src := writeModuleFixture(t, "git-tools", "commit-helper")
	if _, err := svc.Store.Put(src); err != nil {
		t.Fatal(err)
	}
	_, err := svc.ModRefresh(context.Background(), "git-tools")
	if err == nil || !strings.Contains(err.Error(), "MOD_NO_ORIGIN") {
		t.Fatalf("expected MOD_NO_ORIGIN, got %v", err)
	}
}

func TestModRefreshNameChanged(t *testing.T) {
	svc := newTestService(t)
	src := writeModuleFixture(t, "git-tools", "commit-helper")
	if _, err := svc.ModAdd(context.Background(), src, "", ""); err != nil {
		t.Fatal(err)
	}
	manifest := "name: renamed-tools\nversion: 2.0.0\nskills: [commit-helper]\n"
	os.WriteFile(filepath.Join(src, filepath.FromSlash(module.ManifestRelPath)), []byte(manifest), 0o644)

	_, err := svc.ModRefresh(context.Background(), "git-tools")
	if err == nil || !strings.Contains(err.Error(), "MOD_NAME_CHANGED") {
		t.Fatalf("expected MOD_NAME_CHANGED, got %v", err)
	}
}

func TestInferSourceKind(t *testing.T) {
	cases := map[string]string{
		"https://example.com/m.zip":    "zip",
		"/local/m.tar.gz":              "tar",
		"/local/m.tgz":                 "tar",
		"/local/m.tar":                 "tar",
		"https://example.com/repo.git": "git",
		"git@github.com:o/repo.git":    "git",
		"https://example.com/repo":     "git",
		"/local/folder":                "folder",
		"relative/folder":              "folder",
	}
	for locator, want := range cases {
		if got := InferSourceKind(locator); got != want {
			t.Errorf("InferSourceKind(%q) = %q, want %q", locator, got, want)
		}
	}
}

func TestServiceWritesConfigAndLayout(t *testing.T) {
	base := t.TempDir()
	home := filepath.Join(base, "home")
	svc, err := New(Options{Home: home, ConfigPath: filepath.Join(home, "config.toml")})
	if err != nil {
		t.Fatal(err)
	}
	if svc.Config.Version != config.ConfigVersion {
		t.Fatalf("unexpected config: %+v", svc.Config)
	}
	for _, dir := range []string{svc.Paths.ModulesDir(), svc.Paths.MarketCacheDir(), svc.Paths.StagingDir()} {
		if st, err := os.Stat(dir); err != nil || !st.IsDir() {
			t.Fatalf("layout missing %s: %v", dir, err)
		}
	}
}
