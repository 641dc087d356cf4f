package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lola/internal/config"
	"lola/internal/installer"
)

// Full flow: register a marketplace, resolve a module from its catalog
// during install, verify the artifacts, then uninstall and check the
// registry drained.
func TestMarketplaceInstallUninstallFlow(t *testing.T) {
	svc := newTestService(t)
	project := t.TempDir()

	moduleDir := writeModuleFixture(t, "git-tools", "commit-helper")
	catalog := filepath.Join(t.TempDir(), "catalog.yml")
	os.WriteFile(catalog, []byte(fmt.Sprintf(
		"name: main\nmodules:\n  - name: git-tools\n    description: Git skills\n    version: 1.0.0\n    source:\n      kind: folder\n      locator: %s\n", moduleDir)), 0o644)

	if _, err := svc.Market.Add("main", catalog); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Market.Refresh(context.Background(), "main"); err != nil {
		t.Fatal(err)
	}

	// The module is not in the store; install must resolve it.
	results, err := svc.Installer.Install(context.Background(), installer.Request{
		Module:      "git-tools",
		Scope:       config.ScopeProject,
		ProjectPath: project,
	})
	if err != nil {
		t.Fatalf("install failed: %v", err)
	}
	for _, res := range results {
		if res.Status == installer.StatusFailed {
			t.Fatalf("%s failed: %v", res.Assistant, res.Err)
		}
	}
	if _, err := svc.Store.Get("git-tools"); err != nil {
		t.Fatalf("resolve did not register the module: %v", err)
	}
	if _, err := os.Stat(filepath.Join(project, ".cursor", "rules", "git-tools.commit-helper.mdc")); err != nil {
		t.Fatalf("cursor artifact missing: %v", err)
	}
	blob, err := os.ReadFile(filepath.Join(project, "GEMINI.md"))
	if err != nil {
		t.Fatalf("gemini shared file missing: %v", err)
	}
	if !strings.Contains(string(blob), "lola:BEGIN git-tools.commit-helper") {
		t.Fatalf("managed section missing:\n%s", blob)
	}

	removals, err := svc.Installer.Uninstall(context.Background(), installer.UninstallRequest{Module: "git-tools"})
	if err != nil {
		t.Fatal(err)
	}
	for _, rm := range removals {
		if rm.Err != nil {
			t.Fatalf("%s removal failed: %v", rm.Assistant, rm.Err)
		}
	}
	all, err := svc.Registry.All()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 0 {
		t.Fatalf("registry not drained: %+v", all)
	}

	// The audit log recorded the whole journey.
	if _, err := os.Stat(svc.Paths.AuditPath()); err != nil {
		t.Fatalf("audit log missing: %v", err)
	}
}

func TestDoctorOnHealthyAndBrokenHome(t *testing.T) {
	svc := newTestService(t)

	report := svc.Doctor.Run()
	if !report.Healthy {
		t.Fatalf("fresh home reported unhealthy: %+v", report.Findings)
	}

	// A module directory without a manifest is a finding.
	os.MkdirAll(filepath.Join(svc.Paths.ModulesDir(), "broken"), 0o755)
	report = svc.Doctor.Run()
	if report.Healthy {
		t.Fatal("broken module not detected")
	}
	found := false
	for _, f := range report.Findings {
		if f.Code == "DOC_MODULE_INVALID" {
			found = true
		}
	}
	if !found {
		t.Fatalf("DOC_MODULE_INVALID missing: %+v", report.Findings)
	}
}

func TestDoctorFlagsStaleProjectInstall(t *testing.T) {
	svc := newTestService(t)
	project := t.TempDir()
	src := writeModuleFixture(t, "git-tools", "commit-helper")
	if _, err := svc.ModAdd(context.Background(), src, "", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Installer.Install(context.Background(), installer.Request{
		Module: "git-tools", Assistants: []string{"claude-code"},
		Scope: config.ScopeProject, ProjectPath: project,
	}); err != nil {
		t.Fatal(err)
	}

	os.RemoveAll(project)
	report := svc.Doctor.Run()
	found := false
	for _, f := range report.Findings {
		if f.Code == "DOC_INSTALL_STALE" {
			found = true
		}
	}
	if !found {
		t.Fatalf("stale install not flagged: %+v", report.Findings)
	}
	// Stale installs are warnings, not errors.
	if !report.Healthy {
		t.Fatalf("warning degraded health: %+v", report.Findings)
	}
}
