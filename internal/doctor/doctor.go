package doctor

import (
	"fmt"
	"os"

	"lola/internal/config"
	"lola/internal/fsutil"
	"lola/internal/market"
	"lola/internal/module"
	"lola/internal/registry"
)

const (
	LevelError = "error"
	LevelWarn  = "warn"
)

type Finding struct {
	Code    string `json:"code"`
	Level   string `json:"level"`
	Message string `json:"message"`
}

type Report struct {
	Healthy  bool      `json:"healthy"`
	Findings []Finding `json:"findings"`
	Modules  int       `json:"modules"`
	Installs int       `json:"installs"`
}

// Service checks that the persisted state on disk is healthy: config,
// module manifests, the installation registry and marketplace caches.
type Service struct {
	Paths    config.Paths
	Store    *module.Store
	Registry *registry.Registry
	Market   *market.Manager
}

func (s *Service) Run() Report {
	findings := []Finding{}
	report := Report{}

	if _, err := os.Stat(s.Paths.Home); err != nil {
		findings = append(findings, Finding{Code: "DOC_HOME_MISSING", Level: LevelError, Message: err.Error()})
	}

	mods, err := s.Store.List()
	if err != nil {
		findings = append(findings, Finding{Code: "DOC_STORE_UNREADABLE", Level: LevelError, Message: err.Error()})
	}
	report.Modules = len(mods)
	// List skips modules with broken manifests; surface them here.
	if entries, err := os.ReadDir(s.Paths.ModulesDir()); err == nil {
		known := map[string]bool{}
		for _, m := range mods {
			known[m.Name] = true
		}
		for _, e := range entries {
			if e.IsDir() && !known[e.Name()] {
				findings = append(findings, Finding{
					Code:    "DOC_MODULE_INVALID",
					Level:   LevelError,
					Message: fmt.Sprintf("module directory %q has a missing or invalid manifest", e.Name()),
				})
			}
		}
	}

	installs, err := s.Registry.All()
	if err != nil {
		findings = append(findings, Finding{Code: "DOC_REGISTRY_INVALID", Level: LevelError, Message: err.Error()})
	}
	report.Installs = len(installs)
	for _, inst := range installs {
		if inst.Scope == string(config.ScopeProject) {
			if _, err := os.Stat(inst.ProjectPath); err != nil {
				findings = append(findings, Finding{
					Code:    "DOC_INSTALL_STALE",
					Level:   LevelWarn,
					Message: fmt.Sprintf("%s/%s: project path %s no longer exists", inst.Module, inst.Assistant, inst.ProjectPath),
				})
				continue
			}
		}
		findings = append(findings, checkSections(inst)...)
	}

	// FindModule loads every enabled cached catalog, so an unparseable
	// cache surfaces here even though the probe name matches nothing.
	if _, err := s.Market.FindModule(""); err != nil {
		findings = append(findings, Finding{Code: "DOC_MARKET_CACHE_INVALID", Level: LevelError, Message: err.Error()})
	}

	report.Findings = findings
	report.Healthy = true
	for _, f := range findings {
		if f.Level == LevelError {
			report.Healthy = false
			break
		}
	}
	return report
}

// checkSections verifies that recorded managed-section artifacts still
// have intact, terminated markers in their shared files.
func checkSections(inst registry.Installation) []Finding {
	var findings []Finding
	for _, a := range inst.Artifacts {
		if a.Kind != registry.ArtifactSection {
			continue
		}
		data, err := os.ReadFile(a.Path)
		if err != nil {
			if os.IsNotExist(err) {
				findings = append(findings, Finding{
					Code:    "DOC_SECTION_MISSING",
					Level:   LevelWarn,
					Message: fmt.Sprintf("%s/%s: shared file %s was deleted; run 'lola update %s' to restore it", inst.Module, inst.Assistant, a.Path, inst.Module),
				})
			}
			continue
		}
		if !fsutil.IsManagedFile(data) {
			findings = append(findings, Finding{
				Code:    "DOC_SECTION_MISSING",
				Level:   LevelWarn,
				Message: fmt.Sprintf("%s/%s: %s no longer contains managed markers; run 'lola update %s' to restore them", inst.Module, inst.Assistant, a.Path, inst.Module),
			})
			continue
		}
		if _, _, err := fsutil.RemoveSection(data, a.Key); err != nil {
			findings = append(findings, Finding{
				Code:    "DOC_SECTION_UNTERMINATED",
				Level:   LevelError,
				Message: fmt.Sprintf("%s/%s: %v", inst.Module, inst.Assistant, err),
			})
		}
	}
	return findings
}
