package installer

import (
	"context"

	"lola/internal/adapter"
	"lola/internal/audit"
	"lola/internal/config"
	"lola/internal/registry"
)

// UninstallRequest selects installations of one module. Empty filter
// fields match everything.
type UninstallRequest struct {
	Module      string
	Assistant   string
	Scope       config.Scope
	ProjectPath string

	// Force drops the registry record even when artifact removal fails.
	Force bool
}

// Removal reports one uninstalled installation.
type Removal struct {
	Assistant   string
	Scope       string
	ProjectPath string
	Artifacts   []registry.Artifact
	Err         error
}

// Uninstall is install in reverse: consult the registry for exactly the
// artifact paths each installation produced, delete those and nothing
// else, then drop the record. Artifacts already missing are not errors;
// the record is removed regardless.
func (s *Service) Uninstall(_ context.Context, req UninstallRequest) ([]Removal, error) {
	installations, err := s.Registry.ForModule(req.Module)
	if err != nil {
		return nil, err
	}
	var matched []registry.Installation
	for _, inst := range installations {
		if req.Assistant != "" && inst.Assistant != req.Assistant {
			continue
		}
		if req.Scope != "" && inst.Scope != string(req.Scope) {
			continue
		}
		if req.ProjectPath != "" && inst.ProjectPath != req.ProjectPath {
			continue
		}
		matched = append(matched, inst)
	}

	removals := make([]Removal, 0, len(matched))
	for _, inst := range matched {
		rm := Removal{
			Assistant:   inst.Assistant,
			Scope:       inst.Scope,
			ProjectPath: inst.ProjectPath,
			Artifacts:   inst.Artifacts,
		}
		if err := adapter.Revert(toTargets(inst.Artifacts)); err != nil {
			rm.Err = err
			_ = s.Audit.Log(audit.Event{Operation: "uninstall", Module: inst.Module, Assistant: inst.Assistant, Phase: "artifacts", Status: "failed: " + err.Error()})
			if !req.Force {
				// A genuine delete failure keeps the record so a
				// retry still knows what to remove.
				removals = append(removals, rm)
				continue
			}
		}
		if _, _, err := s.Registry.Remove(inst.Identity()); err != nil {
			rm.Err = err
		}
		_ = s.Audit.Log(audit.Event{Operation: "uninstall", Module: inst.Module, Assistant: inst.Assistant, Phase: "commit", Status: "ok"})
		removals = append(removals, rm)
	}
	return removals, nil
}
