package installer

import (
	"context"
	"fmt"
	"os"

	"lola/internal/audit"
	"lola/internal/config"
	"lola/internal/registry"
)

// UpdateRequest filters which installations to regenerate. Empty fields
// match everything.
type UpdateRequest struct {
	Module    string
	Assistant string
}

// UpdateResult reports one regenerated installation.
type UpdateResult struct {
	Module      string
	Assistant   string
	Scope       string
	ProjectPath string
	Status      Status
	Err         error
	Message     string
}

// Update regenerates artifacts for existing installations from the
// current store content. Each installation is converted with the same
// all-or-nothing discipline as install; the registry record's artifact
// list is replaced on success. Installations whose project path vanished
// are reported as stale, never silently dropped.
func (s *Service) Update(_ context.Context, req UpdateRequest) ([]UpdateResult, error) {
	installations, err := s.Registry.All()
	if err != nil {
		return nil, err
	}
	var results []UpdateResult
	for _, inst := range installations {
		if req.Module != "" && inst.Module != req.Module {
			continue
		}
		if req.Assistant != "" && inst.Assistant != req.Assistant {
			continue
		}
		results = append(results, s.updateOne(inst))
	}
	return results, nil
}

func (s *Service) updateOne(inst registry.Installation) UpdateResult {
	out := UpdateResult{
		Module:      inst.Module,
		Assistant:   inst.Assistant,
		Scope:       inst.Scope,
		ProjectPath: inst.ProjectPath,
	}
	if inst.Scope == string(config.ScopeProject) {
		if _, err := os.Stat(inst.ProjectPath); err != nil {
			out.Status = StatusSkipped
			out.Message = fmt.Sprintf("project path no longer exists: %s; run 'lola uninstall %s' to drop the stale record", inst.ProjectPath, inst.Module)
			return out
		}
	}
	m, err := s.Store.Get(inst.Module)
	if err != nil {
		out.Status = StatusFailed
		out.Err = err
		return out
	}
	skills, err := s.Store.LoadSkills(m)
	if err != nil {
		out.Status = StatusFailed
		out.Err = err
		return out
	}
	commands, err := s.Store.LoadCommands(m)
	if err != nil {
		out.Status = StatusFailed
		out.Err = err
		return out
	}
	res := s.installAssistant(inst.Assistant, m, skills, commands, config.Scope(inst.Scope), inst.ProjectPath)
	out.Status = res.Status
	out.Err = res.Err
	if out.Message == "" {
		out.Message = res.Message
	}
	if res.RegistryWarning != "" {
		out.Message = res.RegistryWarning
	}
	_ = s.Audit.Log(audit.Event{Operation: "update", Module: inst.Module, Assistant: inst.Assistant, Phase: "commit", Status: string(out.Status)})
	return out
}
