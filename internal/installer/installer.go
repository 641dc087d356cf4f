package installer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lola/internal/adapter"
	"lola/internal/audit"
	"lola/internal/config"
	"lola/internal/logging"
	"lola/internal/module"
	"lola/internal/registry"
	"lola/internal/resolver"
	"lola/pkg/adapterapi"
)

// Service orchestrates resolver, module store, format adapters and the
// installation registry as one logical operation per invocation. Each
// invocation walks RESOLVE, LOAD, CONVERT, COMMIT and stops at the first
// failing state.
type Service struct {
	Store    *module.Store
	Registry *registry.Registry
	Resolver *resolver.Service
	Adapters *adapter.Runtime
	Audit    *audit.Logger
	// Home is the user home directory threaded to adapters for
	// user-scope roots.
	Home string
}

type Request struct {
	Module      string
	Assistants  []string
	Scope       config.Scope
	ProjectPath string
}

type Status string

const (
	StatusInstalled Status = "installed"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// AssistantResult reports the outcome for one assistant. Assistants in
// the same invocation succeed or fail independently.
type AssistantResult struct {
	Assistant string
	Status    Status
	Err       error
	Message   string
	Skills    []string
	Commands  []string
	Artifacts []registry.Artifact
	// RegistryWarning is set when artifacts were written successfully
	// but recording them failed. The artifacts are real and correct;
	// only the bookkeeping is missing.
	RegistryWarning string
}

// Install converts and installs a module for each requested assistant.
// Resolution and load failures are terminal with zero side effects;
// conversion failures roll back the failing assistant only.
func (s *Service) Install(ctx context.Context, req Request) ([]AssistantResult, error) {
	if req.Scope == config.ScopeProject && req.ProjectPath == "" {
		return nil, fmt.Errorf("INS_PROJECT_PATH: project path is required for project scope")
	}
	assistants := req.Assistants
	if len(assistants) == 0 {
		assistants = config.AssistantNames()
	}
	for _, name := range assistants {
		if _, ok := config.FindAssistant(name); !ok {
			return nil, fmt.Errorf("INS_ASSISTANT: unknown assistant %q (supported: %v)", name, config.AssistantNames())
		}
	}

	// RESOLVE
	m, err := s.Store.Get(req.Module)
	var notFound *module.NotFoundError
	if errors.As(err, &notFound) && s.Resolver != nil {
		_ = s.Audit.Log(audit.Event{Operation: "install", Module: req.Module, Phase: "resolve", Status: "miss"})
		m, err = s.Resolver.Resolve(ctx, req.Module)
	}
	if err != nil {
		return nil, err
	}

	// LOAD
	skills, err := s.Store.LoadSkills(m)
	if err != nil {
		return nil, err
	}
	commands, err := s.Store.LoadCommands(m)
	if err != nil {
		return nil, err
	}
	if len(skills) == 0 && len(commands) == 0 {
		return nil, fmt.Errorf("INS_EMPTY: module %q declares no skills or commands", m.Name)
	}

	// CONVERT + COMMIT, independently per assistant.
	results := make([]AssistantResult, 0, len(assistants))
	for _, name := range assistants {
		res := s.installAssistant(name, m, skills, commands, req.Scope, req.ProjectPath)
		status := string(res.Status)
		if res.Err != nil {
			status = status + ": " + res.Err.Error()
		}
		_ = s.Audit.Log(audit.Event{Operation: "install", Module: m.Name, Assistant: name, Phase: "commit", Status: status})
		results = append(results, res)
	}
	return results, nil
}

func (s *Service) installAssistant(name string, m module.Module, skills []module.Skill, commands []module.Command, scope config.Scope, projectPath string) AssistantResult {
	desc, _ := config.FindAssistant(name)
	if !desc.SupportsScope(scope) {
		return AssistantResult{
			Assistant: name,
			Status:    StatusSkipped,
			Message:   fmt.Sprintf("%s does not support %s scope", name, scope),
		}
	}
	adp, err := s.Adapters.Get(name)
	if err != nil {
		return AssistantResult{Assistant: name, Status: StatusFailed, Err: err}
	}
	actx := adapterapi.Context{
		Assistant:   name,
		Scope:       string(scope),
		ProjectPath: projectPath,
		Module:      m.Name,
		Home:        s.Home,
	}

	// All-or-nothing per assistant: anything written in this invocation
	// is deleted again if any unit fails.
	var written []adapterapi.Target
	rollback := func(extra []adapterapi.Target) {
		if err := adapter.Revert(append(written, extra...)); err != nil {
			logging.L().WithField("assistant", name).WithError(err).Warn("rollback left artifacts behind")
		}
	}

	result := AssistantResult{Assistant: name}
	for _, sk := range skills {
		res, err := adp.Skill(sk, actx)
		if err != nil {
			rollback(nil)
			return AssistantResult{Assistant: name, Status: StatusFailed, Err: err}
		}
		if err := adapter.Apply(res); err != nil {
			rollback(res.Records)
			return AssistantResult{Assistant: name, Status: StatusFailed, Err: err}
		}
		written = append(written, res.Records...)
		result.Skills = append(result.Skills, sk.Name)
	}
	for _, cmd := range commands {
		res, err := adp.Command(cmd, actx)
		if err != nil {
			rollback(nil)
			return AssistantResult{Assistant: name, Status: StatusFailed, Err: err}
		}
		if err := adapter.Apply(res); err != nil {
			rollback(res.Records)
			return AssistantResult{Assistant: name, Status: StatusFailed, Err: err}
		}
		written = append(written, res.Records...)
		result.Commands = append(result.Commands, cmd.Name)
	}

	result.Artifacts = toArtifacts(written)

	inst := registry.Installation{
		Module:      m.Name,
		Assistant:   name,
		Scope:       string(scope),
		ProjectPath: projectPath,
		Skills:      result.Skills,
		Commands:    result.Commands,
		Artifacts:   result.Artifacts,
		InstalledAt: time.Now().UTC(),
	}

	// A previous installation of the same tuple may have produced
	// artifacts the new skill list no longer covers; remove those so
	// re-install never orphans files.
	s.removeStale(inst)

	result.Status = StatusInstalled
	// Artifacts first, then the record: a crash in between leaves
	// orphaned artifacts repairable by re-running install, never a
	// record pointing at artifacts that were never written.
	if err := s.Registry.Record(inst); err != nil {
		result.RegistryWarning = fmt.Sprintf(
			"artifacts for %s were written and are intact, but recording the installation failed: %v; re-run install to repair the registry",
			name, err)
	}
	return result
}

func (s *Service) removeStale(inst registry.Installation) {
	prev, found, err := s.Registry.Find(inst.Identity())
	if err != nil || !found {
		return
	}
	current := map[registry.Artifact]bool{}
	for _, a := range inst.Artifacts {
		current[a] = true
	}
	var stale []adapterapi.Target
	for _, a := range prev.Artifacts {
		if !current[a] {
			stale = append(stale, adapterapi.Target{Path: a.Path, Kind: a.Kind, Key: a.Key})
		}
	}
	if len(stale) > 0 {
		if err := adapter.Revert(stale); err != nil {
			logging.L().WithField("module", inst.Module).WithError(err).Warn("stale artifact cleanup incomplete")
		}
	}
}

func toArtifacts(targets []adapterapi.Target) []registry.Artifact {
	out := make([]registry.Artifact, 0, len(targets))
	for _, t := range targets {
		out = append(out, registry.Artifact{Path: t.Path, Kind: t.Kind, Key: t.Key})
	}
	return out
}

func toTargets(arts []registry.Artifact) []adapterapi.Target {
	out := make([]adapterapi.Target, 0, len(arts))
	for _, a := range arts {
		out = append(out, adapterapi.Target{Path: a.Path, Kind: a.Kind, Key: a.Key})
	}
	return out
}
