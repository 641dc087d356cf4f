package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"lola/internal/audit"
	"lola/internal/module"
)

// ModAdd fetches a module tree from locator and registers it in the
// store. Kind is inferred from the locator when empty.
func (s *Service) ModAdd(ctx context.Context, locator, kind, ref string) (module.Module, error) {
	if kind == "" {
		kind = InferSourceKind(locator)
	}
	origin := module.Origin{Kind: kind, Locator: locator, Ref: ref}

	fctx, cancel := context.WithTimeout(ctx, s.Config.Fetch.TimeoutDuration())
	defer cancel()

	stage := filepath.Join(s.Paths.StagingDir(), fmt.Sprintf("add-%d", time.Now().UnixNano()))
	defer os.RemoveAll(stage)
	if err := s.Sources.Fetch(fctx, origin, stage); err != nil {
		return module.Module{}, err
	}
	m, err := s.Store.Put(stage)
	if err != nil {
		return module.Module{}, err
	}
	if m.Source.Kind == "" {
		// Manifest did not declare its origin; remember it so updates
		// can re-fetch.
		if err := s.Store.SetOrigin(m.Name, origin); err != nil {
			return module.Module{}, err
		}
		m.Source = origin
	}
	_ = s.Audit.Log(audit.Event{Operation: "mod-add", Module: m.Name, Phase: "commit", Status: "ok", Message: locator})
	return m, nil
}

// ModRemove deregisters a module. Live installations block removal
// unless forced; forced removal keeps installed artifacts working,
// because installations are snapshots, not references.
func (s *Service) ModRemove(name string, force bool) error {
	installations, err := s.Registry.ForModule(name)
	if err != nil {
		return err
	}
	if len(installations) > 0 && !force {
		targets := make([]string, 0, len(installations))
		for _, inst := range installations {
			targets = append(targets, inst.Assistant+"/"+inst.Scope)
		}
		return fmt.Errorf("MOD_IN_USE: module %q is installed for %s; uninstall first or use --force",
			name, strings.Join(targets, ", "))
	}
	if err := s.Store.Remove(name); err != nil {
		return err
	}
	_ = s.Audit.Log(audit.Event{Operation: "mod-remove", Module: name, Phase: "commit", Status: "ok"})
	return nil
}

// ModRefresh re-fetches a module from its recorded origin, fully
// replacing the stored content. Existing installations are untouched
// until `lola update` regenerates them.
func (s *Service) ModRefresh(ctx context.Context, name string) (module.Module, error) {
	m, err := s.Store.Get(name)
	if err != nil {
		return module.Module{}, err
	}
	if m.Source.Kind == "" {
		return module.Module{}, fmt.Errorf("MOD_NO_ORIGIN: module %q has no recorded origin to re-fetch from", name)
	}
	fctx, cancel := context.WithTimeout(ctx, s.Config.Fetch.TimeoutDuration())
	defer cancel()

	stage := filepath.Join(s.Paths.StagingDir(), fmt.Sprintf("refresh-%s-%d", name, time.Now().UnixNano()))
	defer os.RemoveAll(stage)
	if err := s.Sources.Fetch(fctx, m.Source, stage); err != nil {
		return module.Module{}, err
	}
	updated, err := s.Store.Put(stage)
	if err != nil {
		return module.Module{}, err
	}
	if updated.Name != name {
		return module.Module{}, fmt.Errorf("MOD_NAME_CHANGED: origin now declares name %q instead of %q", updated.Name, name)
	}
	if updated.Source.Kind == "" {
		if err := s.Store.SetOrigin(name, m.Source); err != nil {
			return module.Module{}, err
		}
		updated.Source = m.Source
	}
	_ = s.Audit.Log(audit.Event{Operation: "mod-refresh", Module: name, Phase: "commit", Status: "ok"})
	return updated, nil
}

// InferSourceKind guesses the source kind from a locator's shape.
func InferSourceKind(locator string) string {
	switch {
	case strings.HasSuffix(locator, ".zip"):
		return "zip"
	case strings.HasSuffix(locator, ".tar"), strings.HasSuffix(locator, ".tar.gz"), strings.HasSuffix(locator, ".tgz"):
		return "tar"
	case strings.HasSuffix(locator, ".git"), strings.HasPrefix(locator, "git@"):
		return "git"
	case strings.HasPrefix(locator, "http://"), strings.HasPrefix(locator, "https://"):
		return "git"
	default:
		return "folder"
	}
}
