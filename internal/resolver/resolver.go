package resolver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"lola/internal/logging"
	"lola/internal/market"
	"lola/internal/module"
	"lola/internal/source"
)

// CatalogLookup is the read-only marketplace contract the resolver
// consumes.
type CatalogLookup interface {
	FindModule(name string) ([]market.Candidate, error)
}

// AmbiguousError is returned when a name exists in more than one enabled
// marketplace and no explicit choice was made. The resolver never picks
// silently.
type AmbiguousError struct {
	Name       string
	Candidates []market.Candidate
}

func (e *AmbiguousError) Error() string {
	sources := make([]string, 0, len(e.Candidates))
	for _, c := range e.Candidates {
		sources = append(sources, c.Marketplace)
	}
	return fmt.Sprintf("RES_AMBIGUOUS: module %q is offered by multiple marketplaces (%s); choose one explicitly",
		e.Name, strings.Join(sources, ", "))
}

// Service resolves module names that are absent from the store by
// querying the catalog lookup and materializing the chosen candidate.
type Service struct {
	Store      *module.Store
	Catalog    CatalogLookup
	Fetch      source.Fetcher
	StagingDir string
	Timeout    time.Duration
	// Choose, when set, selects among multiple candidates (interactive
	// prompt). When nil, ambiguity is a terminal error.
	Choose func([]market.Candidate) (market.Candidate, error)
}

// Resolve finds name in the enabled catalogs and materializes it into
// the module store. Zero candidates is a NotFoundError; more than one
// without a chooser is an AmbiguousError.
func (s *Service) Resolve(ctx context.Context, name string) (module.Module, error) {
	candidates, err := s.Catalog.FindModule(name)
	if err != nil {
		return module.Module{}, err
	}
	switch {
	case len(candidates) == 0:
		return module.Module{}, &module.NotFoundError{Name: name}
	case len(candidates) == 1:
		return s.Materialize(ctx, candidates[0])
	}
	if s.Choose == nil {
		return module.Module{}, &AmbiguousError{Name: name, Candidates: candidates}
	}
	chosen, err := s.Choose(candidates)
	if err != nil {
		return module.Module{}, err
	}
	return s.Materialize(ctx, chosen)
}

// Materialize fetches a candidate into staging and puts it into the
// store. The fetch is bounded by the configured timeout; a failed fetch
// leaves the store untouched because Put is copy-then-replace.
func (s *Service) Materialize(ctx context.Context, c market.Candidate) (module.Module, error) {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	fctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := os.MkdirAll(s.StagingDir, 0o755); err != nil {
		return module.Module{}, err
	}
	stage := filepath.Join(s.StagingDir, fmt.Sprintf("resolve-%s-%d", c.Name, time.Now().UnixNano()))
	defer os.RemoveAll(stage)

	logging.L().WithField("module", c.Name).WithField("marketplace", c.Marketplace).Info("materializing module from marketplace")
	if err := s.Fetch.Fetch(fctx, c.Origin, stage); err != nil {
		return module.Module{}, err
	}
	m, err := s.Store.Put(stage)
	if err != nil {
		return module.Module{}, err
	}
	if !strings.EqualFold(m.Name, c.Name) {
		// The fetched tree declared a different identity than the
		// catalog advertised; keep it out of lookups under the wrong
		// name but tell the user what happened.
		return module.Module{}, fmt.Errorf("RES_NAME_MISMATCH: marketplace %q offered %q but the fetched module declares name %q",
			c.Marketplace, c.Name, m.Name)
	}
	return m, nil
}
