package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"strings"

	"lola/internal/fsutil"
	"lola/internal/logging"
	"lola/internal/module"
)

// Fetcher materializes raw module trees from an origin into dest.
type Fetcher interface {
	Fetch(ctx context.Context, origin module.Origin, dest string) error
}

// Kinds of supported origins.
const (
	KindGit    = "git"
	KindZip    = "zip"
	KindTar    = "tar"
	KindFolder = "folder"
)

type gitExecFunc func(ctx context.Context, dir string, args ...string) ([]byte, error)

// Manager dispatches fetches by origin kind. Every fetch is bounded by
// the caller's context; a deadline surfaces as a fetch error wrapping
// context.DeadlineExceeded and is never retried here.
type Manager struct {
	client  *http.Client
	execGit gitExecFunc
}

func NewManager(client *http.Client) *Manager {
	if client == nil {
		client = http.DefaultClient
	}
	return &Manager{client: client, execGit: defaultGitExec}
}

func defaultGitExec(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("git %s: %w\n%s", strings.Join(args, " "), err, string(out))
	}
	return out, nil
}

func (m *Manager) Fetch(ctx context.Context, origin module.Origin, dest string) error {
	if origin.Locator == "" {
		return fmt.Errorf("SRC_FETCH: origin has no locator")
	}
	logging.L().WithField("kind", origin.Kind).WithField("locator", origin.Locator).Debug("fetching module source")
	var err error
	switch origin.Kind {
	case KindGit:
		err = m.fetchGit(ctx, origin, dest)
	case KindZip:
		err = m.fetchZip(ctx, origin, dest)
	case KindTar:
		err = m.fetchTar(ctx, origin, dest)
	case KindFolder:
		err = m.fetchFolder(origin, dest)
	default:
		return fmt.Errorf("SRC_FETCH: unsupported source kind %q", origin.Kind)
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("SRC_TIMEOUT: fetching %s: %w", origin.Locator, err)
		}
		return err
	}
	return nil
}

// IsTimeout reports whether err was caused by the fetch deadline.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

func (m *Manager) fetchGit(ctx context.Context, origin module.Origin, dest string) error {
	args := []string{"clone", "--depth", "1", "--single-branch"}
	if origin.Ref != "" {
		args = append(args, "--branch", origin.Ref)
	}
	args = append(args, origin.Locator, dest)
	if _, err := m.execGit(ctx, "", args...); err != nil {
		// A clone killed at the deadline reports "signal: killed", not
		// the context error; restore the cause so timeout
		// classification sees it.
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w (%v)", ctxErr, err)
		}
		return fmt.Errorf("SRC_GIT_CLONE: %w", err)
	}
	// The clone metadata has no business in the module store.
	return os.RemoveAll(dest + "/.git")
}

func (m *Manager) fetchFolder(origin module.Origin, dest string) error {
	st, err := os.Stat(origin.Locator)
	if err != nil || !st.IsDir() {
		return fmt.Errorf("SRC_FOLDER: %q is not a directory", origin.Locator)
	}
	if err := fsutil.CopyTree(origin.Locator, dest); err != nil {
		return fmt.Errorf("SRC_FOLDER: %w", err)
	}
	return nil
}
