package source

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"lola/internal/module"
)

func (m *Manager) fetchZip(ctx context.Context, origin module.Origin, dest string) error {
	local, cleanup, err := m.localCopy(ctx, origin.Locator, "*.zip")
	if err != nil {
		return err
	}
	defer cleanup()

	zr, err := zip.OpenReader(local)
	if err != nil {
		return fmt.Errorf("SRC_ZIP_OPEN: %w", err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		target, err := securePath(dest, f.Name)
		if err != nil {
			return err
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("SRC_ZIP_READ: %s: %w", f.Name, err)
		}
		err = writeEntry(target, rc)
		rc.Close()
		if err != nil {
			return err
		}
	}
	return flattenSingleDir(dest)
}

func (m *Manager) fetchTar(ctx context.Context, origin module.Origin, dest string) error {
	local, cleanup, err := m.localCopy(ctx, origin.Locator, "*.tar")
	if err != nil {
		return err
	}
	defer cleanup()

	f, err := os.Open(local)
	if err != nil {
		return fmt.Errorf("SRC_TAR_OPEN: %w", err)
	}
	defer f.Close()

	var reader io.Reader = f
	if strings.HasSuffix(origin.Locator, ".gz") || strings.HasSuffix(origin.Locator, ".tgz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("SRC_TAR_GZIP: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	tr := tar.NewReader(reader)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("SRC_TAR_READ: %w", err)
		}
		target, err := securePath(dest, hdr.Name)
		if err != nil {
			return err
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeEntry(target, tr); err != nil {
				return err
			}
		}
	}
	return flattenSingleDir(dest)
}

// localCopy ensures the archive is on disk: remote locators are
// downloaded to a temp file under the request context, local ones are
// used in place.
func (m *Manager) localCopy(ctx context.Context, locator, pattern string) (string, func(), error) {
	if !strings.HasPrefix(locator, "http://") && !strings.HasPrefix(locator, "https://") {
		return locator, func() {}, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return "", nil, fmt.Errorf("SRC_DOWNLOAD: %w", err)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("SRC_DOWNLOAD: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("SRC_DOWNLOAD: unexpected status %s for %s", resp.Status, locator)
	}
	tmp, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", nil, err
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", nil, fmt.Errorf("SRC_DOWNLOAD: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", nil, err
	}
	return tmp.Name(), func() { _ = os.Remove(tmp.Name()) }, nil
}

// securePath joins an archive entry name under dest, rejecting entries
// that would escape it.
func securePath(dest, name string) (string, error) {
	target := filepath.Join(dest, filepath.FromSlash(name))
	if target != dest && !strings.HasPrefix(target, dest+string(os.PathSeparator)) {
		return "", fmt.Errorf("SRC_ARCHIVE_PATH: entry %q escapes the extraction root", name)
	}
	return target, nil
}

func writeEntry(target string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	out, err := os.Create(target)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return fmt.Errorf("SRC_ARCHIVE_WRITE: %s: %w", target, err)
	}
	return out.Close()
}

// flattenSingleDir lifts a lone top-level directory (the usual archive
// layout) so the manifest sits at the module root.
func flattenSingleDir(dest string) error {
	entries, err := os.ReadDir(dest)
	if err != nil {
		return err
	}
	if len(entries) != 1 || !entries[0].IsDir() {
		return nil
	}
	inner := filepath.Join(dest, entries[0].Name())
	if _, err := os.Stat(filepath.Join(dest, filepath.FromSlash(module.ManifestRelPath))); err == nil {
		return nil
	}
	children, err := os.ReadDir(inner)
	if err != nil {
		return err
	}
	for _, child := range children {
		if err := os.Rename(filepath.Join(inner, child.Name()), filepath.Join(dest, child.Name())); err != nil {
			return err
		}
	}
	return os.Remove(inner)
}
