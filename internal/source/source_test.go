package source

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lola/internal/module"
)

func TestFetchRequiresLocator(t *testing.T) {
	m := NewManager(nil)
	err := m.Fetch(context.Background(), module.Origin{Kind: KindFolder}, t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "SRC_FETCH") {
		t.Fatalf("expected SRC_FETCH error, got %v", err)
	}
}

func TestFetchUnknownKind(t *testing.T) {
	m := NewManager(nil)
	err := m.Fetch(context.Background(), module.Origin{Kind: "ftp", Locator: "x"}, t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "unsupported source kind") {
		t.Fatalf("expected unsupported-kind error, got %v", err)
	}
}

func TestFetchFolder(t *testing.T) {
	src := t.TempDir()
	os.MkdirAll(filepath.Join(src, ".lola"), 0o755)
	os.WriteFile(filepath.Join(src, ".lola", "module.yml"), []byte("name: m\nversion: '1'\n"), 0o644)

	dest := filepath.Join(t.TempDir(), "out")
	m := NewManager(nil)
	if err := m.Fetch(context.Background(), module.Origin{Kind: KindFolder, Locator: src}, dest); err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dest, ".lola", "module.yml")); err != nil {
		t.Fatalf("manifest not copied: %v", err)
	}
	// The source tree is copied, not moved.
	if _, err := os.Stat(filepath.Join(src, ".lola", "module.yml")); err != nil {
		t.Fatalf("source consumed: %v", err)
	}
}

func TestFetchFolderRejectsNonDirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file.txt")
	os.WriteFile(file, []byte("x"), 0o644)
	m := NewManager(nil)
	err := m.Fetch(context.Background(), module.Origin{Kind: KindFolder, Locator: file}, t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "SRC_FOLDER") {
		t.Fatalf("expected SRC_FOLDER error, got %v", err)
	}
}

func makeZip(t *testing.T, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "module.zip")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	for name, body := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		fmt.Fprint(w, body)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFetchZip(t *testing.T) {
	archive := makeZip(t, map[string]string{
		".lola/module.yml": "name: m\nversion: '1'\n",
		"skill/SKILL.md":   "---\ndescription: d\n---\nbody\n",
		"skill/extra.txt":  "aux\n",
	})
	dest := filepath.Join(t.TempDir(), "out")
	m := NewManager(nil)
	if err := m.Fetch(context.Background(), module.Origin{Kind: KindZip, Locator: archive}, dest); err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	for _, rel := range []string{".lola/module.yml", "skill/SKILL.md", "skill/extra.txt"} {
		if _, err := os.Stat(filepath.Join(dest, filepath.FromSlash(rel))); err != nil {
			t.Fatalf("missing %s: %v", rel, err)
		}
	}
}

func TestFetchZipFlattensSingleTopDir(t *testing.T) {
	archive := makeZip(t, map[string]string{
		"m-1.0.0/.lola/module.yml": "name: m\nversion: '1'\n",
		"m-1.0.0/skill/SKILL.md":   "---\ndescription: d\n---\nbody\n",
	})
	dest := filepath.Join(t.TempDir(), "out")
	m := NewManager(nil)
	if err := m.Fetch(context.Background(), module.Origin{Kind: KindZip, Locator: archive}, dest); err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dest, ".lola", "module.yml")); err != nil {
		t.Fatalf("manifest not lifted to root: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dest, "m-1.0.0")); !os.IsNotExist(err) {
		t.Fatal("wrapper directory survived flattening")
	}
}

func TestFetchZipRejectsEscapingEntries(t *testing.T) {
	archive := makeZip(t, map[string]string{
		"../outside.txt": "evil",
	})
	dest := filepath.Join(t.TempDir(), "out")
	m := NewManager(nil)
	err := m.Fetch(context.Background(), module.Origin{Kind: KindZip, Locator: archive}, dest)
	if err == nil || !strings.Contains(err.Error(), "SRC_ARCHIVE_PATH") {
		t.Fatalf("expected SRC_ARCHIVE_PATH error, got %v", err)
	}
}

func makeTarGz(t *testing.T, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "module.tar.gz")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	for name, body := range entries {
		hdr := &tar.Header{Name: name, Mode: 0o644, Size: int64(len(body)), Typeflag: tar.TypeReg}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFetchTarGz(t *testing.T) {
	archive := makeTarGz(t, map[string]string{
		".lola/module.yml": "name: m\nversion: '1'\n",
		"skill/SKILL.md":   "---\ndescription: d\n---\nbody\n",
	})
	dest := filepath.Join(t.TempDir(), "out")
	m := NewManager(nil)
	if err := m.Fetch(context.Background(), module.Origin{Kind: KindTar, Locator: archive}, dest); err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dest, "skill", "SKILL.md")); err != nil {
		t.Fatalf("missing skill file: %v", err)
	}
}

func TestFetchGitBuildsCloneArgs(t *testing.T) {
	var gotArgs []string
	m := NewManager(nil)
	m.execGit = func(ctx context.Context, dir string, args ...string) ([]byte, error) {
		gotArgs = args
		return nil, nil
	}
	dest := filepath.Join(t.TempDir(), "out")
	origin := module.Origin{Kind: KindGit, Locator: "https://example.com/m.git", Ref: "v2"}
	if err := m.Fetch(context.Background(), origin, dest); err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	want := []string{"clone", "--depth", "1", "--single-branch", "--branch", "v2", "https://example.com/m.git", dest}
	if len(gotArgs) != len(want) {
		t.Fatalf("unexpected args: %v", gotArgs)
	}
	for i := range want {
		if gotArgs[i] != want[i] {
			t.Fatalf("arg %d: got %q, want %q", i, gotArgs[i], want[i])
		}
	}
}

func TestFetchTimeoutIsWrapped(t *testing.T) {
	m := NewManager(nil)
	m.execGit = func(ctx context.Context, dir string, args ...string) ([]byte, error) {
		<-ctx.Done()
		return nil, fmt.Errorf("clone: %w", ctx.Err())
	}
	ctx, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()
	err := m.Fetch(ctx, module.Origin{Kind: KindGit, Locator: "https://example.com/m.git"}, t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "SRC_TIMEOUT") {
		t.Fatalf("expected SRC_TIMEOUT, got %v", err)
	}
	if !IsTimeout(err) {
		t.Fatal("IsTimeout must see through the wrapping")
	}
}

func TestFetchGitKilledAtDeadlineIsTimeout(t *testing.T) {
	m := NewManager(nil)
	m.execGit = func(ctx context.Context, dir string, args ...string) ([]byte, error) {
		// A real clone killed by the deadline reports the signal, not
		// the context error.
		<-ctx.Done()
		return nil, errors.New("signal: killed")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()
	err := m.Fetch(ctx, module.Origin{Kind: KindGit, Locator: "https://example.com/m.git"}, t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "SRC_TIMEOUT") {
		t.Fatalf("expected SRC_TIMEOUT, got %v", err)
	}
	if !IsTimeout(err) {
		t.Fatal("deadline kill must classify as a timeout")
	}
}

func TestSecurePath(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "root")
	if _, err := securePath(dest, "a/b.txt"); err != nil {
		t.Fatalf("legitimate path rejected: %v", err)
	}
	if _, err := securePath(dest, "../escape.txt"); err == nil {
		t.Fatal("escaping path accepted")
	}
	if _, err := securePath(dest, "a/../../escape.txt"); err == nil {
		t.Fatal("nested escape accepted")
	}
}
