package fsutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAtomicWriteCreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "file.toml")
	if err := AtomicWrite(path, []byte("hello"), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	blob, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(blob) != "hello" {
		t.Fatalf("unexpected content: %q", blob)
	}
}

func TestAtomicWriteReplacesAndLeavesNoTmp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.txt")
	if err := AtomicWrite(path, []byte("one"), 0o644); err != nil {
		t.Fatalf("first write failed: %v", err)
	}
	if err := AtomicWrite(path, []byte("two"), 0o644); err != nil {
		t.Fatalf("second write failed: %v", err)
	}
	blob, _ := os.ReadFile(path)
	if string(blob) != "two" {
		t.Fatalf("unexpected content: %q", blob)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly one file, got %d", len(entries))
	}
}

func TestCopyTree(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "copy")
	if err := os.MkdirAll(filepath.Join(src, "nested"), 0o755); err != nil {
		t.Fatal(err)
	}
	os.WriteFile(filepath.Join(src, "top.txt"), []byte("top"), 0o644)
	os.WriteFile(filepath.Join(src, "nested", "deep.txt"), []byte("deep"), 0o644)

	if err := CopyTree(src, dst); err != nil {
		t.Fatalf("copy failed: %v", err)
	}
	blob, err := os.ReadFile(filepath.Join(dst, "nested", "deep.txt"))
	if err != nil {
		t.Fatalf("nested file missing: %v", err)
	}
	if string(blob) != "deep" {
		t.Fatalf("unexpected content: %q", blob)
	}
}

func TestReplaceTreeSwapsExistingDirectory(t *testing.T) {
	base := t.TempDir()
	dst := filepath.Join(base, "mod")
	os.MkdirAll(dst, 0o755)
	os.WriteFile(filepath.Join(dst, "stale.txt"), []byte("stale"), 0o644)

	src := filepath.Join(base, "staged")
	os.MkdirAll(src, 0o755)
	os.WriteFile(filepath.Join(src, "fresh.txt"), []byte("fresh"), 0o644)

	if err := ReplaceTree(src, dst); err != nil {
		t.Fatalf("replace failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dst, "stale.txt")); !os.IsNotExist(err) {
		t.Fatal("stale file survived replacement")
	}
	if _, err := os.Stat(filepath.Join(dst, "fresh.txt")); err != nil {
		t.Fatalf("fresh file missing: %v", err)
	}
	if _, err := os.Stat(dst + ".old"); !os.IsNotExist(err) {
		t.Fatal("backup directory left behind")
	}
}
