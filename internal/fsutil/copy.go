package fsutil

import (
	"io/fs"
	"os"
	"path/filepath"
)

// CopyTree copies the regular files and directories under src into dst.
// Symlinks and other special files are skipped.
func CopyTree(src, dst string) error {
	return filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		return os.WriteFile(target, data, 0o644)
	})
}

// ReplaceTree swaps the directory at dst with the one at src using a
// rename-aside discipline: the old tree is moved away before src moves
// in, and restored if the move fails.
func ReplaceTree(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	backup := ""
	if _, err := os.Stat(dst); err == nil {
		backup = dst + ".old"
		_ = os.RemoveAll(backup)
		if err := os.Rename(dst, backup); err != nil {
			return err
		}
	}
	if err := os.Rename(src, dst); err != nil {
		if backup != "" {
			_ = os.Rename(backup, dst)
		}
		return err
	}
	if backup != "" {
		_ = os.RemoveAll(backup)
	}
	return nil
}
