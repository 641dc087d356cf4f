package adapter

import (
	"fmt"
	"os"

	"lola/internal/fsutil"
	"lola/pkg/adapterapi"
)

// Apply performs the writes for one adapt result. File writes are atomic
// overwrites; section writes splice only the managed block for the key.
func Apply(res adapterapi.Result) error {
	for _, fw := range res.Files {
		if err := fsutil.AtomicWrite(fw.Path, fw.Content, 0o644); err != nil {
			return fmt.Errorf("ADP_IO_WRITE: %s: %w", fw.Path, err)
		}
	}
	for _, sw := range res.Sections {
		if err := applySection(sw); err != nil {
			return err
		}
	}
	return nil
}

func applySection(sw adapterapi.SectionWrite) error {
	data, err := os.ReadFile(sw.Path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("ADP_IO_READ: %s: %w", sw.Path, err)
		}
		data = append([]byte{}, sw.Preamble...)
	}
	next, err := fsutil.SpliceSection(data, sw.Key, sw.Body)
	if err != nil {
		return fmt.Errorf("ADP_SECTION: %s: %w", sw.Path, err)
	}
	if err := fsutil.AtomicWrite(sw.Path, next, 0o644); err != nil {
		return fmt.Errorf("ADP_IO_WRITE: %s: %w", sw.Path, err)
	}
	return nil
}

// Revert removes the given targets. Missing paths are tolerated so
// rollback and uninstall stay idempotent; the first real failure is
// returned after all targets were attempted.
func Revert(targets []adapterapi.Target) error {
	var firstErr error
	for _, t := range targets {
		var err error
		switch t.Kind {
		case adapterapi.KindTree:
			err = os.RemoveAll(t.Path)
		case adapterapi.KindSection:
			err = revertSection(t)
		default:
			err = os.Remove(t.Path)
			if err != nil && os.IsNotExist(err) {
				err = nil
			}
		}
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("ADP_IO_REMOVE: %s: %w", t.Path, err)
		}
	}
	return firstErr
}

func revertSection(t adapterapi.Target) error {
	data, err := os.ReadFile(t.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	next, found, err := fsutil.RemoveSection(data, t.Key)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	return fsutil.AtomicWrite(t.Path, next, 0o644)
}
