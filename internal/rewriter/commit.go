package rewriter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"docpatch/internal/document"
)

// ErrIO wraps read and write failures of the backing file. They are not
// retried.
var ErrIO = errors.New("document io failure")

// Load reads path and detects its line-ending style.
func Load(path string) (document.Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return document.Document{}, fmt.Errorf("%w: read %s: %w", ErrIO, path, err)
	}
	return document.Parse(raw), nil
}

// Commit replaces path with doc. The bytes go to a temp file in the same
// directory which is then renamed over path, so readers see either the old
// file or the new one. The existing file mode is kept.
func Commit(path string, doc document.Document) (err error) {
	mode := os.FileMode(0o644)
	if info, statErr := os.Stat(path); statErr == nil {
		mode = info.Mode().Perm()
	} else if !errors.Is(statErr, os.ErrNotExist) {
		return fmt.Errorf("%w: stat %s: %w", ErrIO, path, statErr)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".docpatch-*")
	if err != nil {
		return fmt.Errorf("%w: create temp for %s: %w", ErrIO, path, err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(doc.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write %s: %w", ErrIO, tmpName, err)
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: sync %s: %w", ErrIO, tmpName, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %w", ErrIO, tmpName, err)
	}
	if err = os.Chmod(tmpName, mode); err != nil {
		return fmt.Errorf("%w: chmod %s: %w", ErrIO, tmpName, err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("%w: rename %s: %w", ErrIO, path, err)
	}
	return nil
}
