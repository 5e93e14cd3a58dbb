package envfile

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteAtomic writes content plus a single trailing newline to path with
// all-or-nothing visibility: the bytes land in a temp file in the target's
// directory (same filesystem, so the final rename is atomic) and replace
// the target only once fully flushed. On any failure before the rename the
// target is untouched. A missing parent directory is an error, never an
// implicit mkdir.
func WriteAtomic(path string, content string) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, ".envit-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()

	cleanup := func(err error) error {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}

	if _, err := tmp.WriteString(content); err != nil {
		return cleanup(fmt.Errorf("failed to write env content: %w", err))
	}
	if _, err := tmp.WriteString("\n"); err != nil {
		return cleanup(fmt.Errorf("failed to finalize env content: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(fmt.Errorf("failed to flush env content: %w", err))
	}
	if err := tmp.Chmod(0600); err != nil {
		return cleanup(fmt.Errorf("failed to set env file permissions: %w", err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp env file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s atomically: %w", path, err)
	}
	return nil
}
