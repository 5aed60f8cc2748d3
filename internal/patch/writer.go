package patch

import (
	"fmt"
	"os"
	"path/filepath"
)

// BackupSuffix is appended to a target path to name its backup copy.
const BackupSuffix = ".bak"

// WriteOptions control how a patched file is written back.
type WriteOptions struct {
	// Backup keeps the pre-patch bytes next to the target.
	Backup bool
	// Atomic writes to a temp file in the same directory and renames it over
	// the target instead of truncating in place.
	Atomic bool
}

// writeBack stores data at path. original holds the bytes read before the
// patch and is what the backup receives.
func writeBack(path string, original, data []byte, perm os.FileMode, opts WriteOptions) error {
	if opts.Backup {
		if err := os.WriteFile(path+BackupSuffix, original, perm); err != nil {
			return fmt.Errorf("write backup: %w", err)
		}
	}

	if !opts.Atomic {
		return os.WriteFile(path, data, perm)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
