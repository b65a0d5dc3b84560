//go:build windows

package preflight

import (
	"fmt"
	"os"
	"path/filepath"
)

// CheckDirectoryAccess verifies path is a writable directory, creating it
// when missing. Windows has no faccessat equivalent, so writability is
// probed with a throwaway file.
func CheckDirectoryAccess(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		if mkErr := os.MkdirAll(path, 0o755); mkErr != nil {
			return fmt.Errorf("create directory %s: %w", path, mkErr)
		}
		info, err = os.Stat(path)
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	probe, err := os.CreateTemp(path, ".umaccess-*")
	if err != nil {
		return fmt.Errorf("directory %s is not writable: %w", path, err)
	}
	name := probe.Name()
	probe.Close()
	_ = os.Remove(filepath.Clean(name))
	return nil
}
