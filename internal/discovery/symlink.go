package discovery

import (
	"fmt"
	"os"
)

// IsSymlink reports whether the file at the given path is a symbolic link.
// It uses os.Lstat (which does not follow symlinks) to check the file mode.
// Returns false for regular files and directories.
func IsSymlink(path string) (bool, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return false, fmt.Errorf("lstat %s: %w", path, err)
	}
	return info.Mode()&os.ModeSymlink != 0, nil
}
