// Package pathutil provides path manipulation utilities.
package pathutil

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandHome replaces a leading ~ in path with the user's home directory.
// If the home directory cannot be determined, the path is returned unchanged.
func ExpandHome(path string) string {
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// Resolve returns the absolute, symlink-free form of path.
// If symlinks cannot be evaluated (for example the path does not exist),
// the cleaned absolute path is returned with the error.
func Resolve(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path), err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return abs, err
	}
	return resolved, nil
}
