package config

import (
	"fmt"
	"os"

	"github.com/xdg/gh-gate/internal/pathutil"
)

// Dir returns the gh-gate configuration directory path.
// By default, this is ~/.config/gh-gate/. If the XDG_CONFIG_HOME
// environment variable is set, it uses $XDG_CONFIG_HOME/gh-gate/ instead.
// The returned path always has a trailing slash.
func Dir() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		base = "~/.config"
	}
	return pathutil.ExpandHome(base) + "/gh-gate/"
}

// EnsureDir creates the configuration directory with 0700 permissions if
// it doesn't exist.
func EnsureDir() error {
	if err := os.MkdirAll(Dir(), 0o700); err != nil {
		return fmt.Errorf("ensure config dir: %w", err)
	}
	return nil
}

// Path returns the full path to the configuration file.
func Path() string {
	return Dir() + "config.yaml"
}
