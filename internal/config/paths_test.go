package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDir_Default(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")

	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("os.UserHomeDir() error = %v", err)
	}

	want := home + "/.config/gh-gate/"
	if got := Dir(); got != want {
		t.Errorf("Dir() = %q, want %q", got, want)
	}
}

func TestDir_XDGOverride(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")

	if got := Dir(); got != "/custom/config/gh-gate/" {
		t.Errorf("Dir() = %q, want %q", got, "/custom/config/gh-gate/")
	}
	if got := Path(); got != "/custom/config/gh-gate/config.yaml" {
		t.Errorf("Path() = %q, want %q", got, "/custom/config/gh-gate/config.yaml")
	}
}

func TestEnsureDir(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	if err := EnsureDir(); err != nil {
		t.Fatalf("EnsureDir() error = %v", err)
	}

	info, err := os.Stat(filepath.Join(tmpDir, "gh-gate"))
	if err != nil {
		t.Fatalf("os.Stat() error = %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o700 {
		t.Errorf("config dir permissions = %o, want 0700", perm)
	}
}
