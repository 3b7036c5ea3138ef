package config

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/xdg/gh-gate/internal/clog"
)

// Edit opens the configuration file in the user's editor, creating the
// default file first if needed. The editor is taken from EDITOR, falling
// back to "vi". Validation problems after the edit are logged, not
// returned, so the user can fix the file later.
func Edit() error {
	path := Path()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := WriteDefault(); err != nil {
			return fmt.Errorf("create default config: %w", err)
		}
	}

	if err := openEditor(path); err != nil {
		return err
	}

	if _, err := Load(); err != nil {
		clog.Warn("config has errors after edit: %v", err)
	}

	return nil
}

// openEditor opens the specified file in the user's editor.
func openEditor(path string) error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}

	cmd := exec.Command(editor, path)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("editor %q failed: %w", editor, err)
	}

	return nil
}
