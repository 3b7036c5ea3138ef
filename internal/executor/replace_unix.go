//go:build unix

package executor

import (
	"fmt"
	"syscall"
)

// Replace turns the current process into path, so the delegate owns the
// terminal and receives signals directly. It only returns on failure.
func Replace(path string, args, env []string) error {
	argv := append([]string{path}, args...)
	if err := syscall.Exec(path, argv, env); err != nil {
		return fmt.Errorf("exec %s: %w", path, err)
	}
	return nil
}
