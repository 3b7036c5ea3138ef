package cmd

import (
	"fmt"

	"github.com/xdg/gh-gate/internal/secret"
)

// ExitCodeError carries a process exit code to main. Its message has
// already been shown to the user, so main exits without printing.
type ExitCodeError struct {
	Code int
}

// NewExitCodeError returns an ExitCodeError for code.
func NewExitCodeError(code int) *ExitCodeError {
	return &ExitCodeError{Code: code}
}

func (e *ExitCodeError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// keyringError explains a keyring that could not be opened.
func keyringError(err error) error {
	return fmt.Errorf("%w (choose keyring.backends in the config, or the file backend with %s)", err, secret.PasswordEnv)
}
