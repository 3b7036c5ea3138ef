package gate

import (
	"context"
	"errors"

	"github.com/xdg/gh-gate/internal/approval"
	"github.com/xdg/gh-gate/internal/classify"
	"github.com/xdg/gh-gate/internal/executor"
	"github.com/xdg/gh-gate/internal/secret"
)

// Process exit codes for gate failures. Codes follow sysexits(3) where a
// fitting one exists. A delegated command's own exit code is passed
// through unchanged.
const (
	ExitError         = 1
	ExitMalformed     = 64 // EX_USAGE
	ExitRejected      = 65
	ExitExpired       = 66
	ExitUnreachable   = 69 // EX_UNAVAILABLE
	ExitRecursion     = 70 // EX_SOFTWARE
	ExitSecretMissing = 78 // EX_CONFIG
	ExitInterrupted   = 130
)

// ExitCodeFor maps an error from Run to the process exit code.
func ExitCodeFor(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, classify.ErrMalformed):
		return ExitMalformed
	case errors.Is(err, approval.ErrRejected):
		return ExitRejected
	case errors.Is(err, approval.ErrExpired):
		return ExitExpired
	case errors.Is(err, approval.ErrChannelUnreachable):
		return ExitUnreachable
	case errors.Is(err, executor.ErrRecursion):
		return ExitRecursion
	case errors.Is(err, secret.ErrMissing):
		return ExitSecretMissing
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	default:
		return ExitError
	}
}
