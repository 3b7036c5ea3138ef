package executor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xdg/gh-gate/internal/clog"
	"github.com/xdg/gh-gate/internal/pathutil"
)

// MarkerEnv is set in every delegated environment. A gh-gate that finds it
// was started by another gh-gate and must delegate without gating again.
const MarkerEnv = "GH_GATE_ACTIVE"

var (
	// ErrRecursion is returned when the only candidates on PATH resolve to
	// gh-gate itself.
	ErrRecursion = errors.New("delegate resolves to gh-gate itself")
	// ErrDelegateNotFound is returned when the delegate is not on PATH.
	ErrDelegateNotFound = errors.New("delegate not found on PATH")
	// ErrReplaceUnsupported is returned by Replace where the process
	// cannot be replaced; callers fall back to Run.
	ErrReplaceUnsupported = errors.New("process replacement not supported on this platform")
)

// AlreadyDelegated reports whether environ carries the delegation marker.
func AlreadyDelegated(environ []string) bool {
	for _, kv := range environ {
		if name, value, _ := strings.Cut(kv, "="); name == MarkerEnv && value != "" {
			return true
		}
	}
	return false
}

// LocateDelegate finds name on pathEnv, skipping any entry that resolves
// to the same file as self. Symlinks are followed on both sides, so a
// "gh" symlink pointing at gh-gate is skipped too.
func LocateDelegate(name, pathEnv, self string) (string, error) {
	selfResolved := ""
	if self != "" {
		selfResolved, _ = pathutil.Resolve(self)
	}

	sawSelf := false
	for _, dir := range filepath.SplitList(pathEnv) {
		if dir == "" {
			dir = "."
		}
		candidate := filepath.Join(dir, name)
		if !isExecutable(candidate) {
			continue
		}
		resolved, err := pathutil.Resolve(candidate)
		if err != nil {
			continue
		}
		if resolved == selfResolved {
			clog.Debug("delegate: skipping %s, it is gh-gate", candidate)
			sawSelf = true
			continue
		}
		if abs, err := filepath.Abs(candidate); err == nil {
			candidate = abs
		}
		return candidate, nil
	}

	if sawSelf {
		return "", fmt.Errorf("%w: every %q on PATH is gh-gate", ErrRecursion, name)
	}
	return "", fmt.Errorf("%w: %q", ErrDelegateNotFound, name)
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() && info.Mode().Perm()&0o111 != 0
}

// BuildEnv returns base plus the delegation marker and, when token is
// non-empty, tokenEnv=token. Earlier values of either variable are
// dropped so the injected ones win.
func BuildEnv(base []string, tokenEnv, token string) []string {
	env := make([]string, 0, len(base)+2)
	for _, kv := range base {
		name, _, _ := strings.Cut(kv, "=")
		if name == MarkerEnv || (token != "" && name == tokenEnv) {
			continue
		}
		env = append(env, kv)
	}
	env = append(env, MarkerEnv+"=1")
	if token != "" {
		env = append(env, tokenEnv+"="+token)
	}
	return env
}
