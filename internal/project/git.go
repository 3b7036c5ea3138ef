// Package project reads facts about the git checkout a command runs in.
package project

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xdg/gh-gate/internal/executor"
)

var (
	// ErrNotGitRepo indicates the directory is not within a git repository.
	ErrNotGitRepo = errors.New("not a git repository")
	// ErrGitNotInstalled indicates git is not installed or not in PATH.
	ErrGitNotInstalled = errors.New("git is not installed or not in PATH")
	// ErrDetachedHead indicates HEAD does not point at a branch.
	ErrDetachedHead = errors.New("HEAD is detached")
)

// defaultTimeout bounds each git call.
const defaultTimeout = 5 * time.Second

// GitError represents a failed git command with stderr output.
type GitError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *GitError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("git %s exited %d: %s", e.Command, e.ExitCode, e.Stderr)
	}
	return fmt.Sprintf("git %s exited %d", e.Command, e.ExitCode)
}

// Git runs read-only git queries in Dir through Exec.
type Git struct {
	Exec executor.Executor
	// Dir is the working directory; empty means the current one.
	Dir string
}

// run executes git with args and returns trimmed stdout.
func (g Git) run(ctx context.Context, args ...string) (string, error) {
	resp := g.Exec.Execute(ctx, executor.ExecuteRequest{
		Command: "git",
		Args:    args,
		Workdir: g.Dir,
		Timeout: int(defaultTimeout / time.Millisecond),
	})

	switch {
	case resp.Status == executor.StatusError && strings.HasPrefix(resp.Error, "executable not found"):
		return "", ErrGitNotInstalled
	case resp.Status != executor.StatusCompleted:
		return "", fmt.Errorf("git %s: %s", args[0], resp.Error)
	case resp.ExitCode != 0:
		stderr := strings.TrimSpace(resp.Stderr)
		if strings.Contains(stderr, "not a git repository") {
			return "", ErrNotGitRepo
		}
		return "", &GitError{Command: args[0], ExitCode: resp.ExitCode, Stderr: stderr}
	}
	return strings.TrimSpace(resp.Stdout), nil
}

// Branch returns the checked-out branch name.
func (g Git) Branch(ctx context.Context) (string, error) {
	out, err := g.run(ctx, "symbolic-ref", "--quiet", "--short", "HEAD")
	var gitErr *GitError
	if errors.As(err, &gitErr) && gitErr.ExitCode == 1 {
		return "", ErrDetachedHead
	}
	if err != nil {
		return "", err
	}
	return out, nil
}
