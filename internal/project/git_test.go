package project

import (
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"slices"
	"testing"

	"github.com/xdg/gh-gate/internal/executor"
)

type stubExecutor struct {
	resp executor.ExecuteResponse
	got  executor.ExecuteRequest
}

func (s *stubExecutor) Execute(_ context.Context, req executor.ExecuteRequest) executor.ExecuteResponse {
	s.got = req
	return s.resp
}

func (s *stubExecutor) Run(context.Context, executor.Invocation) (int, error) {
	return 0, errors.New("not used")
}

func TestBranch(t *testing.T) {
	tests := []struct {
		name    string
		resp    executor.ExecuteResponse
		want    string
		wantErr error
	}{
		{
			name: "on a branch",
			resp: executor.ExecuteResponse{Status: executor.StatusCompleted, Stdout: "feature/login\n"},
			want: "feature/login",
		},
		{
			name:    "detached",
			resp:    executor.ExecuteResponse{Status: executor.StatusCompleted, ExitCode: 1},
			wantErr: ErrDetachedHead,
		},
		{
			name:    "not a repository",
			resp:    executor.ExecuteResponse{Status: executor.StatusCompleted, ExitCode: 128, Stderr: "fatal: not a git repository (or any of the parent directories): .git"},
			wantErr: ErrNotGitRepo,
		},
		{
			name:    "git missing",
			resp:    executor.ExecuteResponse{Status: executor.StatusError, Error: "executable not found: git"},
			wantErr: ErrGitNotInstalled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubExecutor{resp: tt.resp}
			got, err := Git{Exec: stub, Dir: "/work"}.Branch(context.Background())
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Branch() error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Branch() = %q, want %q", got, tt.want)
			}
			if stub.got.Command != "git" || stub.got.Workdir != "/work" {
				t.Errorf("ran %q in %q", stub.got.Command, stub.got.Workdir)
			}
			if !slices.Equal(stub.got.Args, []string{"symbolic-ref", "--quiet", "--short", "HEAD"}) {
				t.Errorf("Args = %v", stub.got.Args)
			}
		})
	}
}

func TestBranch_OtherFailure(t *testing.T) {
	stub := &stubExecutor{resp: executor.ExecuteResponse{Status: executor.StatusCompleted, ExitCode: 128, Stderr: "fatal: bad object"}}
	_, err := Git{Exec: stub}.Branch(context.Background())

	var gitErr *GitError
	if !errors.As(err, &gitErr) {
		t.Fatalf("Branch() error = %v, want *GitError", err)
	}
	if gitErr.Error() != "git symbolic-ref exited 128: fatal: bad object" {
		t.Errorf("Error() = %q", gitErr.Error())
	}
}

func TestBranch_RealRepository(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()
	if out, err := exec.Command("git", "init", "--quiet", "-b", "topic", dir).CombinedOutput(); err != nil {
		t.Skipf("git init: %v: %s", err, out)
	}

	got, err := Git{Exec: executor.NewRealExecutor(), Dir: dir}.Branch(context.Background())
	if err != nil {
		t.Fatalf("Branch() error = %v", err)
	}
	if got != "topic" {
		t.Errorf("Branch() = %q, want %q", got, "topic")
	}
}

func TestBranch_RealNotRepository(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()
	t.Setenv("GIT_CEILING_DIRECTORIES", filepath.Dir(dir))

	_, err := Git{Exec: executor.NewRealExecutor(), Dir: dir}.Branch(context.Background())
	if !errors.Is(err, ErrNotGitRepo) {
		t.Errorf("Branch() error = %v, want ErrNotGitRepo", err)
	}
}
