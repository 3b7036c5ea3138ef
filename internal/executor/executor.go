// Package executor runs the delegated command: it finds the genuine binary
// on PATH without picking gh-gate itself, builds the environment the
// credential is injected into, and runs the process.
package executor

import (
	"context"
	"io"
)

// Executor runs host commands.
type Executor interface {
	// Execute runs a command to completion and captures its output.
	Execute(ctx context.Context, req ExecuteRequest) ExecuteResponse
	// Run runs a command with the caller's stdio attached and returns its
	// exit code.
	Run(ctx context.Context, inv Invocation) (int, error)
}

// ExecuteRequest contains the parameters of a captured run.
type ExecuteRequest struct {
	Command string
	Args    []string
	Workdir string
	// Env is the complete child environment. Nil inherits the parent's.
	Env     []string
	Timeout int // milliseconds, 0 for none
}

// ExecuteResponse contains the result of a captured run.
type ExecuteResponse struct {
	Status   string // "completed", "timeout", "error"
	ExitCode int
	Stdout   string
	Stderr   string
	Error    string
}

// Status constants for ExecuteResponse.Status.
const (
	StatusCompleted = "completed"
	StatusTimeout   = "timeout"
	StatusError     = "error"
)

// Invocation describes a streamed run.
type Invocation struct {
	Path string
	Args []string
	// Env is the complete child environment, usually from BuildEnv.
	Env    []string
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}
