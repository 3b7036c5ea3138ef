package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"
)

// forwardedSignals are relayed to a running child so gh-gate never exits
// while the delegate is still running.
var forwardedSignals = []os.Signal{os.Interrupt, syscall.SIGTERM, syscall.SIGHUP}

// RealExecutor executes commands using os/exec.
type RealExecutor struct{}

// NewRealExecutor creates a new RealExecutor.
func NewRealExecutor() *RealExecutor {
	return &RealExecutor{}
}

var _ Executor = (*RealExecutor)(nil)

// Execute runs a command and returns the result.
func (e *RealExecutor) Execute(ctx context.Context, req ExecuteRequest) ExecuteResponse {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(req.Timeout)*time.Millisecond)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, req.Command, req.Args...)
	if req.Workdir != "" {
		cmd.Dir = req.Workdir
	}
	if req.Env != nil {
		cmd.Env = req.Env
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return ExecuteResponse{
			Status:   StatusCompleted,
			ExitCode: 0,
			Stdout:   stdout.String(),
			Stderr:   stderr.String(),
		}
	}

	if ctx.Err() != nil {
		return ExecuteResponse{
			Status:   StatusTimeout,
			ExitCode: -1,
			Stdout:   stdout.String(),
			Stderr:   stderr.String(),
			Error:    "command timed out",
		}
	}

	var execErr *exec.Error
	if errors.As(err, &execErr) {
		return ExecuteResponse{
			Status: StatusError,
			Error:  "executable not found: " + req.Command,
		}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return ExecuteResponse{
			Status:   StatusCompleted,
			ExitCode: exitCode(exitErr),
			Stdout:   stdout.String(),
			Stderr:   stderr.String(),
		}
	}

	return ExecuteResponse{
		Status: StatusError,
		Stdout: stdout.String(),
		Stderr: stderr.String(),
		Error:  err.Error(),
	}
}

// Run starts inv and waits for it, relaying termination signals to the
// child. Once the child has started, ctx no longer affects it: the child
// decides how to react to the signals it is sent.
func (e *RealExecutor) Run(ctx context.Context, inv Invocation) (int, error) {
	if err := ctx.Err(); err != nil {
		return -1, err
	}

	cmd := exec.Command(inv.Path, inv.Args...)
	cmd.Env = inv.Env
	cmd.Stdin = inv.Stdin
	cmd.Stdout = inv.Stdout
	cmd.Stderr = inv.Stderr

	sigs := make(chan os.Signal, len(forwardedSignals))
	signal.Notify(sigs, forwardedSignals...)
	defer signal.Stop(sigs)

	if err := cmd.Start(); err != nil {
		return -1, fmt.Errorf("start %s: %w", inv.Path, err)
	}

	waitErr := make(chan error, 1)
	go func() { waitErr <- cmd.Wait() }()

	for {
		select {
		case sig := <-sigs:
			_ = cmd.Process.Signal(sig)
		case err := <-waitErr:
			if err == nil {
				return 0, nil
			}
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				return exitCode(exitErr), nil
			}
			return -1, fmt.Errorf("wait for %s: %w", inv.Path, err)
		}
	}
}

// exitCode maps a signal-terminated child to 128+signal, as shells do.
func exitCode(exitErr *exec.ExitError) int {
	if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return exitErr.ExitCode()
}
