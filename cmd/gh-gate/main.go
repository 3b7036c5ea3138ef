// Package main is the entry point for gh-gate.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/xdg/gh-gate/internal/cmd"
	"github.com/xdg/gh-gate/internal/term"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cmd.Execute(ctx, os.Args[0], os.Args[1:])
	stop()

	if err != nil {
		var exitErr *cmd.ExitCodeError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		term.Error("%v", err)
		os.Exit(1)
	}
}
