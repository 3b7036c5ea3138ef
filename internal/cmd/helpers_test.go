package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/99designs/keyring"

	"github.com/xdg/gh-gate/internal/clog"
	"github.com/xdg/gh-gate/internal/config"
	"github.com/xdg/gh-gate/internal/executor"
	"github.com/xdg/gh-gate/internal/secret"
	"github.com/xdg/gh-gate/internal/term"
)

type fakeExecutor struct {
	resp     executor.ExecuteResponse
	exitCode int
	executes []executor.ExecuteRequest
	runs     []executor.Invocation
}

func (f *fakeExecutor) Execute(_ context.Context, req executor.ExecuteRequest) executor.ExecuteResponse {
	f.executes = append(f.executes, req)
	return f.resp
}

func (f *fakeExecutor) Run(_ context.Context, inv executor.Invocation) (int, error) {
	f.runs = append(f.runs, inv)
	return f.exitCode, nil
}

type testEnv struct {
	cfg      *config.Config
	secrets  *secret.Keyring
	exec     *fakeExecutor
	stdout   *bytes.Buffer
	stderr   *bytes.Buffer
	delegate string
}

// setupTestEnv points every seam at test doubles: a temp config and state
// directory, an in-memory keyring holding items, and a fake gh on PATH.
func setupTestEnv(t *testing.T, items ...keyring.Item) *testEnv {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_STATE_HOME", t.TempDir())
	t.Setenv(executor.MarkerEnv, "")

	binDir := t.TempDir()
	delegate := filepath.Join(binDir, "gh")
	if err := os.WriteFile(delegate, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", binDir)

	cfg := config.DefaultConfig()
	stateDir := t.TempDir()
	cfg.Log.File = filepath.Join(stateDir, "gh-gate.log")
	cfg.Log.AuditFile = filepath.Join(stateDir, "audit.log")

	env := &testEnv{
		cfg:      cfg,
		secrets:  secret.NewKeyring(keyring.NewArrayKeyring(items)),
		exec:     &fakeExecutor{},
		stdout:   &bytes.Buffer{},
		stderr:   &bytes.Buffer{},
		delegate: delegate,
	}

	oldLoad, oldOpen, oldGateExec, oldReplace, oldSetupExec := loadConfig, openSecrets, gateExecutor, replaceProcess, setupExecutor
	loadConfig = func() (*config.Config, error) { return env.cfg, nil }
	openSecrets = func(config.KeyringConfig) (secret.Provider, error) { return env.secrets, nil }
	gateExecutor = env.exec
	setupExecutor = env.exec
	replaceProcess = func(string, []string, []string) error { return executor.ErrReplaceUnsupported }

	term.SetOutput(env.stdout)
	term.SetErrOutput(env.stderr)
	clog.Discard()

	t.Cleanup(func() {
		loadConfig, openSecrets, gateExecutor, replaceProcess, setupExecutor = oldLoad, oldOpen, oldGateExec, oldReplace, oldSetupExec
		term.Reset()
		clog.Reset()
	})
	return env
}

func item(key secret.Key, value string) keyring.Item {
	return keyring.Item{Key: string(key), Data: []byte(value)}
}
