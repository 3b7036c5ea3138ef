package gate

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/99designs/keyring"

	"github.com/xdg/gh-gate/internal/approval"
	"github.com/xdg/gh-gate/internal/audit"
	"github.com/xdg/gh-gate/internal/classify"
	"github.com/xdg/gh-gate/internal/clog"
	"github.com/xdg/gh-gate/internal/config"
	"github.com/xdg/gh-gate/internal/executor"
	"github.com/xdg/gh-gate/internal/secret"
	"github.com/xdg/gh-gate/internal/term"
)

// fakeExecutor records streamed runs and answers captured runs with branch.
type fakeExecutor struct {
	mu       sync.Mutex
	runs     []executor.Invocation
	executes []executor.ExecuteRequest
	exitCode int
	runErr   error
	branch   string
}

func (f *fakeExecutor) Execute(_ context.Context, req executor.ExecuteRequest) executor.ExecuteResponse {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.executes = append(f.executes, req)
	if f.branch == "" {
		return executor.ExecuteResponse{Status: executor.StatusCompleted, ExitCode: 128, Stderr: "not a git repository"}
	}
	return executor.ExecuteResponse{Status: executor.StatusCompleted, Stdout: f.branch + "\n"}
}

func (f *fakeExecutor) Run(_ context.Context, inv executor.Invocation) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, inv)
	return f.exitCode, f.runErr
}

// fakeChannel decides every published request the same way.
type fakeChannel struct {
	mu         sync.Mutex
	decision   approval.Decision // zero means never decide
	publishErr error
	notices    []approval.Notice
	closed     bool
}

func (f *fakeChannel) Publish(_ context.Context, n approval.Notice) (approval.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return approval.MessageRef{}, f.publishErr
	}
	f.notices = append(f.notices, n)
	return approval.MessageRef{ID: 1}, nil
}

func (f *fakeChannel) Fetch(ctx context.Context, wait time.Duration) ([]approval.Callback, error) {
	f.mu.Lock()
	decision, notices := f.decision, len(f.notices)
	var id string
	if notices > 0 {
		id = f.notices[notices-1].RequestID
	}
	f.mu.Unlock()

	if decision == 0 || id == "" {
		select {
		case <-ctx.Done():
		case <-time.After(wait):
		}
		return nil, nil
	}
	return []approval.Callback{{ID: "cb", Data: approval.EncodeCallback(decision, id), From: "@reviewer"}}, nil
}

func (f *fakeChannel) Acknowledge(context.Context, approval.Callback, string) error { return nil }
func (f *fakeChannel) Settle(context.Context, approval.MessageRef, string) error    { return nil }

func (f *fakeChannel) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

type harness struct {
	gate     *Gate
	exec     *fakeExecutor
	channel  *fakeChannel
	opened   int
	audit    *bytes.Buffer
	delegate string
	self     string
}

func allSecrets() []keyring.Item {
	return []keyring.Item{
		{Key: string(secret.RepoToken), Data: []byte("ghp_repo_token_value")},
		{Key: string(secret.NotifyBotToken), Data: []byte("123:bot")},
		{Key: string(secret.NotifyChatID), Data: []byte("42")},
	}
}

func newHarness(t *testing.T, items []keyring.Item, mutate func(*Options)) *harness {
	t.Helper()
	clog.Discard()
	term.Discard()
	t.Cleanup(func() {
		clog.Reset()
		term.Reset()
	})

	binDir := t.TempDir()
	delegatePath := filepath.Join(binDir, "gh")
	if err := os.WriteFile(delegatePath, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	self := filepath.Join(t.TempDir(), "gh-gate")
	if err := os.WriteFile(self, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	cfg := config.DefaultConfig()
	cfg.Delegate.ExecPassthrough = new(bool)
	cfg.Approval.Timeout = "200ms"
	cfg.Approval.PollWait = "20ms"
	cfg.Approval.SendAttempts = 1

	h := &harness{
		exec:     &fakeExecutor{},
		channel:  &fakeChannel{decision: approval.Approve},
		audit:    &bytes.Buffer{},
		delegate: delegatePath,
		self:     self,
	}
	opts := Options{
		Config:  cfg,
		Secrets: secret.NewKeyring(keyring.NewArrayKeyring(items)),
		NewChannel: func(botToken, chatID string) (approval.Channel, error) {
			if botToken != "123:bot" || chatID != "42" {
				t.Errorf("channel opened with %q/%q", botToken, chatID)
			}
			h.opened++
			return h.channel, nil
		},
		Executor: h.exec,
		Audit:    audit.NewLogger(h.audit),
		Self:     self,
		PathEnv:  binDir,
		Environ:  []string{"HOME=/home/test", "GH_TOKEN=ambient"},
	}
	if mutate != nil {
		mutate(&opts)
	}
	h.gate = New(opts)
	return h
}

func (h *harness) lastRun(t *testing.T) executor.Invocation {
	t.Helper()
	if len(h.exec.runs) != 1 {
		t.Fatalf("delegate ran %d times, want 1", len(h.exec.runs))
	}
	return h.exec.runs[0]
}

func envValue(env []string, name string) (string, bool) {
	for _, kv := range env {
		if k, v, _ := strings.Cut(kv, "="); k == name {
			return v, true
		}
	}
	return "", false
}

func TestRun_PassthroughInjectsToken(t *testing.T) {
	h := newHarness(t, allSecrets(), nil)
	h.exec.exitCode = 3

	args := []string{"pr", "list"}
	code, err := h.gate.Run(context.Background(), args)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if code != 3 {
		t.Errorf("exit code = %d, want delegate's 3", code)
	}

	inv := h.lastRun(t)
	if inv.Path != h.delegate {
		t.Errorf("Path = %q, want %q", inv.Path, h.delegate)
	}
	if !slices.Equal(inv.Args, args) {
		t.Errorf("Args = %v, want %v", inv.Args, args)
	}
	if v, _ := envValue(inv.Env, "GH_TOKEN"); v != "ghp_repo_token_value" {
		t.Errorf("GH_TOKEN = %q, want stored token", v)
	}
	if v, _ := envValue(inv.Env, executor.MarkerEnv); v != "1" {
		t.Errorf("%s = %q, want 1", executor.MarkerEnv, v)
	}
	if h.opened != 0 {
		t.Error("passthrough should not open the channel")
	}
	if !strings.Contains(h.audit.String(), "GATE PASSTHROUGH") {
		t.Errorf("audit = %q", h.audit.String())
	}
}

func TestRun_PassthroughWithoutToken(t *testing.T) {
	h := newHarness(t, nil, nil)

	if _, err := h.gate.Run(context.Background(), []string{"issue", "list"}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if v, _ := envValue(h.lastRun(t).Env, "GH_TOKEN"); v != "ambient" {
		t.Errorf("GH_TOKEN = %q, want the inherited value", v)
	}
}

func TestRun_PassthroughReplacesProcess(t *testing.T) {
	var replacedPath string
	h := newHarness(t, allSecrets(), func(o *Options) {
		o.Config.Delegate.ExecPassthrough = nil
		o.Replace = func(path string, _, _ []string) error {
			replacedPath = path
			return errors.New("exec failed")
		}
	})

	code, err := h.gate.Run(context.Background(), []string{"repo", "view"})
	if err == nil || code != ExitError {
		t.Fatalf("Run() = %d, %v; want replace failure", code, err)
	}
	if replacedPath != h.delegate {
		t.Errorf("replaced with %q, want %q", replacedPath, h.delegate)
	}
	if len(h.exec.runs) != 0 {
		t.Error("Run should not be called after Replace")
	}
}

func TestRun_ReplaceUnsupportedFallsBack(t *testing.T) {
	h := newHarness(t, allSecrets(), func(o *Options) {
		o.Config.Delegate.ExecPassthrough = nil
		o.Replace = func(string, []string, []string) error { return executor.ErrReplaceUnsupported }
	})

	if _, err := h.gate.Run(context.Background(), []string{"repo", "view"}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	h.lastRun(t)
}

func TestRun_AlreadyDelegatedSkipsGate(t *testing.T) {
	h := newHarness(t, nil, func(o *Options) { o.AlreadyDelegated = true })

	// Would need approval (and secrets) if it were classified.
	if _, err := h.gate.Run(context.Background(), []string{"api", "-X", "DELETE", "repos/o/r"}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	h.lastRun(t)
	if h.opened != 0 {
		t.Error("nested invocation should not request approval")
	}
}

func TestRun_Malformed(t *testing.T) {
	h := newHarness(t, allSecrets(), nil)

	code, err := h.gate.Run(context.Background(), []string{"pr", "create"})
	if !errors.Is(err, classify.ErrMalformed) {
		t.Fatalf("Run() error = %v, want ErrMalformed", err)
	}
	if code != ExitMalformed {
		t.Errorf("exit code = %d, want %d", code, ExitMalformed)
	}
	if len(h.exec.runs) != 0 || h.opened != 0 {
		t.Error("malformed call must not run or notify")
	}
	if !strings.Contains(h.audit.String(), "GATE MALFORMED") {
		t.Errorf("audit = %q", h.audit.String())
	}
}

func TestRun_ApprovedRunsWithToken(t *testing.T) {
	h := newHarness(t, allSecrets(), nil)
	h.exec.branch = "feature/x"

	args := []string{"pr", "create", "--title", "Add gate", "--base", "main"}
	code, err := h.gate.Run(context.Background(), args)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if code != 0 {
		t.Errorf("exit code = %d, want 0", code)
	}

	if len(h.channel.notices) != 1 {
		t.Fatalf("published %d notices, want 1", len(h.channel.notices))
	}
	n := h.channel.notices[0]
	if n.Context.Title != "Add gate" || n.Context.Head != "feature/x" || n.Context.Base != "main" {
		t.Errorf("notice context = %+v", n.Context)
	}
	if !h.channel.closed {
		t.Error("channel not closed")
	}

	inv := h.lastRun(t)
	if v, _ := envValue(inv.Env, "GH_TOKEN"); v != "ghp_repo_token_value" {
		t.Errorf("GH_TOKEN = %q, want stored token", v)
	}

	log := h.audit.String()
	for _, want := range []string{"GATE REQUEST", "GATE APPROVE", `user="@reviewer"`, "GATE COMPLETE"} {
		if !strings.Contains(log, want) {
			t.Errorf("audit missing %q:\n%s", want, log)
		}
	}
	if strings.Contains(log, "ghp_repo_token_value") || strings.Contains(log, "123:bot") {
		t.Error("audit log contains a secret")
	}
}

func TestRun_ApprovedNeverReplacesProcess(t *testing.T) {
	h := newHarness(t, allSecrets(), func(o *Options) {
		o.Config.Delegate.ExecPassthrough = nil
		o.Replace = func(string, []string, []string) error {
			t.Error("approved call replaced the process")
			return nil
		}
	})

	if _, err := h.gate.Run(context.Background(), []string{"api", "repos/o/r/issues", "-f", "title=x"}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	h.lastRun(t)
}

func TestRun_Rejected(t *testing.T) {
	h := newHarness(t, allSecrets(), nil)
	h.channel.decision = approval.Reject

	code, err := h.gate.Run(context.Background(), []string{"api", "-X", "DELETE", "repos/o/r"})
	if !errors.Is(err, approval.ErrRejected) {
		t.Fatalf("Run() error = %v, want ErrRejected", err)
	}
	if code != ExitRejected {
		t.Errorf("exit code = %d, want %d", code, ExitRejected)
	}
	if len(h.exec.runs) != 0 {
		t.Error("rejected call must not run")
	}
	if !strings.Contains(h.audit.String(), "GATE DENY") {
		t.Errorf("audit = %q", h.audit.String())
	}
}

func TestRun_Expired(t *testing.T) {
	h := newHarness(t, allSecrets(), nil)
	h.channel.decision = 0

	code, err := h.gate.Run(context.Background(), []string{"api", "-X", "PATCH", "repos/o/r"})
	if !errors.Is(err, approval.ErrExpired) {
		t.Fatalf("Run() error = %v, want ErrExpired", err)
	}
	if code != ExitExpired {
		t.Errorf("exit code = %d, want %d", code, ExitExpired)
	}
	if len(h.exec.runs) != 0 {
		t.Error("expired call must not run")
	}
}

func TestRun_ChannelUnreachable(t *testing.T) {
	h := newHarness(t, allSecrets(), nil)
	h.channel.publishErr = errors.New("connection refused")

	code, err := h.gate.Run(context.Background(), []string{"api", "-X", "PUT", "repos/o/r"})
	if !errors.Is(err, approval.ErrChannelUnreachable) {
		t.Fatalf("Run() error = %v, want ErrChannelUnreachable", err)
	}
	if code != ExitUnreachable {
		t.Errorf("exit code = %d, want %d", code, ExitUnreachable)
	}
	if len(h.exec.runs) != 0 {
		t.Error("call must not run when the channel is unreachable")
	}
	if !strings.Contains(h.audit.String(), "GATE UNREACHABLE") {
		t.Errorf("audit = %q", h.audit.String())
	}
}

func TestRun_MissingSecretFailsBeforeNotify(t *testing.T) {
	for _, missing := range secret.Keys {
		t.Run(string(missing), func(t *testing.T) {
			var items []keyring.Item
			for _, it := range allSecrets() {
				if it.Key != string(missing) {
					items = append(items, it)
				}
			}
			h := newHarness(t, items, nil)

			code, err := h.gate.Run(context.Background(), []string{"api", "-X", "POST", "graphql"})
			if !errors.Is(err, secret.ErrMissing) {
				t.Fatalf("Run() error = %v, want ErrMissing", err)
			}
			if code != ExitSecretMissing {
				t.Errorf("exit code = %d, want %d", code, ExitSecretMissing)
			}
			if h.opened != 0 || len(h.exec.runs) != 0 {
				t.Error("missing secret must stop before notifying or running")
			}
		})
	}
}

func TestRun_Cancelled(t *testing.T) {
	h := newHarness(t, allSecrets(), nil)
	h.channel.decision = 0
	h.gate.opts.Config.Approval.Timeout = "1m"

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(30*time.Millisecond, cancel)

	code, err := h.gate.Run(ctx, []string{"api", "-X", "DELETE", "repos/o/r"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if code != ExitInterrupted {
		t.Errorf("exit code = %d, want %d", code, ExitInterrupted)
	}
	if len(h.exec.runs) != 0 {
		t.Error("cancelled call must not run")
	}
}

func TestRun_Recursion(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.gate.opts.Self = h.delegate

	code, err := h.gate.Run(context.Background(), []string{"pr", "list"})
	if !errors.Is(err, executor.ErrRecursion) {
		t.Fatalf("Run() error = %v, want ErrRecursion", err)
	}
	if code != ExitRecursion {
		t.Errorf("exit code = %d, want %d", code, ExitRecursion)
	}
}

func TestRun_BodyFileEnrichment(t *testing.T) {
	h := newHarness(t, allSecrets(), nil)
	body := filepath.Join(t.TempDir(), "body.md")
	if err := os.WriteFile(body, []byte("Fixes #12"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := h.gate.Run(context.Background(), []string{"pr", "create", "--fill", "--body-file", body}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := h.channel.notices[0].Context.Body; got != "Fixes #12" {
		t.Errorf("Body = %q, want file contents", got)
	}
	if got := h.channel.notices[0].Context.Head; got != "" {
		t.Errorf("Head = %q, want empty outside a git repository", got)
	}
}

func TestRun_PolicyFromConfig(t *testing.T) {
	h := newHarness(t, nil, func(o *Options) {
		f := false
		o.Config.Approval.InferMethodFromFields = &f
	})

	// Without inference, fields alone leave the call a GET.
	if _, err := h.gate.Run(context.Background(), []string{"api", "search/issues", "-f", "q=bug"}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if h.opened != 0 {
		t.Error("GET call should pass through")
	}
}
