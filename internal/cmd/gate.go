package cmd

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/99designs/keyring"

	"github.com/xdg/gh-gate/internal/approval"
	"github.com/xdg/gh-gate/internal/audit"
	"github.com/xdg/gh-gate/internal/clog"
	"github.com/xdg/gh-gate/internal/config"
	"github.com/xdg/gh-gate/internal/executor"
	"github.com/xdg/gh-gate/internal/gate"
	"github.com/xdg/gh-gate/internal/secret"
	"github.com/xdg/gh-gate/internal/telegram"
	"github.com/xdg/gh-gate/internal/term"
)

// Seams for tests.
var (
	loadConfig  = config.Load
	openSecrets = func(cfg config.KeyringConfig) (secret.Provider, error) {
		return secret.Open(cfg)
	}
	gateExecutor executor.Executor = executor.NewRealExecutor()
	replaceProcess                 = executor.Replace
)

// runGate handles one wrapped invocation and converts the outcome into an
// ExitCodeError for anything but success.
func runGate(ctx context.Context, args []string) error {
	environ := os.Environ()

	cfg, err := loadConfig()
	if err != nil {
		term.Error("gh-gate: %v", err)
		return NewExitCodeError(gate.ExitError)
	}
	configureLogging(cfg)
	defer clog.Close()

	auditLog, err := audit.Open(cfg.Log.AuditFile)
	if err != nil {
		clog.Warn("audit log disabled: %v", err)
	}
	defer func() { _ = auditLog.Close() }()

	secrets, err := openSecrets(cfg.Keyring)
	if err != nil {
		secrets = unavailableSecrets{err: keyringError(err)}
	}

	self, err := os.Executable()
	if err != nil {
		clog.Warn("cannot determine own path: %v", err)
	}
	workdir, _ := os.Getwd()

	g := gate.New(gate.Options{
		Config:  cfg,
		Secrets: secrets,
		NewChannel: func(botToken, chatID string) (approval.Channel, error) {
			return telegram.NewChannel(botToken, chatID, telegramOptions(cfg))
		},
		Executor:         gateExecutor,
		Audit:            auditLog,
		AlreadyDelegated: executor.AlreadyDelegated(environ),
		Self:             self,
		PathEnv:          os.Getenv("PATH"),
		Environ:          environ,
		Workdir:          workdir,
		Stdin:            os.Stdin,
		Stdout:           os.Stdout,
		Stderr:           os.Stderr,
		Replace:          replaceProcess,
	})

	code, err := g.Run(ctx, args)
	if err != nil {
		clog.Debug("gate: %v", err)
		term.Error("gh-gate: %v", err)
	}
	if code != 0 {
		return NewExitCodeError(code)
	}
	return nil
}

func configureLogging(cfg *config.Config) {
	level := clog.ParseLevel(cfg.Log.Level)
	if err := clog.Configure(cfg.Log.File, level, !cfg.Log.StderrEnabled()); err != nil {
		term.Warn("file logging disabled: %v", err)
	}
	if level == clog.LevelDebug {
		// The keyring library reports backend selection through package log.
		keyring.Debug = true
		log.SetFlags(0)
		log.SetOutput(clog.Writer(clog.LevelDebug))
	}
}

func telegramOptions(cfg *config.Config) telegram.Options {
	return telegram.Options{
		ServerURL: cfg.Telegram.APIURL,
		PollWait:  cfg.Approval.PollWaitDuration(),
	}
}

// unavailableSecrets stands in for a keyring that failed to open, so
// passthrough calls still work without a token.
type unavailableSecrets struct {
	err error
}

func (u unavailableSecrets) Get(key secret.Key) (string, error) {
	return "", fmt.Errorf("read secret %s: %w", key, u.err)
}

func (u unavailableSecrets) Put(key secret.Key, _ string) error {
	return fmt.Errorf("store secret %s: %w", key, u.err)
}
