package config

import (
	"path/filepath"
	"time"

	"github.com/xdg/gh-gate/internal/clog"
)

const (
	// DefaultApprovalTimeout bounds the wait for a human decision.
	DefaultApprovalTimeout = 5 * time.Minute
	// DefaultPollWait bounds a single long poll.
	DefaultPollWait = 30 * time.Second
	// DefaultSendAttempts is how many times the notification is sent
	// before the channel is declared unreachable.
	DefaultSendAttempts = 3
	// DefaultKeyringService names the keyring service holding secrets.
	DefaultKeyringService = "gh-gate"
)

// boolPtr returns a pointer to a bool value.
func boolPtr(b bool) *bool {
	return &b
}

// DefaultConfig returns a Config with all defaults populated.
func DefaultConfig() *Config {
	return &Config{
		Delegate: DelegateConfig{
			Name:            "gh",
			TokenEnv:        "GH_TOKEN",
			ExecPassthrough: boolPtr(true),
		},
		Approval: ApprovalConfig{
			Timeout:               DefaultApprovalTimeout.String(),
			PollWait:              DefaultPollWait.String(),
			SendAttempts:          DefaultSendAttempts,
			InferMethodFromFields: boolPtr(true),
			MutatingMethods:       []string{"POST", "PATCH", "PUT", "DELETE"},
		},
		Keyring: KeyringConfig{
			Service: DefaultKeyringService,
			FileDir: "~/.local/share/gh-gate/keyring",
		},
		Log: LogConfig{
			File:      clog.DefaultLogPath(),
			Level:     "info",
			AuditFile: filepath.Join(clog.StateDir(), "audit.log"),
			Stderr:    boolPtr(true),
		},
	}
}

// applyDefaults fills every unset field of cfg from DefaultConfig.
func applyDefaults(cfg *Config) {
	def := DefaultConfig()

	if cfg.Delegate.Name == "" {
		cfg.Delegate.Name = def.Delegate.Name
	}
	if cfg.Delegate.TokenEnv == "" {
		cfg.Delegate.TokenEnv = def.Delegate.TokenEnv
	}
	if cfg.Delegate.ExecPassthrough == nil {
		cfg.Delegate.ExecPassthrough = def.Delegate.ExecPassthrough
	}

	if cfg.Approval.Timeout == "" {
		cfg.Approval.Timeout = def.Approval.Timeout
	}
	if cfg.Approval.PollWait == "" {
		cfg.Approval.PollWait = def.Approval.PollWait
	}
	if cfg.Approval.SendAttempts == 0 {
		cfg.Approval.SendAttempts = def.Approval.SendAttempts
	}
	if cfg.Approval.InferMethodFromFields == nil {
		cfg.Approval.InferMethodFromFields = def.Approval.InferMethodFromFields
	}
	if len(cfg.Approval.MutatingMethods) == 0 {
		cfg.Approval.MutatingMethods = def.Approval.MutatingMethods
	}

	if cfg.Keyring.Service == "" {
		cfg.Keyring.Service = def.Keyring.Service
	}
	if cfg.Keyring.FileDir == "" {
		cfg.Keyring.FileDir = def.Keyring.FileDir
	}

	if cfg.Log.File == "" {
		cfg.Log.File = def.Log.File
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}
	if cfg.Log.AuditFile == "" {
		cfg.Log.AuditFile = def.Log.AuditFile
	}
	if cfg.Log.Stderr == nil {
		cfg.Log.Stderr = def.Log.Stderr
	}
}
