// Package config provides the gh-gate configuration types and the code that
// loads them from ~/.config/gh-gate/config.yaml.
package config

import "time"

// Config represents the gh-gate configuration file.
type Config struct {
	Delegate DelegateConfig `yaml:"delegate,omitempty"`
	Approval ApprovalConfig `yaml:"approval,omitempty"`
	Telegram TelegramConfig `yaml:"telegram,omitempty"`
	Keyring  KeyringConfig  `yaml:"keyring,omitempty"`
	Log      LogConfig      `yaml:"log,omitempty"`
}

// DelegateConfig describes the wrapped command.
type DelegateConfig struct {
	// Name is the executable looked up on PATH, skipping gh-gate itself.
	Name string `yaml:"name,omitempty"`
	// TokenEnv is the variable the repository token is injected as.
	TokenEnv string `yaml:"token_env,omitempty"`
	// ExecPassthrough replaces the gh-gate process with the delegate for
	// calls that need no approval, where the platform supports it.
	ExecPassthrough *bool `yaml:"exec_passthrough,omitempty"`
}

// ApprovalConfig contains the approval round-trip settings.
type ApprovalConfig struct {
	Timeout               string   `yaml:"timeout,omitempty"`
	PollWait              string   `yaml:"poll_wait,omitempty"`
	SendAttempts          int      `yaml:"send_attempts,omitempty"`
	InferMethodFromFields *bool    `yaml:"infer_method_from_fields,omitempty"`
	MutatingMethods       []string `yaml:"mutating_methods,omitempty"`
}

// TelegramConfig contains notification channel settings. Credentials live
// in the keyring, never here.
type TelegramConfig struct {
	APIURL string `yaml:"api_url,omitempty"`
}

// KeyringConfig selects how secrets are stored.
type KeyringConfig struct {
	Service  string   `yaml:"service,omitempty"`
	Backends []string `yaml:"backends,omitempty"`
	FileDir  string   `yaml:"file_dir,omitempty"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	File      string `yaml:"file,omitempty"`
	Level     string `yaml:"level,omitempty"`
	AuditFile string `yaml:"audit_file,omitempty"`
	Stderr    *bool  `yaml:"stderr,omitempty"`
}

// TimeoutDuration returns the approval timeout. Values are validated at
// load time; an unparsable value yields the default.
func (a ApprovalConfig) TimeoutDuration() time.Duration {
	return parseDurationOr(a.Timeout, DefaultApprovalTimeout)
}

// PollWaitDuration returns the upper bound for one long poll.
func (a ApprovalConfig) PollWaitDuration() time.Duration {
	return parseDurationOr(a.PollWait, DefaultPollWait)
}

// InferMethod reports whether field flags imply POST for api calls.
func (a ApprovalConfig) InferMethod() bool {
	return a.InferMethodFromFields == nil || *a.InferMethodFromFields
}

// UseExec reports whether passthrough calls replace the process.
func (d DelegateConfig) UseExec() bool {
	return d.ExecPassthrough == nil || *d.ExecPassthrough
}

// StderrEnabled reports whether warnings are echoed to stderr.
func (l LogConfig) StderrEnabled() bool {
	return l.Stderr == nil || *l.Stderr
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
