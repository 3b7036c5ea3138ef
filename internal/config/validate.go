package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/xdg/gh-gate/internal/clog"
)

var knownMethods = map[string]bool{
	"GET": true, "HEAD": true, "POST": true, "PUT": true,
	"PATCH": true, "DELETE": true, "OPTIONS": true,
}

// Validate checks that every set field of cfg holds a usable value.
// Returns an error naming the first invalid field.
func Validate(cfg *Config) error {
	if cfg.Delegate.Name != "" && strings.ContainsRune(cfg.Delegate.Name, '/') {
		return fmt.Errorf("delegate.name: must be a bare command name, got %q", cfg.Delegate.Name)
	}
	if cfg.Delegate.TokenEnv != "" && strings.ContainsAny(cfg.Delegate.TokenEnv, "= ") {
		return fmt.Errorf("delegate.token_env: invalid variable name %q", cfg.Delegate.TokenEnv)
	}

	if cfg.Approval.Timeout != "" {
		if err := validateDuration(cfg.Approval.Timeout, "approval.timeout"); err != nil {
			return err
		}
	}
	if cfg.Approval.PollWait != "" {
		if err := validateDuration(cfg.Approval.PollWait, "approval.poll_wait"); err != nil {
			return err
		}
	}
	if cfg.Approval.SendAttempts < 0 {
		return fmt.Errorf("approval.send_attempts: must be non-negative, got %d", cfg.Approval.SendAttempts)
	}
	for i, m := range cfg.Approval.MutatingMethods {
		if !knownMethods[strings.ToUpper(m)] {
			return fmt.Errorf("approval.mutating_methods[%d]: unknown HTTP method %q", i, m)
		}
	}

	if cfg.Telegram.APIURL != "" {
		u, err := url.Parse(cfg.Telegram.APIURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("telegram.api_url: invalid URL %q", cfg.Telegram.APIURL)
		}
	}

	if cfg.Log.Level != "" && !clog.ValidLevel(cfg.Log.Level) {
		return fmt.Errorf("log.level: invalid value %q, must be one of: debug, info, warn, error", cfg.Log.Level)
	}

	return nil
}

// validateDuration validates that d parses and is positive.
func validateDuration(d, field string) error {
	parsed, err := time.ParseDuration(d)
	if err != nil {
		return fmt.Errorf("%s: invalid duration %q", field, d)
	}
	if parsed <= 0 {
		return fmt.Errorf("%s: must be positive, got %q", field, d)
	}
	return nil
}
