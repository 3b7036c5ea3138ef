package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/xdg/gh-gate/internal/clog"
	"github.com/xdg/gh-gate/internal/pathutil"
)

// EnvPrefix is the prefix for environment variables that override config
// keys, e.g. GH_GATE_APPROVAL_TIMEOUT for approval.timeout.
const EnvPrefix = "GH_GATE"

// envKeys lists the config keys that may be overridden from the environment.
var envKeys = []string{
	"delegate.name",
	"delegate.token_env",
	"approval.timeout",
	"approval.poll_wait",
	"approval.send_attempts",
	"telegram.api_url",
	"log.file",
	"log.level",
	"log.audit_file",
}

// Load loads the configuration from the default config path.
// If the config file doesn't exist, a commented default file is written and
// the defaults are returned. Environment overrides are applied before
// validation. Unset fields take their defaults and ~ is expanded in paths.
func Load() (*Config, error) {
	path := Path()
	clog.Debug("config: loading %s", path)

	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		clog.Debug("config: file not found, creating defaults")
		if writeErr := WriteDefault(); writeErr != nil {
			clog.Warn("config: failed to create default config: %v", writeErr)
		}
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		cfg, err = Parse(data)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	applyDefaults(cfg)
	expandPaths(cfg)
	return cfg, nil
}

// applyEnvOverrides copies GH_GATE_* variables onto cfg.
func applyEnvOverrides(cfg *Config) error {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}

	str := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}
	str("delegate.name", &cfg.Delegate.Name)
	str("delegate.token_env", &cfg.Delegate.TokenEnv)
	str("approval.timeout", &cfg.Approval.Timeout)
	str("approval.poll_wait", &cfg.Approval.PollWait)
	str("telegram.api_url", &cfg.Telegram.APIURL)
	str("log.file", &cfg.Log.File)
	str("log.level", &cfg.Log.Level)
	str("log.audit_file", &cfg.Log.AuditFile)

	if v.IsSet("approval.send_attempts") {
		cfg.Approval.SendAttempts = v.GetInt("approval.send_attempts")
	}
	return nil
}

// expandPaths expands ~ to the home directory in all path fields.
func expandPaths(cfg *Config) {
	cfg.Log.File = pathutil.ExpandHome(cfg.Log.File)
	cfg.Log.AuditFile = pathutil.ExpandHome(cfg.Log.AuditFile)
	cfg.Keyring.FileDir = pathutil.ExpandHome(cfg.Keyring.FileDir)
}
