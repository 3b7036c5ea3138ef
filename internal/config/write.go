package config

import (
	"errors"
	"fmt"
	"os"
)

const defaultConfigTemplate = `# gh-gate configuration
#
# Credentials are not stored here. Run "gh-gate setup" to put the GitHub
# token and the Telegram bot credentials into the system keyring.

delegate:
  # Executable looked up on PATH. gh-gate skips its own binary.
  name: gh
  # Environment variable the GitHub token is passed to the delegate as.
  token_env: GH_TOKEN
  # Replace the gh-gate process with gh for read-only calls.
  exec_passthrough: true

approval:
  # How long to wait for a decision before giving up.
  timeout: 5m
  # Upper bound for a single long poll against the bot API.
  poll_wait: 30s
  # Notification send attempts before failing closed.
  send_attempts: 3
  # Treat "gh api" calls with -f/-F/--input as POST, like gh does.
  infer_method_from_fields: true
  mutating_methods: [POST, PATCH, PUT, DELETE]

telegram:
  # Bot API server, for self-hosted servers. Empty uses api.telegram.org.
  api_url: ""

keyring:
  service: gh-gate
  # Restrict keyring backends, e.g. [keychain] or [secret-service, file].
  # Empty lets the platform choose.
  backends: []
  # Directory for the encrypted file backend.
  file_dir: ~/.local/share/gh-gate/keyring

log:
  file: ~/.local/state/gh-gate/gh-gate.log
  level: info
  audit_file: ~/.local/state/gh-gate/audit.log
  # Echo warnings and errors to stderr.
  stderr: true
`

// WriteDefault creates the default configuration file with helpful comments.
// If the config file already exists, it returns nil without overwriting.
// The file is written with 0600 permissions (user read/write only).
func WriteDefault() error {
	path := Path()

	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat config file: %w", err)
	}

	if err := EnsureDir(); err != nil {
		return err
	}

	if err := os.WriteFile(path, []byte(defaultConfigTemplate), 0o600); err != nil {
		return fmt.Errorf("write default config: %w", err)
	}
	return nil
}
