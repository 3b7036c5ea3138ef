// Package secret reads and stores gh-gate's credentials in the system
// keyring. Values never leave this package except to be handed to the
// delegated process or the notification channel.
package secret

import (
	"errors"
	"fmt"
	"os"

	"github.com/99designs/keyring"

	"github.com/xdg/gh-gate/internal/config"
)

// Key names one stored secret.
type Key string

const (
	// RepoToken is the credential injected into the delegated command.
	RepoToken Key = "repo-token"
	// NotifyBotToken authenticates the notification bot.
	NotifyBotToken Key = "notify-bot-token"
	// NotifyChatID is the chat approval notices are sent to.
	NotifyChatID Key = "notify-chat-id"
)

// Keys lists every secret gh-gate uses, in display order.
var Keys = []Key{RepoToken, NotifyBotToken, NotifyChatID}

// PasswordEnv supplies the passphrase for the encrypted file backend
// without prompting.
const PasswordEnv = "GH_GATE_KEYRING_PASSWORD"

// ErrMissing is returned when a secret has not been stored.
var ErrMissing = errors.New("secret not found")

// Provider reads and writes secrets.
type Provider interface {
	Get(key Key) (string, error)
	Put(key Key, value string) error
}

// Keyring is a Provider over a keyring.Keyring.
type Keyring struct {
	ring keyring.Keyring
}

var _ Provider = (*Keyring)(nil)

// NewKeyring wraps an already opened keyring.
func NewKeyring(ring keyring.Keyring) *Keyring {
	return &Keyring{ring: ring}
}

// Open opens the keyring described by cfg.
func Open(cfg config.KeyringConfig) (*Keyring, error) {
	kc := keyring.Config{
		ServiceName:              cfg.Service,
		FileDir:                  cfg.FileDir,
		FilePasswordFunc:         passwordFunc(),
		KeychainTrustApplication: true,
		LibSecretCollectionName:  "login",
		KWalletAppID:             cfg.Service,
		KWalletFolder:            cfg.Service,
		WinCredPrefix:            cfg.Service,
	}
	for _, b := range cfg.Backends {
		kc.AllowedBackends = append(kc.AllowedBackends, keyring.BackendType(b))
	}

	ring, err := keyring.Open(kc)
	if err != nil {
		return nil, fmt.Errorf("open keyring %q: %w", cfg.Service, err)
	}
	return NewKeyring(ring), nil
}

func passwordFunc() keyring.PromptFunc {
	if pw := os.Getenv(PasswordEnv); pw != "" {
		return keyring.FixedStringPrompt(pw)
	}
	return keyring.TerminalPrompt
}

// Get returns the value stored under key, or an error wrapping ErrMissing.
// Empty values count as missing.
func (k *Keyring) Get(key Key) (string, error) {
	item, err := k.ring.Get(string(key))
	if errors.Is(err, keyring.ErrKeyNotFound) || (err == nil && len(item.Data) == 0) {
		return "", fmt.Errorf("%w: %s", ErrMissing, key)
	}
	if err != nil {
		return "", fmt.Errorf("read secret %s: %w", key, err)
	}
	return string(item.Data), nil
}

// Put stores value under key, replacing any previous value.
func (k *Keyring) Put(key Key, value string) error {
	if value == "" {
		return fmt.Errorf("store secret %s: empty value", key)
	}
	err := k.ring.Set(keyring.Item{
		Key:         string(key),
		Data:        []byte(value),
		Label:       "gh-gate " + string(key),
		Description: "gh-gate credential",
	})
	if err != nil {
		return fmt.Errorf("store secret %s: %w", key, err)
	}
	return nil
}

// Mask hides all but the edges of a secret for display.
func Mask(s string) string {
	if len(s) <= 12 {
		return "****"
	}
	return s[:7] + "…" + s[len(s)-4:]
}
