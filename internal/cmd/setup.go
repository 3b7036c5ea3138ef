package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/xdg/gh-gate/internal/config"
	"github.com/xdg/gh-gate/internal/executor"
	"github.com/xdg/gh-gate/internal/prompt"
	"github.com/xdg/gh-gate/internal/secret"
	"github.com/xdg/gh-gate/internal/telegram"
	"github.com/xdg/gh-gate/internal/term"
	"github.com/xdg/gh-gate/internal/version"
)

// chatDetectTimeout bounds how long setup waits for the first message to
// the bot.
const chatDetectTimeout = 2 * time.Minute

// Seams for tests.
var (
	setupCredentialReader prompt.CredentialReader = prompt.NewTerminalCredentialReader(os.Stdin, os.Stderr)
	setupYesNo            prompt.YesNoPrompter    = prompt.NewStdinYesNoPrompter(os.Stdin, os.Stderr)
	setupExecutor         executor.Executor       = executor.NewRealExecutor()
	telegramVerify                                = telegram.Verify
	telegramDetectChat                            = telegram.DetectChatID
	telegramSendTest                              = telegram.SendTest
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Store credentials and manage configuration",
	Long: `Store the credentials gh-gate needs in the system keyring.

With no subcommand, runs the token and telegram steps and sends a test
message.`,
	Version: version.String(),
	RunE:    runSetupAll,
}

var setupTokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Store the GitHub token handed to gh",
	Long: `Read a GitHub token without echo, check it by asking GitHub who it belongs
to, and store it in the keyring as repo-token.`,
	Args: cobra.NoArgs,
	RunE: runSetupToken,
}

var setupTelegramCmd = &cobra.Command{
	Use:   "telegram",
	Short: "Store the Telegram bot token and chat",
	Long: `Read a Telegram bot token without echo, then wait for you to send the bot a
message so the chat it should post approval requests to can be recorded.`,
	Args: cobra.NoArgs,
	RunE: runSetupTelegram,
}

var setupTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Send a test message to the approval chat",
	Args:  cobra.NoArgs,
	RunE:  runSetupTest,
}

var setupShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show stored credentials, masked",
	Args:  cobra.NoArgs,
	RunE:  runSetupShow,
}

func init() {
	rootCmd.AddCommand(setupCmd)
	setupCmd.AddCommand(setupTokenCmd)
	setupCmd.AddCommand(setupTelegramCmd)
	setupCmd.AddCommand(setupTestCmd)
	setupCmd.AddCommand(setupShowCmd)
}

// setupEnv is what every setup step needs.
type setupEnv struct {
	cfg     *config.Config
	secrets secret.Provider
}

func loadSetupEnv() (*setupEnv, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	secrets, err := openSecrets(cfg.Keyring)
	if err != nil {
		return nil, keyringError(err)
	}
	return &setupEnv{cfg: cfg, secrets: secrets}, nil
}

func runSetupAll(cmd *cobra.Command, _ []string) error {
	for _, step := range []func(*cobra.Command, []string) error{runSetupToken, runSetupTelegram, runSetupTest} {
		if err := step(cmd, nil); err != nil {
			return err
		}
	}
	return nil
}

// confirmReplace asks before overwriting a stored secret. It returns true
// when nothing is stored yet.
func confirmReplace(secrets secret.Provider, key secret.Key) (bool, error) {
	current, err := secrets.Get(key)
	if errors.Is(err, secret.ErrMissing) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return setupYesNo.PromptYesNo(fmt.Sprintf("%s is already stored (%s). Replace it? [y/N]: ", key, secret.Mask(current)), false)
}

func runSetupToken(cmd *cobra.Command, _ []string) error {
	env, err := loadSetupEnv()
	if err != nil {
		return err
	}

	ok, err := confirmReplace(env.secrets, secret.RepoToken)
	if err != nil || !ok {
		return err
	}

	token, err := setupCredentialReader.ReadCredential("GitHub token: ")
	if err != nil {
		return err
	}
	if token == "" {
		return errors.New("no token entered")
	}

	login, err := githubLogin(cmd.Context(), env.cfg, token)
	if err != nil {
		return fmt.Errorf("token check failed: %w", err)
	}

	if err := env.secrets.Put(secret.RepoToken, token); err != nil {
		return err
	}
	term.Printf("Stored repo-token for GitHub user %s.\n", login)
	return nil
}

// githubLogin asks GitHub, through the real gh, who token belongs to.
func githubLogin(ctx context.Context, cfg *config.Config, token string) (string, error) {
	self, _ := os.Executable()
	path, err := executor.LocateDelegate(cfg.Delegate.Name, os.Getenv("PATH"), self)
	if err != nil {
		return "", err
	}

	resp := setupExecutor.Execute(ctx, executor.ExecuteRequest{
		Command: path,
		Args:    []string{"api", "user", "--jq", ".login"},
		Env:     executor.BuildEnv(os.Environ(), cfg.Delegate.TokenEnv, token),
		Timeout: 30000,
	})
	if resp.Status != executor.StatusCompleted {
		return "", errors.New(resp.Error)
	}
	if resp.ExitCode != 0 {
		return "", fmt.Errorf("%s exited %d: %s", cfg.Delegate.Name, resp.ExitCode, strings.TrimSpace(resp.Stderr))
	}
	login := strings.TrimSpace(resp.Stdout)
	if login == "" {
		return "", errors.New("empty response from GitHub")
	}
	return login, nil
}

func runSetupTelegram(cmd *cobra.Command, _ []string) error {
	env, err := loadSetupEnv()
	if err != nil {
		return err
	}

	ok, err := confirmReplace(env.secrets, secret.NotifyBotToken)
	if err != nil || !ok {
		return err
	}

	token, err := setupCredentialReader.ReadCredential("Telegram bot token (from @BotFather): ")
	if err != nil {
		return err
	}
	if token == "" {
		return errors.New("no token entered")
	}

	opts := telegramOptions(env.cfg)
	ctx := cmd.Context()
	username, err := telegramVerify(ctx, token, opts)
	if err != nil {
		return err
	}

	term.Printf("Send any message to @%s from the chat that should receive approval requests.\n", username)
	detectCtx, cancel := context.WithTimeout(ctx, chatDetectTimeout)
	defer cancel()
	chat, err := telegramDetectChat(detectCtx, token, opts)
	if err != nil {
		return err
	}

	if err := env.secrets.Put(secret.NotifyBotToken, token); err != nil {
		return err
	}
	if err := env.secrets.Put(secret.NotifyChatID, telegram.FormatChatID(chat.ID)); err != nil {
		return err
	}
	term.Printf("Approval requests will go to %s (chat %d).\n", chat.Name, chat.ID)
	return nil
}

func runSetupTest(cmd *cobra.Command, _ []string) error {
	env, err := loadSetupEnv()
	if err != nil {
		return err
	}
	token, err := env.secrets.Get(secret.NotifyBotToken)
	if err != nil {
		return err
	}
	chatID, err := env.secrets.Get(secret.NotifyChatID)
	if err != nil {
		return err
	}

	text := "gh-gate test message. Approval requests will arrive in this chat."
	if err := telegramSendTest(cmd.Context(), token, chatID, text, telegramOptions(env.cfg)); err != nil {
		return err
	}
	term.Println("Test message sent.")
	return nil
}

func runSetupShow(_ *cobra.Command, _ []string) error {
	env, err := loadSetupEnv()
	if err != nil {
		return err
	}
	for _, key := range secret.Keys {
		v, err := env.secrets.Get(key)
		switch {
		case errors.Is(err, secret.ErrMissing):
			term.Printf("%-18s (not set)\n", key)
		case err != nil:
			return err
		case key == secret.NotifyChatID:
			term.Printf("%-18s %s\n", key, v)
		default:
			term.Printf("%-18s %s\n", key, secret.Mask(v))
		}
	}
	return nil
}
