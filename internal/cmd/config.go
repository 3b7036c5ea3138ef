package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xdg/gh-gate/internal/config"
	"github.com/xdg/gh-gate/internal/term"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
	Long: `Manage gh-gate's configuration.

The configuration file is stored at ~/.config/gh-gate/config.yaml
(or $XDG_CONFIG_HOME/gh-gate/config.yaml if XDG_CONFIG_HOME is set).
Credentials are never stored there; see 'gh-gate setup'.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective config",
	Long: `Print the effective configuration as YAML, after defaults and GH_GATE_*
environment overrides are applied.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit config in $EDITOR",
	Long: `Open the configuration file in your editor.

The editor is determined by the EDITOR environment variable, falling back to vi.
If the configuration file doesn't exist, a default one is created first.`,
	Args: cobra.NoArgs,
	RunE: runConfigEdit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print config file path",
	Args:  cobra.NoArgs,
	Run:   runConfigPath,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default config file",
	Long: `Create the default configuration file if it doesn't exist.
If the file already exists, this command does nothing.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

func init() {
	setupCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configInitCmd)
}

func runConfigShow(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	data, err := config.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	term.Print(string(data))
	return nil
}

func runConfigEdit(_ *cobra.Command, _ []string) error {
	if err := config.Edit(); err != nil {
		return fmt.Errorf("failed to edit config: %w", err)
	}
	return nil
}

func runConfigPath(_ *cobra.Command, _ []string) {
	term.Println(config.Path())
}

func runConfigInit(_ *cobra.Command, _ []string) error {
	if err := config.WriteDefault(); err != nil {
		return fmt.Errorf("failed to create config: %w", err)
	}
	term.Printf("Config file: %s\n", config.Path())
	return nil
}
