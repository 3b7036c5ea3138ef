// Package cmd implements the gh-gate command line.
//
// Invoked as gh (through a symlink or a renamed copy), every argument
// belongs to the wrapped tool. Invoked as gh-gate, the setup subcommands
// are available too and anything else is treated as a gh command line.
package cmd

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// ProgramName is the name under which the management commands are
// available.
const ProgramName = "gh-gate"

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "gh-gate [gh arguments...]",
	Short: "Human approval gateway for the GitHub CLI",
	Long: `gh-gate wraps the GitHub CLI. Read-only commands run immediately; creating a
pull request or calling the API with a mutating method first asks for
approval in Telegram. The repository token lives in the system keyring and
is only handed to gh itself.

Put gh-gate on PATH ahead of gh under the name "gh", or call it directly:
  gh-gate pr create --title "Fix typo" --body "..."

Run 'gh-gate setup' to store credentials.`,
	Args:               cobra.ArbitraryArgs,
	DisableFlagParsing: true,
	SilenceUsage:       true,
	SilenceErrors:      true,
	RunE:               runRoot,
}

func init() {
	// "help" and "completion" belong to gh.
	rootCmd.SetHelpCommand(&cobra.Command{Use: "gh-gate-help", Hidden: true})
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

func runRoot(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return cmd.Help()
	}
	return runGate(cmd.Context(), args)
}

// Execute runs gh-gate. invokedAs is argv[0]; args excludes it.
func Execute(ctx context.Context, invokedAs string, args []string) error {
	if !isManagementName(invokedAs) {
		return runGate(ctx, args)
	}
	// A nil slice would make cobra fall back to os.Args.
	rootCmd.SetArgs(append([]string{}, args...))
	return rootCmd.ExecuteContext(ctx)
}

func isManagementName(argv0 string) bool {
	name := strings.TrimSuffix(filepath.Base(argv0), ".exe")
	return name == ProgramName
}
