// Package cli implements the cobra-based CLI commands for envvibe.
//
// Each subcommand (render, ports, release) is defined in its own file
// within this package. This file defines the root command that serves as
// the parent for all subcommands and handles global flags.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/envvibe/internal/model"
)

// Global flag variables shared across all subcommands.
// These are bound to cobra persistent flags on the root command,
// which makes them available to every subcommand automatically.
var (
	// jsonOutput controls whether command output is formatted as JSON.
	jsonOutput bool

	// verbose enables diagnostic output on stderr.
	verbose bool
)

// Build information, injected from the main package.
var (
	// Version is the semantic version of the binary (e.g., "1.0.0").
	Version = "dev"

	// Commit is the Git commit hash the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// NewRootCommand creates and configures the root cobra command.
// The root command only provides help text and global flags; the work is
// done by the render, ports and release subcommands.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "envvibe",
		Short: "Render per-worktree .env files with conflict-free ports",
		Long: `envvibe renders an env template (.env.vibe by default) into a concrete
.env file for the current Git worktree.

  {{ auto_port() }}         is replaced by a free TCP port
  {{ branch() }}            is replaced by the current branch name
  {{ branch() | default }}  falls back to "default" on a detached HEAD

Ports handed to one worktree are recorded in a registry shared by all
worktrees of the repository, so sibling worktrees never receive the same
port.`,

		// Errors are printed by Execute in text or JSON form.
		SilenceUsage:  true,
		SilenceErrors: true,

		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	rootCmd.AddCommand(NewRenderCommand())
	rootCmd.AddCommand(NewPortsCommand())
	rootCmd.AddCommand(NewReleaseCommand())

	return rootCmd
}

// Execute runs the root command and translates its error into an exit
// code. CLIError values carry their own code; anything else exits with 1.
func Execute(rootCmd *cobra.Command) {
	if err := rootCmd.Execute(); err != nil {
		var cliErr *model.CLIError
		if errors.As(err, &cliErr) {
			printError(cliErr.Message, cliErr.Err)
			os.Exit(int(cliErr.Code))
		}

		printError(err.Error(), nil)
		os.Exit(int(model.ExitGeneralError))
	}
}

// printError writes an error to stderr as text or, with --json, as
// {"error": {"message": ..., "detail": ...}}. stdout stays reserved for
// command output.
func printError(message string, underlying error) {
	if jsonOutput {
		errMap := map[string]any{"message": message}
		if underlying != nil {
			errMap["detail"] = underlying.Error()
		}
		data, _ := json.MarshalIndent(map[string]any{"error": errMap}, "", "  ")
		fmt.Fprintln(os.Stderr, string(data))
		return
	}

	if underlying != nil {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", message, underlying)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", message)
	}
}

// VerboseLog prints a message to stderr only when verbose mode is enabled.
func VerboseLog(format string, args ...any) {
	if verbose {
		fmt.Fprintf(os.Stderr, "[verbose] "+format+"\n", args...)
	}
}

// IsJSONOutput returns whether the --json flag is set.
// Subcommands use this to decide their output format.
func IsJSONOutput() bool {
	return jsonOutput
}
