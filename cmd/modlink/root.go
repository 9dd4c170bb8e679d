// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"modlink-cli/internal/config"
	"modlink-cli/internal/issue"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	// verbose enables verbose output
	verbose bool
	// cfgFile allows specifying a custom config file
	cfgFile string

	// configProvider loads configuration for all commands. Tests can swap it
	// for a stub.
	configProvider = config.NewProvider()

	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "modlink",
		Short: "Cross-link module descriptors for multi-module builds",
		Long: TitleStyle.Render("modlink") + SubtitleStyle.Render(" - Cross-link module descriptors for multi-module builds") + `

modlink unpacks sibling modules shipped as zip artifacts and rewires the
module descriptors (go.mod files) of a multi-module project so sibling
dependencies resolve to local filesystem paths instead of remote origins.
Every mutated descriptor is backed up first and restored when the build
ends, so version control never sees the linked state.

` + SubtitleStyle.Render("Typical build integration:") + `
  1. Run 'modlink link' at build start with the dependency artifacts
  2. Compile against the linked descriptors
  3. Run 'modlink restore' at build end

` + SubtitleStyle.Render("Examples:") + `
  modlink link --dep grp:lib-a:1.0=lib-a.zip    Unpack and cross-link
  modlink restore                               Reinstate original descriptors
  modlink gopath                                Print extra search path
  modlink watch --dep grp:lib-a:1.0=lib-a.zip   Relink on descriptor changes
  modlink config show                           Show current configuration`,
	}
)

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/modlink/config.cue)")

	// Add subcommands
	rootCmd.AddCommand(linkCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(unpackCmd)
	rootCmd.AddCommand(gopathCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(configCmd)
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	// Use fang.Execute for enhanced Cobra styling
	// Pass version via fang.WithVersion() since fang overrides rootCmd.Version
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// loadCLIConfig loads configuration honoring the --config flag. The verbose
// flag is backfilled from configuration when not set on the command line.
func loadCLIConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := configProvider.Load(ctx, config.LoadOptions{ConfigFilePath: cfgFile})
	if err != nil {
		return nil, err
	}
	if !verbose {
		verbose = cfg.UI.Verbose
	}
	return cfg, nil
}

// newLogger builds the CLI logger. Verbose mode lowers the level to debug.
func newLogger() *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		Prefix: config.AppName,
	})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}

// GetVerbose returns the verbose flag value
func GetVerbose() bool {
	return verbose
}
