// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"modlink-cli/internal/app/link"
	"modlink-cli/internal/config"
	"modlink-cli/internal/issue"
)

var (
	// restoreSourceDir overrides the configured source directory.
	restoreSourceDir string

	restoreCmd = &cobra.Command{
		Use:   "restore",
		Short: "Reinstate original module descriptors",
		Long: `Reinstate original module descriptors.

Walks the source directory for descriptor backups left by 'modlink link'
and restores each descriptor to its pre-link content. Running restore when
nothing is linked is a no-op.`,
		RunE: runRestore,
	}
)

func init() {
	restoreCmd.Flags().StringVar(&restoreSourceDir, "source-dir", "", "project source directory (overrides configuration)")
}

func runRestore(cmd *cobra.Command, _ []string) error {
	cfg, err := loadCLIConfig(cmd.Context())
	if err != nil {
		return reportConfigError(err)
	}
	if cmd.Flags().Changed("source-dir") {
		cfg.SourceDir = config.DirPath(restoreSourceDir)
	}

	o := link.New(cfg, nil, newLogger())
	if err := o.Restore(); err != nil {
		rendered, _ := issue.Get(issue.RestoreIncompleteId).Render(string(cfg.UI.ColorScheme))
		fmt.Fprint(os.Stderr, rendered)
		return &ExitError{Code: 1, Err: fmt.Errorf("%s", formatErrorForDisplay(err, verbose))}
	}

	fmt.Printf("%s Restored descriptors under %s\n",
		SuccessStyle.Render("✓"), ValueStyle.Render(string(cfg.SourceDir)))
	return nil
}
