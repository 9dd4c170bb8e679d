// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"modlink-cli/internal/app/link"
	"modlink-cli/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Relink descriptors whenever they change",
	Long: `Relink descriptors whenever they change.

Runs an initial link pass, then watches the source directory for module
descriptor changes and relinks after a debounce period. The linker's own
write artifacts are ignored, and linking is idempotent, so the watcher does
not retrigger itself. Stop with Ctrl+C; descriptors are restored on exit
unless restoration is disabled in configuration.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringArrayVar(&depSpecs, "dep", nil, "dependency artifact as id=archive.zip (repeatable)")
}

func runWatch(cmd *cobra.Command, _ []string) error {
	cfg, err := loadCLIConfig(cmd.Context())
	if err != nil {
		return reportConfigError(err)
	}

	artifacts, err := parseArtifactSpecs(depSpecs)
	if err != nil {
		return err
	}

	o := link.New(cfg, artifacts, newLogger())

	fmt.Printf("%s Watch mode: initial link pass\n", ValueStyle.Render("→"))
	if _, linkErr := o.OnBuildStart(cmd.Context()); linkErr != nil {
		// Not fatal; the user may fix the descriptor and save again.
		fmt.Fprintf(os.Stderr, "%s Initial link failed: %v\n", WarningStyle.Render("!"), linkErr)
	}

	fmt.Printf("\n%s Watching %s for descriptor changes (Ctrl+C to stop)...\n\n",
		ValueStyle.Render("→"), ValueStyle.Render(string(cfg.SourceDir)))

	w, err := watch.New(watch.Config{
		BaseDir:  string(cfg.SourceDir),
		Patterns: []string{"**/go.mod"},
		Debounce: time.Duration(cfg.Watch.DebounceMs) * time.Millisecond,
		OnChange: func(ctx context.Context, changed []string) error {
			fmt.Printf("%s Detected %d change(s). Relinking...\n", ValueStyle.Render("→"), len(changed))
			if _, linkErr := o.OnBuildStart(ctx); linkErr != nil {
				fmt.Fprintf(os.Stderr, "%s Relink failed: %v\n", WarningStyle.Render("!"), linkErr)
			}
			fmt.Printf("\n%s Watching for descriptor changes...\n\n", ValueStyle.Render("→"))
			return nil
		},
	})
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	runErr := w.Run(cmd.Context())

	if endErr := o.OnBuildEnd(); endErr != nil {
		fmt.Fprintf(os.Stderr, "%s Restore on exit failed: %v\n", WarningStyle.Render("!"), endErr)
	}
	return runErr
}
