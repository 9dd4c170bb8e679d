// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"modlink-cli/internal/issue"
	"modlink-cli/pkg/unpack"
)

var (
	// unpackTarget is the extraction directory for the standalone unpack.
	unpackTarget string
	// unpackForceClean re-extracts an already-populated target directory.
	unpackForceClean bool

	unpackCmd = &cobra.Command{
		Use:   "unpack <archive>",
		Short: "Extract a single dependency artifact",
		Long: `Extract a single dependency artifact.

Unpacks one zip archive the same way 'modlink link' does: when the archive
carries a source-folder manifest, only the listed folders are extracted with
their prefixes stripped into a src subdirectory of the target; otherwise the
full archive content is extracted. The target defaults to the dependency
directory plus the archive base name.`,
		Args: cobra.ExactArgs(1),
		RunE: runUnpack,
	}
)

func init() {
	unpackCmd.Flags().StringVar(&unpackTarget, "target", "", "extraction directory (default: <deps_dir>/<archive base name>)")
	unpackCmd.Flags().BoolVar(&unpackForceClean, "force-clean", false, "delete and re-extract an existing target directory")
}

func runUnpack(cmd *cobra.Command, args []string) error {
	cfg, err := loadCLIConfig(cmd.Context())
	if err != nil {
		return reportConfigError(err)
	}

	archive := args[0]
	target := unpackTarget
	if target == "" {
		base := strings.TrimSuffix(filepath.Base(archive), filepath.Ext(archive))
		target = filepath.Join(string(cfg.DepsDir), base)
	}

	policy := unpack.PolicySkip
	if unpackForceClean || cfg.ForceCleanDependencies {
		policy = unpack.PolicyClean
	}

	if err := unpack.Extract(archive, target, policy); err != nil {
		rendered, _ := issue.Get(issue.ArchiveCorruptId).Render(string(cfg.UI.ColorScheme))
		fmt.Fprint(os.Stderr, rendered)
		return &ExitError{Code: 1, Err: fmt.Errorf("%s", formatErrorForDisplay(err, verbose))}
	}

	fmt.Printf("%s Extracted %s into %s\n",
		SuccessStyle.Render("✓"), ValueStyle.Render(archive), ValueStyle.Render(target))
	return nil
}
