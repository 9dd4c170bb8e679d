// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"modlink-cli/internal/app/link"
	"modlink-cli/internal/config"
	"modlink-cli/internal/issue"
	"modlink-cli/pkg/gomod"
	"modlink-cli/pkg/unpack"
)

var (
	// depSpecs are the --dep flag values ("id=archive.zip").
	depSpecs []string
	// forceClean re-extracts dependency folders that already exist.
	forceClean bool
	// unpackOnly disables descriptor cross-linking for this invocation.
	unpackOnly bool
	// syncSession serializes the link phase across concurrent builds.
	syncSession string
	// sourceDir and depsDir override the configured directories.
	sourceDir string
	depsDir   string

	linkCmd = &cobra.Command{
		Use:   "link",
		Short: "Unpack dependency artifacts and cross-link module descriptors",
		Long: `Unpack dependency artifacts and cross-link module descriptors.

Each --dep flag names a packaged sibling module and the zip archive that
ships it. The archives are unpacked into the dependency directory, the
descriptors found inside are linked against each other, and every project
descriptor under the source directory gains replace directives pointing at
the local dependency folders. Originals are backed up next to each mutated
descriptor and reinstated by 'modlink restore'.`,
		RunE: runLink,
	}
)

func init() {
	linkCmd.Flags().StringArrayVar(&depSpecs, "dep", nil, "dependency artifact as id=archive.zip (repeatable)")
	linkCmd.Flags().BoolVar(&forceClean, "force-clean", false, "delete and re-extract existing dependency folders")
	linkCmd.Flags().BoolVar(&unpackOnly, "unpack-only", false, "unpack artifacts without touching descriptors")
	linkCmd.Flags().StringVar(&syncSession, "session", "", "serialize linking across builds sharing this session id")
	linkCmd.Flags().StringVar(&sourceDir, "source-dir", "", "project source directory (overrides configuration)")
	linkCmd.Flags().StringVar(&depsDir, "deps-dir", "", "dependency extraction directory (overrides configuration)")
}

func runLink(cmd *cobra.Command, _ []string) error {
	cfg, err := loadCLIConfig(cmd.Context())
	if err != nil {
		return reportConfigError(err)
	}
	applyLinkFlags(cmd, cfg)

	artifacts, err := parseArtifactSpecs(depSpecs)
	if err != nil {
		return err
	}

	o := link.New(cfg, artifacts, newLogger())
	result, err := o.OnBuildStart(cmd.Context())
	if err != nil {
		switch {
		case errors.Is(err, unpack.ErrArchive):
			rendered, _ := issue.Get(issue.ArchiveCorruptId).Render(string(cfg.UI.ColorScheme))
			fmt.Fprint(os.Stderr, rendered)
		case errors.Is(err, context.DeadlineExceeded):
			rendered, _ := issue.Get(issue.SessionLockTimeoutId).Render(string(cfg.UI.ColorScheme))
			fmt.Fprint(os.Stderr, rendered)
		case errors.Is(err, gomod.ErrMalformedDescriptor):
			rendered, _ := issue.Get(issue.DescriptorParseErrorId).Render(string(cfg.UI.ColorScheme))
			fmt.Fprint(os.Stderr, rendered)
		}
		return &ExitError{Code: 1, Err: fmt.Errorf("%s", formatErrorForDisplay(err, verbose))}
	}

	if cfg.ModuleMode && result.ProjectsFound == 0 {
		rendered, _ := issue.Get(issue.DescriptorNotFoundId).Render(string(cfg.UI.ColorScheme))
		fmt.Fprint(os.Stderr, rendered)
	}

	fmt.Printf("%s Unpacked %s artifact(s), linked %s dependency and %s project descriptor(s)\n",
		SuccessStyle.Render("✓"),
		ValueStyle.Render(fmt.Sprintf("%d", result.Unpacked)),
		ValueStyle.Render(fmt.Sprintf("%d", result.DepsLinked)),
		ValueStyle.Render(fmt.Sprintf("%d", result.ProjectsLinked)))

	// Path mode: the descriptors stay untouched, so the unpacked folders are
	// surfaced as a search-path fragment instead.
	if !cfg.ModuleMode {
		fmt.Println(o.ExtraSearchPath())
	}
	return nil
}

// applyLinkFlags overlays command-line flags onto the loaded configuration.
// Flags win only when set explicitly so config file values survive.
func applyLinkFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("force-clean") {
		cfg.ForceCleanDependencies = forceClean
	}
	if cmd.Flags().Changed("unpack-only") {
		cfg.ModuleMode = !unpackOnly
	}
	if cmd.Flags().Changed("session") {
		cfg.SyncSession = config.SessionID(syncSession)
	}
	if cmd.Flags().Changed("source-dir") {
		cfg.SourceDir = config.DirPath(sourceDir)
	}
	if cmd.Flags().Changed("deps-dir") {
		cfg.DepsDir = config.DirPath(depsDir)
	}
}

// parseArtifactSpecs converts "id=archive.zip" flag values into artifacts.
func parseArtifactSpecs(specs []string) ([]unpack.Artifact, error) {
	artifacts := make([]unpack.Artifact, 0, len(specs))
	for _, spec := range specs {
		id, archive, ok := strings.Cut(spec, "=")
		if !ok || id == "" || archive == "" {
			return nil, fmt.Errorf("invalid --dep value %q: expected id=archive.zip", spec)
		}
		artifacts = append(artifacts, unpack.Artifact{
			ID:      unpack.ArtifactID(id),
			Archive: archive,
		})
	}
	return artifacts, nil
}

// reportConfigError renders the config-load issue card and wraps the error
// for exit-code handling.
func reportConfigError(err error) error {
	rendered, _ := issue.Get(issue.ConfigLoadFailedId).Render(string(config.ColorSchemeDark))
	fmt.Fprint(os.Stderr, rendered)
	return &ExitError{Code: 1, Err: fmt.Errorf("%s", formatErrorForDisplay(err, verbose))}
}
