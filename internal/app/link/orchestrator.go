// SPDX-License-Identifier: MPL-2.0

package link

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"modlink-cli/internal/config"
	"modlink-cli/internal/discovery"
	"modlink-cli/internal/sessionlock"
	"modlink-cli/pkg/crosslink"
	"modlink-cli/pkg/epoch"
	"modlink-cli/pkg/gomod"
	"modlink-cli/pkg/platform"
	"modlink-cli/pkg/unpack"
)

type (
	// Orchestrator drives the link lifecycle for one build. Construct with
	// New; the zero value is not usable.
	Orchestrator struct {
		cfg       *config.Config
		artifacts []unpack.Artifact
		logger    *log.Logger
	}

	// Result summarizes a completed build-start pass.
	Result struct {
		// Unpacked counts artifacts extracted (or found already extracted).
		Unpacked int
		// DepsLinked counts dependency descriptors that gained directives.
		DepsLinked int
		// ProjectsFound counts project descriptors discovered under the
		// source directory.
		ProjectsFound int
		// ProjectsLinked counts project descriptors that gained directives.
		ProjectsLinked int
	}
)

// New creates an Orchestrator for the given configuration and dependency
// artifacts. A nil logger defaults to a stderr logger.
func New(cfg *config.Config, artifacts []unpack.Artifact, logger *log.Logger) *Orchestrator {
	if logger == nil {
		logger = log.NewWithOptions(os.Stderr, log.Options{
			Prefix: config.AppName,
		})
	}
	return &Orchestrator{cfg: cfg, artifacts: artifacts, logger: logger}
}

// OnBuildStart runs the build-start sequence: heal leftover epochs from a
// crashed run, unpack dependency artifacts, and (in module mode) cross-link
// dependency descriptors against each other and project descriptors against
// the dependencies. Artifact failures are isolated so one broken archive
// does not block the rest; all failures are joined into the returned error.
func (o *Orchestrator) OnBuildStart(ctx context.Context) (Result, error) {
	var result Result

	// A crashed previous run may have left mutated descriptors behind.
	if err := epoch.RestoreTree(string(o.cfg.SourceDir)); err != nil {
		return result, fmt.Errorf("failed to heal leftover descriptor epochs: %w", err)
	}

	folders, unpackErr := o.unpackArtifacts()
	result.Unpacked = len(folders)

	if !o.cfg.ModuleMode {
		return result, unpackErr
	}

	linkErr := o.linkPhase(ctx, folders, &result)
	return result, errors.Join(unpackErr, linkErr)
}

// OnBuildEnd runs the build-end sequence: restore every descriptor mutated
// during the build, unless restoration is disabled in configuration.
func (o *Orchestrator) OnBuildEnd() error {
	if !o.cfg.RestoreDescriptors {
		o.logger.Debug("descriptor restore disabled, keeping linked descriptors")
		return nil
	}
	if err := epoch.RestoreTree(string(o.cfg.SourceDir)); err != nil {
		return fmt.Errorf("failed to restore descriptors: %w", err)
	}
	return nil
}

// Restore reinstates original descriptors unconditionally. Unlike
// OnBuildEnd it ignores the restore_descriptors setting; it backs the
// explicit restore operation.
func (o *Orchestrator) Restore() error {
	if err := epoch.RestoreTree(string(o.cfg.SourceDir)); err != nil {
		return fmt.Errorf("failed to restore descriptors: %w", err)
	}
	return nil
}

// ExtraSearchPath returns an OS-native path-list fragment of the unpacked
// dependency folders, suitable for appending to GOPATH in non-module builds.
// Every artifact folder contributes whether or not it carries a descriptor;
// GOPATH-era artifacts ship plain sources without one. Duplicates are dropped
// while preserving first-seen order.
func (o *Orchestrator) ExtraSearchPath() string {
	seen := make(map[string]struct{})
	var parts []string
	for _, folder := range o.depFolders() {
		if _, ok := seen[folder.Dir]; ok {
			continue
		}
		seen[folder.Dir] = struct{}{}
		parts = append(parts, folder.Dir)
	}
	return strings.Join(parts, string(os.PathListSeparator))
}

// unpackArtifacts extracts every artifact into its dependency folder.
// Failures are collected per artifact rather than aborting the batch.
func (o *Orchestrator) unpackArtifacts() ([]discovery.Folder, error) {
	policy := unpack.PolicySkip
	if o.cfg.ForceCleanDependencies {
		policy = unpack.PolicyClean
	}

	var (
		folders []discovery.Folder
		errs    []error
	)
	for _, artifact := range o.artifacts {
		if err := artifact.ID.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		dir := o.folderFor(artifact.ID)
		if err := unpack.Extract(artifact.Archive, dir, policy); err != nil {
			o.logger.Error("failed to unpack artifact", "artifact", artifact.ID, "err", err)
			errs = append(errs, err)
			continue
		}
		o.logger.Debug("unpacked artifact", "artifact", artifact.ID, "dir", dir)
		folders = append(folders, discovery.Folder{Artifact: artifact.ID, Dir: dir})
	}
	return folders, errors.Join(errs...)
}

// linkPhase cross-links dependency descriptors among themselves, then links
// every project descriptor against the dependency set under a fresh epoch.
// When a sync session is configured the whole phase is serialized across
// build processes.
func (o *Orchestrator) linkPhase(ctx context.Context, folders []discovery.Folder, result *Result) error {
	if o.cfg.SyncSession != "" {
		lock, err := o.acquireSessionLock(ctx)
		if err != nil {
			return err
		}
		defer func() {
			if releaseErr := lock.Release(); releaseErr != nil {
				o.logger.Error("failed to release session lock", "err", releaseErr)
			}
		}()
	}

	deps, err := o.discoverDeps(folders)
	if err != nil {
		return err
	}

	linked, err := crosslink.LinkAll(deps)
	if err != nil {
		return fmt.Errorf("failed to cross-link dependency descriptors: %w", err)
	}
	result.DepsLinked = linked

	projects, err := discovery.DiscoverProject(string(o.cfg.SourceDir))
	if err != nil {
		return err
	}
	result.ProjectsFound = len(projects)

	var errs []error
	for _, project := range projects {
		changed, linkErr := o.linkProject(project, deps)
		if linkErr != nil {
			errs = append(errs, linkErr)
			continue
		}
		if changed {
			result.ProjectsLinked++
		}
	}
	return errors.Join(errs...)
}

// linkProject opens a mutation epoch for one project descriptor and appends
// replace directives for every required dependency. The descriptor is only
// persisted when linking changed it; the epoch backup stays behind either
// way so OnBuildEnd converges.
func (o *Orchestrator) linkProject(project discovery.Found, deps []crosslink.Descriptor) (bool, error) {
	dir := filepath.Dir(project.Path)
	if err := epoch.Begin(dir); err != nil {
		return false, err
	}

	// Begin may have restored a stale epoch; reload so linking sees the
	// pristine content rather than a previous run's directives.
	file, err := gomod.Load(project.Path)
	if err != nil {
		return false, err
	}
	source := crosslink.Descriptor{File: file, Path: project.Path}

	changed, err := crosslink.Link(source, deps)
	if err != nil {
		return false, err
	}
	if !changed {
		return false, nil
	}

	if err := file.Save(project.Path); err != nil {
		return false, err
	}
	o.logger.Info("linked project descriptor", "path", project.Path)
	return true, nil
}

// acquireSessionLock blocks until this process holds the link-phase lock
// for the configured session. The lock lives under the dependency root by
// default so that sibling builds of the same workspace contend on the same
// file regardless of their temp-dir environment.
func (o *Orchestrator) acquireSessionLock(ctx context.Context) (*sessionlock.Lock, error) {
	dir := string(o.cfg.SessionLockDir)
	if dir == "" {
		dir = string(o.cfg.DepsDir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create session lock directory: %w", err)
	}
	o.logger.Debug("waiting for session lock", "session", o.cfg.SyncSession, "dir", dir)
	lock, err := sessionlock.Acquire(ctx, dir, string(o.cfg.SyncSession), sessionlock.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to serialize link phase: %w", err)
	}
	return lock, nil
}

// discoverDeps scans the dependency folders and pairs every found
// descriptor with its path for linking.
func (o *Orchestrator) discoverDeps(folders []discovery.Folder) ([]crosslink.Descriptor, error) {
	found, err := discovery.Discover(folders)
	if err != nil {
		return nil, err
	}
	deps := make([]crosslink.Descriptor, 0, len(found))
	for _, f := range found {
		deps = append(deps, crosslink.Descriptor{File: f.File, Path: f.Path})
	}
	return deps, nil
}

// depFolders maps the configured artifacts to their extraction directories.
func (o *Orchestrator) depFolders() []discovery.Folder {
	folders := make([]discovery.Folder, 0, len(o.artifacts))
	for _, artifact := range o.artifacts {
		folders = append(folders, discovery.Folder{
			Artifact: artifact.ID,
			Dir:      o.folderFor(artifact.ID),
		})
	}
	return folders
}

// folderFor derives the extraction directory for an artifact inside the
// dependency root. Characters that are path separators or reserved on
// common filesystems are replaced, and Windows reserved device names are
// prefixed so the folder stays creatable everywhere.
func (o *Orchestrator) folderFor(id unpack.ArtifactID) string {
	sanitized := strings.Map(func(r rune) rune {
		switch r {
		case ':', '/', '\\':
			return '_'
		default:
			return r
		}
	}, string(id))
	if platform.IsWindowsReservedName(sanitized) {
		sanitized = "_" + sanitized
	}
	return filepath.Join(string(o.cfg.DepsDir), sanitized)
}
