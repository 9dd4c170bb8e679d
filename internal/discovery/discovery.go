// SPDX-License-Identifier: MPL-2.0

// Package discovery locates module descriptors inside unpacked dependency
// folders and project source trees. Dependency archives extract their
// buildable source under a "src" subdirectory at an arbitrary depth, so the
// scan is recursive rather than a fixed-layout lookup.
package discovery

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"modlink-cli/pkg/gomod"
	"modlink-cli/pkg/unpack"
)

type (
	// Folder is an unpacked dependency artifact's extraction directory.
	Folder struct {
		Artifact unpack.ArtifactID
		Dir      string
	}

	// Found is a module descriptor located by a scan, parsed and paired with
	// the artifact it came from. Artifact is empty for project descriptors.
	Found struct {
		Artifact unpack.ArtifactID
		File     *gomod.File
		Path     string
	}
)

// Dir returns the directory containing the descriptor.
func (f Found) Dir() string { return filepath.Dir(f.Path) }

// Discover scans each dependency folder recursively for module descriptors.
// Folders whose directory does not exist are skipped; an artifact without a
// descriptor simply contributes nothing to linking. Results preserve folder
// order, with matches inside a folder in lexical path order.
func Discover(folders []Folder) ([]Found, error) {
	var found []Found
	for _, folder := range folders {
		matches, err := scanDir(folder.Dir)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dependency folder for artifact %s: %w", folder.Artifact, err)
		}
		for _, f := range matches {
			f.Artifact = folder.Artifact
			found = append(found, f)
		}
	}
	return found, nil
}

// DiscoverProject scans the project source directory recursively for module
// descriptors. A missing source directory yields no descriptors and no error.
func DiscoverProject(srcDir string) ([]Found, error) {
	found, err := scanDir(srcDir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan project sources: %w", err)
	}
	return found, nil
}

// scanDir finds and parses every descriptor under dir. A missing or
// non-directory dir is a no-op.
func scanDir(dir string) ([]Found, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, nil
	}

	matches, err := doublestar.Glob(os.DirFS(dir), "**/"+gomod.FileName)
	if err != nil {
		return nil, fmt.Errorf("failed to glob %s: %w", dir, err)
	}

	found := make([]Found, 0, len(matches))
	for _, m := range matches {
		path := filepath.Join(dir, filepath.FromSlash(m))
		file, err := gomod.Load(path)
		if err != nil {
			return nil, err
		}
		found = append(found, Found{File: file, Path: path})
	}
	return found, nil
}
