// SPDX-License-Identifier: MPL-2.0

// Package crosslink rewrites module descriptors so that requirements on
// sibling modules resolve to their local directories instead of a remote
// registry. For every candidate whose module path the source requires but
// does not yet replace, a replace directive pointing at the candidate's
// directory (as a relative filesystem path) is appended. Existing replace
// directives always win; the linker never overwrites one.
package crosslink

import (
	"fmt"
	"path/filepath"
	"strings"

	"modlink-cli/pkg/gomod"
)

// Descriptor is a parsed module descriptor together with the file path it
// was loaded from. The path anchors relative replace targets.
type Descriptor struct {
	File *gomod.File
	Path string
}

// Dir returns the directory containing the descriptor.
func (d Descriptor) Dir() string { return filepath.Dir(d.Path) }

// Link appends replace directives to source for every candidate it requires
// but does not already replace. Candidates are considered in order and the
// first candidate declaring a given module path wins; once a replace for that
// path exists, later candidates with the same path are skipped. The source
// itself is always skipped. Reports whether source was modified.
func Link(source Descriptor, candidates []Descriptor) (bool, error) {
	changed := false
	for _, cand := range candidates {
		if cand.File == source.File || cand.Path == source.Path {
			continue
		}
		path := cand.File.Module()
		if path == "" {
			continue
		}
		if !source.File.HasRequireFor(path) || source.File.HasReplaceFor(path) {
			continue
		}

		target, err := relativeTarget(source.Dir(), cand.Dir())
		if err != nil {
			return changed, fmt.Errorf("failed to relate %s to %s: %w", source.Path, cand.Path, err)
		}
		source.File.AddReplace(gomod.ModuleRef{Path: path}, gomod.FilesystemTarget(target))
		changed = true
	}
	return changed, nil
}

// LinkAll cross-links every descriptor in the set against every other,
// persisting each descriptor that gained directives immediately so that later
// link decisions observe the updated content on disk. Returns the number of
// descriptors modified.
func LinkAll(descriptors []Descriptor) (int, error) {
	linked := 0
	for _, d := range descriptors {
		changed, err := Link(d, descriptors)
		if err != nil {
			return linked, err
		}
		if !changed {
			continue
		}
		if err := d.File.Save(d.Path); err != nil {
			return linked, err
		}
		linked++
	}
	return linked, nil
}

// LinkAgainst links each source descriptor against the target set and
// persists the sources that changed. Targets are never modified. Returns the
// number of sources modified.
func LinkAgainst(sources, targets []Descriptor) (int, error) {
	linked := 0
	for _, src := range sources {
		changed, err := Link(src, targets)
		if err != nil {
			return linked, err
		}
		if !changed {
			continue
		}
		if err := src.File.Save(src.Path); err != nil {
			return linked, err
		}
		linked++
	}
	return linked, nil
}

// relativeTarget computes the replace target path from the source descriptor
// directory to the candidate directory, in the slash-separated "./" or "../"
// prefixed form the descriptor grammar requires for filesystem targets.
func relativeTarget(fromDir, toDir string) (string, error) {
	rel, err := filepath.Rel(fromDir, toDir)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	if rel != ".." && !strings.HasPrefix(rel, "../") {
		rel = "./" + rel
	}
	return rel, nil
}
