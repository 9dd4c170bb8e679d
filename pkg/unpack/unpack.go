// SPDX-License-Identifier: MPL-2.0

// Package unpack extracts packaged dependency artifacts (zip archives) into
// local folders. An archive may carry a manifest entry listing which
// top-level folders constitute buildable source; when present, only entries
// under those folders are extracted, with the folder prefix stripped, into
// a "src" subdirectory of the target. Archives without a manifest are
// unpacked wholesale.
package unpack

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	// ManifestName is the reserved archive entry listing newline-separated
	// top-level source folder names. Blank lines are ignored.
	ManifestName = ".build.folders.list"

	// PolicySkip leaves an already-populated target directory untouched.
	PolicySkip ExistingDirPolicy = "skip"
	// PolicyClean deletes an already-populated target directory and
	// re-extracts from scratch.
	PolicyClean ExistingDirPolicy = "clean"
)

var (
	// ErrInvalidArtifactID is the sentinel error wrapped by InvalidArtifactIDError.
	ErrInvalidArtifactID = errors.New("invalid artifact id")
	// ErrInvalidExistingDirPolicy is the sentinel error wrapped by
	// InvalidExistingDirPolicyError.
	ErrInvalidExistingDirPolicy = errors.New("invalid existing-dir policy")
	// ErrArchive is the sentinel error all ArchiveError values match via errors.Is().
	ErrArchive = errors.New("archive extraction failed")
)

type (
	// ArtifactID is the opaque identity of a packaged dependency artifact,
	// supplied by the host's artifact resolution. Must not be empty.
	ArtifactID string

	// InvalidArtifactIDError is returned when an ArtifactID value is empty.
	// It wraps ErrInvalidArtifactID for errors.Is() compatibility.
	InvalidArtifactIDError struct {
		Value ArtifactID
	}

	// Artifact pairs an artifact identity with the zip archive that
	// packages it.
	Artifact struct {
		ID      ArtifactID
		Archive string
	}

	// ExistingDirPolicy governs what Extract does when the target directory
	// already contains a prior extraction.
	ExistingDirPolicy string

	// InvalidExistingDirPolicyError is returned for an unrecognized policy
	// value. It wraps ErrInvalidExistingDirPolicy for errors.Is().
	InvalidExistingDirPolicyError struct {
		Value ExistingDirPolicy
	}

	// ArchiveError reports a failed extraction with the archive and target
	// paths. It matches ErrArchive via errors.Is() and unwraps to the
	// underlying cause. Extraction failures are fatal for the artifact but
	// must not abort sibling artifacts in the same batch; that isolation is
	// the caller's responsibility.
	ArchiveError struct {
		Archive string
		Target  string
		Err     error
	}
)

// String returns the string representation of the ArtifactID.
func (id ArtifactID) String() string { return string(id) }

// Validate returns nil if the ArtifactID is valid (non-empty and not
// whitespace-only), or an error describing the validation failure.
func (id ArtifactID) Validate() error {
	if strings.TrimSpace(string(id)) == "" {
		return &InvalidArtifactIDError{Value: id}
	}
	return nil
}

// Error implements the error interface for InvalidArtifactIDError.
func (e *InvalidArtifactIDError) Error() string {
	return fmt.Sprintf("invalid artifact id %q: must be non-empty", e.Value)
}

// Unwrap returns ErrInvalidArtifactID for errors.Is() compatibility.
func (e *InvalidArtifactIDError) Unwrap() error { return ErrInvalidArtifactID }

// Validate returns nil if the policy is a recognized value.
func (p ExistingDirPolicy) Validate() error {
	switch p {
	case PolicySkip, PolicyClean:
		return nil
	default:
		return &InvalidExistingDirPolicyError{Value: p}
	}
}

// Error implements the error interface for InvalidExistingDirPolicyError.
func (e *InvalidExistingDirPolicyError) Error() string {
	return fmt.Sprintf("invalid existing-dir policy %q: must be %q or %q", e.Value, PolicySkip, PolicyClean)
}

// Unwrap returns ErrInvalidExistingDirPolicy for errors.Is() compatibility.
func (e *InvalidExistingDirPolicyError) Unwrap() error { return ErrInvalidExistingDirPolicy }

// Error implements the error interface for ArchiveError.
func (e *ArchiveError) Error() string {
	return fmt.Sprintf("failed to extract archive %s into %s: %v", e.Archive, e.Target, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ArchiveError) Unwrap() error { return e.Err }

// Is reports whether target is the ErrArchive sentinel.
func (e *ArchiveError) Is(target error) bool { return target == ErrArchive }

// Extract unpacks archive into targetDir. When the archive carries a
// ManifestName entry, only entries under the listed folder prefixes are
// extracted, prefixes stripped, into targetDir/src; everything else in the
// archive is skipped. Without a manifest the full archive content lands in
// targetDir. When targetDir already exists, policy decides between leaving
// it as-is (PolicySkip) and deleting it for a fresh extraction (PolicyClean).
func Extract(archive, targetDir string, policy ExistingDirPolicy) (err error) {
	if err := policy.Validate(); err != nil {
		return err
	}

	if info, statErr := os.Stat(targetDir); statErr == nil && info.IsDir() {
		if policy == PolicySkip {
			return nil
		}
		if err := os.RemoveAll(targetDir); err != nil {
			return &ArchiveError{Archive: archive, Target: targetDir, Err: err}
		}
	}

	reader, err := zip.OpenReader(archive)
	if err != nil {
		return &ArchiveError{Archive: archive, Target: targetDir, Err: err}
	}
	defer func() {
		if closeErr := reader.Close(); closeErr != nil && err == nil {
			err = &ArchiveError{Archive: archive, Target: targetDir, Err: closeErr}
		}
	}()

	folders, err := readManifest(&reader.Reader)
	if err != nil {
		return &ArchiveError{Archive: archive, Target: targetDir, Err: err}
	}

	destRoot := targetDir
	if folders != nil {
		destRoot = filepath.Join(targetDir, "src")
	}

	for _, file := range reader.File {
		name, keep := rewriteEntry(file.Name, folders)
		if !keep {
			continue
		}

		destPath := filepath.Join(destRoot, filepath.FromSlash(name))

		// Guard against entries escaping the destination (zip slip).
		rel, relErr := filepath.Rel(destRoot, destPath)
		if relErr != nil || strings.HasPrefix(rel, "..") {
			return &ArchiveError{Archive: archive, Target: targetDir, Err: fmt.Errorf("entry %q escapes target directory", file.Name)}
		}

		if file.FileInfo().IsDir() {
			if mkdirErr := os.MkdirAll(destPath, 0o755); mkdirErr != nil {
				return &ArchiveError{Archive: archive, Target: targetDir, Err: mkdirErr}
			}
			continue
		}

		if mkdirErr := os.MkdirAll(filepath.Dir(destPath), 0o755); mkdirErr != nil {
			return &ArchiveError{Archive: archive, Target: targetDir, Err: mkdirErr}
		}
		if extractErr := extractFile(file, destPath); extractErr != nil {
			return &ArchiveError{Archive: archive, Target: targetDir, Err: fmt.Errorf("entry %q: %w", file.Name, extractErr)}
		}
	}

	return nil
}

// rewriteEntry is the pure path-rewrite predicate for selective extraction.
// With a nil folder list every entry is kept unchanged. With a folder list,
// an entry is kept iff its path starts with one of the listed prefixes, and
// the matched prefix is stripped from the rewritten path. The manifest entry
// itself never matches a prefix and is therefore dropped.
func rewriteEntry(name string, folders []string) (string, bool) {
	if folders == nil {
		return name, true
	}
	for _, folder := range folders {
		if rest, ok := strings.CutPrefix(name, folder); ok && rest != "" {
			return rest, true
		}
	}
	return "", false
}

// readManifest returns the folder prefixes listed in the archive's manifest
// entry, each with a trailing "/", or nil when the archive has no manifest.
func readManifest(r *zip.Reader) ([]string, error) {
	var manifest *zip.File
	for _, file := range r.File {
		if file.Name == ManifestName {
			manifest = file
			break
		}
	}
	if manifest == nil {
		return nil, nil
	}

	rc, err := manifest.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest entry: %w", err)
	}
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest entry: %w", err)
	}

	folders := make([]string, 0, 4)
	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		folders = append(folders, trimmed+"/")
	}
	return folders, nil
}

// extractFile writes a single archive entry to destPath, preserving the
// entry's mode bits.
func extractFile(file *zip.File, destPath string) (err error) {
	rc, err := file.Open()
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := rc.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	dest, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, file.Mode())
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := dest.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	_, err = io.Copy(dest, rc)
	return err
}
