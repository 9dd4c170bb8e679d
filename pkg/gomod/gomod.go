// SPDX-License-Identifier: MPL-2.0

// Package gomod provides an order-preserving model of the go.mod module
// descriptor: module identity, require and replace directives, and verbatim
// raw lines for everything else. Parsing is deliberately a subset of the full
// go.mod grammar: only the directives the cross-linker touches are modeled,
// and every unrecognized line survives a parse/serialize round trip
// byte-for-byte. Mutation is append-only: directives are never reordered or
// deleted.
package gomod

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/mod/module"
	"golang.org/x/mod/semver"
)

const (
	// FileName is the reserved descriptor file name.
	FileName = "go.mod"

	// SumFileName is the reserved companion lock file name. Its content is
	// opaque to this package; it only matters as a file that must be
	// invalidated when requirements change.
	SumFileName = "go.sum"
)

var (
	// ErrInvalidModulePath is the sentinel error wrapped by InvalidModulePathError.
	ErrInvalidModulePath = errors.New("invalid module path")
	// ErrInvalidModuleVersion is the sentinel error wrapped by InvalidModuleVersionError.
	ErrInvalidModuleVersion = errors.New("invalid module version")
	// ErrMalformedDescriptor is the sentinel error wrapped by ParseError.
	ErrMalformedDescriptor = errors.New("malformed module descriptor")
)

type (
	// ModulePath names a module (e.g. "example.org/mod/pkg"). Two module
	// references are considered the same module iff their paths are equal;
	// versions never participate in matching.
	ModulePath string

	// InvalidModulePathError is returned when a ModulePath fails validation.
	// It wraps ErrInvalidModulePath for errors.Is() compatibility.
	InvalidModulePathError struct {
		Value  ModulePath
		Reason error
	}

	// ModuleVersion is a semantic version token ("v1.2.3").
	ModuleVersion string

	// InvalidModuleVersionError is returned when a ModuleVersion fails
	// validation. It wraps ErrInvalidModuleVersion for errors.Is() compatibility.
	InvalidModuleVersionError struct {
		Value ModuleVersion
	}

	// ModuleRef pairs a module path with an optional version token.
	ModuleRef struct {
		Path    ModulePath
		Version ModuleVersion
	}

	// ReplaceTarget is the right-hand side of a replace directive: either
	// another module (path + version) or a filesystem path (no version).
	ReplaceTarget struct {
		// Path is a module path or a filesystem path. Filesystem paths begin
		// with "./" or "../" per the go.mod grammar.
		Path string
		// Version is empty for filesystem targets.
		Version ModuleVersion
	}

	// Directive is the tagged variant over the recognized go.mod line kinds.
	// Exactly four types implement it: ModuleDecl, Require, Replace, RawLine.
	Directive interface {
		isDirective()
	}

	// ModuleDecl is the descriptor's own module declaration line.
	ModuleDecl struct {
		Path ModulePath
	}

	// Require declares a dependency on another module.
	Require struct {
		Ref ModuleRef
		// Suffix preserves any trailing comment on the entry line
		// (e.g. "// indirect") so serialization does not lose it.
		Suffix string
	}

	// Replace redirects a required module to another module or a filesystem path.
	Replace struct {
		From ModuleRef
		To   ReplaceTarget
	}

	// RawLine preserves an unrecognized line verbatim, including leading
	// whitespace. It guarantees lossless round trips for content the
	// cross-linker was never meant to touch.
	RawLine struct {
		Text string
	}

	// File is an ordered sequence of directives parsed from a descriptor.
	File struct {
		directives []Directive
	}

	// ParseError is returned for structurally malformed input. The only
	// structural failure the subset grammar recognizes is an unterminated
	// directive block. It wraps ErrMalformedDescriptor for errors.Is().
	ParseError struct {
		// Keyword is the block keyword ("require" or "replace").
		Keyword string
		// Line is the 1-based line number where the block was opened.
		Line int
	}
)

func (ModuleDecl) isDirective() {}
func (Require) isDirective()    {}
func (Replace) isDirective()    {}
func (RawLine) isDirective()    {}

// String returns the string representation of the ModulePath.
func (p ModulePath) String() string { return string(p) }

// Validate returns nil if the ModulePath is a well-formed module path,
// or an error describing the violation.
func (p ModulePath) Validate() error {
	if err := module.CheckPath(string(p)); err != nil {
		return &InvalidModulePathError{Value: p, Reason: err}
	}
	return nil
}

// Error implements the error interface for InvalidModulePathError.
func (e *InvalidModulePathError) Error() string {
	return fmt.Sprintf("invalid module path %q: %v", e.Value, e.Reason)
}

// Unwrap returns ErrInvalidModulePath for errors.Is() compatibility.
func (e *InvalidModulePathError) Unwrap() error { return ErrInvalidModulePath }

// String returns the string representation of the ModuleVersion.
func (v ModuleVersion) String() string { return string(v) }

// Validate returns nil if the ModuleVersion is a valid semantic version
// token with the "v" prefix, or an error describing the violation.
func (v ModuleVersion) Validate() error {
	if !semver.IsValid(string(v)) {
		return &InvalidModuleVersionError{Value: v}
	}
	return nil
}

// Error implements the error interface for InvalidModuleVersionError.
func (e *InvalidModuleVersionError) Error() string {
	return fmt.Sprintf("invalid module version %q: must be a valid semver token with a leading \"v\"", e.Value)
}

// Unwrap returns ErrInvalidModuleVersion for errors.Is() compatibility.
func (e *InvalidModuleVersionError) Unwrap() error { return ErrInvalidModuleVersion }

// Error implements the error interface for ParseError.
func (e *ParseError) Error() string {
	return fmt.Sprintf("unterminated %s block opened at line %d", e.Keyword, e.Line)
}

// Unwrap returns ErrMalformedDescriptor for errors.Is() compatibility.
func (e *ParseError) Unwrap() error { return ErrMalformedDescriptor }

// ModuleTarget builds a ReplaceTarget pointing at another module.
func ModuleTarget(ref ModuleRef) ReplaceTarget {
	return ReplaceTarget{Path: string(ref.Path), Version: ref.Version}
}

// FilesystemTarget builds a ReplaceTarget pointing at a local directory.
// The path should already be in the "./" or "../" prefixed form the go
// toolchain requires for filesystem replacements.
func FilesystemTarget(path string) ReplaceTarget {
	return ReplaceTarget{Path: path}
}

// Module returns the declared module path, or "" when the descriptor has
// no module declaration.
func (f *File) Module() ModulePath {
	for _, d := range f.directives {
		if decl, ok := d.(ModuleDecl); ok {
			return decl.Path
		}
	}
	return ""
}

// Directives returns the directive sequence in order. The returned slice is
// shared with the File; callers must not mutate it.
func (f *File) Directives() []Directive {
	return f.directives
}

// HasRequireFor reports whether any require entry names the given module
// path. Matching is version-insensitive.
func (f *File) HasRequireFor(path ModulePath) bool {
	for _, d := range f.directives {
		if req, ok := d.(Require); ok && req.Ref.Path == path {
			return true
		}
	}
	return false
}

// HasReplaceFor reports whether any replace entry redirects the given
// module path. Matching is version-insensitive on the "from" side.
func (f *File) HasReplaceFor(path ModulePath) bool {
	for _, d := range f.directives {
		if rep, ok := d.(Replace); ok && rep.From.Path == path {
			return true
		}
	}
	return false
}

// AddReplace appends a replace directive. The new entry is inserted after
// the last existing replace directive when one exists, otherwise at the end
// of the sequence. It does not deduplicate against logically equal entries;
// callers guard with HasReplaceFor.
func (f *File) AddReplace(from ModuleRef, to ReplaceTarget) {
	entry := Replace{From: from, To: to}

	last := -1
	for i, d := range f.directives {
		if _, ok := d.(Replace); ok {
			last = i
		}
	}
	if last == -1 {
		f.directives = append(f.directives, entry)
		return
	}

	f.directives = append(f.directives, nil)
	copy(f.directives[last+2:], f.directives[last+1:])
	f.directives[last+1] = entry
}

// Load reads and parses the descriptor at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read descriptor at %s: %w", path, err)
	}
	f, err := Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse descriptor at %s: %w", path, err)
	}
	return f, nil
}

// Save serializes the descriptor and writes it to path atomically
// (temp file + rename).
func (f *File) Save(path string) error {
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, []byte(f.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write descriptor at %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath) // Best-effort cleanup of temp file
		return fmt.Errorf("failed to rename descriptor at %s: %w", path, err)
	}
	return nil
}

// entryComment splits a trailing "//" comment off a directive entry line.
// Returns the code part (trimmed of trailing space) and the comment
// including the "//" marker, or "" when there is no comment.
func entryComment(s string) (code, comment string) {
	if i := strings.Index(s, "//"); i >= 0 {
		return strings.TrimRight(s[:i], " \t"), s[i:]
	}
	return s, ""
}
