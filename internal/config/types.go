// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"
)

var (
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidDirPath is the sentinel error wrapped by InvalidDirPathError.
	ErrInvalidDirPath = errors.New("invalid directory path")
	// ErrInvalidSessionID is returned when a SessionID value is whitespace-only.
	ErrInvalidSessionID = errors.New("invalid session id")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// ColorScheme specifies the terminal color scheme preference.
	ColorScheme string

	// InvalidColorSchemeError is returned when a ColorScheme value is not
	// recognized. It wraps ErrInvalidColorScheme for errors.Is() compatibility.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// DirPath is a filesystem directory path from configuration. The zero
	// value ("") is valid and means "use the built-in default"; non-zero
	// values must not be whitespace-only.
	DirPath string

	// InvalidDirPathError is returned when a DirPath value is non-empty but
	// whitespace-only. It wraps ErrInvalidDirPath for errors.Is().
	InvalidDirPathError struct {
		Value DirPath
	}

	// SessionID identifies a build session for cross-process link
	// serialization. The zero value ("") disables session locking.
	SessionID string

	// InvalidSessionIDError is returned when a SessionID value is non-empty
	// but whitespace-only. It wraps ErrInvalidSessionID for errors.Is().
	InvalidSessionIDError struct {
		Value SessionID
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors from all sub-components.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// UIConfig holds user interface settings.
	UIConfig struct {
		// ColorScheme selects the terminal color scheme.
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme"`
		// Verbose enables detailed output including error chains.
		Verbose bool `json:"verbose" mapstructure:"verbose"`
	}

	// WatchConfig holds watch-mode settings.
	WatchConfig struct {
		// DebounceMs is the quiet period, in milliseconds, after the last
		// filesystem event before a relink is triggered.
		DebounceMs int `json:"debounce_ms" mapstructure:"debounce_ms"`
	}

	// Config holds the application configuration.
	Config struct {
		// SourceDir is the project source directory scanned for descriptors.
		SourceDir DirPath `json:"source_dir" mapstructure:"source_dir"`
		// DepsDir is the directory dependency artifacts are unpacked into.
		DepsDir DirPath `json:"deps_dir" mapstructure:"deps_dir"`
		// ModuleMode enables descriptor cross-linking. When false, artifacts
		// are unpacked but descriptors stay untouched.
		ModuleMode bool `json:"module_mode" mapstructure:"module_mode"`
		// RestoreDescriptors controls whether descriptors are restored to
		// their pre-link content when the build ends.
		RestoreDescriptors bool `json:"restore_descriptors" mapstructure:"restore_descriptors"`
		// ForceCleanDependencies re-extracts dependency folders that already
		// exist instead of skipping them.
		ForceCleanDependencies bool `json:"force_clean_dependencies" mapstructure:"force_clean_dependencies"`
		// SyncSession serializes the link phase across build processes that
		// share the same session id. Empty disables locking.
		SyncSession SessionID `json:"sync_session" mapstructure:"sync_session"`
		// SessionLockDir is where session lock files live. Empty means the
		// dependency directory.
		SessionLockDir DirPath `json:"session_lock_dir" mapstructure:"session_lock_dir"`
		// UI configures the user interface.
		UI UIConfig `json:"ui" mapstructure:"ui"`
		// Watch configures watch mode.
		Watch WatchConfig `json:"watch" mapstructure:"watch"`
	}
)

// String returns the string representation of the ColorScheme.
func (c ColorScheme) String() string { return string(c) }

// Validate returns nil if the ColorScheme is a recognized value.
func (c ColorScheme) Validate() error {
	switch c {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return nil
	default:
		return &InvalidColorSchemeError{Value: c}
	}
}

// Error implements the error interface for InvalidColorSchemeError.
func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q: must be %q, %q, or %q",
		e.Value, ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight)
}

// Unwrap returns ErrInvalidColorScheme for errors.Is() compatibility.
func (e *InvalidColorSchemeError) Unwrap() error { return ErrInvalidColorScheme }

// String returns the string representation of the DirPath.
func (p DirPath) String() string { return string(p) }

// Validate returns nil if the DirPath is empty or has non-whitespace content.
func (p DirPath) Validate() error {
	if p != "" && strings.TrimSpace(string(p)) == "" {
		return &InvalidDirPathError{Value: p}
	}
	return nil
}

// Error implements the error interface for InvalidDirPathError.
func (e *InvalidDirPathError) Error() string {
	return fmt.Sprintf("invalid directory path %q: must not be whitespace-only", e.Value)
}

// Unwrap returns ErrInvalidDirPath for errors.Is() compatibility.
func (e *InvalidDirPathError) Unwrap() error { return ErrInvalidDirPath }

// String returns the string representation of the SessionID.
func (s SessionID) String() string { return string(s) }

// Validate returns nil if the SessionID is empty or has non-whitespace content.
func (s SessionID) Validate() error {
	if s != "" && strings.TrimSpace(string(s)) == "" {
		return &InvalidSessionIDError{Value: s}
	}
	return nil
}

// Error implements the error interface for InvalidSessionIDError.
func (e *InvalidSessionIDError) Error() string {
	return fmt.Sprintf("invalid session id %q: must not be whitespace-only", e.Value)
}

// Unwrap returns ErrInvalidSessionID for errors.Is() compatibility.
func (e *InvalidSessionIDError) Unwrap() error { return ErrInvalidSessionID }

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, 0, len(e.FieldErrors))
	for _, fe := range e.FieldErrors {
		msgs = append(msgs, fe.Error())
	}
	return fmt.Sprintf("invalid config: %s", strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// Validate returns nil if every config field is valid, or an
// InvalidConfigError collecting all field-level violations.
func (c *Config) Validate() error {
	var fieldErrors []error
	for _, err := range []error{
		c.SourceDir.Validate(),
		c.DepsDir.Validate(),
		c.SessionLockDir.Validate(),
		c.SyncSession.Validate(),
		c.UI.ColorScheme.Validate(),
	} {
		if err != nil {
			fieldErrors = append(fieldErrors, err)
		}
	}
	if c.Watch.DebounceMs < 0 {
		fieldErrors = append(fieldErrors, fmt.Errorf("watch.debounce_ms must not be negative, got %d", c.Watch.DebounceMs))
	}
	if len(fieldErrors) > 0 {
		return &InvalidConfigError{FieldErrors: fieldErrors}
	}
	return nil
}

// DefaultConfig returns the built-in configuration defaults.
func DefaultConfig() *Config {
	return &Config{
		SourceDir:              "src",
		DepsDir:                ".modlink/deps",
		ModuleMode:             true,
		RestoreDescriptors:     true,
		ForceCleanDependencies: false,
		SyncSession:            "",
		SessionLockDir:         "",
		UI: UIConfig{
			ColorScheme: ColorSchemeAuto,
			Verbose:     false,
		},
		Watch: WatchConfig{
			DebounceMs: 400,
		},
	}
}
