// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with CUE as the file format.
//
// Configuration is loaded from ~/.config/modlink/config.cue (or XDG equivalent on Linux,
// ~/Library/Application Support/modlink/config.cue on macOS, %APPDATA%\modlink\config.cue
// on Windows), falling back to a config.cue in the current directory. The package covers
// the source and dependency directories, link-phase behavior, session locking, UI settings,
// and watch mode.
//
// Configuration validation is performed against a CUE schema (config_schema.cue) to ensure
// type safety and provide clear error messages for invalid configurations.
package config
