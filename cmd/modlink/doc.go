// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for modlink.
//
// This package implements the Cobra command hierarchy for the modlink CLI:
// the root command plus subcommands for linking, restoring, watching, and
// configuration management.
package cmd
