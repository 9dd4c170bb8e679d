// SPDX-License-Identifier: MPL-2.0

// Package link orchestrates the build-lifecycle operations: unpacking
// dependency artifacts, cross-linking module descriptors at build start, and
// restoring them at build end.
package link
