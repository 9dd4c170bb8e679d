// SPDX-License-Identifier: MPL-2.0

// Package epoch implements the mutation-epoch lifecycle for module
// descriptors: before a descriptor is rewritten, its pristine content is
// preserved under a reserved backup name, and a flag file records whether the
// companion go.sum existed; restoring reinstates the original content and
// removes a go.sum that only came into being during the epoch.
//
// The lifecycle is a small state machine derived purely from file presence,
// so that restore logic is a function of observable state rather than a
// sequence of imperative flag checks. Restore is idempotent and converges to
// the pre-epoch state no matter how many Begin calls (or crashes) happened
// in between.
package epoch

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"modlink-cli/pkg/gomod"
)

const (
	// BackupName is the reserved file name holding the pristine descriptor.
	// Its presence marks an open mutation epoch.
	BackupName = ".#go.mod.orig"

	// SumAbsentFlagName is the reserved zero-length sentinel recording that
	// no go.sum existed before the epoch began, so restore must delete one
	// that a build synthesized in the meantime.
	SumAbsentFlagName = ".#go.sum.absent"
)

const (
	// StateClean means no epoch is open: neither backup nor flag exists.
	StateClean State = iota
	// StateBackedUp means an epoch is open and go.sum predates it.
	StateBackedUp
	// StateBackedUpSumAbsent means an epoch is open and go.sum did not
	// exist when it began.
	StateBackedUpSumAbsent
	// StateRestoreInterrupted means the flag exists without a backup: a
	// restore was cut off after the backup rename but before flag cleanup.
	// Restore completes the cleanup.
	StateRestoreInterrupted
)

// State is the epoch state of a descriptor directory, derived purely from
// the presence of the backup and flag files.
type State int

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateClean:
		return "clean"
	case StateBackedUp:
		return "backed-up"
	case StateBackedUpSumAbsent:
		return "backed-up-sum-absent"
	case StateRestoreInterrupted:
		return "restore-interrupted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Inspect derives the epoch state of a descriptor directory from file
// presence alone. It never modifies the directory.
func Inspect(dir string) State {
	backup := fileExists(filepath.Join(dir, BackupName))
	flag := fileExists(filepath.Join(dir, SumAbsentFlagName))

	switch {
	case backup && flag:
		return StateBackedUpSumAbsent
	case backup:
		return StateBackedUp
	case flag:
		return StateRestoreInterrupted
	default:
		return StateClean
	}
}

// Begin opens a mutation epoch for the descriptor directory. A leftover
// epoch from a previous run (crash, watch loop iteration) is restored first,
// so Begin always starts from pristine content. With the directory clean,
// the live descriptor is copied to the backup (a no-op when no descriptor
// exists) and the sum-absent flag is created iff go.sum is missing.
func Begin(dir string) error {
	if st := Inspect(dir); st != StateClean {
		if err := Restore(dir); err != nil {
			return fmt.Errorf("failed to close stale epoch in %s: %w", dir, err)
		}
	}

	live := filepath.Join(dir, gomod.FileName)
	if fileExists(live) {
		if err := copyFile(live, filepath.Join(dir, BackupName)); err != nil {
			return fmt.Errorf("failed to back up descriptor in %s: %w", dir, err)
		}
	}

	if !fileExists(filepath.Join(dir, gomod.SumFileName)) {
		flag := filepath.Join(dir, SumAbsentFlagName)
		if err := os.WriteFile(flag, nil, 0o644); err != nil {
			return fmt.Errorf("failed to create flag file %s: %w", flag, err)
		}
	}

	return nil
}

// Restore closes a mutation epoch, reinstating the pre-epoch state. It is a
// pure function of the directory's epoch state:
//
//	clean                 -> no-op
//	backed-up             -> live descriptor replaced by backup
//	backed-up-sum-absent  -> as above, plus go.sum and flag deleted
//	restore-interrupted   -> go.sum and flag deleted
//
// The backup is moved over the live descriptor by rename, which also repairs
// the case where the live file was deleted mid-epoch.
func Restore(dir string) error {
	st := Inspect(dir)
	if st == StateClean {
		return nil
	}

	if st == StateBackedUp || st == StateBackedUpSumAbsent {
		live := filepath.Join(dir, gomod.FileName)
		backup := filepath.Join(dir, BackupName)
		if err := removeIfExists(live); err != nil {
			return err
		}
		if err := os.Rename(backup, live); err != nil {
			return fmt.Errorf("failed to restore descriptor from backup %s: %w", backup, err)
		}
	}

	if st == StateBackedUpSumAbsent || st == StateRestoreInterrupted {
		if err := removeIfExists(filepath.Join(dir, SumAbsentFlagName)); err != nil {
			return err
		}
		if err := removeIfExists(filepath.Join(dir, gomod.SumFileName)); err != nil {
			return err
		}
	}

	return nil
}

// RestoreTree restores every open epoch under root, located by scanning for
// the reserved backup and flag file names recursively. This catches
// descriptors whose live file was deleted mid-epoch, which a descriptor-name
// scan would miss. A missing root is a no-op.
func RestoreTree(root string) error {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil
	}

	dirs := make(map[string]struct{})
	for _, name := range []string{BackupName, SumAbsentFlagName} {
		matches, err := doublestar.Glob(os.DirFS(root), "**/"+name)
		if err != nil {
			return fmt.Errorf("failed to scan %s for %s: %w", root, name, err)
		}
		for _, m := range matches {
			dirs[filepath.Join(root, filepath.FromSlash(filepath.Dir(m)))] = struct{}{}
		}
	}

	ordered := make([]string, 0, len(dirs))
	for dir := range dirs {
		ordered = append(ordered, dir)
	}
	sort.Strings(ordered)

	for _, dir := range ordered {
		if err := Restore(dir); err != nil {
			return err
		}
	}
	return nil
}

// copyFile copies src over dst, truncating any existing dst.
func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", src, err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", dst, err)
	}
	return nil
}

// removeIfExists deletes path, treating a missing file as success.
func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete %s: %w", path, err)
	}
	return nil
}

// fileExists checks if a path exists and is a regular file.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
