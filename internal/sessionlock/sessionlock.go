// SPDX-License-Identifier: MPL-2.0

// Package sessionlock serializes the link phase across concurrently running
// build processes of the same build session. The lock is a file created with
// O_EXCL in a shared directory; whoever creates it holds the lock, everyone
// else polls until the holder releases it. Crashed holders are handled by a
// staleness cutoff on the lock file's age.
package sessionlock

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	// DefaultPollInterval is how often a waiting process retries acquisition.
	DefaultPollInterval = 100 * time.Millisecond

	// DefaultStaleAfter is the lock file age beyond which a lock is presumed
	// abandoned by a crashed holder and taken over.
	DefaultStaleAfter = 10 * time.Minute
)

type (
	// Options tune acquisition behavior. Zero values select the defaults.
	Options struct {
		PollInterval time.Duration
		StaleAfter   time.Duration
	}

	// Lock is a held session lock. Release it when the linking phase is done.
	Lock struct {
		path string
	}
)

// Path returns the lock file path for a session id inside dir.
func Path(dir, sessionID string) string {
	return filepath.Join(dir, ".#modlink.session."+sessionID+".lock")
}

// Acquire blocks until the session lock for sessionID is held or ctx is
// done. A lock file older than the staleness cutoff is removed and taken
// over; a fresh one is polled until its holder releases it.
func Acquire(ctx context.Context, dir, sessionID string, opts Options) (*Lock, error) {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = DefaultStaleAfter
	}

	path := Path(dir, sessionID)
	for {
		ok, err := tryCreate(path)
		if err != nil {
			return nil, err
		}
		if ok {
			return &Lock{path: path}, nil
		}

		if info, statErr := os.Stat(path); statErr == nil && time.Since(info.ModTime()) > opts.StaleAfter {
			// Best effort: a concurrent takeover may have removed it already.
			_ = os.Remove(path)
			continue
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("gave up waiting for session lock %s: %w", path, ctx.Err())
		case <-time.After(opts.PollInterval):
		}
	}
}

// Release removes the lock file. Safe to call once per held lock.
func (l *Lock) Release() error {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to release session lock %s: %w", l.path, err)
	}
	return nil
}

// Path returns the held lock's file path.
func (l *Lock) Path() string { return l.path }

// tryCreate attempts the exclusive create. Returns false without error when
// the lock is already held.
func tryCreate(path string) (bool, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to create session lock %s: %w", path, err)
	}
	// The content is diagnostic only; holding is determined by existence.
	_, _ = fmt.Fprintf(f, "pid %d\n", os.Getpid())
	if err := f.Close(); err != nil {
		return false, fmt.Errorf("failed to finalize session lock %s: %w", path, err)
	}
	return true, nil
}
