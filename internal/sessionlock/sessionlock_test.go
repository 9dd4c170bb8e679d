// SPDX-License-Identifier: MPL-2.0

package sessionlock

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"
)

func TestAcquireAndRelease(t *testing.T) {
	dir := t.TempDir()

	lock, err := Acquire(context.Background(), dir, "session-1", Options{})
	if err != nil {
		t.Fatalf("Acquire() failed: %v", err)
	}
	if _, err := os.Stat(lock.Path()); err != nil {
		t.Fatalf("lock file missing while held: %v", err)
	}

	if err := lock.Release(); err != nil {
		t.Fatalf("Release() failed: %v", err)
	}
	if _, err := os.Stat(lock.Path()); !os.IsNotExist(err) {
		t.Error("lock file still present after release")
	}
}

func TestAcquire_DistinctSessionsDoNotContend(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	a, err := Acquire(ctx, dir, "session-a", Options{})
	if err != nil {
		t.Fatalf("Acquire(session-a) failed: %v", err)
	}
	defer func() { _ = a.Release() }()

	b, err := Acquire(ctx, dir, "session-b", Options{})
	if err != nil {
		t.Fatalf("Acquire(session-b) failed: %v", err)
	}
	defer func() { _ = b.Release() }()
}

func TestAcquire_BlocksUntilReleased(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	held, err := Acquire(ctx, dir, "shared", Options{})
	if err != nil {
		t.Fatalf("Acquire() failed: %v", err)
	}

	acquired := make(chan *Lock, 1)
	go func() {
		l, acqErr := Acquire(ctx, dir, "shared", Options{PollInterval: 5 * time.Millisecond})
		if acqErr != nil {
			t.Errorf("second Acquire() failed: %v", acqErr)
		}
		acquired <- l
	}()

	select {
	case <-acquired:
		t.Fatal("second Acquire() succeeded while lock was held")
	case <-time.After(50 * time.Millisecond):
	}

	if err := held.Release(); err != nil {
		t.Fatal(err)
	}

	select {
	case l := <-acquired:
		if l != nil {
			_ = l.Release()
		}
	case <-time.After(2 * time.Second):
		t.Fatal("second Acquire() did not proceed after release")
	}
}

func TestAcquire_ContextCancellation(t *testing.T) {
	dir := t.TempDir()

	held, err := Acquire(context.Background(), dir, "shared", Options{})
	if err != nil {
		t.Fatalf("Acquire() failed: %v", err)
	}
	defer func() { _ = held.Release() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err = Acquire(ctx, dir, "shared", Options{PollInterval: 5 * time.Millisecond})
	if err == nil {
		t.Fatal("Acquire() succeeded despite held lock and expired context")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error should wrap context.DeadlineExceeded, got: %v", err)
	}
}

func TestAcquire_StaleLockTakeover(t *testing.T) {
	dir := t.TempDir()
	path := Path(dir, "crashed")
	if err := os.WriteFile(path, []byte("pid 99999\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	lock, err := Acquire(ctx, dir, "crashed", Options{
		PollInterval: 5 * time.Millisecond,
		StaleAfter:   time.Minute,
	})
	if err != nil {
		t.Fatalf("Acquire() failed to take over stale lock: %v", err)
	}
	_ = lock.Release()
}
