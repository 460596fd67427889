// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package runlock keeps sync runs from overlapping, within a process and
// across processes that share a data directory.
package runlock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"
)

// FileName is the lock file created in the data directory.
const FileName = "pack-sync.lock"

// ErrAlreadyRunning is returned when another run holds the guard.
var ErrAlreadyRunning = errors.New("a sync run is already in progress")

// Guard admits one run at a time.
type Guard struct {
	path   string
	active atomic.Bool
}

// New returns a guard whose lock file lives in dir. An empty dir disables
// the file lock and keeps only the in-process flag.
func New(dir string) *Guard {
	g := &Guard{}
	if dir != "" {
		g.path = filepath.Join(dir, FileName)
	}
	return g
}

// Path returns the lock file path, or "" when there is none.
func (g *Guard) Path() string { return g.path }

// TryAcquire takes the guard without waiting. owner is recorded in the
// lock file. The returned release function frees the guard and is safe to
// call more than once.
func (g *Guard) TryAcquire(owner string) (release func(), err error) {
	if !g.active.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRunning
	}
	if g.path == "" {
		return g.releaser(false), nil
	}

	if err := os.MkdirAll(filepath.Dir(g.path), 0o755); err != nil {
		g.active.Store(false)
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}
	f, err := os.OpenFile(g.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		g.active.Store(false)
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%w (lock file %s)", ErrAlreadyRunning, g.path)
		}
		return nil, fmt.Errorf("creating lock file: %w", err)
	}
	fmt.Fprintf(f, "pid=%d owner=%s started=%s\n", os.Getpid(), owner, time.Now().UTC().Format(time.RFC3339))
	f.Close()

	return g.releaser(true), nil
}

func (g *Guard) releaser(file bool) func() {
	var done atomic.Bool
	return func() {
		if !done.CompareAndSwap(false, true) {
			return
		}
		if file {
			os.Remove(g.path)
		}
		g.active.Store(false)
	}
}

// Held reports whether this process currently holds the guard.
func (g *Guard) Held() bool { return g.active.Load() }

// Break removes a lock file left behind by a crashed run.
func (g *Guard) Break() error {
	if g.path == "" {
		return nil
	}
	if err := os.Remove(g.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing lock file: %w", err)
	}
	return nil
}
