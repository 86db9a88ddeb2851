// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package index

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

// RunLock is a cross-process, flock-backed mutex over one repository's
// indexing run. A single Orchestrator already serializes concurrent Run
// calls within one process (see watch's OnBatch mutex), but the git
// post-commit hook spawns a fresh `codegraphd index` process per commit;
// without this, a burst of rapid commits can pile up multiple writers
// against the same sqlite database and spend their time retrying on
// SQLITE_BUSY instead of failing fast.
type RunLock struct {
	path string
	file *os.File
}

// LockInfo describes the process currently holding a RunLock.
type LockInfo struct {
	PID       int
	StartedAt time.Time
}

// NewRunLock returns the lock for root's indexing runs. The lock file lives
// alongside the graph database so it travels with `.codegraph/`.
func NewRunLock(root string) *RunLock {
	return &RunLock{path: filepath.Join(root, ".codegraph", "index.lock")}
}

// TryAcquire attempts to take the lock without blocking. ok is false (with
// a nil error) when another live process already holds it.
func (l *RunLock) TryAcquire() (ok bool, err error) {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return false, fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = f.Close()
		if err == syscall.EWOULDBLOCK {
			return false, nil
		}
		return false, fmt.Errorf("flock: %w", err)
	}

	if err := f.Truncate(0); err != nil {
		_ = f.Close()
		return false, fmt.Errorf("truncate lock file: %w", err)
	}
	if _, err := f.Seek(0, 0); err != nil {
		_ = f.Close()
		return false, fmt.Errorf("seek lock file: %w", err)
	}
	if _, err := fmt.Fprintf(f, "%d %d\n", os.Getpid(), time.Now().Unix()); err != nil {
		_ = f.Close()
		return false, fmt.Errorf("write lock file: %w", err)
	}

	l.file = f
	return true, nil
}

// Acquire retries TryAcquire until timeout elapses, returning false (with a
// nil error) on timeout rather than blocking forever.
func (l *RunLock) Acquire(timeout time.Duration) (bool, error) {
	deadline := time.Now().Add(timeout)
	for {
		ok, err := l.TryAcquire()
		if err != nil || ok {
			return ok, err
		}
		if time.Now().After(deadline) {
			return false, nil
		}
		time.Sleep(250 * time.Millisecond)
	}
}

// Release drops the lock. Safe to call on a lock that was never acquired.
func (l *RunLock) Release() {
	if l.file == nil {
		return
	}
	_ = syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	_ = l.file.Close()
	l.file = nil
}

// Info reports the current holder of root's lock, or nil if it is free.
//
// Release only drops the flock; it never removes the lock file, so the
// pid/timestamp a finished run wrote stays behind on disk. Info probes the
// flock itself (a non-blocking exclusive attempt, immediately released on
// success) rather than trusting the file's mere existence, so a finished
// run correctly reports free again instead of "running" forever.
func (l *RunLock) Info() (*LockInfo, error) {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	defer f.Close()

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err == nil {
		_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		return nil, nil
	} else if err != syscall.EWOULDBLOCK {
		return nil, fmt.Errorf("probe lock: %w", err)
	}

	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, err
	}
	var pid int
	var unixSec int64
	if _, err := fmt.Sscanf(string(data), "%d %d", &pid, &unixSec); err != nil {
		return nil, fmt.Errorf("parse lock info: %w", err)
	}
	return &LockInfo{PID: pid, StartedAt: time.Unix(unixSec, 0)}, nil
}

// Stale reports whether the recorded holder's process is no longer alive,
// meaning the lock file was left behind by a crash rather than genuinely
// held.
func (l *RunLock) Stale() bool {
	info, err := l.Info()
	if err != nil || info == nil {
		return false
	}
	proc, err := os.FindProcess(info.PID)
	if err != nil {
		return true
	}
	return proc.Signal(syscall.Signal(0)) != nil
}
