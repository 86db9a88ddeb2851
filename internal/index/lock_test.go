// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package index

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunLock_TryAcquireIsExclusive(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".codegraph"), 0o755))

	a := NewRunLock(root)
	ok, err := a.TryAcquire()
	require.NoError(t, err)
	require.True(t, ok)
	defer a.Release()

	b := NewRunLock(root)
	ok, err = b.TryAcquire()
	require.NoError(t, err)
	require.False(t, ok, "a second lock on the same root should not be acquirable while the first is held")
}

func TestRunLock_ReleaseAllowsReacquire(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".codegraph"), 0o755))

	a := NewRunLock(root)
	ok, err := a.TryAcquire()
	require.NoError(t, err)
	require.True(t, ok)
	a.Release()

	b := NewRunLock(root)
	ok, err = b.TryAcquire()
	require.NoError(t, err)
	require.True(t, ok, "lock should be acquirable again after Release")
	b.Release()
}

func TestRunLock_InfoReflectsHolder(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".codegraph"), 0o755))

	l := NewRunLock(root)
	info, err := l.Info()
	require.NoError(t, err)
	require.Nil(t, info, "no lock file yet means no holder")

	ok, err := l.TryAcquire()
	require.NoError(t, err)
	require.True(t, ok)
	defer l.Release()

	info, err = l.Info()
	require.NoError(t, err)
	require.NotNil(t, info)
	require.Equal(t, os.Getpid(), info.PID)
	require.False(t, l.Stale(), "the current process holding its own lock is never stale")
}

func TestRunLock_InfoReportsFreeAfterReleaseDespiteLockFileRemaining(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".codegraph"), 0o755))

	l := NewRunLock(root)
	ok, err := l.TryAcquire()
	require.NoError(t, err)
	require.True(t, ok)
	l.Release()

	_, err = os.Stat(filepath.Join(root, ".codegraph", "index.lock"))
	require.NoError(t, err, "Release never removes the lock file")

	info, err := l.Info()
	require.NoError(t, err)
	require.Nil(t, info, "a released lock must report free even though its file still exists")
}
