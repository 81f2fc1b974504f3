package lock_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jvs-project/tidy/internal/lock"
	"github.com/jvs-project/tidy/pkg/errclass"
)

func TestManager_Acquire(t *testing.T) {
	mgr := lock.NewManager(t.TempDir())

	l, err := mgr.Acquire("run-1", "organize")
	require.NoError(t, err)
	defer l.Release()

	assert.Equal(t, "run-1", l.Holder.RunID)
	assert.Equal(t, "organize", l.Holder.Purpose)
	assert.Equal(t, os.Getpid(), l.Holder.PID)
	assert.FileExists(t, mgr.Path())
}

func TestManager_Acquire_Conflict(t *testing.T) {
	dir := t.TempDir()
	first, err := lock.NewManager(dir).Acquire("run-1", "organize")
	require.NoError(t, err)
	defer first.Release()

	_, err = lock.NewManager(dir).Acquire("run-2", "revert")
	require.Error(t, err)
	assert.ErrorIs(t, err, errclass.ErrLockConflict)
	assert.Contains(t, err.Error(), "run-1")
}

func TestManager_Release(t *testing.T) {
	mgr := lock.NewManager(t.TempDir())

	l, err := mgr.Acquire("run-1", "organize")
	require.NoError(t, err)
	require.NoError(t, l.Release())
	require.NoError(t, l.Release())

	again, err := mgr.Acquire("run-2", "revert")
	require.NoError(t, err)
	require.NoError(t, again.Release())
}

func TestManager_Status(t *testing.T) {
	dir := t.TempDir()
	mgr := lock.NewManager(dir)

	state, holder, err := mgr.Status()
	require.NoError(t, err)
	assert.Equal(t, lock.StateFree, state)
	assert.Nil(t, holder)

	l, err := mgr.Acquire("run-1", "revert")
	require.NoError(t, err)

	state, holder, err = lock.NewManager(dir).Status()
	require.NoError(t, err)
	assert.Equal(t, lock.StateHeld, state)
	require.NotNil(t, holder)
	assert.Equal(t, "revert", holder.Purpose)

	require.NoError(t, l.Release())
	state, _, err = mgr.Status()
	require.NoError(t, err)
	assert.Equal(t, lock.StateFree, state)
}
