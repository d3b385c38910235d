package pidfile

import (
	"os"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovetools/vdd/errors"
	"github.com/grovetools/vdd/testutil"
)

func TestAcquireRelease(t *testing.T) {
	testutil.IsolateHome(t)
	pipe := testutil.UniquePipeName()

	running, _, err := IsRunning(pipe)
	require.NoError(t, err)
	assert.False(t, running)

	require.NoError(t, Acquire(pipe))
	pid, err := Read(pipe)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)

	running, pid, err = IsRunning(pipe)
	require.NoError(t, err)
	assert.True(t, running)
	assert.Equal(t, os.Getpid(), pid)

	require.NoError(t, Release(pipe))
	require.NoError(t, Release(pipe))
	_, err = os.Stat(Path(pipe))
	assert.True(t, os.IsNotExist(err))
}

func TestAcquireReplacesStaleFile(t *testing.T) {
	testutil.IsolateHome(t)
	pipe := testutil.UniquePipeName()

	require.NoError(t, Acquire(pipe))
	// A PID that cannot belong to a live process.
	require.NoError(t, os.WriteFile(Path(pipe), []byte("-5"), 0644))

	require.NoError(t, Acquire(pipe))
	pid, err := Read(pipe)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)
}

func TestAcquireRejectsLiveOwner(t *testing.T) {
	testutil.IsolateHome(t)
	pipe := testutil.UniquePipeName()

	require.NoError(t, Acquire(pipe))
	parent := os.Getppid()
	require.NoError(t, os.WriteFile(Path(pipe), []byte(strconv.Itoa(parent)), 0644))

	err := Acquire(pipe)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeAlreadyRunning))
	got, ok := errors.Detail(err, "pid")
	require.True(t, ok)
	assert.Equal(t, parent, got)
}

func TestPipesAreIndependent(t *testing.T) {
	testutil.IsolateHome(t)

	a, b := testutil.UniquePipeName(), testutil.UniquePipeName()
	require.NoError(t, Acquire(a))
	assert.NotEqual(t, Path(a), Path(b))

	running, _, err := IsRunning(b)
	require.NoError(t, err)
	assert.False(t, running)
}
