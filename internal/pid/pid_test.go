package pid_test

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"codeberg.org/mutker/reqprof/internal/errors"
	"codeberg.org/mutker/reqprof/internal/pid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAndRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run", "reqprof.pid")

	require.NoError(t, pid.Write(path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), string(content))

	// Rewriting our own pid is allowed.
	require.NoError(t, pid.Write(path))

	require.NoError(t, pid.Remove(path))
	assert.NoFileExists(t, path)

	// Removing twice is a no-op.
	require.NoError(t, pid.Remove(path))
}

func TestWriteRunningProcess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reqprof.pid")
	require.NoError(t, os.WriteFile(path, []byte(strconv.Itoa(os.Getppid())), 0o600))

	err := pid.Write(path)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrAlreadyRunning))
}

func TestWriteStaleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reqprof.pid")
	require.NoError(t, os.WriteFile(path, []byte("not-a-pid"), 0o600))

	require.NoError(t, pid.Write(path))
}
