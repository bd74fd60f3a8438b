package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLevel(t *testing.T) {
	require.NoError(t, Init("debug", "", false))
	assert.Equal(t, logrus.DebugLevel, Get().GetLevel())

	// Unknown levels fall back to info rather than failing.
	require.NoError(t, Init("chatty", "", false))
	assert.Equal(t, logrus.InfoLevel, Get().GetLevel())
}

func TestInitWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "wgcompute.log")
	require.NoError(t, Init("info", path, false))

	Infof("dispatch %s done", "saxpy")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "dispatch saxpy done")
	require.NoError(t, Init("warn", "", false))
}

func TestInitClosesPreviousFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Init("info", filepath.Join(dir, "first.log"), false))
	first := file
	require.NotNil(t, first)

	require.NoError(t, Init("info", filepath.Join(dir, "second.log"), false))
	assert.NotSame(t, first, file)
	_, err := first.Write([]byte("late"))
	assert.ErrorIs(t, err, os.ErrClosed)

	Infof("to second")
	data, err := os.ReadFile(filepath.Join(dir, "second.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "to second")

	require.NoError(t, Init("info", "", false))
	assert.Nil(t, file)
}

func TestInitBadPath(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	err := Init("info", filepath.Join(blocker, "wgcompute.log"), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create log directory")
}

func TestSetOutput(t *testing.T) {
	require.NoError(t, Init("warn", "", false))
	var buf bytes.Buffer
	SetOutput(&buf)

	Infof("hidden")
	Warnf("shown %d", 1)

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown 1")
}
