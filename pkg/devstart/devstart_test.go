package devstart_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/devstart/pkg/devstart"
)

func TestStart_EmptyWorkDir(t *testing.T) {
	err := devstart.Start(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "work directory must not be empty")
}

func TestStart_RelativeWorkDir(t *testing.T) {
	err := devstart.Start(context.Background(), "relative/project")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be absolute")
}

func TestStart_InvalidRestartMode(t *testing.T) {
	err := devstart.Start(context.Background(), t.TempDir(), devstart.WithRestartMode("sometimes"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid restart mode")
}

func TestStart_InvalidProcessConfig(t *testing.T) {
	err := devstart.Start(context.Background(), t.TempDir(),
		devstart.WithProcessConfig([]byte("processes:\n  bundler:\n    env:\n      \"1BAD\": x\n")))
	require.Error(t, err)
}

func TestStart_CancelledContextPreparesWorkspace(t *testing.T) {
	dir := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := devstart.Start(ctx, dir, devstart.WithBuildDir("out"))
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "out", "ssr.js"))
	assert.NoError(t, err)
}

func TestStart_MissingBundler(t *testing.T) {
	dir := t.TempDir()
	out := &bytes.Buffer{}

	err := devstart.Start(context.Background(), dir,
		devstart.WithBinDir(filepath.Join(dir, "nowhere")),
		devstart.WithOutput(out),
	)
	require.Error(t, err)

	var launchErr *devstart.LaunchError
	require.ErrorAs(t, err, &launchErr)
	assert.Equal(t, "webpack", launchErr.Name)
	assert.Empty(t, out.String())
}
