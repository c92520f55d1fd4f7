package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSession_Layout(t *testing.T) {
	wd := t.TempDir()

	s, err := NewSession(Default(), SessionInput{ID: "abc", WorkDir: wd, Platform: "linux"})
	require.NoError(t, err)

	assert.Equal(t, "abc", s.ID)
	assert.Equal(t, filepath.Join(wd, "build"), s.BuildDir)
	assert.Equal(t, filepath.Join(wd, "build", "build.marker"), s.MarkerPath)
	assert.Equal(t, filepath.Join(wd, "build", "ssr.js"), s.EntryPath)
	assert.Equal(t, filepath.Join(wd, "node_modules", ".bin"), s.BinDir)
	assert.Equal(t, "linux", s.Platform)
	assert.True(t, s.IsDevelopment())
	assert.False(t, s.Inspect)
}

func TestNewSession_AbsoluteDirs(t *testing.T) {
	wd := t.TempDir()
	build := t.TempDir()

	cfg := Default()
	cfg.BuildDir = build
	cfg.BinDir = "tools/bin"

	s, err := NewSession(cfg, SessionInput{WorkDir: wd})
	require.NoError(t, err)
	assert.Equal(t, build, s.BuildDir)
	assert.Equal(t, filepath.Join(build, "ssr.js"), s.EntryPath)
	assert.Equal(t, filepath.Join(wd, "tools", "bin"), s.BinDir)
}

func TestNewSession_RelativeWorkDir(t *testing.T) {
	_, err := NewSession(Default(), SessionInput{WorkDir: "relative/dir"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be absolute")
}

func TestNewSession_InvalidConfig(t *testing.T) {
	cfg := Default()
	cfg.RestartMode = "poll"

	_, err := NewSession(cfg, SessionInput{WorkDir: t.TempDir()})
	require.Error(t, err)
}

func TestNewSession_ProductionMode(t *testing.T) {
	cfg := Default()
	cfg.NodeEnv = "production"
	cfg.Brand = "acme"

	s, err := NewSession(cfg, SessionInput{WorkDir: t.TempDir(), Inspect: true})
	require.NoError(t, err)
	assert.False(t, s.IsDevelopment())
	assert.Equal(t, "acme", s.Brand)
	assert.True(t, s.Inspect)
}

func TestNewSession_DoesNotAliasInput(t *testing.T) {
	environ := []string{"A=1"}
	overrides := &ProcessOverrides{
		Server: ProcessOverride{Args: []string{"--x"}, Env: map[string]string{"PORT": "1"}},
	}

	s, err := NewSession(Default(), SessionInput{WorkDir: t.TempDir(), Environ: environ, Overrides: overrides})
	require.NoError(t, err)

	environ[0] = "A=2"
	overrides.Server.Args[0] = "--y"
	overrides.Server.Env["PORT"] = "2"

	assert.Equal(t, []string{"A=1"}, s.Environ)
	assert.Equal(t, []string{"--x"}, s.Overrides.Server.Args)
	assert.Equal(t, "1", s.Overrides.Server.Env["PORT"])
}
