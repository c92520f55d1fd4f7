package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// newTestRootCmd creates a cobra.Command with the same persistent flags as the
// real root command so that Load can bind them during tests.
func newTestRootCmd() *cobra.Command {
	cmd := &cobra.Command{}
	pf := cmd.PersistentFlags()
	pf.String("config", "", "")
	pf.String("log-level", "info", "")
	pf.String("log-format", "text", "")
	pf.Bool("no-color", false, "")
	pf.BoolP("quiet", "q", false, "")

	f := cmd.Flags()
	f.String("restart-mode", RestartModeDelegate, "")
	f.Duration("debounce", DefaultDebounce, "")

	return cmd
}

// writeTempConfig writes a YAML string to a temporary file and returns the path.
func writeTempConfig(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	p := filepath.Join(dir, "cfg.yaml")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))

	return p
}

// clearProjectEnv unsets the unprefixed variables shared with the bundler.
func clearProjectEnv(t *testing.T) {
	t.Helper()
	t.Setenv("NODE_ENV", "")
	t.Setenv("BRAND", "")
}

// ---------------------------------------------------------------------------
// Default
// ---------------------------------------------------------------------------

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, LogLevelInfo, cfg.LogLevel)
	assert.Equal(t, LogFormatText, cfg.LogFormat)
	assert.Equal(t, "development", cfg.NodeEnv)
	assert.Equal(t, "build", cfg.BuildDir)
	assert.Equal(t, RestartModeDelegate, cfg.RestartMode)
	assert.Equal(t, 250*time.Millisecond, cfg.Debounce)
	assert.Equal(t, 5*time.Second, cfg.GracePeriod)
	assert.Equal(t, "localhost:9229", cfg.InspectAddress)
	assert.False(t, cfg.NoColor)
	assert.False(t, cfg.Quiet)
}

// ---------------------------------------------------------------------------
// Validate
// ---------------------------------------------------------------------------

func TestValidate_ValidValues(t *testing.T) {
	for _, lvl := range []string{"debug", "info", "warn", "error"} {
		cfg := Default()
		cfg.LogLevel = lvl
		assert.NoError(t, cfg.Validate(), "level=%s", lvl)
	}

	for _, mode := range []string{"delegate", "native"} {
		cfg := Default()
		cfg.RestartMode = mode
		assert.NoError(t, cfg.Validate(), "mode=%s", mode)
	}
}

func TestValidate_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"log level", func(c *Config) { c.LogLevel = "verbose" }, "invalid log level"},
		{"log format", func(c *Config) { c.LogFormat = "xml" }, "invalid log format"},
		{"restart mode", func(c *Config) { c.RestartMode = "poll" }, "invalid restart mode"},
		{"negative debounce", func(c *Config) { c.Debounce = -time.Second }, "invalid debounce"},
		{"zero grace", func(c *Config) { c.GracePeriod = 0 }, "invalid grace period"},
		{"empty build dir", func(c *Config) { c.BuildDir = "" }, "build directory"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}

// ---------------------------------------------------------------------------
// EffectiveLogLevel
// ---------------------------------------------------------------------------

func TestEffectiveLogLevel_Normal(t *testing.T) {
	cfg := &Config{LogLevel: "debug"}
	assert.Equal(t, "debug", cfg.EffectiveLogLevel())
}

func TestEffectiveLogLevel_QuietOverride(t *testing.T) {
	cfg := &Config{LogLevel: "debug", Quiet: true}
	assert.Equal(t, "error", cfg.EffectiveLogLevel())
}

// ---------------------------------------------------------------------------
// Load
// ---------------------------------------------------------------------------

func TestLoad_DefaultsOnly(t *testing.T) {
	clearProjectEnv(t)

	cfg, err := Load(nil, "")
	require.NoError(t, err)
	assert.Equal(t, LogLevelInfo, cfg.LogLevel)
	assert.Equal(t, "development", cfg.NodeEnv)
	assert.Empty(t, cfg.Brand)
	assert.Equal(t, DefaultDebounce, cfg.Debounce)
	assert.Equal(t, DefaultGracePeriod, cfg.GracePeriod)
}

func TestLoad_NodeEnvAndBrand(t *testing.T) {
	t.Setenv("NODE_ENV", "production")
	t.Setenv("BRAND", "acme")

	cfg, err := Load(nil, "")
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.NodeEnv)
	assert.Equal(t, "acme", cfg.Brand)
}

func TestLoad_PrefixedEnv(t *testing.T) {
	clearProjectEnv(t)
	t.Setenv("DEVSTART_LOG_LEVEL", "debug")
	t.Setenv("DEVSTART_RESTART_MODE", "native")
	t.Setenv("DEVSTART_GRACE_PERIOD", "2s")

	cfg, err := Load(nil, "")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, RestartModeNative, cfg.RestartMode)
	assert.Equal(t, 2*time.Second, cfg.GracePeriod)
}

func TestLoad_ConfigFile(t *testing.T) {
	clearProjectEnv(t)
	p := writeTempConfig(t, "log-format: json\nbuild-dir: out\ndebounce: 1s\nrequired-version: \">=0.1.0\"\n")

	cfg, err := Load(nil, p)
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "out", cfg.BuildDir)
	assert.Equal(t, time.Second, cfg.Debounce)
	assert.Equal(t, ">=0.1.0", cfg.RequiredVersion)
	assert.Equal(t, p, cfg.ConfigFile)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(nil, "/tmp/nonexistent-devstart-cfg-12345.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestLoad_MalformedFile(t *testing.T) {
	p := writeTempConfig(t, ": invalid yaml :")

	_, err := Load(nil, p)
	require.Error(t, err)
}

func TestLoad_FlagOverridesAll(t *testing.T) {
	clearProjectEnv(t)
	t.Setenv("DEVSTART_RESTART_MODE", "delegate")
	p := writeTempConfig(t, "restart-mode: delegate\nlog-level: warn\n")

	cmd := newTestRootCmd()
	require.NoError(t, cmd.Flags().Set("restart-mode", "native"))
	require.NoError(t, cmd.PersistentFlags().Set("log-level", "error"))

	cfg, err := Load(cmd, p)
	require.NoError(t, err)
	assert.Equal(t, RestartModeNative, cfg.RestartMode)
	assert.Equal(t, "error", cfg.LogLevel)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearProjectEnv(t)
	t.Setenv("DEVSTART_DEBOUNCE", "750ms")
	p := writeTempConfig(t, "debounce: 1s\n")

	cfg, err := Load(newTestRootCmd(), p)
	require.NoError(t, err)
	assert.Equal(t, 750*time.Millisecond, cfg.Debounce)
}

func TestLoad_InvalidRestartModeFromFile(t *testing.T) {
	clearProjectEnv(t)
	p := writeTempConfig(t, "restart-mode: poll\n")

	_, err := Load(nil, p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid restart mode")
}

// ---------------------------------------------------------------------------
// Context helpers
// ---------------------------------------------------------------------------

func TestContext_RoundTrip(t *testing.T) {
	cfg := &Config{LogLevel: "debug", LogFormat: "json"}
	ctx := NewContext(context.Background(), cfg)
	got := FromContext(ctx)
	assert.Equal(t, cfg, got)
}

func TestFromContext_FallbackToDefault(t *testing.T) {
	got := FromContext(context.Background())
	assert.Equal(t, Default(), got)
}
