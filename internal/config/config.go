// Package config provides configuration management for devstart.
//
// Configuration is loaded from four sources with the following precedence
// (highest to lowest):
//  1. CLI flags
//  2. Environment variables (DEVSTART_ prefix, plus NODE_ENV and BRAND)
//  3. Config file (.devstart.yaml)
//  4. Built-in defaults
//
// The loaded Config is turned into an immutable Session once per run; see
// NewSession.
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Supported log levels.
const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// Supported log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Restart modes select who watches the change marker.
const (
	// RestartModeDelegate hands the marker to the server's own watcher
	// (nodemon) which restarts the application itself.
	RestartModeDelegate = "delegate"

	// RestartModeNative makes devstart watch the marker and restart a plain
	// node process on every debounced change.
	RestartModeNative = "native"
)

// Defaults shared by flags, viper and tests.
const (
	DefaultNodeEnv        = "development"
	DefaultBuildDir       = "build"
	DefaultDebounce       = 250 * time.Millisecond
	DefaultGracePeriod    = 5 * time.Second
	DefaultInspectAddress = "localhost:9229"
	DefaultNodeBin        = "node"
)

// Config represents the global configuration for devstart.
type Config struct {
	// LogLevel controls the verbosity of log output.
	// Valid values: debug, info, warn, error.
	LogLevel string `mapstructure:"log-level" json:"logLevel"`

	// LogFormat controls the format of log output.
	// Valid values: text, json.
	LogFormat string `mapstructure:"log-format" json:"logFormat"`

	// NoColor disables colored process prefixes.
	NoColor bool `mapstructure:"no-color" json:"noColor"`

	// Quiet suppresses all log output below error level.
	Quiet bool `mapstructure:"quiet" json:"quiet"`

	// NodeEnv is the build mode handed to the bundler (NODE_ENV).
	NodeEnv string `mapstructure:"node-env" json:"nodeEnv"`

	// Brand is the target identifier handed to the bundler (BRAND).
	Brand string `mapstructure:"brand" json:"brand"`

	// BuildDir is the build output directory, relative to the working
	// directory unless absolute.
	BuildDir string `mapstructure:"build-dir" json:"buildDir"`

	// BinDir holds the bundler and watcher executables. Empty means
	// <workdir>/node_modules/.bin.
	BinDir string `mapstructure:"bin-dir" json:"binDir"`

	// NodeBin is the node executable used in native restart mode.
	NodeBin string `mapstructure:"node-bin" json:"nodeBin"`

	// RestartMode is one of delegate or native.
	RestartMode string `mapstructure:"restart-mode" json:"restartMode"`

	// Debounce coalesces marker updates into a single server restart.
	Debounce time.Duration `mapstructure:"debounce" json:"debounce"`

	// GracePeriod is how long a child gets between SIGTERM and SIGKILL.
	GracePeriod time.Duration `mapstructure:"grace-period" json:"gracePeriod"`

	// InspectAddress is the debugger listen address used with --inspect.
	InspectAddress string `mapstructure:"inspect-address" json:"inspectAddress"`

	// RequiredVersion is an optional semver constraint on the devstart
	// binary, pinned by a project's config file.
	RequiredVersion string `mapstructure:"required-version" json:"requiredVersion"`

	// ConfigFile is the resolved path to the config file used.
	// Set by Load(), never read from the config itself.
	ConfigFile string `mapstructure:"-" json:"-"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		LogLevel:       LogLevelInfo,
		LogFormat:      LogFormatText,
		NodeEnv:        DefaultNodeEnv,
		BuildDir:       DefaultBuildDir,
		NodeBin:        DefaultNodeBin,
		RestartMode:    RestartModeDelegate,
		Debounce:       DefaultDebounce,
		GracePeriod:    DefaultGracePeriod,
		InspectAddress: DefaultInspectAddress,
	}
}

// Validate checks that all config values are valid.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		// valid
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", c.LogLevel)
	}

	switch c.LogFormat {
	case LogFormatText, LogFormatJSON:
		// valid
	default:
		return fmt.Errorf("invalid log format %q: must be one of text, json", c.LogFormat)
	}

	switch c.RestartMode {
	case RestartModeDelegate, RestartModeNative:
		// valid
	default:
		return fmt.Errorf("invalid restart mode %q: must be one of delegate, native", c.RestartMode)
	}

	if c.Debounce < 0 {
		return fmt.Errorf("invalid debounce %s: must not be negative", c.Debounce)
	}

	if c.GracePeriod <= 0 {
		return fmt.Errorf("invalid grace period %s: must be positive", c.GracePeriod)
	}

	if c.BuildDir == "" {
		return fmt.Errorf("build directory must not be empty")
	}

	return nil
}

// EffectiveLogLevel returns the log level to use. When Quiet is true the log
// level is overridden to "error" regardless of the configured LogLevel.
func (c *Config) EffectiveLogLevel() string {
	if c.Quiet {
		return LogLevelError
	}

	return c.LogLevel
}

// Load initialises configuration from flags, environment variables, and an
// optional config file. A fresh viper instance is used on every call so that
// Load is safe for concurrent tests.
func Load(cmd *cobra.Command, configFile string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if err := configureEnv(v); err != nil {
		return nil, err
	}

	if err := configureFile(v, configFile); err != nil {
		return nil, err
	}

	if err := bindFlags(v, cmd); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// NODE_ENV= behaves like an unset variable.
	if cfg.NodeEnv == "" {
		cfg.NodeEnv = DefaultNodeEnv
	}

	cfg.ConfigFile = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults registers default values in viper.
func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("log-level", d.LogLevel)
	v.SetDefault("log-format", d.LogFormat)
	v.SetDefault("no-color", false)
	v.SetDefault("quiet", false)
	v.SetDefault("node-env", d.NodeEnv)
	v.SetDefault("brand", "")
	v.SetDefault("build-dir", d.BuildDir)
	v.SetDefault("bin-dir", "")
	v.SetDefault("node-bin", d.NodeBin)
	v.SetDefault("restart-mode", d.RestartMode)
	v.SetDefault("debounce", d.Debounce)
	v.SetDefault("grace-period", d.GracePeriod)
	v.SetDefault("inspect-address", d.InspectAddress)
	v.SetDefault("required-version", "")
}

// configureEnv sets up environment variable support. NODE_ENV and BRAND are
// the conventional unprefixed names shared with the bundler.
func configureEnv(v *viper.Viper) error {
	v.SetEnvPrefix("DEVSTART")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	if err := v.BindEnv("node-env", "NODE_ENV"); err != nil {
		return fmt.Errorf("binding NODE_ENV: %w", err)
	}

	if err := v.BindEnv("brand", "BRAND"); err != nil {
		return fmt.Errorf("binding BRAND: %w", err)
	}

	return nil
}

// configureFile sets up the config file source.
func configureFile(v *viper.Viper, configFile string) error {
	if configFile != "" {
		v.SetConfigFile(configFile)

		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %q: %w", configFile, err)
		}

		return nil
	}

	// Auto-discovery mode.
	v.SetConfigName(".devstart")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "devstart"))
	}

	if err := v.ReadInConfig(); err != nil {
		// No config file found → perfectly fine in auto-discovery.
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}

		// Found a file but it was malformed.
		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

// bindFlags walks from cmd up to the root and binds all PersistentFlags.
func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	if cmd == nil {
		return nil
	}

	// Bind the current command's own flags.
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}

	// Walk up to root and bind all persistent flags at each level.
	for c := cmd; c != nil; c = c.Parent() {
		if err := v.BindPFlags(c.PersistentFlags()); err != nil {
			return fmt.Errorf("binding persistent flags: %w", err)
		}
	}

	return nil
}

// ---------------------------------------------------------------------------
// Context helpers
// ---------------------------------------------------------------------------

type ctxKey struct{}

// NewContext returns a child context carrying cfg.
func NewContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, ctxKey{}, cfg)
}

// FromContext extracts a Config from ctx, falling back to Default().
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(ctxKey{}).(*Config); ok {
		return cfg
	}

	return Default()
}
