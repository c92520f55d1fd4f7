package config

import (
	"fmt"
	"path/filepath"
	"runtime"
	"time"
)

// Fixed layout inside the build directory.
const (
	MarkerFileName = "build.marker"
	EntryFileName  = "ssr.js"
)

// Session is the resolved, read-only configuration of one devstart run.
// It is created once by NewSession and must not be modified afterwards;
// everything downstream receives it instead of consulting the process
// environment or working directory.
type Session struct {
	// ID identifies the session in log output.
	ID string

	WorkDir    string
	BuildDir   string
	MarkerPath string
	EntryPath  string
	BinDir     string

	NodeEnv        string
	Brand          string
	Inspect        bool
	InspectAddress string
	NodeBin        string

	// Platform is the GOOS used for executable name lookups.
	Platform string

	RestartMode string
	Debounce    time.Duration
	GracePeriod time.Duration

	// Environ is the ambient environment captured at startup, inherited by
	// both children underneath their overlays.
	Environ []string

	Overrides ProcessOverrides
}

// SessionInput carries the values that do not come from Config.
type SessionInput struct {
	// ID is an opaque session identifier.
	ID string

	// WorkDir is the invoking working directory; must be absolute.
	WorkDir string

	// Inspect enables the server debug listener.
	Inspect bool

	// Environ is the ambient environment (os.Environ()).
	Environ []string

	// Platform defaults to runtime.GOOS.
	Platform string

	// Overrides from the config file, if any.
	Overrides *ProcessOverrides
}

// NewSession resolves cfg and in into a Session.
func NewSession(cfg *Config, in SessionInput) (*Session, error) {
	if cfg == nil {
		cfg = Default()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if !filepath.IsAbs(in.WorkDir) {
		return nil, fmt.Errorf("working directory %q must be absolute", in.WorkDir)
	}

	buildDir := cfg.BuildDir
	if !filepath.IsAbs(buildDir) {
		buildDir = filepath.Join(in.WorkDir, buildDir)
	}

	binDir := cfg.BinDir
	switch {
	case binDir == "":
		binDir = filepath.Join(in.WorkDir, "node_modules", ".bin")
	case !filepath.IsAbs(binDir):
		binDir = filepath.Join(in.WorkDir, binDir)
	}

	platform := in.Platform
	if platform == "" {
		platform = runtime.GOOS
	}

	nodeEnv := cfg.NodeEnv
	if nodeEnv == "" {
		nodeEnv = DefaultNodeEnv
	}

	s := &Session{
		ID:             in.ID,
		WorkDir:        filepath.Clean(in.WorkDir),
		BuildDir:       filepath.Clean(buildDir),
		MarkerPath:     filepath.Join(buildDir, MarkerFileName),
		EntryPath:      filepath.Join(buildDir, EntryFileName),
		BinDir:         filepath.Clean(binDir),
		NodeEnv:        nodeEnv,
		Brand:          cfg.Brand,
		Inspect:        in.Inspect,
		InspectAddress: cfg.InspectAddress,
		NodeBin:        cfg.NodeBin,
		Platform:       platform,
		RestartMode:    cfg.RestartMode,
		Debounce:       cfg.Debounce,
		GracePeriod:    cfg.GracePeriod,
		Environ:        append([]string(nil), in.Environ...),
	}

	if in.Overrides != nil {
		s.Overrides = ProcessOverrides{
			Bundler: in.Overrides.Bundler.clone(),
			Server:  in.Overrides.Server.clone(),
		}
	}

	return s, nil
}

// IsDevelopment reports whether the session builds in development mode.
func (s *Session) IsDevelopment() bool {
	return s.NodeEnv == DefaultNodeEnv
}
