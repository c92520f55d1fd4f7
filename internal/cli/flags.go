package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/hupe1980/devstart/internal/config"
)

// sessionOptions holds the per-invocation inputs that are not part of
// Config.
type sessionOptions struct {
	inspect bool
}

// registerSessionFlags adds the flags that shape a session. Except for
// --inspect they are bound into Config by config.Load.
func registerSessionFlags(cmd *cobra.Command, opts *sessionOptions) {
	f := cmd.Flags()
	f.BoolVar(&opts.inspect, "inspect", false, "start the server with the debugger listening")
	f.String("restart-mode", config.RestartModeDelegate, "who restarts the server on a new build: delegate, native")
	f.Duration("debounce", config.DefaultDebounce, "delay that coalesces marker updates into one restart")
	f.Duration("grace-period", config.DefaultGracePeriod, "time a process gets to exit before it is killed")
	f.String("bin-dir", "", "directory holding webpack and nodemon (default: node_modules/.bin)")
}

// newSession resolves the loaded config against the current process: its
// working directory, environment and config-file process overrides.
func newSession(cfg *config.Config, opts *sessionOptions) (*config.Session, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolving working directory: %w", err)
	}

	overrides, err := loadOverrides(cfg.ConfigFile)
	if err != nil {
		return nil, err
	}

	return config.NewSession(cfg, config.SessionInput{
		ID:        uuid.NewString(),
		WorkDir:   wd,
		Inspect:   opts.inspect,
		Environ:   os.Environ(),
		Overrides: overrides,
	})
}

// loadOverrides reads the processes section of the config file in use, if
// any.
func loadOverrides(path string) (*config.ProcessOverrides, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // user-specified config path
	if err != nil {
		return nil, fmt.Errorf("reading config file %q: %w", path, err)
	}

	return config.ParseProcessOverrides(data)
}

// useColor reports whether process prefixes should be colored on w.
func useColor(cfg *config.Config, w io.Writer) bool {
	if cfg.NoColor || os.Getenv("NO_COLOR") != "" {
		return false
	}

	f, ok := w.(*os.File)

	return ok && term.IsTerminal(int(f.Fd())) //nolint:gosec // fd fits in int
}
