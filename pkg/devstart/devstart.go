// Package devstart provides a public Go API for running a development
// session: webpack in watch mode next to the server-side rendering server,
// torn down together.
//
// This package exposes the session runner as a library, allowing tools to
// embed it without the CLI.
//
// Basic usage:
//
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer stop()
//
//	if err := devstart.Start(ctx, "/path/to/project"); err != nil {
//	    log.Fatal(err)
//	}
//
// With options:
//
//	err := devstart.Start(ctx, "/path/to/project",
//	    devstart.WithBrand("acme"),
//	    devstart.WithInspect(),
//	    devstart.WithRestartMode(devstart.RestartModeNative),
//	)
package devstart

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/devstart/internal/config"
	"github.com/hupe1980/devstart/internal/session"
	"github.com/hupe1980/devstart/internal/supervisor"
)

// Restart modes accepted by WithRestartMode.
const (
	RestartModeDelegate = config.RestartModeDelegate
	RestartModeNative   = config.RestartModeNative
)

// Errors returned by Start can be inspected with errors.As.
type (
	LaunchError         = supervisor.LaunchError
	UnexpectedExitError = session.UnexpectedExitError
)

// Option configures a session.
// Use the With* functions to create Options.
type Option func(*options)

type options struct {
	cfg       *config.Config
	inspect   bool
	environ   []string
	out       io.Writer
	logger    *slog.Logger
	color     bool
	overrides *config.ProcessOverrides
	err       error
}

// WithNodeEnv sets the build mode handed to webpack. Default: development.
func WithNodeEnv(env string) Option { return func(o *options) { o.cfg.NodeEnv = env } }

// WithBrand sets the build target handed to webpack as --env.ctx.
func WithBrand(brand string) Option { return func(o *options) { o.cfg.Brand = brand } }

// WithInspect starts the server with the debugger listening.
func WithInspect() Option { return func(o *options) { o.inspect = true } }

// WithInspectAddress sets the debugger listen address.
func WithInspectAddress(addr string) Option {
	return func(o *options) { o.cfg.InspectAddress = addr }
}

// WithBuildDir sets the build directory, relative to the work dir unless
// absolute. Default: build.
func WithBuildDir(dir string) Option { return func(o *options) { o.cfg.BuildDir = dir } }

// WithBinDir sets the directory holding webpack and nodemon.
// Default: node_modules/.bin.
func WithBinDir(dir string) Option { return func(o *options) { o.cfg.BinDir = dir } }

// WithNodeBin sets the node executable used in native restart mode.
func WithNodeBin(path string) Option { return func(o *options) { o.cfg.NodeBin = path } }

// WithRestartMode selects who restarts the server on a new build.
func WithRestartMode(mode string) Option { return func(o *options) { o.cfg.RestartMode = mode } }

// WithDebounce sets the delay that coalesces marker updates.
func WithDebounce(d time.Duration) Option { return func(o *options) { o.cfg.Debounce = d } }

// WithGracePeriod sets how long a process gets to exit before it is killed.
func WithGracePeriod(d time.Duration) Option {
	return func(o *options) { o.cfg.GracePeriod = d }
}

// WithEnviron replaces the environment the children inherit.
// Default: os.Environ().
func WithEnviron(env []string) Option {
	return func(o *options) { o.environ = append([]string(nil), env...) }
}

// WithOutput sets where the prefixed child output goes. Default: os.Stdout.
func WithOutput(w io.Writer) Option { return func(o *options) { o.out = w } }

// WithLogger sets the logger for session messages. Default: discard.
func WithLogger(logger *slog.Logger) Option { return func(o *options) { o.logger = logger } }

// WithColor enables colored process prefixes.
func WithColor() Option { return func(o *options) { o.color = true } }

// WithProcessConfig applies the processes section of a devstart config
// file (extra arguments and environment per process).
func WithProcessConfig(data []byte) Option {
	return func(o *options) {
		o.overrides, o.err = config.ParseProcessOverrides(data)
	}
}

// Start runs a session rooted at workDir and blocks until it ends.
// Cancelling ctx stops both processes and returns nil.
func Start(ctx context.Context, workDir string, opts ...Option) error {
	sess, o, err := resolve(workDir, opts...)
	if err != nil {
		return err
	}

	sup := supervisor.New(o.out,
		supervisor.WithLogger(o.logger),
		supervisor.WithColor(o.color),
		supervisor.WithBaseEnv(sess.Environ),
	)

	return session.Run(ctx, sess, session.Options{Supervisor: sup, Logger: o.logger})
}

func resolve(workDir string, opts ...Option) (*config.Session, *options, error) {
	if workDir == "" {
		return nil, nil, errors.New("work directory must not be empty")
	}

	o := &options{cfg: config.Default()}
	for _, opt := range opts {
		opt(o)
	}

	if o.err != nil {
		return nil, nil, o.err
	}

	o.applyDefaults()

	sess, err := config.NewSession(o.cfg, config.SessionInput{
		ID:        uuid.NewString(),
		WorkDir:   workDir,
		Inspect:   o.inspect,
		Environ:   o.environ,
		Overrides: o.overrides,
	})
	if err != nil {
		return nil, nil, err
	}

	return sess, o, nil
}

func (o *options) applyDefaults() {
	if o.environ == nil {
		o.environ = os.Environ()
	}

	if o.out == nil {
		o.out = os.Stdout
	}

	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
}
