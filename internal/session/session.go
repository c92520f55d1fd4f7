// Package session runs one development session: it prepares the workspace,
// launches the bundler and the server, keeps them running while the bundler
// publishes builds through the change marker, and tears both down together
// when the user interrupts or either process dies.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/devstart/internal/config"
	"github.com/hupe1980/devstart/internal/logging"
	"github.com/hupe1980/devstart/internal/supervisor"
	"github.com/hupe1980/devstart/internal/watch"
	"github.com/hupe1980/devstart/internal/workspace"
)

// State is the coordinator's lifecycle state.
type State int

// Session states, in order.
const (
	StateIdle State = iota
	StatePreparing
	StateLaunching
	StateRunning
	StateShuttingDown
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePreparing:
		return "preparing"
	case StateLaunching:
		return "launching"
	case StateRunning:
		return "running"
	case StateShuttingDown:
		return "shutting-down"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// UnexpectedExitError reports a managed process that ended on its own while
// the session was running.
type UnexpectedExitError struct {
	Name   string
	Status supervisor.ExitStatus
}

func (e *UnexpectedExitError) Error() string {
	return fmt.Sprintf("%s exited unexpectedly: %s", e.Name, e.Status)
}

// Options configures Run.
type Options struct {
	// Supervisor starts the children. Defaults to one writing to stdout.
	Supervisor *supervisor.Supervisor

	// Logger is used for structured logging.
	Logger *slog.Logger

	// OnState observes every state transition.
	OnState func(State)
}

// Run executes a session and blocks until it is torn down. Cancelling ctx
// is the interrupt: both children are stopped and Run returns nil. Any other
// ending returns an error: *workspace.Error, *supervisor.LaunchError or
// *UnexpectedExitError.
func Run(ctx context.Context, sess *config.Session, opts Options) error {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if opts.Supervisor == nil {
		opts.Supervisor = supervisor.New(os.Stdout,
			supervisor.WithLogger(opts.Logger),
			supervisor.WithBaseEnv(sess.Environ),
		)
	}

	c := &coordinator{
		sess:    sess,
		sup:     opts.Supervisor,
		logger:  logging.WithSession(opts.Logger, sess.ID),
		onState: opts.OnState,
	}

	return c.run(ctx)
}

type coordinator struct {
	sess    *config.Session
	sup     *supervisor.Supervisor
	logger  *slog.Logger
	onState func(State)
	state   State
}

func (c *coordinator) transition(next State) {
	c.logger.Debug("session state",
		slog.String("from", c.state.String()),
		slog.String("to", next.String()),
	)

	c.state = next

	if c.onState != nil {
		c.onState(next)
	}
}

func (c *coordinator) run(ctx context.Context) error {
	defer c.transition(StateTerminated)

	c.transition(StatePreparing)

	if err := workspace.Prepare(c.sess.BuildDir, c.sess.EntryPath); err != nil {
		return err
	}

	if ctx.Err() != nil {
		return nil
	}

	c.transition(StateLaunching)

	c.logger.Info("starting session",
		slog.String("mode", c.sess.NodeEnv),
		slog.String("brand", c.sess.Brand),
		slog.String("restart", c.sess.RestartMode),
		slog.Bool("inspect", c.sess.Inspect),
	)

	bundler := c.sup.Start(BundlerSpec(c.sess))
	if err := bundler.Exit().Err; err != nil {
		// The server is never spawned without a bundler.
		return err
	}

	server := c.sup.Start(ServerSpec(c.sess))
	if err := server.Exit().Err; err != nil {
		c.transition(StateShuttingDown)
		c.stop(bundler)

		return err
	}

	c.transition(StateRunning)

	restarts, watchErrs, stopWatch := c.watchMarker(ctx)
	defer stopWatch()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("interrupted, stopping processes")
			c.transition(StateShuttingDown)
			c.stop(bundler, server)

			return nil

		case <-bundler.Done():
			return c.abort(ctx, bundler, server)

		case <-server.Done():
			return c.abort(ctx, server, bundler)

		case <-restarts:
			c.logger.Info("build marker changed, restarting server")

			server = c.restart(server)
			if err := server.Exit().Err; err != nil {
				c.transition(StateShuttingDown)
				c.stop(bundler)

				return err
			}

		case err := <-watchErrs:
			c.logger.Error("change marker watch failed", slog.String("error", err.Error()))
			c.transition(StateShuttingDown)
			c.stop(bundler, server)

			return fmt.Errorf("watching change marker: %w", err)
		}
	}
}

// abort handles a child that ended on its own. An interrupt that raced the
// exit still counts as a clean shutdown.
func (c *coordinator) abort(ctx context.Context, exited, sibling *supervisor.Process) error {
	c.transition(StateShuttingDown)

	status := exited.Exit()

	if ctx.Err() != nil {
		c.stop(sibling)
		return nil
	}

	c.logger.Error("process exited unexpectedly",
		slog.String("process", exited.Name()),
		slog.String("status", status.String()),
	)

	c.stop(sibling)

	return &UnexpectedExitError{Name: exited.Name(), Status: status}
}

// restart replaces the server after a marker change in native mode. The old
// process is stopped by us, so its exit is not unexpected.
func (c *coordinator) restart(server *supervisor.Process) *supervisor.Process {
	c.stop(server)
	return c.sup.Start(ServerSpec(c.sess))
}

// stop terminates procs concurrently and waits for all of them.
func (c *coordinator) stop(procs ...*supervisor.Process) {
	var g errgroup.Group

	for _, p := range procs {
		g.Go(func() error {
			status := p.Stop(c.sess.GracePeriod)
			c.logger.Info("process stopped",
				slog.String("process", p.Name()),
				slog.String("status", status.String()),
			)

			return nil
		})
	}

	_ = g.Wait()
}

// watchMarker starts the native-mode marker watch. In delegate mode the
// returned channels are nil and never fire. The returned func cancels the
// watch and waits for it to finish.
func (c *coordinator) watchMarker(ctx context.Context) (<-chan struct{}, <-chan error, func()) {
	if c.sess.RestartMode != config.RestartModeNative {
		return nil, nil, func() {}
	}

	watchCtx, cancel := context.WithCancel(ctx)

	restarts := make(chan struct{}, 1)
	errs := make(chan error, 1)
	done := make(chan struct{})

	go func() {
		defer close(done)

		err := watch.WatchFile(watchCtx, watch.FileOptions{
			Path:     c.sess.MarkerPath,
			Debounce: c.sess.Debounce,
			Logger:   c.logger,
		}, func(string) {
			// A pending restart already covers this change.
			select {
			case restarts <- struct{}{}:
			default:
			}
		})

		if err == nil && watchCtx.Err() == nil {
			err = fmt.Errorf("watcher stopped")
		}

		if err != nil {
			errs <- err
		}
	}()

	return restarts, errs, func() {
		cancel()
		<-done
	}
}
