package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/hupe1980/devstart/internal/config"
	"github.com/hupe1980/devstart/internal/logging"
	"github.com/hupe1980/devstart/internal/session"
	"github.com/hupe1980/devstart/internal/supervisor"
)

func newStartCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start <target>",
		Short: "Start a development session",
		Long: `Start a development session for the given target.

Available targets:
  ssr   bundler in watch mode plus the server-side rendering server`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Usage()

			if len(args) == 0 {
				return &ExitError{Code: 2, Err: fmt.Errorf("missing start target")}
			}

			return &ExitError{Code: 2, Err: fmt.Errorf("unknown start target %q", args[0])}
		},
	}

	cmd.AddCommand(newStartSSRCommand())

	return cmd
}

func newStartSSRCommand() *cobra.Command {
	opts := &sessionOptions{}

	cmd := &cobra.Command{
		Use:   "ssr",
		Short: "Run the bundler and the SSR server",
		Long: `Run webpack in watch mode next to the server-side rendering server.

The build directory and an empty entry point are created if missing so the
server can start before the first build. The bundler touches
build/build.marker after every build and the server is restarted on each
touch. Ctrl-C stops both processes; if either one exits on its own the
other is stopped as well and devstart exits non-zero.

Environment:
  NODE_ENV   build mode handed to webpack (default: development)
  BRAND      target handed to webpack as --env.ctx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStartSSR(cmd.Context(), cmd, opts)
		},
	}

	registerSessionFlags(cmd, opts)

	return cmd
}

func runStartSSR(ctx context.Context, cmd *cobra.Command, opts *sessionOptions) error {
	cfg := config.FromContext(ctx)
	logger := logging.FromContext(ctx)

	sess, err := newSession(cfg, opts)
	if err != nil {
		return &ExitError{Code: 2, Err: err}
	}

	out := cmd.OutOrStdout()

	sup := supervisor.New(out,
		supervisor.WithLogger(logger),
		supervisor.WithColor(useColor(cfg, out)),
		supervisor.WithBaseEnv(sess.Environ),
	)

	logger.Debug("session resolved",
		slog.String("session", sess.ID),
		slog.String("workDir", sess.WorkDir),
		slog.String("binDir", sess.BinDir),
	)

	if err := session.Run(ctx, sess, session.Options{Supervisor: sup, Logger: logger}); err != nil {
		return &ExitError{Code: 1, Err: err}
	}

	return nil
}
