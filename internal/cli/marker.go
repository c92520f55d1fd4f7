package cli

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/hupe1980/devstart/internal/config"
	"github.com/hupe1980/devstart/internal/logging"
	"github.com/hupe1980/devstart/internal/workspace"
)

func newMarkerCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "marker",
		Short: "Manage the build change marker",
	}

	cmd.AddCommand(newMarkerTouchCommand())

	return cmd
}

func newMarkerTouchCommand() *cobra.Command {
	opts := &sessionOptions{}

	cmd := &cobra.Command{
		Use:   "touch",
		Short: "Signal a finished build by touching the change marker",
		Long: `Create or touch build/build.marker so that a running session restarts
the server. Each touch moves the modification time strictly forward.
Bundler post-build hooks call this when TOUCH_BUILD_MARKER is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.FromContext(cmd.Context())
			logger := logging.FromContext(cmd.Context())

			sess, err := newSession(cfg, opts)
			if err != nil {
				return &ExitError{Code: 2, Err: err}
			}

			mtime, err := workspace.TouchMarker(sess.MarkerPath)
			if err != nil {
				return &ExitError{Code: 1, Err: err}
			}

			logger.Debug("marker touched",
				slog.String("path", sess.MarkerPath),
				slog.Time("mtime", mtime),
			)

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", sess.MarkerPath, mtime.Format(time.RFC3339Nano))

			return err
		},
	}

	return cmd
}
