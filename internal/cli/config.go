package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/devstart/internal/config"
	"github.com/hupe1980/devstart/internal/session"
	"github.com/hupe1980/devstart/internal/supervisor"
)

// sessionView is the YAML rendering of a resolved session.
type sessionView struct {
	ConfigFile  string        `yaml:"configFile,omitempty"`
	WorkDir     string        `yaml:"workDir"`
	BuildDir    string        `yaml:"buildDir"`
	MarkerPath  string        `yaml:"markerPath"`
	EntryPath   string        `yaml:"entryPath"`
	BinDir      string        `yaml:"binDir"`
	NodeEnv     string        `yaml:"nodeEnv"`
	Brand       string        `yaml:"brand,omitempty"`
	RestartMode string        `yaml:"restartMode"`
	Debounce    string        `yaml:"debounce"`
	GracePeriod string        `yaml:"gracePeriod"`
	Inspect     string        `yaml:"inspect,omitempty"`
	Processes   []processView `yaml:"processes"`
}

type processView struct {
	Name    string            `yaml:"name"`
	Command string            `yaml:"command"`
	Args    []string          `yaml:"args,omitempty"`
	Env     map[string]string `yaml:"env,omitempty"`
}

func newConfigCommand() *cobra.Command {
	opts := &sessionOptions{}

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the resolved session configuration",
		Long: `Print the session that "devstart start ssr" would run with the same flags,
environment and config file, including the exact command lines of both
processes. Nothing is started and the workspace is left untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.FromContext(cmd.Context())

			sess, err := newSession(cfg, opts)
			if err != nil {
				return &ExitError{Code: 2, Err: err}
			}

			return writeSessionYAML(cmd.OutOrStdout(), cfg, sess)
		},
	}

	registerSessionFlags(cmd, opts)

	return cmd
}

func newSessionView(cfg *config.Config, sess *config.Session) sessionView {
	v := sessionView{
		ConfigFile:  cfg.ConfigFile,
		WorkDir:     sess.WorkDir,
		BuildDir:    sess.BuildDir,
		MarkerPath:  sess.MarkerPath,
		EntryPath:   sess.EntryPath,
		BinDir:      sess.BinDir,
		NodeEnv:     sess.NodeEnv,
		Brand:       sess.Brand,
		RestartMode: sess.RestartMode,
		Debounce:    sess.Debounce.String(),
		GracePeriod: sess.GracePeriod.String(),
	}

	if sess.Inspect {
		v.Inspect = sess.InspectAddress
	}

	for _, spec := range []supervisor.Spec{session.BundlerSpec(sess), session.ServerSpec(sess)} {
		v.Processes = append(v.Processes, processView{
			Name:    spec.Name,
			Command: spec.Command,
			Args:    spec.Args,
			Env:     spec.Env,
		})
	}

	return v
}

func writeSessionYAML(w io.Writer, cfg *config.Config, sess *config.Session) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	if err := enc.Encode(newSessionView(cfg, sess)); err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}

	return enc.Close()
}
