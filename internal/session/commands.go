package session

import (
	"maps"
	"path/filepath"
	"strconv"

	"github.com/hupe1980/devstart/internal/config"
	"github.com/hupe1980/devstart/internal/supervisor"
)

// Display names of the two managed processes.
const (
	BundlerName = "webpack"
	ServerName  = "ssr-server"
)

// TouchMarkerEnv asks the bundler to touch the change marker after every
// successful build.
const TouchMarkerEnv = "TOUCH_BUILD_MARKER"

// Source map styles handed to the bundler through DEVTOOL.
const (
	devtoolFull  = "source-map"
	devtoolCheap = "cheap-source-map"
)

// executableSuffix maps GOOS to the suffix of the node_modules/.bin shims.
var executableSuffix = map[string]string{
	"windows": ".cmd",
}

// BinaryName returns the file name of tool's launcher on goos.
func BinaryName(tool, goos string) string {
	return tool + executableSuffix[goos]
}

// BundlerSpec describes the webpack watch process.
func BundlerSpec(s *config.Session) supervisor.Spec {
	var args []string
	if s.Brand != "" {
		args = append(args, "--env.ctx", s.Brand)
	}

	args = append(args, "--mode", s.NodeEnv, "--watch")
	args = append(args, s.Overrides.Bundler.Args...)

	devtool := devtoolCheap
	if s.IsDevelopment() {
		devtool = devtoolFull
	}

	env := map[string]string{
		TouchMarkerEnv: "1",
		"DEVTOOL":      devtool,
	}
	maps.Copy(env, s.Overrides.Bundler.Env)

	return supervisor.Spec{
		Name:    BundlerName,
		Command: filepath.Join(s.BinDir, BinaryName("webpack", s.Platform)),
		Args:    args,
		Env:     env,
		Dir:     s.WorkDir,
	}
}

// ServerSpec describes the server process for the session's restart mode.
func ServerSpec(s *config.Session) supervisor.Spec {
	if s.RestartMode == config.RestartModeNative {
		return nativeServerSpec(s)
	}

	return delegatedServerSpec(s)
}

// delegatedServerSpec runs the entry point under nodemon, which watches the
// marker and restarts node itself.
func delegatedServerSpec(s *config.Session) supervisor.Spec {
	args := []string{
		"--watch", s.MarkerPath,
		"--on-change-only",
		"--no-colours",
		"--delay", delaySeconds(s),
		"--",
	}
	args = append(args, nodeArgs(s)...)

	return supervisor.Spec{
		Name:    ServerName,
		Command: filepath.Join(s.BinDir, BinaryName("nodemon", s.Platform)),
		Args:    args,
		Env:     maps.Clone(s.Overrides.Server.Env),
		Dir:     s.WorkDir,
	}
}

// nativeServerSpec runs node directly; the coordinator restarts it.
func nativeServerSpec(s *config.Session) supervisor.Spec {
	return supervisor.Spec{
		Name:    ServerName,
		Command: s.NodeBin,
		Args:    nodeArgs(s),
		Env:     maps.Clone(s.Overrides.Server.Env),
		Dir:     s.WorkDir,
	}
}

func nodeArgs(s *config.Session) []string {
	var args []string
	if s.Inspect {
		args = append(args, "--inspect="+s.InspectAddress)
	}

	args = append(args, s.Overrides.Server.Args...)

	return append(args, s.EntryPath)
}

// delaySeconds renders the debounce the way nodemon's --delay expects it.
func delaySeconds(s *config.Session) string {
	return strconv.FormatFloat(s.Debounce.Seconds(), 'f', -1, 64)
}
