package supervisor

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/hupe1980/devstart/internal/logging"
)

// Spec describes a child process to start.
type Spec struct {
	// Name is the display name used as the "[name]" output prefix.
	Name string

	// Command is the executable path (or a name resolved through PATH).
	Command string

	Args []string

	// Env replaces the listed variables in the base environment.
	Env map[string]string

	// Dir is the working directory; empty means the current one.
	Dir string
}

// DefaultWaitDelay bounds how long a process exit waits for output pipes
// that are still held open by grandchildren.
const DefaultWaitDelay = 2 * time.Second

// ANSI color codes for process prefixes.
var colors = []string{
	"\033[36m", // cyan
	"\033[35m", // magenta
	"\033[32m", // green
	"\033[33m", // yellow
	"\033[34m", // blue
}

const resetColor = "\033[0m"

// Supervisor starts managed processes and serialises their output onto a
// single writer.
type Supervisor struct {
	out       io.Writer
	logger    *slog.Logger
	color     bool
	hook      func(Event)
	baseEnv   []string
	waitDelay time.Duration

	mu       sync.Mutex
	prefixes map[string]string
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithLogger sets the logger for lifecycle messages.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Supervisor) {
		s.logger = logger
	}
}

// WithColor enables ANSI colored prefixes.
func WithColor(enabled bool) Option {
	return func(s *Supervisor) {
		s.color = enabled
	}
}

// WithEventHook registers fn to receive every relayed line, after it has
// been written. fn runs under the output lock and must not block.
func WithEventHook(fn func(Event)) Option {
	return func(s *Supervisor) {
		s.hook = fn
	}
}

// WithBaseEnv sets the environment children inherit beneath their overlay.
// Defaults to os.Environ() at construction time.
func WithBaseEnv(env []string) Option {
	return func(s *Supervisor) {
		s.baseEnv = append([]string(nil), env...)
	}
}

// WithWaitDelay overrides DefaultWaitDelay.
func WithWaitDelay(d time.Duration) Option {
	return func(s *Supervisor) {
		s.waitDelay = d
	}
}

// New returns a Supervisor writing child output to out.
func New(out io.Writer, opts ...Option) *Supervisor {
	if out == nil {
		out = os.Stdout
	}

	s := &Supervisor{
		out:       out,
		logger:    slog.Default(),
		waitDelay: DefaultWaitDelay,
		prefixes:  make(map[string]string),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.baseEnv == nil {
		s.baseEnv = os.Environ()
	}

	return s
}

// Start launches spec and returns its handle. Start never returns nil: when
// the process cannot be launched the handle is already exited and its
// ExitStatus carries a *LaunchError.
func (s *Supervisor) Start(spec Spec) *Process {
	p := newProcess(spec, logging.WithProcess(s.logger, spec.Name))

	cmd := exec.Command(spec.Command, spec.Args...) //nolint:gosec
	cmd.Dir = spec.Dir
	cmd.Env = MergeEnv(s.baseEnv, spec.Env)
	cmd.SysProcAttr = sysProcAttr()
	cmd.WaitDelay = s.waitDelay

	stdout := &lineWriter{sup: s, name: spec.Name, stream: Stdout}
	stderr := &lineWriter{sup: s, name: spec.Name, stream: Stderr}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		launchErr := &LaunchError{Name: spec.Name, Command: spec.Command, Err: err}
		p.logger.Error("process failed to launch", slog.String("error", err.Error()))
		p.finish(ExitStatus{Code: -1, Err: launchErr})

		return p
	}

	p.cmd = cmd
	p.pid = cmd.Process.Pid
	p.setState(StateRunning)

	p.logger.Debug("process started",
		slog.Int("pid", p.pid),
		slog.String("command", spec.Command),
		slog.Any("args", spec.Args),
	)

	go func() {
		waitErr := cmd.Wait()

		stdout.Flush()
		stderr.Flush()

		status := exitStatus(cmd.ProcessState)
		if waitErr != nil && cmd.ProcessState == nil {
			status.Err = waitErr
		}

		p.logger.Debug("process exited", slog.String("status", status.String()))
		p.finish(status)
	}()

	return p
}

// emit writes one prefixed line. Holding mu for the whole write keeps lines
// from different processes from tearing into each other.
func (s *Supervisor) emit(name string, stream Stream, line []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := fmt.Fprintf(s.out, "%s %s\n", s.prefix(name), line); err != nil {
		s.logger.Debug("writing child output", slog.String("error", err.Error()))
	}

	if s.hook != nil {
		s.hook(Event{Source: name, Stream: stream, Line: string(line)})
	}
}

// prefix must be called with mu held.
func (s *Supervisor) prefix(name string) string {
	if p, ok := s.prefixes[name]; ok {
		return p
	}

	p := "[" + name + "]"

	if s.color {
		p = colors[len(s.prefixes)%len(colors)] + p + resetColor
	}

	s.prefixes[name] = p

	return p
}
