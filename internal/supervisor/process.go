package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync/atomic"
	"time"
)

// State is the run state of a managed process.
type State int32

// Process states.
const (
	StateStarting State = iota
	StateRunning
	StateExited
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateExited:
		return "exited"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// ExitStatus describes how a managed process ended.
type ExitStatus struct {
	// Code is the exit code, or -1 when the process was killed by a signal
	// or never started.
	Code int

	// Signal names the terminating signal, if any (e.g. "SIGTERM").
	Signal string

	// Err is set when the process could not be launched or waited for.
	Err error
}

// Success reports a clean zero exit.
func (e ExitStatus) Success() bool {
	return e.Err == nil && e.Signal == "" && e.Code == 0
}

func (e ExitStatus) String() string {
	switch {
	case e.Err != nil:
		return "failed: " + e.Err.Error()
	case e.Signal != "":
		return "killed by " + e.Signal
	default:
		return fmt.Sprintf("exit code %d", e.Code)
	}
}

func exitStatus(ps *os.ProcessState) ExitStatus {
	if ps == nil {
		return ExitStatus{Code: -1}
	}

	return ExitStatus{Code: ps.ExitCode(), Signal: signalName(ps)}
}

// Process is the handle of one managed child.
type Process struct {
	name   string
	spec   Spec
	logger *slog.Logger

	cmd *exec.Cmd
	pid int

	state atomic.Int32
	done  chan struct{}
	exit  ExitStatus
}

func newProcess(spec Spec, logger *slog.Logger) *Process {
	spec.Args = append([]string(nil), spec.Args...)

	return &Process{
		name:   spec.Name,
		spec:   spec,
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Name returns the display name.
func (p *Process) Name() string { return p.name }

// Spec returns the spec the process was started from.
func (p *Process) Spec() Spec { return p.spec }

// PID returns the OS process id, or 0 if the process never started.
func (p *Process) PID() int { return p.pid }

// State returns the current run state.
func (p *Process) State() State { return State(p.state.Load()) }

func (p *Process) setState(s State) { p.state.Store(int32(s)) }

// Done is closed once the process has exited (or failed to launch).
func (p *Process) Done() <-chan struct{} { return p.done }

// Exit returns the exit status. It is the zero value until Done is closed.
func (p *Process) Exit() ExitStatus {
	select {
	case <-p.done:
		return p.exit
	default:
		return ExitStatus{}
	}
}

// Wait blocks until the process exits or ctx ends.
func (p *Process) Wait(ctx context.Context) (ExitStatus, error) {
	select {
	case <-p.done:
		return p.exit, nil
	case <-ctx.Done():
		return ExitStatus{}, ctx.Err()
	}
}

// Stop asks the process to terminate and waits up to grace for it to do so
// before killing it. Stop is safe to call on an exited process and returns
// its final status.
func (p *Process) Stop(grace time.Duration) ExitStatus {
	select {
	case <-p.done:
		return p.exit
	default:
	}

	p.logger.Debug("terminating process", slog.Int("pid", p.pid), slog.Duration("grace", grace))

	if err := terminate(p.cmd.Process); err != nil {
		p.logger.Debug("sending termination signal", slog.String("error", err.Error()))
	}

	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-p.done:
	case <-timer.C:
		p.logger.Warn("process did not exit after termination request, killing",
			slog.Int("pid", p.pid),
			slog.Duration("grace", grace),
		)

		if err := kill(p.cmd.Process); err != nil {
			p.logger.Debug("killing process", slog.String("error", err.Error()))
		}

		<-p.done
	}

	return p.exit
}

func (p *Process) finish(status ExitStatus) {
	p.exit = status
	p.setState(StateExited)
	close(p.done)
}
