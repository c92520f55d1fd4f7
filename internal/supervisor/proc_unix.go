//go:build unix

package supervisor

import (
	"errors"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// sysProcAttr puts the child into its own process group so that Stop
// reaches the whole tree (e.g. nodemon and the node process it runs).
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}

func terminate(p *os.Process) error {
	return signalGroup(p, unix.SIGTERM)
}

func kill(p *os.Process) error {
	return signalGroup(p, unix.SIGKILL)
}

func signalGroup(p *os.Process, sig unix.Signal) error {
	// Negative pid addresses the process group.
	err := unix.Kill(-p.Pid, sig)
	if errors.Is(err, unix.ESRCH) {
		return nil
	}

	return err
}

// signalName returns the name of the signal that ended the process, or ""
// when it exited normally.
func signalName(ps *os.ProcessState) string {
	ws, ok := ps.Sys().(syscall.WaitStatus)
	if !ok || !ws.Signaled() {
		return ""
	}

	return unix.SignalName(ws.Signal())
}
