//go:build !unix

package supervisor

import (
	"os"
	"syscall"
)

func sysProcAttr() *syscall.SysProcAttr { return nil }

// There is no SIGTERM equivalent for console processes here; both steps
// kill the process outright.
func terminate(p *os.Process) error { return p.Kill() }

func kill(p *os.Process) error { return p.Kill() }

func signalName(*os.ProcessState) string { return "" }
