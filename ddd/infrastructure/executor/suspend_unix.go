//go:build unix

package executor

import (
	"os"
	"syscall"
)

// suspendSupported reports whether the host can stop a process in place.
const suspendSupported = true

func suspendProcess(p *os.Process) error {
	return p.Signal(syscall.SIGSTOP)
}

func resumeProcess(p *os.Process) error {
	return p.Signal(syscall.SIGCONT)
}

func terminateProcess(p *os.Process) error {
	return p.Signal(syscall.SIGTERM)
}
