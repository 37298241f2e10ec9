//go:build !unix

package executor

import "os"

// Windows has no in-place process suspension through os.Process; pause
// degrades to a recorded request while the process keeps running.
const suspendSupported = false

func suspendProcess(p *os.Process) error { return nil }

func resumeProcess(p *os.Process) error { return nil }

func terminateProcess(p *os.Process) error {
	return p.Kill()
}
