package executor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"slowdown-service/ddd/domain/entity"
	"slowdown-service/ddd/domain/port"
	"slowdown-service/ddd/domain/vo"
	"slowdown-service/pkg/logger"
)

const (
	// exitWait bounds the wait for the exit code after stderr closes, so a
	// wedged process cannot hang the finished event.
	exitWait = 1 * time.Second
	// killGrace is how long a canceled process gets to honor SIGTERM before
	// escalation.
	killGrace = 3 * time.Second
)

// ProcessSupervisor runs one ffmpeg process for one job, feeds its stderr
// through the progress parser and reports lifecycle events over a channel.
type ProcessSupervisor struct {
	job    *entity.Job
	events chan vo.JobEvent

	cmd  *exec.Cmd
	done chan struct{}

	canceled   atomic.Bool
	pauseWant  atomic.Bool
	cancelOnce sync.Once

	pauseSupported bool
}

// NewProcessSupervisor builds a supervisor for one dispatched job. The
// suspension capability is fixed here, at construction.
func NewProcessSupervisor(job *entity.Job) *ProcessSupervisor {
	return &ProcessSupervisor{
		job:            job,
		events:         make(chan vo.JobEvent, 64),
		done:           make(chan struct{}),
		pauseSupported: suspendSupported,
	}
}

// NewFactory adapts the constructor to the scheduler's factory port.
func NewFactory() port.SupervisorFactory {
	return func(job *entity.Job) port.Supervisor {
		return NewProcessSupervisor(job)
	}
}

// Events is the supervisor's outbound channel; closed after the single
// finished event.
func (s *ProcessSupervisor) Events() <-chan vo.JobEvent {
	return s.events
}

// Start launches the job's precomputed command. A launch failure is
// returned without emitting any event; on success the started event carries
// the OS pid and the read loop runs until the process exits. Cancellation
// of ctx cancels the job cooperatively, same as Cancel.
func (s *ProcessSupervisor) Start(ctx context.Context) error {
	argv := s.job.Command()
	if len(argv) == 0 {
		return fmt.Errorf("job %d has no resolved command", s.job.ID())
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdout = io.Discard
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}
	s.cmd = cmd

	pid := cmd.Process.Pid
	s.job.SetPID(pid)
	s.events <- vo.JobEvent{Kind: vo.EventStarted, JobID: s.job.ID(), PID: pid}

	go s.run(stderr)
	go func() {
		select {
		case <-ctx.Done():
			s.Cancel()
		case <-s.done:
		}
	}()
	return nil
}

// run owns the stderr read loop and the terminal event. It is the only
// writer of the finished event and the only closer of the events channel.
func (s *ProcessSupervisor) run(stderr io.ReadCloser) {
	defer close(s.events)
	defer close(s.done)

	start := time.Now()
	outputDuration := s.job.OutputDuration()

	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 0, 16*1024), 1024*1024)
	for scanner.Scan() {
		if s.canceled.Load() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		s.events <- vo.JobEvent{Kind: vo.EventLog, JobID: s.job.ID(), Line: line}

		if sample, ok := ExtractProgress(line, outputDuration, time.Since(start).Seconds()); ok {
			s.events <- vo.JobEvent{
				Kind:       vo.EventProgress,
				JobID:      s.job.ID(),
				Progress:   sample.Fraction,
				ETASeconds: sample.ETASeconds,
			}
		}
	}

	s.events <- s.finish()
}

// finish waits (bounded) for the exit code and resolves the terminal
// outcome. A cancellation observed before exit always wins over the exit
// code.
func (s *ProcessSupervisor) finish() vo.JobEvent {
	waitDone := make(chan error, 1)
	go func() { waitDone <- s.cmd.Wait() }()

	var waitErr error
	exited := true
	select {
	case waitErr = <-waitDone:
	case <-time.After(exitWait):
		// Stream closed but the process lingers; reclaim best-effort.
		_ = s.cmd.Process.Kill()
		select {
		case waitErr = <-waitDone:
		case <-time.After(exitWait):
			exited = false
		}
	}

	ev := vo.JobEvent{Kind: vo.EventFinished, JobID: s.job.ID()}
	switch {
	case s.canceled.Load():
		ev.Status = vo.JobStatusCanceled
		ev.Message = "Canceled"
	case !exited:
		ev.Status = vo.JobStatusFailed
		ev.Message = "process did not exit"
	case waitErr == nil:
		ev.Status = vo.JobStatusCompleted
		ev.Message = "OK"
	default:
		ev.Status = vo.JobStatusFailed
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			ev.Message = fmt.Sprintf("ffmpeg exited with code %d", exitErr.ExitCode())
		} else {
			ev.Message = waitErr.Error()
		}
	}
	return ev
}

// Pause suspends the process in place when the host supports it; otherwise
// the request is recorded and the process keeps running.
func (s *ProcessSupervisor) Pause() {
	if s.canceled.Load() {
		return
	}
	s.pauseWant.Store(true)
	if s.pauseSupported && s.cmd != nil && s.cmd.Process != nil {
		if err := suspendProcess(s.cmd.Process); err != nil {
			logger.Debugf("suspend pid=%d: %v", s.job.PID(), err)
		}
	}
}

// Resume reverses Pause.
func (s *ProcessSupervisor) Resume() {
	s.pauseWant.Store(false)
	if s.pauseSupported && s.cmd != nil && s.cmd.Process != nil {
		if err := resumeProcess(s.cmd.Process); err != nil {
			logger.Debugf("resume pid=%d: %v", s.job.PID(), err)
		}
	}
}

// Cancel requests termination: the read loop sees the flag on its next
// line, and the process receives a graceful termination signal so a blocked
// read unblocks. Escalates to a hard kill only if the process ignores the
// signal past killGrace. Idempotent and safe from any goroutine.
func (s *ProcessSupervisor) Cancel() {
	s.cancelOnce.Do(func() {
		s.canceled.Store(true)
		if s.cmd == nil || s.cmd.Process == nil {
			return
		}
		// A suspended process cannot act on SIGTERM.
		if s.pauseSupported && s.pauseWant.Load() {
			_ = resumeProcess(s.cmd.Process)
		}
		if err := terminateProcess(s.cmd.Process); err != nil {
			logger.Debugf("terminate pid=%d: %v", s.job.PID(), err)
		}
		go func() {
			select {
			case <-s.done:
			case <-time.After(killGrace):
				_ = s.cmd.Process.Kill()
			}
		}()
	})
}
