//go:build unix

package executor_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"slowdown-service/ddd/domain/entity"
	"slowdown-service/ddd/domain/vo"
	"slowdown-service/ddd/infrastructure/executor"
)

func newShellJob(t *testing.T, script string, outputDuration float64) *entity.Job {
	t.Helper()
	job := entity.NewJob(1, "in.mp4", "out.mp4", false)
	require.NoError(t, job.SetCommand([]string{"/bin/sh", "-c", script}, outputDuration))
	return job
}

func collectEvents(t *testing.T, events <-chan vo.JobEvent) []vo.JobEvent {
	t.Helper()
	var out []vo.JobEvent
	timeout := time.After(10 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatalf("timed out waiting for events, got %d so far", len(out))
		}
	}
}

func TestSupervisorCompletes(t *testing.T) {
	t.Parallel()

	job := newShellJob(t, `echo "hello" 1>&2; exit 0`, 10)
	sup := executor.NewProcessSupervisor(job)
	require.NoError(t, sup.Start(context.Background()))

	events := collectEvents(t, sup.Events())
	require.NotEmpty(t, events)

	require.Equal(t, vo.EventStarted, events[0].Kind)
	require.Positive(t, events[0].PID)

	last := events[len(events)-1]
	require.Equal(t, vo.EventFinished, last.Kind)
	require.Equal(t, vo.JobStatusCompleted, last.Status)
	require.Equal(t, "OK", last.Message)

	var logLines []string
	for _, ev := range events {
		if ev.Kind == vo.EventLog {
			logLines = append(logLines, ev.Line)
		}
	}
	require.Contains(t, logLines, "hello")
}

func TestSupervisorReportsExitCode(t *testing.T) {
	t.Parallel()

	job := newShellJob(t, `exit 3`, 10)
	sup := executor.NewProcessSupervisor(job)
	require.NoError(t, sup.Start(context.Background()))

	events := collectEvents(t, sup.Events())
	last := events[len(events)-1]
	require.Equal(t, vo.EventFinished, last.Kind)
	require.Equal(t, vo.JobStatusFailed, last.Status)
	require.Equal(t, "ffmpeg exited with code 3", last.Message)
}

func TestSupervisorEmitsProgress(t *testing.T) {
	t.Parallel()

	job := newShellJob(t, `echo "time=00:00:05.00 speed=1x" 1>&2`, 20)
	sup := executor.NewProcessSupervisor(job)
	require.NoError(t, sup.Start(context.Background()))

	events := collectEvents(t, sup.Events())
	var progress []vo.JobEvent
	for _, ev := range events {
		if ev.Kind == vo.EventProgress {
			progress = append(progress, ev)
		}
	}
	require.Len(t, progress, 1)
	require.InDelta(t, 0.25, progress[0].Progress, 1e-9)
}

func TestSupervisorFailsWhenProcessOutlivesStderr(t *testing.T) {
	t.Parallel()

	// Closing stderr ends the read loop while the process keeps running;
	// the bounded exit wait must still produce a finished event.
	job := newShellJob(t, `exec 2>&-; sleep 30`, 10)
	sup := executor.NewProcessSupervisor(job)
	require.NoError(t, sup.Start(context.Background()))

	start := time.Now()
	events := collectEvents(t, sup.Events())
	elapsed := time.Since(start)

	require.NotEmpty(t, events)
	last := events[len(events)-1]
	require.Equal(t, vo.EventFinished, last.Kind)
	require.Equal(t, vo.JobStatusFailed, last.Status)
	require.Equal(t, "process did not exit", last.Message)
	require.Less(t, elapsed, 5*time.Second)
}

func TestSupervisorCancelWinsOverExitCode(t *testing.T) {
	t.Parallel()

	job := newShellJob(t, `echo "started" 1>&2; sleep 30`, 10)
	sup := executor.NewProcessSupervisor(job)
	require.NoError(t, sup.Start(context.Background()))

	// Wait for the process to be up before canceling.
	first := <-sup.Events()
	require.Equal(t, vo.EventStarted, first.Kind)

	sup.Cancel()
	// Idempotent.
	sup.Cancel()

	events := collectEvents(t, sup.Events())
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	require.Equal(t, vo.EventFinished, last.Kind)
	require.Equal(t, vo.JobStatusCanceled, last.Status)
	require.Equal(t, "Canceled", last.Message)
}

func TestSupervisorLaunchFailure(t *testing.T) {
	t.Parallel()

	job := entity.NewJob(2, "in.mp4", "out.mp4", false)
	require.NoError(t, job.SetCommand([]string{"/nonexistent/ffmpeg-binary"}, 10))
	sup := executor.NewProcessSupervisor(job)
	err := sup.Start(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to start ffmpeg")

	// No events may arrive after a synchronous launch failure.
	select {
	case ev := <-sup.Events():
		t.Fatalf("unexpected event after launch failure: %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSupervisorEmptyCommand(t *testing.T) {
	t.Parallel()

	job := entity.NewJob(3, "in.mp4", "out.mp4", false)
	sup := executor.NewProcessSupervisor(job)
	require.Error(t, sup.Start(context.Background()))
}
