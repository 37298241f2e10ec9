package port

import (
	"context"

	"slowdown-service/ddd/domain/entity"
	"slowdown-service/ddd/domain/vo"
)

// Prober inspects an input file before a job is dispatched. A probe failure
// surfaces as the job transitioning directly to Failed.
type Prober interface {
	Probe(ctx context.Context, path string) (vo.MediaInfo, error)
}

// CommandResolver builds the fully-formed argv for a job plus the expected
// duration of the slowed output (2x the probed input duration). The
// scheduler treats the result as opaque.
type CommandResolver interface {
	Resolve(job *entity.Job) (argv []string, outputDuration float64, err error)
}

// Supervisor owns exactly one external process for one job. Start launches
// the process; a launch failure is returned synchronously and no events are
// emitted. On success the Events channel carries exactly one started event,
// any number of log/progress events, then exactly one finished event, after
// which the channel is closed.
//
// Pause, Resume and Cancel are idempotent and safe to call from any
// goroutine.
type Supervisor interface {
	Start(ctx context.Context) error
	Pause()
	Resume()
	Cancel()
	Events() <-chan vo.JobEvent
}

// SupervisorFactory creates a supervisor for one dispatched job.
type SupervisorFactory func(job *entity.Job) Supervisor

// EventSink receives scheduler events for out-of-process observers. The
// snapshot is nil for events not tied to one job (queue drain). Sinks are
// best-effort; a failing sink must not affect scheduling.
type EventSink interface {
	Record(ctx context.Context, ev vo.JobEvent, snap *entity.Snapshot) error
}
