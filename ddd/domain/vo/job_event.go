package vo

// EventKind classifies job lifecycle events.
type EventKind string

const (
	// EventStarted carries the OS pid of the freshly launched process.
	EventStarted EventKind = "started"
	// EventProgress carries a progress fraction and eta sample.
	EventProgress EventKind = "progress"
	// EventLog carries one raw diagnostic line from the process.
	EventLog EventKind = "log"
	// EventStatus carries a human-readable status change.
	EventStatus EventKind = "status"
	// EventFinished is the supervisor's single terminal event.
	EventFinished EventKind = "finished"
	// EventQueueFinished fires once when both pending and active drain.
	EventQueueFinished EventKind = "queue_finished"
)

// JobEvent is the message passed from supervisors to the scheduler and from
// the scheduler to its subscribers. Fields are populated per Kind.
type JobEvent struct {
	Kind  EventKind `json:"kind"`
	JobID int64     `json:"job_id,omitempty"`

	// EventStarted
	PID int `json:"pid,omitempty"`

	// EventProgress
	Progress   float64 `json:"progress,omitempty"`
	ETASeconds float64 `json:"eta_seconds,omitempty"`

	// EventLog
	Line string `json:"line,omitempty"`

	// EventStatus / EventFinished
	Status  JobStatus `json:"status,omitempty"`
	Message string    `json:"message,omitempty"`
}
