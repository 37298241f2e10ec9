package entity

import (
	"sync"
	"time"

	"slowdown-service/ddd/domain/vo"
)

// Job 单个输入文件的慢放转码作业实体
//
// The scheduler is the only writer of status; the supervisor that currently
// owns the job may write progress/eta/message/pid. All access goes through
// the entity's own mutex because supervisors, the scheduler and the HTTP
// layer touch jobs concurrently.
type Job struct {
	mu sync.Mutex

	id         int64
	inputPath  string
	outputPath string
	preview    bool

	media vo.MediaInfo

	status     vo.JobStatus
	progress   float64 // 0..1
	etaSeconds *float64
	message    string

	createdAt time.Time
	startedAt *time.Time
	endedAt   *time.Time

	pid int

	// command is the fully resolved argv; immutable once dispatched.
	command []string
	// outputDuration is the expected duration of the slowed output in
	// seconds (2x the probed input duration), used for progress mapping.
	outputDuration float64
}

// NewJob 创建新的作业实体
func NewJob(id int64, inputPath, outputPath string, preview bool) *Job {
	return &Job{
		id:         id,
		inputPath:  inputPath,
		outputPath: outputPath,
		preview:    preview,
		status:     vo.JobStatusPending,
		createdAt:  time.Now(),
	}
}

// ID is immutable and safe to read without the lock.
func (j *Job) ID() int64 { return j.id }

func (j *Job) InputPath() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.inputPath
}

func (j *Job) OutputPath() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.outputPath
}

func (j *Job) Preview() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.preview
}

func (j *Job) Status() vo.JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

func (j *Job) Progress() float64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.progress
}

func (j *Job) Media() vo.MediaInfo {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.media
}

func (j *Job) Command() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]string, len(j.command))
	copy(out, j.command)
	return out
}

func (j *Job) OutputDuration() float64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.outputDuration
}

func (j *Job) PID() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.pid
}

func (j *Job) Message() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.message
}

// SetMedia records the probe result consumed before dispatch.
func (j *Job) SetMedia(info vo.MediaInfo) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.media = info
}

// SetCommand assigns the resolved argv and expected output duration.
// It refuses to overwrite the command of a running job.
func (j *Job) SetCommand(argv []string, outputDuration float64) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status == vo.JobStatusRunning {
		return NewDomainError("command is immutable while job is running")
	}
	j.command = append([]string(nil), argv...)
	j.outputDuration = outputDuration
	return nil
}

// SetPID records the OS process id; written by the owning supervisor only.
func (j *Job) SetPID(pid int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.pid = pid
}

// UpdateProgress applies a progress/eta sample and reports whether it was
// accepted. Progress is monotonically non-decreasing while Running; stale
// lower samples are dropped.
func (j *Job) UpdateProgress(fraction, etaSeconds float64) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status != vo.JobStatusRunning {
		return false
	}
	if fraction < j.progress {
		return false
	}
	if fraction > 1 {
		fraction = 1
	}
	j.progress = fraction
	eta := etaSeconds
	j.etaSeconds = &eta
	return true
}

// MarkQueued 进入待调度队列
func (j *Job) MarkQueued() error {
	return j.transition(vo.JobStatusQueued, "")
}

// MarkRunning 开始执行；重置进度并记录开始时间
func (j *Job) MarkRunning() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.status.CanTransitionTo(vo.JobStatusRunning) {
		return NewDomainError("cannot start job in status " + j.status.String())
	}
	now := time.Now()
	j.status = vo.JobStatusRunning
	j.startedAt = &now
	j.progress = 0
	j.etaSeconds = nil
	return nil
}

// MarkCompleted 成功结束；进度补齐到 1.0
func (j *Job) MarkCompleted() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.status.CanTransitionTo(vo.JobStatusCompleted) {
		return NewDomainError("cannot complete job in status " + j.status.String())
	}
	j.status = vo.JobStatusCompleted
	j.progress = 1.0
	j.etaSeconds = nil
	j.message = "OK"
	j.setEndedLocked()
	return nil
}

// MarkFailed 失败结束
func (j *Job) MarkFailed(message string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.status.CanTransitionTo(vo.JobStatusFailed) {
		return NewDomainError("cannot fail job in status " + j.status.String())
	}
	j.status = vo.JobStatusFailed
	j.message = message
	j.setEndedLocked()
	return nil
}

// MarkCanceled 取消结束
func (j *Job) MarkCanceled() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.status.CanTransitionTo(vo.JobStatusCanceled) {
		return NewDomainError("cannot cancel job in status " + j.status.String())
	}
	j.status = vo.JobStatusCanceled
	j.message = "Canceled"
	j.setEndedLocked()
	return nil
}

// MarkSkipped 调度前排除
func (j *Job) MarkSkipped(reason string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.status.CanTransitionTo(vo.JobStatusSkipped) {
		return NewDomainError("cannot skip job in status " + j.status.String())
	}
	j.status = vo.JobStatusSkipped
	j.message = reason
	j.setEndedLocked()
	return nil
}

// MarkFailedBeforeQueue covers probe or command-resolution failures that
// must surface without the job ever entering Queued.
func (j *Job) MarkFailedBeforeQueue(message string) error {
	return j.MarkFailed(message)
}

// ResetForRetry moves a terminal non-Completed job back to Pending and
// clears everything derived from the previous attempt; the command and
// media facts are rebuilt from scratch on requeue.
func (j *Job) ResetForRetry() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.status.IsRetryable() {
		return NewDomainError("cannot retry job in status " + j.status.String())
	}
	j.status = vo.JobStatusPending
	j.progress = 0
	j.etaSeconds = nil
	j.message = ""
	j.startedAt = nil
	j.endedAt = nil
	j.pid = 0
	j.command = nil
	j.outputDuration = 0
	j.media = vo.MediaInfo{}
	return nil
}

func (j *Job) transition(target vo.JobStatus, message string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.status.CanTransitionTo(target) {
		return NewDomainError("invalid transition " + j.status.String() + " -> " + target.String())
	}
	j.status = target
	if message != "" {
		j.message = message
	}
	return nil
}

// setEndedLocked stamps the end time exactly once, at the first terminal
// transition.
func (j *Job) setEndedLocked() {
	if j.endedAt == nil {
		now := time.Now()
		j.endedAt = &now
	}
}

// Snapshot 作业状态的一致性只读副本
type Snapshot struct {
	ID             int64        `json:"id"`
	InputPath      string       `json:"input_path"`
	OutputPath     string       `json:"output_path"`
	Preview        bool         `json:"preview"`
	Media          vo.MediaInfo `json:"media"`
	Status         vo.JobStatus `json:"status"`
	Progress       float64      `json:"progress"`
	ETASeconds     *float64     `json:"eta_seconds,omitempty"`
	Message        string       `json:"message"`
	PID            int          `json:"pid,omitempty"`
	Command        []string     `json:"command,omitempty"`
	OutputDuration float64      `json:"output_duration,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	StartedAt      *time.Time   `json:"started_at,omitempty"`
	EndedAt        *time.Time   `json:"ended_at,omitempty"`
}

// Snapshot returns a copy of the job under one lock acquisition.
func (j *Job) Snapshot() Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	var eta *float64
	if j.etaSeconds != nil {
		v := *j.etaSeconds
		eta = &v
	}
	var started, ended *time.Time
	if j.startedAt != nil {
		t := *j.startedAt
		started = &t
	}
	if j.endedAt != nil {
		t := *j.endedAt
		ended = &t
	}
	return Snapshot{
		ID:             j.id,
		InputPath:      j.inputPath,
		OutputPath:     j.outputPath,
		Preview:        j.preview,
		Media:          j.media,
		Status:         j.status,
		Progress:       j.progress,
		ETASeconds:     eta,
		Message:        j.message,
		PID:            j.pid,
		Command:        append([]string(nil), j.command...),
		OutputDuration: j.outputDuration,
		CreatedAt:      j.createdAt,
		StartedAt:      started,
		EndedAt:        ended,
	}
}
