package dto

import (
	"time"

	"slowdown-service/ddd/domain/entity"
	"slowdown-service/ddd/domain/service"
	"slowdown-service/ddd/domain/vo"
)

// SubmitJobRequest 提交单个文件
type SubmitJobRequest struct {
	InputPath string `json:"input_path" binding:"required"`
	// OutputPath overrides the derived output location when set.
	OutputPath string `json:"output_path,omitempty"`
	// Preview transcodes only a short excerpt from the middle of the input.
	Preview bool `json:"preview,omitempty"`
}

// SubmitDirectoryRequest 提交目录批量任务
type SubmitDirectoryRequest struct {
	Directory string `json:"directory" binding:"required"`
	Preview   bool   `json:"preview,omitempty"`
}

// SubmitResponse lists the jobs created by one submission.
type SubmitResponse struct {
	Jobs []*JobView `json:"jobs"`
}

// SetConcurrencyRequest 调整并发上限
type SetConcurrencyRequest struct {
	Concurrency int `json:"concurrency" binding:"required"`
}

// JobView 作业对外视图
type JobView struct {
	ID         int64    `json:"id"`
	InputPath  string   `json:"input_path"`
	OutputPath string   `json:"output_path"`
	Preview    bool     `json:"preview"`
	Status     string   `json:"status"`
	Progress   float64  `json:"progress"`
	ETASeconds *float64 `json:"eta_seconds,omitempty"`
	Message    string   `json:"message"`
	PID        int      `json:"pid,omitempty"`
	Duration   float64  `json:"duration,omitempty"`
	CreatedAt  string   `json:"created_at"`
	StartedAt  string   `json:"started_at,omitempty"`
	EndedAt    string   `json:"ended_at,omitempty"`
}

// QueueStatsResponse 队列统计视图
type QueueStatsResponse struct {
	Concurrency int            `json:"concurrency"`
	QueuePaused bool           `json:"queue_paused"`
	Pending     int            `json:"pending"`
	Active      int            `json:"active"`
	ByStatus    map[string]int `json:"by_status"`
}

// FormatTime 统一时间格式
func FormatTime(t time.Time) string {
	return t.Format(time.RFC3339)
}

// JobViewFromSnapshot maps a job snapshot into the API view.
func JobViewFromSnapshot(snap entity.Snapshot) *JobView {
	view := &JobView{
		ID:         snap.ID,
		InputPath:  snap.InputPath,
		OutputPath: snap.OutputPath,
		Preview:    snap.Preview,
		Status:     snap.Status.String(),
		Progress:   snap.Progress,
		ETASeconds: snap.ETASeconds,
		Message:    snap.Message,
		PID:        snap.PID,
		Duration:   snap.Media.Duration,
		CreatedAt:  FormatTime(snap.CreatedAt),
	}
	if snap.StartedAt != nil {
		view.StartedAt = FormatTime(*snap.StartedAt)
	}
	if snap.EndedAt != nil {
		view.EndedAt = FormatTime(*snap.EndedAt)
	}
	return view
}

// QueueStatsFromService maps scheduler statistics into the API view.
func QueueStatsFromService(stats service.QueueStats) *QueueStatsResponse {
	byStatus := make(map[string]int, len(stats.ByStatus))
	for status, n := range stats.ByStatus {
		byStatus[status.String()] = n
	}
	return &QueueStatsResponse{
		Concurrency: stats.Concurrency,
		QueuePaused: stats.QueuePaused,
		Pending:     stats.Pending,
		Active:      stats.Active,
		ByStatus:    byStatus,
	}
}

// EventView is the SSE payload for one scheduler event.
type EventView struct {
	Kind       string   `json:"kind"`
	JobID      int64    `json:"job_id,omitempty"`
	Progress   float64  `json:"progress,omitempty"`
	ETASeconds *float64 `json:"eta_seconds,omitempty"`
	Line       string   `json:"line,omitempty"`
	Status     string   `json:"status,omitempty"`
	Message    string   `json:"message,omitempty"`
}

// EventViewFromDomain maps a scheduler event into the SSE view.
func EventViewFromDomain(ev vo.JobEvent) *EventView {
	view := &EventView{
		Kind:     string(ev.Kind),
		JobID:    ev.JobID,
		Progress: ev.Progress,
		Line:     ev.Line,
		Status:   ev.Status.String(),
		Message:  ev.Message,
	}
	if ev.Kind == vo.EventProgress {
		eta := ev.ETASeconds
		view.ETASeconds = &eta
	}
	return view
}
