package vo

// JobStatus 作业状态
type JobStatus string

const (
	// JobStatusPending 已创建，等待探测和入队
	JobStatusPending JobStatus = "Pending"
	// JobStatusQueued 已入队，等待调度
	JobStatusQueued JobStatus = "Queued"
	// JobStatusRunning 处理中（暂停属于 Running 的子状态，不单独建模）
	JobStatusRunning JobStatus = "Running"
	// JobStatusCompleted 已完成
	JobStatusCompleted JobStatus = "Completed"
	// JobStatusFailed 失败
	JobStatusFailed JobStatus = "Failed"
	// JobStatusCanceled 已取消
	JobStatusCanceled JobStatus = "Canceled"
	// JobStatusSkipped 调度前被排除
	JobStatusSkipped JobStatus = "Skipped"
)

// String 返回状态字符串
func (s JobStatus) String() string {
	return string(s)
}

// IsValid 检查状态是否有效
func (s JobStatus) IsValid() bool {
	switch s {
	case JobStatusPending, JobStatusQueued, JobStatusRunning,
		JobStatusCompleted, JobStatusFailed, JobStatusCanceled, JobStatusSkipped:
		return true
	default:
		return false
	}
}

// IsTerminal 检查是否为最终状态
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCanceled, JobStatusSkipped:
		return true
	default:
		return false
	}
}

// IsRetryable reports whether an operator retry may move the job back to Pending.
func (s JobStatus) IsRetryable() bool {
	switch s {
	case JobStatusFailed, JobStatusCanceled, JobStatusSkipped:
		return true
	default:
		return false
	}
}

// CanTransitionTo 检查是否可以转换到目标状态
func (s JobStatus) CanTransitionTo(target JobStatus) bool {
	switch s {
	case JobStatusPending:
		// 探测失败的作业不经过 Queued 直接标记 Failed
		return target == JobStatusQueued || target == JobStatusFailed || target == JobStatusSkipped
	case JobStatusQueued:
		// 启动失败的作业从 Queued 直接标记 Failed
		return target == JobStatusRunning || target == JobStatusFailed
	case JobStatusRunning:
		return target == JobStatusCompleted || target == JobStatusFailed || target == JobStatusCanceled
	case JobStatusFailed, JobStatusCanceled, JobStatusSkipped:
		// 仅允许操作者重试
		return target == JobStatusPending
	case JobStatusCompleted:
		return false
	default:
		return false
	}
}
