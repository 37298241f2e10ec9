package queue

import (
	"sync"

	"slowdown-service/ddd/domain/entity"
)

// PendingQueue 等待调度的作业FIFO队列
//
// Dispatch pops are non-blocking because the scheduler decides under its own
// lock whether capacity exists; a blocking channel queue would invert that
// control.
type PendingQueue struct {
	mu    sync.Mutex
	items []*entity.Job
}

// NewPendingQueue 创建队列
func NewPendingQueue() *PendingQueue {
	return &PendingQueue{}
}

// Push appends a job to the tail.
func (q *PendingQueue) Push(job *entity.Job) {
	if job == nil {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, job)
}

// Pop removes and returns the head, or nil when empty.
func (q *PendingQueue) Pop() *entity.Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	job := q.items[0]
	q.items = q.items[1:]
	return job
}

// Len 获取队列大小
func (q *PendingQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// IsEmpty 检查队列是否为空
func (q *PendingQueue) IsEmpty() bool {
	return q.Len() == 0
}

// Jobs returns a copy of the queued jobs in order, for listing.
func (q *PendingQueue) Jobs() []*entity.Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*entity.Job, len(q.items))
	copy(out, q.items)
	return out
}
