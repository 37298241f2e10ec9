package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"slowdown-service/ddd/domain/entity"
	"slowdown-service/ddd/domain/port"
	"slowdown-service/ddd/domain/queue"
	"slowdown-service/ddd/domain/vo"
	"slowdown-service/pkg/logger"
)

// maxLogLineLen bounds log lines republished to observers; ffmpeg can emit
// very long filter dumps.
const maxLogLineLen = 512

// SubmitRequest carries one unit of work into the scheduler. Media may hold
// pre-probed facts (directory batches probe in parallel up front); when nil
// the scheduler probes the input itself.
type SubmitRequest struct {
	InputPath  string
	OutputPath string
	Preview    bool
	Media      *vo.MediaInfo
}

// QueueStats 队列统计信息
type QueueStats struct {
	Concurrency int                  `json:"concurrency"`
	QueuePaused bool                 `json:"queue_paused"`
	Pending     int                  `json:"pending"`
	Active      int                  `json:"active"`
	ByStatus    map[vo.JobStatus]int `json:"by_status"`
}

// Scheduler 作业调度服务
//
// It owns the canonical job list, the FIFO pending queue and the active
// supervisor mapping, and is the sole mutator of job status. Supervisors
// report through their event channels; the scheduler is the single consumer
// and fans events out to its subscribers.
type Scheduler interface {
	Submit(ctx context.Context, req SubmitRequest) *entity.Job
	Skip(inputPath, outputPath, reason string) *entity.Job
	Retry(ctx context.Context, id int64) error

	CancelJob(id int64)
	PauseJob(id int64)
	ResumeJob(id int64)

	PauseQueue()
	ResumeQueue()
	SetConcurrency(n int)

	Job(id int64) (*entity.Job, bool)
	Jobs() []*entity.Job
	Stats() QueueStats

	Subscribe(buffer int) (<-chan vo.JobEvent, func())
	Shutdown(timeout time.Duration)
}

type schedulerImpl struct {
	prober   port.Prober
	resolver port.CommandResolver
	factory  port.SupervisorFactory

	// mu guards pending, active, limit, paused and drainArmed as one
	// critical section: dispatch reads and writes them together.
	mu         sync.Mutex
	pending    *queue.PendingQueue
	active     map[int64]port.Supervisor
	limit      int
	paused     bool
	drainArmed bool

	jobsMu sync.RWMutex
	jobs   map[int64]*entity.Job
	order  []int64
	nextID int64

	subMu  sync.RWMutex
	subs   map[int]chan vo.JobEvent
	subSeq int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler 创建调度器；concurrency 小于1时取1。
func NewScheduler(concurrency int, prober port.Prober, resolver port.CommandResolver, factory port.SupervisorFactory) Scheduler {
	if concurrency < 1 {
		concurrency = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &schedulerImpl{
		prober:   prober,
		resolver: resolver,
		factory:  factory,
		pending:  queue.NewPendingQueue(),
		active:   make(map[int64]port.Supervisor),
		limit:    concurrency,
		jobs:     make(map[int64]*entity.Job),
		subs:     make(map[int]chan vo.JobEvent),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Submit registers a new job, probes it, resolves its command and enqueues
// it. Probe or resolution failures mark the job Failed without it ever
// entering the queue; the failure stays local to the job.
func (s *schedulerImpl) Submit(ctx context.Context, req SubmitRequest) *entity.Job {
	job := s.register(req.InputPath, req.OutputPath, req.Preview)
	s.prepareAndEnqueue(ctx, job, req.Media)
	return job
}

// Skip registers a job that is intentionally excluded before dispatch.
func (s *schedulerImpl) Skip(inputPath, outputPath, reason string) *entity.Job {
	job := s.register(inputPath, outputPath, false)
	if err := job.MarkSkipped(reason); err != nil {
		logger.Warnf("skip job id=%d: %v", job.ID(), err)
	}
	s.publishStatus(job)
	return job
}

// Retry moves a Failed/Canceled/Skipped job back through the full intake
// pipeline: the previous command and probe facts are discarded, the input
// is re-probed and the command rebuilt.
func (s *schedulerImpl) Retry(ctx context.Context, id int64) error {
	job, ok := s.Job(id)
	if !ok {
		return entity.NewDomainError(fmt.Sprintf("job %d not found", id))
	}
	s.mu.Lock()
	_, running := s.active[id]
	s.mu.Unlock()
	if running {
		return entity.NewDomainError(fmt.Sprintf("job %d is currently active", id))
	}
	if err := job.ResetForRetry(); err != nil {
		return err
	}
	s.publishStatus(job)
	s.prepareAndEnqueue(ctx, job, nil)
	return nil
}

// CancelJob forwards cancellation to the active supervisor; silently a
// no-op when the job is not running (pending jobs stay queued, terminal
// jobs stay terminal).
func (s *schedulerImpl) CancelJob(id int64) {
	if sup := s.supervisor(id); sup != nil {
		sup.Cancel()
	}
}

// PauseJob forwards per-job pause to the active supervisor.
func (s *schedulerImpl) PauseJob(id int64) {
	if sup := s.supervisor(id); sup != nil {
		sup.Pause()
	}
}

// ResumeJob forwards per-job resume to the active supervisor.
func (s *schedulerImpl) ResumeJob(id int64) {
	if sup := s.supervisor(id); sup != nil {
		sup.Resume()
	}
}

// PauseQueue stops new dispatch; running jobs continue.
func (s *schedulerImpl) PauseQueue() {
	s.mu.Lock()
	s.paused = true
	s.mu.Unlock()
	logger.Infof("Queue paused")
}

// ResumeQueue re-enables dispatch and resumes every active supervisor,
// covering per-job pauses issued while the queue itself was paused.
func (s *schedulerImpl) ResumeQueue() {
	s.mu.Lock()
	s.paused = false
	sups := make([]port.Supervisor, 0, len(s.active))
	for _, sup := range s.active {
		sups = append(sups, sup)
	}
	launchFailed := s.dispatchLocked()
	drained := s.drainCheckLocked()
	s.mu.Unlock()

	for _, sup := range sups {
		sup.Resume()
	}
	s.publishAfterDispatch(launchFailed, drained)
	logger.Infof("Queue resumed")
}

// SetConcurrency raises or lowers the running-job cap; a lower cap never
// preempts jobs already running.
func (s *schedulerImpl) SetConcurrency(n int) {
	if n < 1 {
		n = 1
	}
	s.mu.Lock()
	s.limit = n
	launchFailed := s.dispatchLocked()
	drained := s.drainCheckLocked()
	s.mu.Unlock()
	s.publishAfterDispatch(launchFailed, drained)
	logger.Infof("Concurrency limit set limit=%d", n)
}

// Job returns the job with the given id.
func (s *schedulerImpl) Job(id int64) (*entity.Job, bool) {
	s.jobsMu.RLock()
	defer s.jobsMu.RUnlock()
	job, ok := s.jobs[id]
	return job, ok
}

// Jobs lists all jobs in submission order.
func (s *schedulerImpl) Jobs() []*entity.Job {
	s.jobsMu.RLock()
	defer s.jobsMu.RUnlock()
	out := make([]*entity.Job, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.jobs[id])
	}
	return out
}

// Stats 当前队列统计
func (s *schedulerImpl) Stats() QueueStats {
	s.mu.Lock()
	stats := QueueStats{
		Concurrency: s.limit,
		QueuePaused: s.paused,
		Pending:     s.pending.Len(),
		Active:      len(s.active),
		ByStatus:    make(map[vo.JobStatus]int),
	}
	s.mu.Unlock()

	for _, job := range s.Jobs() {
		stats.ByStatus[job.Status()]++
	}
	return stats
}

// Subscribe registers an observer channel. Delivery is best-effort: a
// subscriber that falls behind loses events rather than stalling the
// scheduler.
func (s *schedulerImpl) Subscribe(buffer int) (<-chan vo.JobEvent, func()) {
	if buffer <= 0 {
		buffer = 256
	}
	ch := make(chan vo.JobEvent, buffer)
	s.subMu.Lock()
	id := s.subSeq
	s.subSeq++
	s.subs[id] = ch
	s.subMu.Unlock()

	cancel := func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

// Shutdown cancels all active jobs and waits (bounded) for their
// supervisors to finish.
func (s *schedulerImpl) Shutdown(timeout time.Duration) {
	s.mu.Lock()
	s.paused = true
	s.mu.Unlock()

	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		logger.Warnf("Scheduler shutdown timed out after %s", timeout)
	}
}

// --- internal ---

func (s *schedulerImpl) register(inputPath, outputPath string, preview bool) *entity.Job {
	s.jobsMu.Lock()
	s.nextID++
	job := entity.NewJob(s.nextID, inputPath, outputPath, preview)
	s.jobs[job.ID()] = job
	s.order = append(s.order, job.ID())
	s.jobsMu.Unlock()
	s.publishStatus(job)
	return job
}

func (s *schedulerImpl) prepareAndEnqueue(ctx context.Context, job *entity.Job, media *vo.MediaInfo) {
	info := vo.MediaInfo{}
	if media != nil {
		info = *media
	} else {
		probed, err := s.prober.Probe(ctx, job.InputPath())
		if err != nil {
			s.failBeforeQueue(job, fmt.Sprintf("probe failed: %v", err))
			return
		}
		info = probed
	}
	job.SetMedia(info)

	argv, outputDuration, err := s.resolver.Resolve(job)
	if err != nil {
		s.failBeforeQueue(job, fmt.Sprintf("command build failed: %v", err))
		return
	}
	if err := job.SetCommand(argv, outputDuration); err != nil {
		s.failBeforeQueue(job, err.Error())
		return
	}

	if err := job.MarkQueued(); err != nil {
		logger.Warnf("enqueue job id=%d: %v", job.ID(), err)
		return
	}
	s.publishStatus(job)

	s.mu.Lock()
	s.pending.Push(job)
	s.drainArmed = true
	launchFailed := s.dispatchLocked()
	drained := s.drainCheckLocked()
	s.mu.Unlock()
	s.publishAfterDispatch(launchFailed, drained)
}

func (s *schedulerImpl) failBeforeQueue(job *entity.Job, message string) {
	if err := job.MarkFailed(message); err != nil {
		logger.Warnf("fail job id=%d: %v", job.ID(), err)
		return
	}
	logger.Warnf("Job rejected before queue id=%d input=%s message=%s", job.ID(), job.InputPath(), message)
	s.publishStatus(job)
}

// dispatchLocked pops pending jobs into new supervisors while capacity
// remains. Launch failures are marked Failed and returned for publication
// outside the lock. Caller must hold s.mu.
func (s *schedulerImpl) dispatchLocked() []*entity.Job {
	var launchFailed []*entity.Job
	for !s.paused && len(s.active) < s.limit {
		job := s.pending.Pop()
		if job == nil {
			break
		}

		sup := s.factory(job)
		if err := sup.Start(s.ctx); err != nil {
			if markErr := job.MarkFailed(err.Error()); markErr != nil {
				logger.Warnf("mark launch failure id=%d: %v", job.ID(), markErr)
			}
			logger.Errorf("Job launch failed id=%d error=%v", job.ID(), err)
			launchFailed = append(launchFailed, job)
			continue
		}

		if err := job.MarkRunning(); err != nil {
			logger.Warnf("mark running id=%d: %v", job.ID(), err)
		}
		s.active[job.ID()] = sup
		s.wg.Add(1)
		go s.pump(job, sup)
	}
	return launchFailed
}

// drainCheckLocked fires the one queue-finished notification per drain.
// Caller must hold s.mu.
func (s *schedulerImpl) drainCheckLocked() bool {
	if s.drainArmed && len(s.active) == 0 && s.pending.Len() == 0 {
		s.drainArmed = false
		return true
	}
	return false
}

func (s *schedulerImpl) publishAfterDispatch(launchFailed []*entity.Job, drained bool) {
	for _, job := range launchFailed {
		s.publishStatus(job)
	}
	if drained {
		s.publish(vo.JobEvent{Kind: vo.EventQueueFinished})
		logger.Infof("Queue drained")
	}
}

// pump consumes one supervisor's event stream until its terminal event.
func (s *schedulerImpl) pump(job *entity.Job, sup port.Supervisor) {
	defer s.wg.Done()
	for ev := range sup.Events() {
		switch ev.Kind {
		case vo.EventStarted:
			s.publish(vo.JobEvent{
				Kind:    vo.EventStatus,
				JobID:   job.ID(),
				Status:  vo.JobStatusRunning,
				Message: fmt.Sprintf("PID %d", ev.PID),
			})
		case vo.EventLog:
			s.publish(vo.JobEvent{Kind: vo.EventLog, JobID: job.ID(), Line: truncateLine(ev.Line)})
		case vo.EventProgress:
			// Dropped samples are not republished, so subscribers see the
			// same monotonic series the entity records.
			if job.UpdateProgress(ev.Progress, ev.ETASeconds) {
				s.publish(ev)
			}
		case vo.EventFinished:
			s.onFinished(job, ev)
		}
	}
}

// onFinished applies the terminal outcome reported by the supervisor,
// frees the slot and gives the next pending job its turn.
func (s *schedulerImpl) onFinished(job *entity.Job, ev vo.JobEvent) {
	s.mu.Lock()
	delete(s.active, job.ID())

	var err error
	switch ev.Status {
	case vo.JobStatusCompleted:
		err = job.MarkCompleted()
	case vo.JobStatusCanceled:
		err = job.MarkCanceled()
	default:
		err = job.MarkFailed(ev.Message)
	}
	if err != nil {
		logger.Warnf("terminal transition id=%d status=%s: %v", job.ID(), ev.Status, err)
	}

	launchFailed := s.dispatchLocked()
	drained := s.drainCheckLocked()
	s.mu.Unlock()

	s.publishStatus(job)
	s.publishAfterDispatch(launchFailed, drained)
}

func (s *schedulerImpl) supervisor(id int64) port.Supervisor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active[id]
}

func (s *schedulerImpl) publishStatus(job *entity.Job) {
	snap := job.Snapshot()
	s.publish(vo.JobEvent{
		Kind:    vo.EventStatus,
		JobID:   snap.ID,
		Status:  snap.Status,
		Message: snap.Message,
	})
}

func (s *schedulerImpl) publish(ev vo.JobEvent) {
	s.subMu.RLock()
	defer s.subMu.RUnlock()
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
			// Slow subscriber: drop rather than stall the pipeline.
		}
	}
}

func truncateLine(line string) string {
	if len(line) <= maxLogLineLen {
		return line
	}
	return line[:maxLogLineLen] + "..."
}
