package component

import (
	"context"

	"slowdown-service/ddd/domain/entity"
	"slowdown-service/ddd/domain/port"
	"slowdown-service/ddd/domain/service"
	"slowdown-service/ddd/domain/vo"
	"slowdown-service/pkg/logger"
	"slowdown-service/pkg/task"
)

// EventRecorder subscribes to the scheduler and forwards events to the
// configured sinks (Redis pub/sub, job history table). Sink failures are
// logged and otherwise ignored.
type EventRecorder struct {
	scheduler service.Scheduler
	sinks     []port.EventSink
	cancelSub func()
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewEventRecorder 创建事件记录组件
func NewEventRecorder(scheduler service.Scheduler, sinks ...port.EventSink) task.BackgroundTask {
	return &EventRecorder{
		scheduler: scheduler,
		sinks:     sinks,
	}
}

func (r *EventRecorder) Name() string { return "eventRecorder" }

func (r *EventRecorder) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)
	events, cancelSub := r.scheduler.Subscribe(1024)
	r.cancelSub = cancelSub
	go func() {
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				r.record(ev)
			case <-r.ctx.Done():
				return
			}
		}
	}()
	return nil
}

func (r *EventRecorder) Stop() error {
	if r.cancel != nil {
		r.cancel()
	}
	if r.cancelSub != nil {
		r.cancelSub()
	}
	return nil
}

func (r *EventRecorder) record(ev vo.JobEvent) {
	var snap *entity.Snapshot
	if ev.JobID != 0 {
		if job, ok := r.scheduler.Job(ev.JobID); ok {
			s := job.Snapshot()
			snap = &s
		}
	}
	for _, sink := range r.sinks {
		if err := sink.Record(r.ctx, ev, snap); err != nil {
			logger.Warnf("Event sink error kind=%s job_id=%d error=%s", ev.Kind, ev.JobID, err.Error())
		}
	}
}
