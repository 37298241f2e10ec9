package http

import (
	"io"

	"github.com/gin-gonic/gin"

	"slowdown-service/ddd/application/app"
	"slowdown-service/ddd/application/dto"
	"slowdown-service/ddd/domain/service"
	"slowdown-service/pkg/errno"
	"slowdown-service/pkg/restapi"
)

// QueueController 队列控制器
type QueueController struct {
	schedulerApp app.SchedulerApp
	scheduler    service.Scheduler
}

// NewQueueController 创建队列控制器
func NewQueueController(schedulerApp app.SchedulerApp, scheduler service.Scheduler) *QueueController {
	return &QueueController{
		schedulerApp: schedulerApp,
		scheduler:    scheduler,
	}
}

// GetStats 队列统计
func (c *QueueController) GetStats(ctx *gin.Context) {
	resp, err := c.schedulerApp.GetStats(ctx.Request.Context())
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}
	restapi.Success(ctx, resp)
}

// PauseQueue 暂停调度
func (c *QueueController) PauseQueue(ctx *gin.Context) {
	c.schedulerApp.PauseQueue(ctx.Request.Context())
	restapi.Success(ctx, nil)
}

// ResumeQueue 恢复调度
func (c *QueueController) ResumeQueue(ctx *gin.Context) {
	c.schedulerApp.ResumeQueue(ctx.Request.Context())
	restapi.Success(ctx, nil)
}

// SetConcurrency 调整并发上限
func (c *QueueController) SetConcurrency(ctx *gin.Context) {
	var req dto.SetConcurrencyRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		restapi.Failed(ctx, errno.ErrParameterInvalid)
		return
	}
	if err := c.schedulerApp.SetConcurrency(ctx.Request.Context(), req.Concurrency); err != nil {
		restapi.Failed(ctx, err)
		return
	}
	restapi.Success(ctx, nil)
}

// StreamEvents pushes scheduler events to the client as server-sent events
// until the client disconnects.
func (c *QueueController) StreamEvents(ctx *gin.Context) {
	events, cancel := c.scheduler.Subscribe(256)
	defer cancel()

	ctx.Writer.Header().Set("Cache-Control", "no-cache")
	ctx.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-events:
			if !ok {
				return false
			}
			ctx.SSEvent(string(ev.Kind), dto.EventViewFromDomain(ev))
			return true
		case <-ctx.Request.Context().Done():
			return false
		}
	})
}
