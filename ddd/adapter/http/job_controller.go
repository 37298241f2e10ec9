package http

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"slowdown-service/ddd/application/app"
	"slowdown-service/ddd/application/dto"
	"slowdown-service/pkg/errno"
	"slowdown-service/pkg/restapi"
)

// JobController 作业控制器
type JobController struct {
	schedulerApp app.SchedulerApp
}

// NewJobController 创建作业控制器
func NewJobController(schedulerApp app.SchedulerApp) *JobController {
	return &JobController{
		schedulerApp: schedulerApp,
	}
}

// SubmitJob 提交单个文件
func (c *JobController) SubmitJob(ctx *gin.Context) {
	var req dto.SubmitJobRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		restapi.Failed(ctx, errno.ErrParameterInvalid)
		return
	}

	resp, err := c.schedulerApp.SubmitJob(ctx.Request.Context(), &req)
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}

	restapi.Success(ctx, resp)
}

// SubmitDirectory 批量提交目录
func (c *JobController) SubmitDirectory(ctx *gin.Context) {
	var req dto.SubmitDirectoryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		restapi.Failed(ctx, errno.ErrParameterInvalid)
		return
	}

	resp, err := c.schedulerApp.SubmitDirectory(ctx.Request.Context(), &req)
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}

	restapi.Success(ctx, resp)
}

// ListJobs 获取作业列表
func (c *JobController) ListJobs(ctx *gin.Context) {
	views, err := c.schedulerApp.ListJobs(ctx.Request.Context())
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}
	restapi.Success(ctx, views)
}

// GetJob 获取作业详情
func (c *JobController) GetJob(ctx *gin.Context) {
	id, ok := c.jobID(ctx)
	if !ok {
		return
	}
	view, err := c.schedulerApp.GetJob(ctx.Request.Context(), id)
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}
	restapi.Success(ctx, view)
}

// CancelJob 取消作业
func (c *JobController) CancelJob(ctx *gin.Context) {
	id, ok := c.jobID(ctx)
	if !ok {
		return
	}
	if err := c.schedulerApp.CancelJob(ctx.Request.Context(), id); err != nil {
		restapi.Failed(ctx, err)
		return
	}
	restapi.Success(ctx, nil)
}

// PauseJob 暂停作业
func (c *JobController) PauseJob(ctx *gin.Context) {
	id, ok := c.jobID(ctx)
	if !ok {
		return
	}
	if err := c.schedulerApp.PauseJob(ctx.Request.Context(), id); err != nil {
		restapi.Failed(ctx, err)
		return
	}
	restapi.Success(ctx, nil)
}

// ResumeJob 恢复作业
func (c *JobController) ResumeJob(ctx *gin.Context) {
	id, ok := c.jobID(ctx)
	if !ok {
		return
	}
	if err := c.schedulerApp.ResumeJob(ctx.Request.Context(), id); err != nil {
		restapi.Failed(ctx, err)
		return
	}
	restapi.Success(ctx, nil)
}

// RetryJob 重试作业
func (c *JobController) RetryJob(ctx *gin.Context) {
	id, ok := c.jobID(ctx)
	if !ok {
		return
	}
	if err := c.schedulerApp.RetryJob(ctx.Request.Context(), id); err != nil {
		restapi.Failed(ctx, err)
		return
	}
	restapi.Success(ctx, nil)
}

func (c *JobController) jobID(ctx *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param("job_id"), 10, 64)
	if err != nil || id <= 0 {
		restapi.Failed(ctx, errno.ErrParameterInvalid)
		return 0, false
	}
	return id, true
}
