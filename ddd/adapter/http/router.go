package http

import (
	"github.com/gin-gonic/gin"

	"slowdown-service/ddd/application/app"
	"slowdown-service/ddd/domain/service"
)

// Router 路由配置
type Router struct {
	schedulerApp app.SchedulerApp
	scheduler    service.Scheduler
}

// NewRouter 创建路由配置
func NewRouter(schedulerApp app.SchedulerApp, scheduler service.Scheduler) *Router {
	return &Router{
		schedulerApp: schedulerApp,
		scheduler:    scheduler,
	}
}

// SetupRoutes 设置路由
func (r *Router) SetupRoutes(engine *gin.Engine) {
	jobController := NewJobController(r.schedulerApp)
	queueController := NewQueueController(r.schedulerApp, r.scheduler)

	// API v1 路由组
	v1 := engine.Group("/api/v1")
	{
		// 作业相关路由
		jobs := v1.Group("/jobs")
		{
			jobs.POST("", jobController.SubmitJob)           // 提交单个文件
			jobs.POST("/batch", jobController.SubmitDirectory) // 批量提交目录
			jobs.GET("", jobController.ListJobs)             // 获取作业列表

			jobs.GET("/:job_id", jobController.GetJob)            // 获取作业详情
			jobs.POST("/:job_id/cancel", jobController.CancelJob) // 取消作业
			jobs.POST("/:job_id/pause", jobController.PauseJob)   // 暂停作业
			jobs.POST("/:job_id/resume", jobController.ResumeJob) // 恢复作业
			jobs.POST("/:job_id/retry", jobController.RetryJob)   // 重试作业
		}

		// 队列相关路由
		queue := v1.Group("/queue")
		{
			queue.GET("/stats", queueController.GetStats)             // 队列统计
			queue.POST("/pause", queueController.PauseQueue)          // 暂停调度
			queue.POST("/resume", queueController.ResumeQueue)        // 恢复调度
			queue.PUT("/concurrency", queueController.SetConcurrency) // 调整并发上限
		}

		// 事件推送
		v1.GET("/events", queueController.StreamEvents)
	}

	// 健康检查路由
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "slowdown-service",
			"version": "1.0.0",
		})
	})
}
