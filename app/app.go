package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"slowdown-service/ddd/adapter/component"
	httpAdapter "slowdown-service/ddd/adapter/http"
	appsvc "slowdown-service/ddd/application/app"
	"slowdown-service/ddd/domain/port"
	"slowdown-service/ddd/domain/service"
	"slowdown-service/ddd/infrastructure/database/dao"
	"slowdown-service/ddd/infrastructure/executor"
	"slowdown-service/ddd/infrastructure/ffmpeg"
	"slowdown-service/ddd/infrastructure/progress"
	"slowdown-service/internal/resource"
	"slowdown-service/pkg/config"
	"slowdown-service/pkg/logger"
	"slowdown-service/pkg/manager"
	"slowdown-service/pkg/middleware"
	"slowdown-service/pkg/observability"
	"slowdown-service/pkg/task"
)

// Run assembles and runs the service until SIGINT/SIGTERM.
func Run() {
	fmt.Println("[STARTUP] Starting slowdown service...")

	// 加载配置
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("[ERROR] Failed to load config (%s): %v\n", cfgPath, err)
		os.Exit(1)
	}
	// 设置全局配置（必须在资源管理器初始化之前）
	config.SetGlobalConfig(cfg)
	fmt.Printf("[STARTUP] Config file loaded: %s\n", cfgPath)

	// 初始化日志
	logService := logger.NewLogger(cfg)
	logger.SetGlobalLogger(logService)
	defer logService.Close()
	logger.Debug("Logger initialized", map[string]interface{}{
		"level":  cfg.Log.Level,
		"format": cfg.Log.Format,
		"output": cfg.Log.Output,
	})

	logger.Infof("Slowdown service starting version=%s", "1.0.0")

	// 检查 ffmpeg/ffprobe，启动阶段直接失败
	ffmpegPath, err := ffmpeg.LocateFFmpeg(cfg.Transcode.FFmpeg.BinaryPath)
	if err != nil {
		logger.Fatal(fmt.Sprintf("FFmpeg binary not found, please install or set transcode.ffmpeg.binary_path error=%s", err.Error()))
	}
	ffprobePath, err := ffmpeg.LocateFFprobe(cfg.Transcode.FFmpeg.ProbePath)
	if err != nil {
		logger.Fatal(fmt.Sprintf("FFprobe binary not found, please install or set transcode.ffmpeg.probe_path error=%s", err.Error()))
	}
	logger.Infof("FFmpeg located ffmpeg=%s ffprobe=%s", ffmpegPath, ffprobePath)

	// 持续性能分析（可选）
	if cfg.Profiling.Enabled {
		observability.StartProfilingAt("slowdown-service", cfg.Profiling.ServerAddress)
	}

	// 资源管理器初始化
	logger.Infof("Initializing resource manager...")
	manager.MustInitResources()
	defer manager.CloseResources()
	logger.Infof("Resource manager initialized")

	// 领域组件装配
	prober := ffmpeg.NewProber(ffprobePath)
	resolver := ffmpeg.NewSlowdownResolver(ffmpegPath, cfg)
	scheduler := service.NewScheduler(cfg.Queue.Concurrency, prober, resolver, executor.NewFactory())
	schedulerApp := appsvc.NewSchedulerApp(scheduler, prober, cfg.Transcode.Output)

	// 事件下游（均为可选）
	var sinks []port.EventSink
	if cfg.Database.Enabled {
		recordDAO := dao.NewJobRecordDAO()
		if recordDAO != nil {
			if err := recordDAO.Migrate(); err != nil {
				logger.Warnf("Job history migration failed error=%s", err.Error())
			}
			sinks = append(sinks, progress.NewHistorySink(recordDAO))
		}
	}
	if cfg.Redis.Enabled {
		sinks = append(sinks, progress.NewRedisSink(resource.DefaultRedisResource().Client(), cfg.Redis.EventChannel))
	}
	if len(sinks) > 0 {
		task.Register(component.NewEventRecorder(scheduler, sinks...))
	}
	if cfg.Kafka.Enabled {
		task.Register(component.NewJobConsumer(schedulerApp, cfg.Kafka))
	}

	// 启动后台任务
	taskCtx, taskCancel := context.WithCancel(context.Background())
	defer taskCancel()
	if err := task.StartAll(taskCtx); err != nil {
		logger.Fatal(fmt.Sprintf("Failed to start background tasks error=%v", err))
	}

	// 创建Gin引擎
	if strings.EqualFold(cfg.Server.Mode, "release") {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.Default()
	engine.Use(middleware.RequestContextMiddleware())

	router := httpAdapter.NewRouter(schedulerApp, scheduler)
	router.SetupRoutes(engine)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal(fmt.Sprintf("Failed to start HTTP server error=%v", err))
		}
	}()
	logger.Infof("HTTP server started address=%s api_url=%s", server.Addr, fmt.Sprintf("http://%s/api/v1", server.Addr))

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Infof("Received shutdown signal, shutting down server...")

	// 停止后台任务，取消所有运行中的作业
	task.StopAll()
	scheduler.Shutdown(10 * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to close error=%v", err)
	}

	logger.Infof("Server exited safely")
}

// resolveConfigPath 根据环境选择配置文件，支持CONFIG_PATH覆盖、CONFIG_ENV区分环境
func resolveConfigPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}

	env := strings.ToLower(strings.TrimSpace(os.Getenv("CONFIG_ENV")))
	if env == "" {
		env = "dev"
	}

	candidates := []string{
		fmt.Sprintf("configs/config.%s.yaml", env),
		"configs/config.yaml",
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return "configs/config.yaml"
}
