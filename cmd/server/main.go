package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/easayliu/phone-task-orchestrator/docs"
	"github.com/easayliu/phone-task-orchestrator/internal/application/services/notification"
	"github.com/easayliu/phone-task-orchestrator/internal/application/services/rule"
	"github.com/easayliu/phone-task-orchestrator/internal/application/services/task"
	"github.com/easayliu/phone-task-orchestrator/internal/infrastructure/config"
	"github.com/easayliu/phone-task-orchestrator/internal/infrastructure/device"
	"github.com/easayliu/phone-task-orchestrator/internal/infrastructure/repository"
	infratelegram "github.com/easayliu/phone-task-orchestrator/internal/infrastructure/telegram"
	"github.com/easayliu/phone-task-orchestrator/internal/interfaces/http/routes"
	ifacetelegram "github.com/easayliu/phone-task-orchestrator/internal/interfaces/telegram"
	"github.com/easayliu/phone-task-orchestrator/pkg/logger"
)

// @title Phone Task Orchestrator API
// @version 1.0
// @description 规则拦截的手机自动化任务编排服务

// @host localhost:8080
// @BasePath /api/v1
// @schemes http
func main() {
	// 加载配置
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// 初始化日志
	if err := logger.Init(logger.Options{
		Level:     cfg.Log.Level,
		Output:    cfg.Log.Output,
		Format:    cfg.Log.Format,
		FilePath:  cfg.Log.FilePath,
		Colorize:  cfg.Log.Colorize,
		AddSource: cfg.Log.AddSource,
	}); err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}

	// 存储层
	taskRepo, err := repository.NewTaskRepository(cfg.Storage.DataDir)
	if err != nil {
		log.Fatal("Failed to initialize task repository:", err)
	}
	ruleRepo, err := repository.NewRuleRepository(cfg.Storage.DataDir)
	if err != nil {
		log.Fatal("Failed to initialize rule repository:", err)
	}

	// 规则目录与拦截器
	catalog, err := rule.NewCatalogService(ruleRepo)
	if err != nil {
		log.Fatal("Failed to initialize rule catalog:", err)
	}

	// 设备驱动
	driver := device.NewAdbDriver(&cfg.Device, cfg.Storage.DataDir)

	// 任务执行器
	executor := task.NewExecutorService(
		driver,
		driver,
		task.NewScriptPlannerFactory(),
		catalog.Interceptor(),
		task.NewLockGuard(driver, cfg.Device.Pins),
		task.ExecutorOptions{
			MaxSteps:       cfg.Executor.MaxSteps,
			HistoryLimit:   cfg.Executor.HistoryLimit,
			DefaultDevices: cfg.Executor.DefaultDevices,
			AppPackages:    driver.AppPackages(),
		},
	)

	// Telegram客户端与执行结束通知
	var telegramClient *infratelegram.Client
	if cfg.Telegram.Enabled {
		telegramClient = infratelegram.NewClient(&cfg.Telegram)
	}
	notificationService := notification.NewNotificationServiceWithClient(cfg, telegramClient)
	executor.AddListener(notificationService.Listener())

	// 定时任务
	taskService := task.NewScheduledTaskService(taskRepo, executor)
	scheduler := task.NewSchedulerLoop(taskRepo, executor, time.Duration(cfg.Scheduler.TickSeconds)*time.Second)
	if cfg.Scheduler.Enabled {
		if err := scheduler.Start(); err != nil {
			log.Fatal("Failed to start scheduler:", err)
		}
	}

	// Telegram机器人
	var telegramController *ifacetelegram.TelegramController
	if cfg.Telegram.Enabled && telegramClient != nil {
		telegramController = ifacetelegram.NewTelegramController(cfg, telegramClient, executor, taskService)
		telegramController.StartPolling()
	}

	// HTTP路由
	router := routes.SetupRoutes(cfg, routes.Services{
		Executor:    executor,
		TaskService: taskService,
		RuleService: catalog,
		Controller:  driver,
	})

	// 设置信号处理
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// 启动服务器
	go func() {
		addr := cfg.Server.Host + ":" + cfg.Server.Port
		logger.Info("Starting server", "address", addr)
		if err := router.Run(addr); err != nil {
			log.Fatal("Failed to start server:", err)
		}
	}()

	// 等待退出信号
	<-quit
	logger.Info("Shutting down server...")

	scheduler.Stop()
	if telegramController != nil {
		telegramController.StopPolling()
	}
	if err := executor.StopCurrent(context.Background()); err == nil {
		logger.Info("Running task stop requested")
	}

	logger.Info("Server stopped")
}
