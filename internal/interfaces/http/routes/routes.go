package routes

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/easayliu/phone-task-orchestrator/internal/application/contracts"
	"github.com/easayliu/phone-task-orchestrator/internal/infrastructure/config"
	"github.com/easayliu/phone-task-orchestrator/internal/interfaces/http/handlers"
	"github.com/easayliu/phone-task-orchestrator/internal/interfaces/http/middleware"
)

// Services 路由依赖的业务契约集合
type Services struct {
	Executor    contracts.ExecutionService
	TaskService contracts.ScheduledTaskService
	RuleService contracts.RuleService
	Controller  contracts.DeviceController
}

// SetupRoutes 设置路由
func SetupRoutes(cfg *config.Config, services Services) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery())

	// 全局中间件
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.LoggerMiddleware())

	// Swagger文档路由
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	executionHandler := handlers.NewExecutionHandler(services.Executor)
	taskHandler := handlers.NewTaskHandler(services.TaskService)
	ruleHandler := handlers.NewRuleHandler(services.RuleService)
	deviceHandler := handlers.NewDeviceHandler(services.Controller)

	api := router.Group("/api/v1")
	{
		// 健康检查
		api.GET("/health", handlers.HealthCheck)

		// 任务执行
		executions := api.Group("/executions")
		{
			executions.POST("", executionHandler.Submit)
			executions.GET("", executionHandler.History)
			executions.GET("/current", executionHandler.Current)
			executions.POST("/current/stop", executionHandler.Stop)
			executions.GET("/:id", executionHandler.Get)
		}

		// 定时任务
		tasks := api.Group("/tasks")
		{
			tasks.POST("", taskHandler.CreateTask)
			tasks.GET("", taskHandler.ListTasks)
			tasks.GET("/:id", taskHandler.GetTask)
			tasks.PUT("/:id", taskHandler.UpdateTask)
			tasks.DELETE("/:id", taskHandler.DeleteTask)
			tasks.POST("/:id/enable", taskHandler.EnableTask)
			tasks.POST("/:id/disable", taskHandler.DisableTask)
			tasks.POST("/:id/run", taskHandler.RunTaskNow)
		}

		// 规则目录
		rules := api.Group("/rules")
		{
			rules.GET("/actions", ruleHandler.ListActionTypes)
			rules.POST("/actions", ruleHandler.CreateActionType)
			rules.GET("/actions/:name", ruleHandler.GetActionType)
			rules.DELETE("/actions/:name", ruleHandler.DeleteActionType)

			rules.POST("/actions/:name/rules", ruleHandler.AddRule)
			rules.PUT("/actions/:name/rules/:ruleId", ruleHandler.UpdateRule)
			rules.DELETE("/actions/:name/rules/:ruleId", ruleHandler.DeleteRule)
			rules.POST("/actions/:name/rules/:ruleId/toggle", ruleHandler.ToggleRule)

			rules.POST("/actions/:name/custom-code", ruleHandler.SubmitCustomCode)
			rules.DELETE("/actions/:name/rules/:ruleId/custom-code", ruleHandler.RemoveCustomCode)

			rules.POST("/apply", ruleHandler.Apply)
		}

		// 设备
		devices := api.Group("/devices")
		{
			devices.GET("", deviceHandler.ListDevices)
			devices.GET("/:id", deviceHandler.DeviceStatus)
		}
	}

	return router
}
