package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/easayliu/phone-task-orchestrator/internal/application/contracts"
	"github.com/easayliu/phone-task-orchestrator/pkg/utils"
)

// TaskHandler REST定时任务处理器 - 纯协议转换层
type TaskHandler struct {
	taskService contracts.ScheduledTaskService
}

func NewTaskHandler(taskService contracts.ScheduledTaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

// CreateTask 创建定时任务
// @Summary 创建定时任务
// @Description 创建定时任务，支持once/interval/daily/weekly/monthly/cron调度
// @Tags 定时任务
// @Accept json
// @Produce json
// @Param request body contracts.TaskRequest true "创建任务请求"
// @Success 200 {object} entities.ScheduledTask "任务创建成功"
// @Failure 400 {object} map[string]interface{} "请求参数错误"
// @Router /tasks [post]
func (h *TaskHandler) CreateTask(c *gin.Context) {
	var req contracts.TaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorWithStatus(c, http.StatusBadRequest, 400, "Invalid request parameters: "+err.Error())
		return
	}

	task, err := h.taskService.CreateTask(c.Request.Context(), req)
	if err != nil {
		handleServiceError(c, err, "Failed to create task")
		return
	}
	utils.Success(c, task)
}

// GetTask 获取定时任务详情
// @Summary 获取定时任务详情
// @Tags 定时任务
// @Produce json
// @Param id path string true "任务ID"
// @Success 200 {object} entities.ScheduledTask
// @Failure 404 {object} map[string]interface{} "任务不存在"
// @Router /tasks/{id} [get]
func (h *TaskHandler) GetTask(c *gin.Context) {
	task, err := h.taskService.GetTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, err, "Failed to get task")
		return
	}
	utils.Success(c, task)
}

// ListTasks 获取任务列表
// @Summary 获取定时任务列表
// @Tags 定时任务
// @Produce json
// @Success 200 {object} contracts.TaskListResponse
// @Router /tasks [get]
func (h *TaskHandler) ListTasks(c *gin.Context) {
	resp, err := h.taskService.ListTasks(c.Request.Context())
	if err != nil {
		handleServiceError(c, err, "Failed to list tasks")
		return
	}
	utils.Success(c, resp)
}

// UpdateTask 更新定时任务
// @Summary 更新定时任务
// @Description 更新任务字段，省略的字段保持原值；调度字段变化后重算下次运行时间
// @Tags 定时任务
// @Accept json
// @Produce json
// @Param id path string true "任务ID"
// @Param request body contracts.TaskUpdateRequest true "更新请求"
// @Success 200 {object} entities.ScheduledTask
// @Failure 404 {object} map[string]interface{} "任务不存在"
// @Router /tasks/{id} [put]
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	var req contracts.TaskUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorWithStatus(c, http.StatusBadRequest, 400, "Invalid request parameters: "+err.Error())
		return
	}

	task, err := h.taskService.UpdateTask(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		handleServiceError(c, err, "Failed to update task")
		return
	}
	utils.Success(c, task)
}

// DeleteTask 删除定时任务
// @Summary 删除定时任务
// @Tags 定时任务
// @Produce json
// @Param id path string true "任务ID"
// @Success 200 {object} map[string]interface{} "删除成功"
// @Failure 404 {object} map[string]interface{} "任务不存在"
// @Router /tasks/{id} [delete]
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	if err := h.taskService.DeleteTask(c.Request.Context(), c.Param("id")); err != nil {
		handleServiceError(c, err, "Failed to delete task")
		return
	}
	utils.Success(c, gin.H{"message": "Task deleted"})
}

// EnableTask 启用定时任务
// @Summary 启用定时任务
// @Description 重新启用时从当前时刻重算下次运行时间
// @Tags 定时任务
// @Produce json
// @Param id path string true "任务ID"
// @Success 200 {object} map[string]interface{}
// @Router /tasks/{id}/enable [post]
func (h *TaskHandler) EnableTask(c *gin.Context) {
	if err := h.taskService.EnableTask(c.Request.Context(), c.Param("id")); err != nil {
		handleServiceError(c, err, "Failed to enable task")
		return
	}
	utils.Success(c, gin.H{"message": "Task enabled"})
}

// DisableTask 禁用定时任务
// @Summary 禁用定时任务
// @Tags 定时任务
// @Produce json
// @Param id path string true "任务ID"
// @Success 200 {object} map[string]interface{}
// @Router /tasks/{id}/disable [post]
func (h *TaskHandler) DisableTask(c *gin.Context) {
	if err := h.taskService.DisableTask(c.Request.Context(), c.Param("id")); err != nil {
		handleServiceError(c, err, "Failed to disable task")
		return
	}
	utils.Success(c, gin.H{"message": "Task disabled"})
}

// RunTaskNow 立即执行定时任务
// @Summary 立即执行定时任务
// @Description 以manual优先级立即执行，不影响任务的调度字段
// @Tags 定时任务
// @Produce json
// @Param id path string true "任务ID"
// @Success 200 {object} contracts.SubmitResponse
// @Failure 409 {object} map[string]interface{} "已有任务在运行"
// @Router /tasks/{id}/run [post]
func (h *TaskHandler) RunTaskNow(c *gin.Context) {
	resp, err := h.taskService.RunTaskNow(c.Request.Context(), c.Param("id"))
	if err != nil {
		if conflict, ok := err.(*contracts.PreemptionConflict); ok {
			utils.ErrorWithStatus(c, http.StatusConflict, 409, conflict.Error())
			return
		}
		handleServiceError(c, err, "Failed to run task")
		return
	}
	utils.Success(c, resp)
}
