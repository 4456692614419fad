package handlers

import (
	stderrors "errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/easayliu/phone-task-orchestrator/internal/application/contracts"
	"github.com/easayliu/phone-task-orchestrator/internal/domain/entities"
	"github.com/easayliu/phone-task-orchestrator/pkg/utils"
)

// ExecutionHandler REST执行处理器 - 纯协议转换层
type ExecutionHandler struct {
	executor contracts.ExecutionService
}

func NewExecutionHandler(executor contracts.ExecutionService) *ExecutionHandler {
	return &ExecutionHandler{executor: executor}
}

// Submit 提交任务执行
// @Summary 提交任务执行
// @Description 提交自动化任务。已有任务运行时返回409冲突；force=true且优先级更高时抢占
// @Tags 任务执行
// @Accept json
// @Produce json
// @Param request body contracts.SubmitRequest true "提交请求"
// @Success 200 {object} contracts.SubmitResponse "提交成功"
// @Failure 400 {object} map[string]interface{} "请求参数错误"
// @Failure 409 {object} map[string]interface{} "已有任务在运行"
// @Router /executions [post]
func (h *ExecutionHandler) Submit(c *gin.Context) {
	var req contracts.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorWithStatus(c, http.StatusBadRequest, 400, "Invalid request parameters: "+err.Error())
		return
	}
	// HTTP提交默认manual来源
	if req.Origin == "" {
		req.Origin = entities.OriginManual
	}

	resp, err := h.executor.Submit(c.Request.Context(), req)
	if err != nil {
		var conflict *contracts.PreemptionConflict
		if stderrors.As(err, &conflict) {
			utils.ErrorWithData(c, http.StatusConflict, 409, conflict.Error(), gin.H{
				"running_id":       conflict.RunningID,
				"running_origin":   conflict.RunningOrigin,
				"requested_origin": conflict.RequestedOrigin,
			})
			return
		}
		if stderrors.Is(err, contracts.ErrDeferred) {
			utils.ErrorWithStatus(c, http.StatusConflict, 409, err.Error())
			return
		}
		handleServiceError(c, err, "Failed to submit execution")
		return
	}

	utils.Success(c, resp)
}

// Current 查询当前运行中的任务
// @Summary 查询当前任务
// @Tags 任务执行
// @Produce json
// @Success 200 {object} entities.TaskExecution "当前任务，空闲时data为null"
// @Router /executions/current [get]
func (h *ExecutionHandler) Current(c *gin.Context) {
	utils.Success(c, h.executor.Current())
}

// Stop 停止当前任务
// @Summary 停止当前任务
// @Description 协作式停止：任务在当前步骤完成后退出
// @Tags 任务执行
// @Produce json
// @Success 200 {object} map[string]interface{} "停止请求已接受"
// @Failure 404 {object} map[string]interface{} "无运行中任务"
// @Router /executions/current/stop [post]
func (h *ExecutionHandler) Stop(c *gin.Context) {
	if err := h.executor.StopCurrent(c.Request.Context()); err != nil {
		if stderrors.Is(err, contracts.ErrNoRunningTask) {
			utils.ErrorWithStatus(c, http.StatusNotFound, 404, err.Error())
			return
		}
		handleServiceError(c, err, "Failed to stop execution")
		return
	}
	utils.Success(c, gin.H{"message": "Stop requested"})
}

// Get 按ID查询执行记录
// @Summary 查询执行记录
// @Tags 任务执行
// @Produce json
// @Param id path string true "执行ID"
// @Success 200 {object} entities.TaskExecution
// @Failure 404 {object} map[string]interface{} "记录不存在"
// @Router /executions/{id} [get]
func (h *ExecutionHandler) Get(c *gin.Context) {
	exec, err := h.executor.Get(c.Param("id"))
	if err != nil {
		handleServiceError(c, err, "Failed to get execution")
		return
	}
	utils.Success(c, exec)
}

// History 查询执行历史
// @Summary 查询执行历史
// @Description 按开始时间倒序返回最近的执行记录
// @Tags 任务执行
// @Produce json
// @Param limit query int false "返回条数" default(20)
// @Success 200 {array} entities.TaskExecution
// @Router /executions [get]
func (h *ExecutionHandler) History(c *gin.Context) {
	limit := 20
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	utils.Success(c, h.executor.History(limit))
}
