package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/easayliu/phone-task-orchestrator/internal/application/contracts"
	"github.com/easayliu/phone-task-orchestrator/pkg/utils"
)

// RuleHandler REST规则目录处理器 - 纯协议转换层
type RuleHandler struct {
	ruleService contracts.RuleService
}

func NewRuleHandler(ruleService contracts.RuleService) *RuleHandler {
	return &RuleHandler{ruleService: ruleService}
}

// ListActionTypes 列出动作类型目录
// @Summary 列出动作类型目录
// @Description 返回全部动作类型及其挂载的规则
// @Tags 规则目录
// @Produce json
// @Success 200 {array} entities.ActionType
// @Router /rules/actions [get]
func (h *RuleHandler) ListActionTypes(c *gin.Context) {
	types, err := h.ruleService.ListActionTypes(c.Request.Context())
	if err != nil {
		handleServiceError(c, err, "Failed to list action types")
		return
	}
	utils.Success(c, types)
}

// GetActionType 获取动作类型详情
// @Summary 获取动作类型详情
// @Tags 规则目录
// @Produce json
// @Param name path string true "动作类型名"
// @Success 200 {object} entities.ActionType
// @Failure 404 {object} map[string]interface{} "动作类型不存在"
// @Router /rules/actions/{name} [get]
func (h *RuleHandler) GetActionType(c *gin.Context) {
	at, err := h.ruleService.GetActionType(c.Request.Context(), c.Param("name"))
	if err != nil {
		handleServiceError(c, err, "Failed to get action type")
		return
	}
	utils.Success(c, at)
}

// CreateActionType 创建自定义动作类型
// @Summary 创建自定义动作类型
// @Tags 规则目录
// @Accept json
// @Produce json
// @Param request body contracts.ActionTypeRequest true "创建请求"
// @Success 200 {object} entities.ActionType
// @Failure 409 {object} map[string]interface{} "名称已存在"
// @Router /rules/actions [post]
func (h *RuleHandler) CreateActionType(c *gin.Context) {
	var req contracts.ActionTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorWithStatus(c, http.StatusBadRequest, 400, "Invalid request parameters: "+err.Error())
		return
	}

	at, err := h.ruleService.CreateActionType(c.Request.Context(), req)
	if err != nil {
		handleServiceError(c, err, "Failed to create action type")
		return
	}
	utils.Success(c, at)
}

// DeleteActionType 删除自定义动作类型
// @Summary 删除自定义动作类型
// @Description 内置动作类型不可删除
// @Tags 规则目录
// @Produce json
// @Param name path string true "动作类型名"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{} "内置类型不可删除"
// @Router /rules/actions/{name} [delete]
func (h *RuleHandler) DeleteActionType(c *gin.Context) {
	if err := h.ruleService.DeleteActionType(c.Request.Context(), c.Param("name")); err != nil {
		handleServiceError(c, err, "Failed to delete action type")
		return
	}
	utils.Success(c, gin.H{"message": "Action type deleted"})
}

// AddRule 为动作类型添加规则
// @Summary 添加规则
// @Tags 规则目录
// @Accept json
// @Produce json
// @Param name path string true "动作类型名"
// @Param request body contracts.RuleRequest true "规则内容"
// @Success 200 {object} entities.Rule
// @Failure 404 {object} map[string]interface{} "动作类型不存在"
// @Router /rules/actions/{name}/rules [post]
func (h *RuleHandler) AddRule(c *gin.Context) {
	var req contracts.RuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorWithStatus(c, http.StatusBadRequest, 400, "Invalid request parameters: "+err.Error())
		return
	}

	rule, err := h.ruleService.AddRule(c.Request.Context(), c.Param("name"), req)
	if err != nil {
		handleServiceError(c, err, "Failed to add rule")
		return
	}
	utils.Success(c, rule)
}

// UpdateRule 更新规则
// @Summary 更新规则
// @Tags 规则目录
// @Accept json
// @Produce json
// @Param name path string true "动作类型名"
// @Param ruleId path string true "规则ID"
// @Param request body contracts.RuleRequest true "规则内容"
// @Success 200 {object} entities.Rule
// @Failure 404 {object} map[string]interface{} "规则不存在"
// @Router /rules/actions/{name}/rules/{ruleId} [put]
func (h *RuleHandler) UpdateRule(c *gin.Context) {
	var req contracts.RuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorWithStatus(c, http.StatusBadRequest, 400, "Invalid request parameters: "+err.Error())
		return
	}

	rule, err := h.ruleService.UpdateRule(c.Request.Context(), c.Param("name"), c.Param("ruleId"), req)
	if err != nil {
		handleServiceError(c, err, "Failed to update rule")
		return
	}
	utils.Success(c, rule)
}

// DeleteRule 删除规则
// @Summary 删除规则
// @Tags 规则目录
// @Produce json
// @Param name path string true "动作类型名"
// @Param ruleId path string true "规则ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{} "规则不存在"
// @Router /rules/actions/{name}/rules/{ruleId} [delete]
func (h *RuleHandler) DeleteRule(c *gin.Context) {
	if err := h.ruleService.DeleteRule(c.Request.Context(), c.Param("name"), c.Param("ruleId")); err != nil {
		handleServiceError(c, err, "Failed to delete rule")
		return
	}
	utils.Success(c, gin.H{"message": "Rule deleted"})
}

// ToggleRule 启用/禁用规则
// @Summary 启用或禁用规则
// @Tags 规则目录
// @Produce json
// @Param name path string true "动作类型名"
// @Param ruleId path string true "规则ID"
// @Param enabled query bool true "是否启用"
// @Success 200 {object} map[string]interface{}
// @Router /rules/actions/{name}/rules/{ruleId}/toggle [post]
func (h *RuleHandler) ToggleRule(c *gin.Context) {
	enabled, err := strconv.ParseBool(c.DefaultQuery("enabled", "true"))
	if err != nil {
		utils.ErrorWithStatus(c, http.StatusBadRequest, 400, "Invalid enabled value")
		return
	}

	if err := h.ruleService.SetRuleEnabled(c.Request.Context(), c.Param("name"), c.Param("ruleId"), enabled); err != nil {
		handleServiceError(c, err, "Failed to toggle rule")
		return
	}
	utils.Success(c, gin.H{"message": "Rule updated", "enabled": enabled})
}

// SubmitCustomCode 提交自定义规则代码
// @Summary 提交自定义规则代码
// @Description 提交条件/动作表达式，编译校验通过后才持久化；编译失败返回400且不改变现有状态
// @Tags 规则目录
// @Accept json
// @Produce json
// @Param name path string true "动作类型名"
// @Param request body contracts.CustomCodeRequest true "代码内容"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{} "代码编译失败"
// @Router /rules/actions/{name}/custom-code [post]
func (h *RuleHandler) SubmitCustomCode(c *gin.Context) {
	var req contracts.CustomCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorWithStatus(c, http.StatusBadRequest, 400, "Invalid request parameters: "+err.Error())
		return
	}

	if err := h.ruleService.SubmitCustomCode(c.Request.Context(), c.Param("name"), req); err != nil {
		handleServiceError(c, err, "Failed to submit custom code")
		return
	}
	utils.Success(c, gin.H{"message": "Custom code registered"})
}

// RemoveCustomCode 移除自定义规则代码
// @Summary 移除自定义规则代码
// @Description 移除后规则回退到内置键或文本匹配
// @Tags 规则目录
// @Produce json
// @Param name path string true "动作类型名"
// @Param ruleId path string true "规则ID"
// @Success 200 {object} map[string]interface{}
// @Router /rules/actions/{name}/rules/{ruleId}/custom-code [delete]
func (h *RuleHandler) RemoveCustomCode(c *gin.Context) {
	if err := h.ruleService.RemoveCustomCode(c.Request.Context(), c.Param("name"), c.Param("ruleId")); err != nil {
		handleServiceError(c, err, "Failed to remove custom code")
		return
	}
	utils.Success(c, gin.H{"message": "Custom code removed"})
}

// Apply 规则试运行
// @Summary 规则试运行
// @Description 对给定动作与参数执行规则拦截，返回裁决结果，不触达设备
// @Tags 规则目录
// @Accept json
// @Produce json
// @Param request body contracts.ApplyRequest true "试运行请求"
// @Success 200 {object} contracts.ApplyResponse
// @Router /rules/apply [post]
func (h *RuleHandler) Apply(c *gin.Context) {
	var req contracts.ApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorWithStatus(c, http.StatusBadRequest, 400, "Invalid request parameters: "+err.Error())
		return
	}

	resp, err := h.ruleService.Apply(c.Request.Context(), req)
	if err != nil {
		handleServiceError(c, err, "Failed to apply rules")
		return
	}
	utils.Success(c, resp)
}
