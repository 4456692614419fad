package contracts

import (
	"context"

	"github.com/easayliu/phone-task-orchestrator/internal/domain/entities"
)

// ActionTypeRequest 动作类型创建/更新请求
type ActionTypeRequest struct {
	Name        string                     `json:"name" validate:"required,min=1,max=64"`
	Description string                     `json:"description"`
	Parameters  []entities.ActionParameter `json:"parameters"`
	Example     string                     `json:"example"`
	AdbCommand  string                     `json:"adb_command,omitempty"`
}

// RuleRequest 规则创建/更新请求
type RuleRequest struct {
	Condition     string `json:"condition" validate:"required"`
	Action        string `json:"action" validate:"required"`
	Priority      int    `json:"priority"`
	Enabled       bool   `json:"enabled"`
	ConditionKey  string `json:"condition_key,omitempty"`
	ActionKey     string `json:"action_key,omitempty"`
	ConditionCode string `json:"condition_code,omitempty"`
	ActionCode    string `json:"action_code,omitempty"`
}

// CustomCodeRequest 自定义规则代码提交请求
type CustomCodeRequest struct {
	RuleID        string `json:"rule_id" validate:"required"`
	ConditionCode string `json:"condition_code,omitempty"`
	ActionCode    string `json:"action_code,omitempty"`
}

// ApplyRequest 规则试运行请求 - 不触达设备，仅返回裁决结果
type ApplyRequest struct {
	ActionType string                    `json:"action_type" validate:"required"`
	Params     entities.ActionParams     `json:"params"`
	Context    entities.ExecutionContext `json:"context,omitempty"`
}

// ApplyResponse 规则试运行响应
type ApplyResponse struct {
	Verdict string                `json:"verdict"` // continue/skip/abort/modified
	Params  entities.ActionParams `json:"params,omitempty"`
	Reason  string                `json:"reason,omitempty"`
}

// RuleService 规则目录业务契约
type RuleService interface {
	// 动作类型目录
	ListActionTypes(ctx context.Context) ([]*entities.ActionType, error)
	GetActionType(ctx context.Context, name string) (*entities.ActionType, error)
	CreateActionType(ctx context.Context, req ActionTypeRequest) (*entities.ActionType, error)
	DeleteActionType(ctx context.Context, name string) error

	// 动作类型下的规则
	AddRule(ctx context.Context, actionType string, req RuleRequest) (*entities.Rule, error)
	UpdateRule(ctx context.Context, actionType, ruleID string, req RuleRequest) (*entities.Rule, error)
	DeleteRule(ctx context.Context, actionType, ruleID string) error
	SetRuleEnabled(ctx context.Context, actionType, ruleID string, enabled bool) error

	// 自定义代码，提交时编译校验，失败返回VALIDATION_ERROR
	SubmitCustomCode(ctx context.Context, actionType string, req CustomCodeRequest) error
	RemoveCustomCode(ctx context.Context, actionType, ruleID string) error

	// 试运行
	Apply(ctx context.Context, req ApplyRequest) (*ApplyResponse, error)
}
