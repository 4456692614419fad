package contracts

import (
	"context"

	"github.com/easayliu/phone-task-orchestrator/internal/domain/entities"
)

// NotificationLevel 通知级别
type NotificationLevel string

const (
	NotificationLevelInfo    NotificationLevel = "info"
	NotificationLevelError   NotificationLevel = "error"
	NotificationLevelSuccess NotificationLevel = "success"
)

// NotificationRequest 通知请求
type NotificationRequest struct {
	Level   NotificationLevel      `json:"level" validate:"required"`
	Title   string                 `json:"title" validate:"required"`
	Message string                 `json:"message" validate:"required"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// NotificationService 通知业务契约
type NotificationService interface {
	SendNotification(ctx context.Context, req NotificationRequest) error
	// NotifyExecutionFinished 执行结束通知（完成/失败/停止）
	NotifyExecutionFinished(ctx context.Context, execution *entities.TaskExecution) error
}
