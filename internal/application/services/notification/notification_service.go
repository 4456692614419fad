package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/easayliu/phone-task-orchestrator/internal/application/contracts"
	"github.com/easayliu/phone-task-orchestrator/internal/domain/entities"
	"github.com/easayliu/phone-task-orchestrator/internal/infrastructure/config"
	"github.com/easayliu/phone-task-orchestrator/internal/infrastructure/telegram"
	"github.com/easayliu/phone-task-orchestrator/pkg/logger"
)

// NotificationService 通知服务，实现contracts.NotificationService。
// telegram未启用时所有通知静默丢弃。
type NotificationService struct {
	telegramClient *telegram.Client
	config         *config.Config
}

func NewNotificationService(cfg *config.Config) *NotificationService {
	var telegramClient *telegram.Client
	if cfg.Telegram.Enabled {
		telegramClient = telegram.NewClient(&cfg.Telegram)
	}

	return &NotificationService{
		telegramClient: telegramClient,
		config:         cfg,
	}
}

// NewNotificationServiceWithClient 复用已有的telegram客户端
func NewNotificationServiceWithClient(cfg *config.Config, client *telegram.Client) *NotificationService {
	return &NotificationService{
		telegramClient: client,
		config:         cfg,
	}
}

func (s *NotificationService) SendNotification(ctx context.Context, req contracts.NotificationRequest) error {
	if s.telegramClient == nil {
		return nil
	}

	msg := &telegram.NotificationMessage{
		Type:      string(req.Level),
		Title:     req.Title,
		Content:   req.Message,
		Timestamp: time.Now(),
		Extra:     req.Data,
	}

	if err := s.telegramClient.SendNotification(msg); err != nil {
		logger.Error("Failed to send notification", "error", err, "title", req.Title)
		return err
	}
	return nil
}

// NotifyExecutionFinished 推送执行结束摘要，按设备列出结果
func (s *NotificationService) NotifyExecutionFinished(ctx context.Context, execution *entities.TaskExecution) error {
	if s.telegramClient == nil {
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "任务: %s\n来源: %s\n耗时: %s\n",
		truncate(execution.TaskContent, 80),
		execution.Origin,
		execution.EndTime.Sub(execution.StartTime).Round(time.Second))
	for _, r := range execution.Results {
		mark := "✅"
		if !r.Success {
			mark = "❌"
		}
		fmt.Fprintf(&b, "%s %s: %s\n", mark, r.DeviceID, r.Message)
	}

	msg := &telegram.NotificationMessage{
		Type:        "execution_" + string(execution.Status),
		Title:       fmt.Sprintf("执行 %s", execution.ID[:8]),
		Content:     b.String(),
		ExecutionID: execution.ID,
		Timestamp:   execution.EndTime,
		Extra: map[string]interface{}{
			"status":  string(execution.Status),
			"devices": len(execution.Results),
		},
	}

	if err := s.telegramClient.SendNotification(msg); err != nil {
		logger.Error("Failed to send execution finished notification",
			"error", err, "execution_id", execution.ID)
		return err
	}
	return nil
}

// Listener 返回可注册到执行器的事件监听器，只处理结束事件
func (s *NotificationService) Listener() contracts.ExecutionListener {
	return func(e contracts.ExecutionEvent) {
		if e.Kind != contracts.EventFinished || e.Execution == nil {
			return
		}
		if err := s.NotifyExecutionFinished(context.Background(), e.Execution); err != nil {
			logger.Warn("execution finished notification failed", "execution_id", e.ExecutionID, "error", err)
		}
	}
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
