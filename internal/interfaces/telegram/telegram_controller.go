package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/easayliu/phone-task-orchestrator/internal/application/contracts"
	"github.com/easayliu/phone-task-orchestrator/internal/domain/entities"
	"github.com/easayliu/phone-task-orchestrator/internal/infrastructure/config"
	"github.com/easayliu/phone-task-orchestrator/internal/infrastructure/telegram"
	"github.com/easayliu/phone-task-orchestrator/pkg/logger"
)

// TelegramController Telegram机器人入口。
// 消息来源的任务以chat优先级提交，支持查询状态与停止当前任务。
type TelegramController struct {
	telegramClient *telegram.Client
	executor       contracts.ExecutionService
	taskService    contracts.ScheduledTaskService
	config         *config.Config

	lastUpdateID int
	ctx          context.Context
	cancel       context.CancelFunc
}

func NewTelegramController(
	cfg *config.Config,
	client *telegram.Client,
	executor contracts.ExecutionService,
	taskService contracts.ScheduledTaskService,
) *TelegramController {
	ctx, cancel := context.WithCancel(context.Background())
	return &TelegramController{
		telegramClient: client,
		executor:       executor,
		taskService:    taskService,
		config:         cfg,
		ctx:            ctx,
		cancel:         cancel,
	}
}

// StartPolling 开始轮询
func (c *TelegramController) StartPolling() {
	if !c.config.Telegram.Enabled || c.telegramClient == nil {
		logger.Info("Telegram polling disabled")
		return
	}

	logger.Info("Starting Telegram polling...")

	go func() {
		for {
			select {
			case <-c.ctx.Done():
				logger.Info("Telegram polling stopped")
				return
			default:
				c.pollUpdates()
			}
		}
	}()
}

// StopPolling 停止轮询
func (c *TelegramController) StopPolling() {
	if c.cancel != nil {
		c.cancel()
	}
}

func (c *TelegramController) pollUpdates() {
	updates, err := c.telegramClient.GetUpdates(int64(c.lastUpdateID+1), 30)
	if err != nil {
		logger.Error("Failed to get telegram updates", "error", err)
		time.Sleep(5 * time.Second)
		return
	}

	for _, update := range updates {
		if update.UpdateID > c.lastUpdateID {
			c.lastUpdateID = update.UpdateID
		}
		if update.Message != nil {
			c.handleMessage(&update)
		}
	}
}

func (c *TelegramController) handleMessage(update *tgbotapi.Update) {
	message := update.Message
	userID := message.From.ID
	chatID := message.Chat.ID

	if !c.telegramClient.IsAuthorized(userID) {
		logger.Warn("Unauthorized telegram user", "user_id", userID)
		c.reply(chatID, "⛔ 未授权的用户")
		return
	}

	if !message.IsCommand() {
		c.reply(chatID, "请使用命令与我交互，/help 查看可用命令")
		return
	}

	switch message.Command() {
	case "start", "help":
		c.handleHelp(chatID)
	case "task":
		c.handleTask(chatID, message.CommandArguments())
	case "status":
		c.handleStatus(chatID)
	case "stop":
		c.handleStop(chatID)
	case "tasks":
		c.handleTasks(chatID)
	default:
		c.reply(chatID, "未知命令，/help 查看可用命令")
	}
}

func (c *TelegramController) handleHelp(chatID int64) {
	help := `🤖 *手机任务编排助手*

/task <任务内容> - 提交自动化任务
/status - 查看当前任务状态
/stop - 停止当前任务
/tasks - 列出定时任务
/help - 显示本帮助`
	c.replyMarkdown(chatID, help)
}

func (c *TelegramController) handleTask(chatID int64, args string) {
	content := strings.TrimSpace(args)
	if content == "" {
		c.reply(chatID, "用法: /task <任务内容>")
		return
	}

	resp, err := c.executor.Submit(c.ctx, contracts.SubmitRequest{
		TaskContent: content,
		DeviceIDs:   c.config.Executor.DefaultDevices,
		Origin:      entities.OriginChat,
	})
	if err != nil {
		c.reply(chatID, "❌ 提交失败: "+err.Error())
		return
	}

	c.replyMarkdown(chatID, fmt.Sprintf("✅ 任务已提交\n\n执行ID: `%s`\n设备数: %d",
		resp.ExecutionID, len(resp.DeviceIDs)))
}

func (c *TelegramController) handleStatus(chatID int64) {
	current := c.executor.Current()
	if current == nil {
		history := c.executor.History(1)
		if len(history) == 0 {
			c.reply(chatID, "当前没有运行中的任务")
			return
		}
		last := history[0]
		c.replyMarkdown(chatID, fmt.Sprintf("当前空闲\n\n最近一次执行: `%s`\n状态: %s\n进度: %d%%",
			last.ID, last.Status, last.Progress))
		return
	}

	c.replyMarkdown(chatID, fmt.Sprintf("🏃 任务运行中\n\n执行ID: `%s`\n来源: %s\n进度: %d%%\n已完成设备: %d/%d",
		current.ID, current.Origin, current.Progress, len(current.Results), len(current.DeviceIDs)))
}

func (c *TelegramController) handleStop(chatID int64) {
	if err := c.executor.StopCurrent(c.ctx); err != nil {
		c.reply(chatID, "停止失败: "+err.Error())
		return
	}
	c.reply(chatID, "⏹ 已请求停止当前任务")
}

func (c *TelegramController) handleTasks(chatID int64) {
	list, err := c.taskService.ListTasks(c.ctx)
	if err != nil {
		c.reply(chatID, "查询失败: "+err.Error())
		return
	}
	if list.TotalCount == 0 {
		c.reply(chatID, "暂无定时任务")
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📋 *定时任务* (%d个, %d启用)\n\n", list.TotalCount, list.Summary.EnabledCount)
	for _, t := range list.Tasks {
		mark := "▶️"
		if !t.Enabled {
			mark = "⏸"
		}
		fmt.Fprintf(&b, "%s %s (%s)\n", mark, t.Name, t.Kind)
		if t.NextRun != nil {
			fmt.Fprintf(&b, "   下次运行: %s\n", t.NextRun.Format("2006-01-02 15:04"))
		}
	}
	c.replyMarkdown(chatID, b.String())
}

func (c *TelegramController) reply(chatID int64, text string) {
	if err := c.telegramClient.SendMessage(chatID, text); err != nil {
		logger.Error("Failed to send telegram reply", "chatID", chatID, "error", err)
	}
}

func (c *TelegramController) replyMarkdown(chatID int64, text string) {
	if err := c.telegramClient.SendMessageWithParseMode(chatID, text, "Markdown"); err != nil {
		logger.Error("Failed to send telegram reply", "chatID", chatID, "error", err)
	}
}
