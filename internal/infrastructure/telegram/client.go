package telegram

import (
	"fmt"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/easayliu/phone-task-orchestrator/internal/infrastructure/config"
	"github.com/easayliu/phone-task-orchestrator/pkg/logger"
)

type Client struct {
	config *config.TelegramConfig
	bot    *tgbotapi.BotAPI
}

func NewClient(cfg *config.TelegramConfig) *Client {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		logger.Error("Failed to create Telegram bot", "error", err)
		return &Client{
			config: cfg,
			bot:    nil,
		}
	}

	logger.Info("Telegram bot connected successfully", "username", bot.Self.UserName)

	client := &Client{
		config: cfg,
		bot:    bot,
	}

	// 注册Bot命令菜单
	if err := client.RegisterBotCommands(); err != nil {
		logger.Error("Failed to register bot commands", "error", err)
	}

	return client
}

func (c *Client) SendMessage(chatID int64, text string) error {
	return c.SendMessageWithParseMode(chatID, cleanUTF8(text), "")
}

func (c *Client) SendMessageWithParseMode(chatID int64, text, parseMode string) error {
	if c.bot == nil {
		return fmt.Errorf("telegram bot not initialized")
	}

	msg := tgbotapi.NewMessage(chatID, cleanUTF8(text))
	if parseMode != "" {
		msg.ParseMode = parseMode
	}

	if _, err := c.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}

// cleanUTF8 确保文本是有效的UTF-8编码
func cleanUTF8(text string) string {
	if !utf8.ValidString(text) {
		return strings.ToValidUTF8(text, "?")
	}
	return text
}

func (c *Client) SendNotification(msg *NotificationMessage) error {
	if !c.config.Enabled || len(c.config.ChatIDs) == 0 {
		logger.Info("Telegram disabled or no chat IDs configured")
		return nil
	}

	text := c.formatNotification(msg)

	for _, chatID := range c.config.ChatIDs {
		if err := c.SendMessageWithParseMode(chatID, text, "Markdown"); err != nil {
			logger.Error("Failed to send notification", "chatID", chatID, "error", err)
			continue
		}
		logger.Info("Notification sent", "chatID", chatID, "type", msg.Type, "execution_id", msg.ExecutionID)
	}

	return nil
}

func (c *Client) formatNotification(msg *NotificationMessage) string {
	switch msg.Type {
	case "execution_completed":
		return fmt.Sprintf("✅ *任务完成*\n\n📱 %s\n⏰ 完成时间: %s\n%s",
			msg.Title, msg.Timestamp.Format("2006-01-02 15:04:05"), msg.Content)

	case "execution_failed":
		return fmt.Sprintf("❌ *任务失败*\n\n📱 %s\n⏰ 失败时间: %s\n%s",
			msg.Title, msg.Timestamp.Format("2006-01-02 15:04:05"), msg.Content)

	case "execution_stopped":
		return fmt.Sprintf("⏹ *任务停止*\n\n📱 %s\n⏰ 停止时间: %s\n%s",
			msg.Title, msg.Timestamp.Format("2006-01-02 15:04:05"), msg.Content)

	default:
		return fmt.Sprintf("*%s*\n\n%s\n\n⏰ %s",
			msg.Title, msg.Content, msg.Timestamp.Format("2006-01-02 15:04:05"))
	}
}

func (c *Client) GetUpdates(offset int64, timeout int) ([]tgbotapi.Update, error) {
	if c.bot == nil {
		return nil, fmt.Errorf("telegram bot not initialized")
	}

	updateConfig := tgbotapi.NewUpdate(int(offset))
	updateConfig.Timeout = timeout

	updates, err := c.bot.GetUpdates(updateConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to get telegram updates: %w", err)
	}

	return updates, nil
}

func (c *Client) IsAuthorized(userID int64) bool {
	if len(c.config.AdminIDs) == 0 {
		return true
	}

	for _, adminID := range c.config.AdminIDs {
		if adminID == userID {
			return true
		}
	}
	return false
}

// RegisterBotCommands 注册Bot命令菜单
func (c *Client) RegisterBotCommands() error {
	if c.bot == nil {
		return fmt.Errorf("telegram bot not initialized")
	}

	commands := []tgbotapi.BotCommand{
		{
			Command:     "start",
			Description: "🏠 显示主菜单和欢迎信息",
		},
		{
			Command:     "help",
			Description: "❓ 显示帮助信息和可用命令",
		},
		{
			Command:     "task",
			Description: "🤖 提交自动化任务 (用法: /task <任务内容>)",
		},
		{
			Command:     "status",
			Description: "📊 查看当前任务状态",
		},
		{
			Command:     "stop",
			Description: "⏹ 停止当前任务",
		},
		{
			Command:     "tasks",
			Description: "📋 列出定时任务",
		},
	}

	setCommandsConfig := tgbotapi.NewSetMyCommands(commands...)
	_, err := c.bot.Request(setCommandsConfig)
	if err != nil {
		return fmt.Errorf("failed to set bot commands: %w", err)
	}

	return nil
}
