package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Options 日志初始化选项
type Options struct {
	Level     string // debug/info/warn/error
	Output    string // console/file/both
	Format    string // text/json
	FilePath  string // Output 为 file/both 时的日志文件路径
	Colorize  bool   // 控制台输出是否着色
	AddSource bool   // 是否附带调用位置
}

var (
	mu       sync.RWMutex
	std      *slog.Logger
	levelVar = new(slog.LevelVar)
)

func init() {
	// 未调用 Init 时的兜底：控制台 text 输出，info 级别
	std = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: levelVar}))
}

// Init 按选项初始化全局日志器
func Init(opts Options) error {
	level, err := parseLevel(opts.Level)
	if err != nil {
		return err
	}
	levelVar.Set(level)

	var w io.Writer
	switch opts.Output {
	case "", "console":
		w = os.Stdout
	case "file":
		f, err := openLogFile(opts.FilePath)
		if err != nil {
			return err
		}
		w = f
	case "both":
		f, err := openLogFile(opts.FilePath)
		if err != nil {
			return err
		}
		w = io.MultiWriter(os.Stdout, f)
	default:
		return fmt.Errorf("unknown log output: %s", opts.Output)
	}

	handlerOpts := &slog.HandlerOptions{
		Level:     levelVar,
		AddSource: opts.AddSource,
	}

	var handler slog.Handler
	if opts.Format == "json" {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}

	mu.Lock()
	std = slog.New(handler)
	mu.Unlock()
	return nil
}

// SetLevel 动态调整日志级别
func SetLevel(level string) error {
	l, err := parseLevel(level)
	if err != nil {
		return err
	}
	levelVar.Set(l)
	return nil
}

func parseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level: %s", level)
	}
}

func openLogFile(path string) (*os.File, error) {
	if path == "" {
		path = "./logs/app.log"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
}

func logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return std
}

// Debug 输出调试日志，键值对参数自动脱敏
func Debug(msg string, args ...any) {
	logger().Debug(msg, SanitizeArgs(args...)...)
}

// Info 输出信息日志
func Info(msg string, args ...any) {
	logger().Info(msg, SanitizeArgs(args...)...)
}

// Warn 输出警告日志
func Warn(msg string, args ...any) {
	logger().Warn(msg, SanitizeArgs(args...)...)
}

// Error 输出错误日志
func Error(msg string, args ...any) {
	logger().Error(msg, SanitizeArgs(args...)...)
}
