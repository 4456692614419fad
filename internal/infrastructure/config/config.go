package config

import (
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Device    DeviceConfig    `mapstructure:"device"`
	Executor  ExecutorConfig  `mapstructure:"executor"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Storage   StorageConfig   `mapstructure:"storage"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type LogConfig struct {
	Level     string `mapstructure:"level"`
	Output    string `mapstructure:"output"`
	Format    string `mapstructure:"format"`
	FilePath  string `mapstructure:"file_path"`
	Colorize  bool   `mapstructure:"colorize"`
	AddSource bool   `mapstructure:"add_source"`
}

type DeviceConfig struct {
	AdbPath     string            `mapstructure:"adb_path"`
	QPS         int               `mapstructure:"qps"`          // 每秒ADB命令数限制，0表示不限制
	Pins        map[string]string `mapstructure:"pins"`         // 设备ID -> 解锁PIN
	AppPackages map[string]string `mapstructure:"app_packages"` // 应用名 -> 包名，补充内置映射
}

type ExecutorConfig struct {
	MaxSteps       int      `mapstructure:"max_steps"`       // 单设备最大执行步数
	DefaultDevices []string `mapstructure:"default_devices"` // chat任务未指定设备时的默认设备
	HistoryLimit   int      `mapstructure:"history_limit"`   // 内存中保留的执行历史条数
}

type SchedulerConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	TickSeconds int  `mapstructure:"tick_seconds"` // 调度检查间隔
}

type TelegramConfig struct {
	BotToken string  `mapstructure:"bot_token"`
	ChatIDs  []int64 `mapstructure:"chat_ids"`
	AdminIDs []int64 `mapstructure:"admin_ids"`
	Enabled  bool    `mapstructure:"enabled"`
}

type StorageConfig struct {
	DataDir string `mapstructure:"data_dir"` // 定时任务与规则文档的存储目录
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	// 设置默认值
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "debug")

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.output", "console")
	viper.SetDefault("log.format", "text")
	viper.SetDefault("log.colorize", true)

	viper.SetDefault("device.adb_path", "adb")
	viper.SetDefault("device.qps", 20)

	viper.SetDefault("executor.max_steps", 50)
	viper.SetDefault("executor.history_limit", 100)

	viper.SetDefault("scheduler.enabled", true)
	viper.SetDefault("scheduler.tick_seconds", 30)

	viper.SetDefault("telegram.enabled", false)

	viper.SetDefault("storage.data_dir", "./data")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
