package entities

import (
	"time"
)

// ScheduleKind 调度频率类型
type ScheduleKind string

const (
	ScheduleOnce     ScheduleKind = "once"     // 指定时间运行一次，触发后自动禁用
	ScheduleInterval ScheduleKind = "interval" // 每N分钟运行
	ScheduleDaily    ScheduleKind = "daily"    // 每天指定时间
	ScheduleWeekly   ScheduleKind = "weekly"   // 每周指定星期与时间
	ScheduleMonthly  ScheduleKind = "monthly"  // 每月指定日期与时间
	ScheduleCron     ScheduleKind = "cron"     // 标准5字段cron表达式
)

// ScheduledTask 定时任务记录
type ScheduledTask struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	TaskContent string       `json:"task_content"` // 任务指令文本
	DeviceIDs   []string     `json:"device_ids"`
	Enabled     bool         `json:"enabled"`
	Kind        ScheduleKind `json:"schedule_kind"`

	// once: 指定运行时间
	RunAt *time.Time `json:"run_at,omitempty"`
	// interval: 间隔分钟数
	IntervalMinutes int `json:"interval_minutes,omitempty"`
	// daily: 每天时刻 "HH:MM"
	DailyTime string `json:"daily_time,omitempty"`
	// weekly: 星期列表(0=周一..6=周日)与时刻
	WeeklyDays []int  `json:"weekly_days,omitempty"`
	WeeklyTime string `json:"weekly_time,omitempty"`
	// monthly: 日期与时刻
	MonthlyDay  int    `json:"monthly_day,omitempty"`
	MonthlyTime string `json:"monthly_time,omitempty"`
	// cron: 标准5字段表达式
	CronExpr string `json:"cron_expr,omitempty"`

	LastRun   *time.Time `json:"last_run,omitempty"`
	NextRun   *time.Time `json:"next_run,omitempty"`
	RunCount  int        `json:"run_count"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// IsDue 判断任务当前是否到期
func (t *ScheduledTask) IsDue(now time.Time) bool {
	if !t.Enabled || t.NextRun == nil {
		return false
	}
	return !now.Before(*t.NextRun)
}
