package task

import (
	"fmt"
	"sort"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/easayliu/phone-task-orchestrator/internal/domain/entities"
)

// NextRun 计算任务在from之后的下次运行时间。
// 返回nil表示不再有下次运行（once任务已过期或已触发）。
func NextRun(t *entities.ScheduledTask, from time.Time) (*time.Time, error) {
	switch t.Kind {
	case entities.ScheduleOnce:
		if t.RunAt == nil {
			return nil, fmt.Errorf("once task requires run_at")
		}
		if t.RunAt.After(from) {
			next := *t.RunAt
			return &next, nil
		}
		return nil, nil

	case entities.ScheduleInterval:
		if t.IntervalMinutes <= 0 {
			return nil, fmt.Errorf("interval task requires interval_minutes > 0")
		}
		next := from.Add(time.Duration(t.IntervalMinutes) * time.Minute)
		return &next, nil

	case entities.ScheduleDaily:
		hour, minute, err := parseClock(t.DailyTime)
		if err != nil {
			return nil, fmt.Errorf("daily task: %w", err)
		}
		next := time.Date(from.Year(), from.Month(), from.Day(), hour, minute, 0, 0, from.Location())
		if !next.After(from) {
			next = next.AddDate(0, 0, 1)
		}
		return &next, nil

	case entities.ScheduleWeekly:
		if len(t.WeeklyDays) == 0 {
			return nil, fmt.Errorf("weekly task requires weekly_days")
		}
		hour, minute, err := parseClock(t.WeeklyTime)
		if err != nil {
			return nil, fmt.Errorf("weekly task: %w", err)
		}
		days := append([]int(nil), t.WeeklyDays...)
		sort.Ints(days)
		// 0=周一..6=周日
		currentDay := (int(from.Weekday()) + 6) % 7
		for offset := 0; offset <= 7; offset++ {
			day := (currentDay + offset) % 7
			if !containsInt(days, day) {
				continue
			}
			next := time.Date(from.Year(), from.Month(), from.Day(), hour, minute, 0, 0, from.Location()).
				AddDate(0, 0, offset)
			if next.After(from) {
				return &next, nil
			}
		}
		return nil, fmt.Errorf("weekly task: no valid day found")

	case entities.ScheduleMonthly:
		if t.MonthlyDay < 1 || t.MonthlyDay > 31 {
			return nil, fmt.Errorf("monthly task requires monthly_day in 1..31")
		}
		hour, minute, err := parseClock(t.MonthlyTime)
		if err != nil {
			return nil, fmt.Errorf("monthly task: %w", err)
		}
		// 从当月开始找第一个存在该日期且在from之后的月份
		for i := 0; i < 13; i++ {
			base := time.Date(from.Year(), from.Month()+time.Month(i), 1, 0, 0, 0, 0, from.Location())
			next := time.Date(base.Year(), base.Month(), t.MonthlyDay, hour, minute, 0, 0, from.Location())
			// 日期溢出（如2月31日）会滚动到下月，跳过
			if next.Month() != base.Month() {
				continue
			}
			if next.After(from) {
				return &next, nil
			}
		}
		return nil, fmt.Errorf("monthly task: no valid date found")

	case entities.ScheduleCron:
		schedule, err := cron.ParseStandard(t.CronExpr)
		if err != nil {
			return nil, fmt.Errorf("invalid cron expression: %w", err)
		}
		next := schedule.Next(from)
		return &next, nil
	}

	return nil, fmt.Errorf("unknown schedule kind: %s", t.Kind)
}

// ValidateSchedule 校验调度配置并返回首次运行时间
func ValidateSchedule(t *entities.ScheduledTask, now time.Time) (*time.Time, error) {
	next, err := NextRun(t, now)
	if err != nil {
		return nil, err
	}
	if next == nil {
		return nil, fmt.Errorf("run_at must be in the future")
	}
	return next, nil
}

// parseClock 解析 "HH:MM" 时刻
func parseClock(s string) (hour, minute int, err error) {
	if s == "" {
		return 0, 0, fmt.Errorf("time of day is required")
	}
	if _, err := fmt.Sscanf(s, "%d:%d", &hour, &minute); err != nil {
		return 0, 0, fmt.Errorf("invalid time %q: %w", s, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid time %q", s)
	}
	return hour, minute, nil
}

func containsInt(nums []int, n int) bool {
	for _, v := range nums {
		if v == n {
			return true
		}
	}
	return false
}
