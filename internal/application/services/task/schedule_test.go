package task

import (
	"testing"
	"time"

	"github.com/easayliu/phone-task-orchestrator/internal/domain/entities"
)

func mustNext(t *testing.T, task *entities.ScheduledTask, from time.Time) time.Time {
	t.Helper()
	next, err := NextRun(task, from)
	if err != nil {
		t.Fatalf("NextRun: %v", err)
	}
	if next == nil {
		t.Fatal("NextRun returned nil")
	}
	return *next
}

func TestNextRunOnce(t *testing.T) {
	from := time.Date(2025, 3, 10, 12, 0, 0, 0, time.Local)

	future := from.Add(2 * time.Hour)
	task := &entities.ScheduledTask{Kind: entities.ScheduleOnce, RunAt: &future}
	if got := mustNext(t, task, from); !got.Equal(future) {
		t.Errorf("expected %v, got %v", future, got)
	}

	// 已过期的一次性任务没有下次运行
	past := from.Add(-time.Hour)
	task = &entities.ScheduledTask{Kind: entities.ScheduleOnce, RunAt: &past}
	next, err := NextRun(task, from)
	if err != nil {
		t.Fatalf("NextRun: %v", err)
	}
	if next != nil {
		t.Errorf("past one-shot should have no next run, got %v", *next)
	}
}

func TestNextRunInterval(t *testing.T) {
	from := time.Date(2025, 3, 10, 12, 0, 0, 0, time.Local)
	task := &entities.ScheduledTask{Kind: entities.ScheduleInterval, IntervalMinutes: 45}
	got := mustNext(t, task, from)
	want := from.Add(45 * time.Minute)
	if !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestNextRunDaily(t *testing.T) {
	// 当天时刻未到 → 今天
	from := time.Date(2025, 3, 10, 8, 0, 0, 0, time.Local)
	task := &entities.ScheduledTask{Kind: entities.ScheduleDaily, DailyTime: "09:30"}
	got := mustNext(t, task, from)
	want := time.Date(2025, 3, 10, 9, 30, 0, 0, time.Local)
	if !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}

	// 已过 → 明天
	from = time.Date(2025, 3, 10, 10, 0, 0, 0, time.Local)
	got = mustNext(t, task, from)
	want = time.Date(2025, 3, 11, 9, 30, 0, 0, time.Local)
	if !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestNextRunWeekly(t *testing.T) {
	// 2025-03-10是周一；0=周一
	from := time.Date(2025, 3, 10, 12, 0, 0, 0, time.Local)
	task := &entities.ScheduledTask{
		Kind:       entities.ScheduleWeekly,
		WeeklyDays: []int{2}, // 周三
		WeeklyTime: "08:00",
	}
	got := mustNext(t, task, from)
	want := time.Date(2025, 3, 12, 8, 0, 0, 0, time.Local)
	if !got.Equal(want) {
		t.Errorf("expected Wednesday %v, got %v", want, got)
	}

	// 当天本身在列表内但时刻已过 → 下周同日
	task.WeeklyDays = []int{0}
	got = mustNext(t, task, from)
	want = time.Date(2025, 3, 17, 8, 0, 0, 0, time.Local)
	if !got.Equal(want) {
		t.Errorf("expected next Monday %v, got %v", want, got)
	}
}

func TestNextRunMonthlySkipsShortMonths(t *testing.T) {
	// 1月31日之后的31号：2月没有31日，跳到3月31日
	from := time.Date(2025, 1, 31, 12, 0, 0, 0, time.Local)
	task := &entities.ScheduledTask{
		Kind:        entities.ScheduleMonthly,
		MonthlyDay:  31,
		MonthlyTime: "09:00",
	}
	got := mustNext(t, task, from)
	want := time.Date(2025, 3, 31, 9, 0, 0, 0, time.Local)
	if !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestNextRunCron(t *testing.T) {
	from := time.Date(2025, 3, 10, 12, 30, 0, 0, time.Local)
	task := &entities.ScheduledTask{Kind: entities.ScheduleCron, CronExpr: "0 9 * * *"}
	got := mustNext(t, task, from)
	want := time.Date(2025, 3, 11, 9, 0, 0, 0, time.Local)
	if !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}

	task.CronExpr = "not a cron"
	if _, err := NextRun(task, from); err == nil {
		t.Error("invalid cron expression must error")
	}
}

func TestValidateSchedule(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.Local)

	past := now.Add(-time.Minute)
	task := &entities.ScheduledTask{Kind: entities.ScheduleOnce, RunAt: &past}
	if _, err := ValidateSchedule(task, now); err == nil {
		t.Error("one-shot in the past must be rejected")
	}

	task = &entities.ScheduledTask{Kind: entities.ScheduleDaily, DailyTime: "25:99"}
	if _, err := ValidateSchedule(task, now); err == nil {
		t.Error("malformed clock must be rejected")
	}

	task = &entities.ScheduledTask{Kind: entities.ScheduleInterval, IntervalMinutes: 30}
	next, err := ValidateSchedule(task, now)
	if err != nil || next == nil {
		t.Fatalf("valid interval schedule rejected: %v", err)
	}
}
