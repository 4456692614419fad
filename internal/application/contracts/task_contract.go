package contracts

import (
	"context"
	"time"

	"github.com/easayliu/phone-task-orchestrator/internal/domain/entities"
)

// TaskRequest 定时任务创建请求
type TaskRequest struct {
	Name            string                `json:"name" validate:"required,min=1,max=100"`
	TaskContent     string                `json:"task_content" validate:"required"`
	DeviceIDs       []string              `json:"device_ids"`
	Enabled         bool                  `json:"enabled"`
	Kind            entities.ScheduleKind `json:"schedule_kind" validate:"required"`
	RunAt           *time.Time            `json:"run_at,omitempty"`
	IntervalMinutes int                   `json:"interval_minutes,omitempty"`
	DailyTime       string                `json:"daily_time,omitempty"`
	WeeklyDays      []int                 `json:"weekly_days,omitempty"`
	WeeklyTime      string                `json:"weekly_time,omitempty"`
	MonthlyDay      int                   `json:"monthly_day,omitempty"`
	MonthlyTime     string                `json:"monthly_time,omitempty"`
	CronExpr        string                `json:"cron_expr,omitempty"`
}

// TaskUpdateRequest 定时任务更新请求，nil字段保持原值
type TaskUpdateRequest struct {
	Name            *string                `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	TaskContent     *string                `json:"task_content,omitempty"`
	DeviceIDs       []string               `json:"device_ids,omitempty"`
	Enabled         *bool                  `json:"enabled,omitempty"`
	Kind            *entities.ScheduleKind `json:"schedule_kind,omitempty"`
	RunAt           *time.Time             `json:"run_at,omitempty"`
	IntervalMinutes *int                   `json:"interval_minutes,omitempty"`
	DailyTime       *string                `json:"daily_time,omitempty"`
	WeeklyDays      []int                  `json:"weekly_days,omitempty"`
	WeeklyTime      *string                `json:"weekly_time,omitempty"`
	MonthlyDay      *int                   `json:"monthly_day,omitempty"`
	MonthlyTime     *string                `json:"monthly_time,omitempty"`
	CronExpr        *string                `json:"cron_expr,omitempty"`
}

// TaskListResponse 定时任务列表响应
type TaskListResponse struct {
	Tasks      []*entities.ScheduledTask `json:"tasks"`
	TotalCount int                       `json:"total_count"`
	Summary    TaskSummary               `json:"summary"`
}

// TaskSummary 任务摘要
type TaskSummary struct {
	EnabledCount  int `json:"enabled_count"`
	DisabledCount int `json:"disabled_count"`
}

// ScheduledTaskService 定时任务业务契约
type ScheduledTaskService interface {
	CreateTask(ctx context.Context, req TaskRequest) (*entities.ScheduledTask, error)
	GetTask(ctx context.Context, id string) (*entities.ScheduledTask, error)
	UpdateTask(ctx context.Context, id string, req TaskUpdateRequest) (*entities.ScheduledTask, error)
	DeleteTask(ctx context.Context, id string) error
	ListTasks(ctx context.Context) (*TaskListResponse, error)

	EnableTask(ctx context.Context, id string) error
	DisableTask(ctx context.Context, id string) error

	// RunTaskNow 立即以manual来源执行指定任务，不影响调度字段
	RunTaskNow(ctx context.Context, id string) (*SubmitResponse, error)
}
