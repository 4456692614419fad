package task

import (
	"context"
	"time"

	"github.com/easayliu/phone-task-orchestrator/internal/application/contracts"
	"github.com/easayliu/phone-task-orchestrator/internal/domain/entities"
	"github.com/easayliu/phone-task-orchestrator/internal/infrastructure/repository"
	"github.com/easayliu/phone-task-orchestrator/internal/shared/errors"
	"github.com/easayliu/phone-task-orchestrator/pkg/logger"
)

// ScheduledTaskService 定时任务管理服务，实现contracts.ScheduledTaskService
type ScheduledTaskService struct {
	taskRepo *repository.TaskRepository
	executor contracts.ExecutionService
}

func NewScheduledTaskService(taskRepo *repository.TaskRepository, executor contracts.ExecutionService) *ScheduledTaskService {
	return &ScheduledTaskService{taskRepo: taskRepo, executor: executor}
}

func (s *ScheduledTaskService) CreateTask(ctx context.Context, req contracts.TaskRequest) (*entities.ScheduledTask, error) {
	if req.Name == "" || req.TaskContent == "" {
		return nil, errors.NewServiceError(errors.ErrorCodeInvalidRequest, "name and task_content are required")
	}

	t := &entities.ScheduledTask{
		Name:            req.Name,
		TaskContent:     req.TaskContent,
		DeviceIDs:       req.DeviceIDs,
		Enabled:         req.Enabled,
		Kind:            req.Kind,
		RunAt:           req.RunAt,
		IntervalMinutes: req.IntervalMinutes,
		DailyTime:       req.DailyTime,
		WeeklyDays:      req.WeeklyDays,
		WeeklyTime:      req.WeeklyTime,
		MonthlyDay:      req.MonthlyDay,
		MonthlyTime:     req.MonthlyTime,
		CronExpr:        req.CronExpr,
	}

	next, err := ValidateSchedule(t, time.Now())
	if err != nil {
		return nil, errors.NewServiceErrorWithCause(errors.ErrorCodeInvalidRequest, "invalid schedule", err)
	}
	t.NextRun = next

	if err := s.taskRepo.Create(t); err != nil {
		return nil, errors.NewServiceError(errors.ErrorCodeInternalError, err.Error())
	}
	logger.Info("scheduled task created", "task_id", t.ID, "name", t.Name, "kind", t.Kind)
	return t, nil
}

func (s *ScheduledTaskService) GetTask(ctx context.Context, id string) (*entities.ScheduledTask, error) {
	t, err := s.taskRepo.GetByID(id)
	if err != nil {
		return nil, errors.NewServiceError(errors.ErrorCodeNotFound, err.Error())
	}
	return t, nil
}

func (s *ScheduledTaskService) UpdateTask(ctx context.Context, id string, req contracts.TaskUpdateRequest) (*entities.ScheduledTask, error) {
	t, err := s.taskRepo.GetByID(id)
	if err != nil {
		return nil, errors.NewServiceError(errors.ErrorCodeNotFound, err.Error())
	}

	if req.Name != nil {
		t.Name = *req.Name
	}
	if req.TaskContent != nil {
		t.TaskContent = *req.TaskContent
	}
	if req.DeviceIDs != nil {
		t.DeviceIDs = req.DeviceIDs
	}
	if req.Enabled != nil {
		t.Enabled = *req.Enabled
	}
	if req.Kind != nil {
		t.Kind = *req.Kind
	}
	if req.RunAt != nil {
		t.RunAt = req.RunAt
	}
	if req.IntervalMinutes != nil {
		t.IntervalMinutes = *req.IntervalMinutes
	}
	if req.DailyTime != nil {
		t.DailyTime = *req.DailyTime
	}
	if req.WeeklyDays != nil {
		t.WeeklyDays = req.WeeklyDays
	}
	if req.WeeklyTime != nil {
		t.WeeklyTime = *req.WeeklyTime
	}
	if req.MonthlyDay != nil {
		t.MonthlyDay = *req.MonthlyDay
	}
	if req.MonthlyTime != nil {
		t.MonthlyTime = *req.MonthlyTime
	}
	if req.CronExpr != nil {
		t.CronExpr = *req.CronExpr
	}

	// 调度配置变化后重算下次运行时间
	next, err := NextRun(t, time.Now())
	if err != nil {
		return nil, errors.NewServiceErrorWithCause(errors.ErrorCodeInvalidRequest, "invalid schedule", err)
	}
	t.NextRun = next

	if err := s.taskRepo.Update(t); err != nil {
		return nil, errors.NewServiceError(errors.ErrorCodeInternalError, err.Error())
	}
	logger.Info("scheduled task updated", "task_id", t.ID, "name", t.Name)
	return t, nil
}

func (s *ScheduledTaskService) DeleteTask(ctx context.Context, id string) error {
	if _, err := s.taskRepo.GetByID(id); err != nil {
		return errors.NewServiceError(errors.ErrorCodeNotFound, err.Error())
	}
	if err := s.taskRepo.Delete(id); err != nil {
		return errors.NewServiceError(errors.ErrorCodeInternalError, err.Error())
	}
	logger.Info("scheduled task deleted", "task_id", id)
	return nil
}

func (s *ScheduledTaskService) ListTasks(ctx context.Context) (*contracts.TaskListResponse, error) {
	tasks, err := s.taskRepo.GetAll()
	if err != nil {
		return nil, errors.NewServiceError(errors.ErrorCodeInternalError, err.Error())
	}

	summary := contracts.TaskSummary{}
	for _, t := range tasks {
		if t.Enabled {
			summary.EnabledCount++
		} else {
			summary.DisabledCount++
		}
	}

	return &contracts.TaskListResponse{
		Tasks:      tasks,
		TotalCount: len(tasks),
		Summary:    summary,
	}, nil
}

func (s *ScheduledTaskService) EnableTask(ctx context.Context, id string) error {
	return s.setEnabled(id, true)
}

func (s *ScheduledTaskService) DisableTask(ctx context.Context, id string) error {
	return s.setEnabled(id, false)
}

func (s *ScheduledTaskService) setEnabled(id string, enabled bool) error {
	t, err := s.taskRepo.GetByID(id)
	if err != nil {
		return errors.NewServiceError(errors.ErrorCodeNotFound, err.Error())
	}
	t.Enabled = enabled
	if enabled {
		// 重新启用时从当前时刻重算下次运行
		next, err := NextRun(t, time.Now())
		if err != nil {
			return errors.NewServiceErrorWithCause(errors.ErrorCodeInvalidRequest, "invalid schedule", err)
		}
		t.NextRun = next
	}
	if err := s.taskRepo.Update(t); err != nil {
		return errors.NewServiceError(errors.ErrorCodeInternalError, err.Error())
	}
	return nil
}

// RunTaskNow 以manual来源立即执行，不修改调度字段
func (s *ScheduledTaskService) RunTaskNow(ctx context.Context, id string) (*contracts.SubmitResponse, error) {
	t, err := s.taskRepo.GetByID(id)
	if err != nil {
		return nil, errors.NewServiceError(errors.ErrorCodeNotFound, err.Error())
	}
	return s.executor.Submit(ctx, contracts.SubmitRequest{
		TaskContent: t.TaskContent,
		DeviceIDs:   t.DeviceIDs,
		Origin:      entities.OriginManual,
		Force:       false,
	})
}
