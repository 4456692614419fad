package task

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/easayliu/phone-task-orchestrator/internal/application/contracts"
	"github.com/easayliu/phone-task-orchestrator/internal/domain/entities"
	"github.com/easayliu/phone-task-orchestrator/internal/infrastructure/repository"
	"github.com/easayliu/phone-task-orchestrator/pkg/logger"
)

// SchedulerLoop 定时任务调度循环。
// 每个tick检查到期任务并以scheduled来源提交；执行器繁忙时任务保持到期，
// 不做任何记账，下个tick重试直到成功。
type SchedulerLoop struct {
	taskRepo *repository.TaskRepository
	executor contracts.ExecutionService
	tick     time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
}

func NewSchedulerLoop(taskRepo *repository.TaskRepository, executor contracts.ExecutionService, tick time.Duration) *SchedulerLoop {
	if tick <= 0 {
		tick = 30 * time.Second
	}
	return &SchedulerLoop{
		taskRepo: taskRepo,
		executor: executor,
		tick:     tick,
	}
}

// Start 启动调度循环
func (s *SchedulerLoop) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("scheduler already running")
	}
	s.running = true
	s.stopCh = make(chan struct{})

	go s.loop(s.stopCh)
	logger.Info("scheduler loop started", "tick", s.tick)
	return nil
}

// Stop 停止调度循环
func (s *SchedulerLoop) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		close(s.stopCh)
		s.running = false
		logger.Info("scheduler loop stopped")
	}
}

func (s *SchedulerLoop) loop(stopCh chan struct{}) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	for {
		select {
		case <-stopCh:
			return
		case now := <-ticker.C:
			s.CheckDue(now)
		}
	}
}

// CheckDue 检查并分发所有到期任务。独立导出以便直接驱动时钟。
func (s *SchedulerLoop) CheckDue(now time.Time) {
	tasks, err := s.taskRepo.GetEnabled()
	if err != nil {
		logger.Error("failed to load scheduled tasks", "error", err)
		return
	}

	for _, t := range tasks {
		if !t.IsDue(now) {
			continue
		}
		s.dispatch(t, now)
	}
}

// dispatch 分发单个到期任务。
// 提交成功才做记账（运行计数、时间字段、下次运行）；
// 让路（ErrDeferred）不做任何修改，任务保持到期状态。
func (s *SchedulerLoop) dispatch(t *entities.ScheduledTask, now time.Time) {
	_, err := s.executor.Submit(context.Background(), contracts.SubmitRequest{
		TaskContent: t.TaskContent,
		DeviceIDs:   t.DeviceIDs,
		Origin:      entities.OriginScheduled,
		Force:       false,
	})
	if err != nil {
		if stderrors.Is(err, contracts.ErrDeferred) {
			logger.Debug("scheduled task deferred, executor busy", "task_id", t.ID, "name", t.Name)
			return
		}
		logger.Error("failed to dispatch scheduled task", "task_id", t.ID, "name", t.Name, "error", err)
		return
	}

	nextRun, err := NextRun(t, now)
	if err != nil {
		logger.Error("failed to compute next run", "task_id", t.ID, "error", err)
		nextRun = nil
	}
	if err := s.taskRepo.MarkDispatched(t.ID, now, nextRun); err != nil {
		logger.Error("failed to record dispatch", "task_id", t.ID, "error", err)
		return
	}
	if nextRun == nil {
		logger.Info("one-shot task dispatched and disabled", "task_id", t.ID, "name", t.Name)
	} else {
		logger.Info("scheduled task dispatched", "task_id", t.ID, "name", t.Name, "next_run", *nextRun)
	}
}
