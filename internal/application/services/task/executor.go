package task

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/easayliu/phone-task-orchestrator/internal/application/contracts"
	"github.com/easayliu/phone-task-orchestrator/internal/application/services/rule"
	"github.com/easayliu/phone-task-orchestrator/internal/domain/entities"
	"github.com/easayliu/phone-task-orchestrator/internal/shared/errors"
	"github.com/easayliu/phone-task-orchestrator/pkg/logger"
)

// ExecutorService 任务执行器，实现contracts.ExecutionService。
// 单飞行槽位：同一时刻至多一个TaskExecution在运行，
// 抢占只允许force且优先级严格更高的提交。
type ExecutorService struct {
	dispatcher  contracts.ActionDispatcher
	controller  contracts.DeviceController
	planners    contracts.PlannerFactory
	interceptor *rule.Interceptor
	lockGuard   *LockGuard

	maxSteps       int
	historyLimit   int
	defaultDevices []string
	appPackages    map[string]string

	mu        sync.Mutex
	current   *entities.TaskExecution
	stopFlag  *atomic.Bool
	done      chan struct{}
	history   []*entities.TaskExecution
	listeners []contracts.ExecutionListener
}

// ExecutorOptions 执行器配置
type ExecutorOptions struct {
	MaxSteps       int
	HistoryLimit   int
	DefaultDevices []string
	AppPackages    map[string]string // 应用名 -> 包名，供launch相关规则校验
}

func NewExecutorService(
	dispatcher contracts.ActionDispatcher,
	controller contracts.DeviceController,
	planners contracts.PlannerFactory,
	interceptor *rule.Interceptor,
	lockGuard *LockGuard,
	opts ExecutorOptions,
) *ExecutorService {
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = 50
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 100
	}
	return &ExecutorService{
		dispatcher:     dispatcher,
		controller:     controller,
		planners:       planners,
		interceptor:    interceptor,
		lockGuard:      lockGuard,
		maxSteps:       opts.MaxSteps,
		historyLimit:   opts.HistoryLimit,
		defaultDevices: opts.DefaultDevices,
		appPackages:    opts.AppPackages,
	}
}

// Submit 提交任务，语义见contracts.ExecutionService
func (s *ExecutorService) Submit(ctx context.Context, req contracts.SubmitRequest) (*contracts.SubmitResponse, error) {
	if req.TaskContent == "" {
		return nil, errors.NewServiceError(errors.ErrorCodeInvalidRequest, "task_content is required")
	}
	if req.Origin.Priority() == 0 {
		return nil, errors.NewServiceError(errors.ErrorCodeInvalidRequest, "unknown task origin: "+string(req.Origin))
	}
	deviceIDs := req.DeviceIDs
	if len(deviceIDs) == 0 {
		deviceIDs = s.defaultDevices
	}
	if len(deviceIDs) == 0 {
		return nil, errors.NewServiceError(errors.ErrorCodeInvalidRequest, "no target devices")
	}

	s.mu.Lock()
	for s.current != nil {
		running := s.current
		if req.Origin == entities.OriginScheduled {
			// 定时任务静默让路，调度器下个周期重试
			s.mu.Unlock()
			return nil, contracts.ErrDeferred
		}
		if !req.Force || req.Origin.Priority() <= running.Origin.Priority() {
			conflict := &contracts.PreemptionConflict{
				RunningID:       running.ID,
				RunningOrigin:   running.Origin,
				RequestedOrigin: req.Origin,
			}
			s.mu.Unlock()
			return nil, conflict
		}

		// 协作式抢占：通知在运行任务停止并等待槽位释放
		stop, done := s.stopFlag, s.done
		stop.Store(true)
		s.mu.Unlock()
		logger.Info("preempting running task",
			"running_id", running.ID, "running_origin", running.Origin, "new_origin", req.Origin)
		<-done
		s.mu.Lock()
	}

	exec := &entities.TaskExecution{
		ID:          uuid.New().String(),
		Origin:      req.Origin,
		TaskContent: req.TaskContent,
		DeviceIDs:   deviceIDs,
		Status:      entities.ExecutionRunning,
		Results:     []entities.TaskResult{},
		StartTime:   time.Now(),
	}
	stop := &atomic.Bool{}
	done := make(chan struct{})

	s.current = exec
	s.stopFlag = stop
	s.done = done
	s.history = append(s.history, exec)
	if len(s.history) > s.historyLimit {
		s.history = s.history[len(s.history)-s.historyLimit:]
	}
	s.mu.Unlock()

	logger.Info("task execution started",
		"execution_id", exec.ID, "origin", exec.Origin, "devices", len(deviceIDs))

	go s.run(exec, stop, done)

	return &contracts.SubmitResponse{
		ExecutionID: exec.ID,
		Status:      string(exec.Status),
		DeviceIDs:   deviceIDs,
		StartedAt:   exec.StartTime,
	}, nil
}

// StopCurrent 协作式停止当前任务
func (s *ExecutorService) StopCurrent(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return contracts.ErrNoRunningTask
	}
	s.stopFlag.Store(true)
	logger.Info("stop requested", "execution_id", s.current.ID)
	return nil
}

// Current 返回运行中任务的副本
func (s *ExecutorService) Current() *entities.TaskExecution {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot(s.current)
}

// Get 按ID查询执行记录
func (s *ExecutorService) Get(id string) (*entities.TaskExecution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.history {
		if e.ID == id {
			return snapshot(e), nil
		}
	}
	return nil, errors.NewServiceError(errors.ErrorCodeNotFound, "execution not found: "+id)
}

// History 按开始时间倒序返回最近的执行记录
func (s *ExecutorService) History(limit int) []*entities.TaskExecution {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.history)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]*entities.TaskExecution, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, snapshot(s.history[i]))
	}
	return out
}

// snapshot 返回执行记录的独立副本。运行中的记录仍被run协程写入，
// 直接外发裸指针会和HTTP序列化竞态。调用时必须持有s.mu。
func snapshot(e *entities.TaskExecution) *entities.TaskExecution {
	if e == nil {
		return nil
	}
	cp := *e
	cp.Results = append([]entities.TaskResult(nil), e.Results...)
	return &cp
}

// AddListener 注册事件监听器
func (s *ExecutorService) AddListener(l contracts.ExecutionListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

func (s *ExecutorService) emit(event contracts.ExecutionEvent) {
	s.mu.Lock()
	listeners := make([]contracts.ExecutionListener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()
	for _, l := range listeners {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("execution listener panicked", "execution_id", event.ExecutionID, "panic", rec)
				}
			}()
			l(event)
		}()
	}
}

// run 按设备顺序执行任务，每设备完成后推进进度；
// 结束时释放槽位并发出恰好一次finished事件。
func (s *ExecutorService) run(exec *entities.TaskExecution, stop *atomic.Bool, done chan struct{}) {
	ctx := context.Background()
	stopped := false

	for i, deviceID := range exec.DeviceIDs {
		if stop.Load() {
			stopped = true
			break
		}

		result := s.runDevice(ctx, exec, deviceID, stop)
		progress := (i + 1) * 100 / len(exec.DeviceIDs)
		s.mu.Lock()
		exec.Results = append(exec.Results, result)
		exec.Progress = progress
		s.mu.Unlock()

		s.emit(contracts.ExecutionEvent{
			Kind:        contracts.EventProgress,
			ExecutionID: exec.ID,
			DeviceID:    deviceID,
			Progress:    progress,
			Message:     result.Message,
		})

		if result.Status == entities.ExecutionStopped {
			stopped = true
			break
		}
	}

	s.mu.Lock()
	exec.EndTime = time.Now()
	exec.Status = finalStatus(exec, stopped)
	s.current = nil
	s.mu.Unlock()
	close(done)

	logger.Info("task execution finished",
		"execution_id", exec.ID, "status", exec.Status, "devices", len(exec.Results))

	s.emit(contracts.ExecutionEvent{
		Kind:        contracts.EventFinished,
		ExecutionID: exec.ID,
		Progress:    exec.Progress,
		Execution:   exec,
	})
}

// finalStatus 计算整体终态：请求停止→stopped；所有设备失败→failed；否则completed
func finalStatus(exec *entities.TaskExecution, stopped bool) entities.ExecutionStatus {
	if stopped {
		return entities.ExecutionStopped
	}
	if len(exec.Results) == 0 {
		return entities.ExecutionFailed
	}
	for _, r := range exec.Results {
		if r.Success {
			return entities.ExecutionCompleted
		}
	}
	return entities.ExecutionFailed
}

// runDevice 在单个设备上执行任务。设备失败不影响其他设备；
// 锁屏状态在结束时恢复到执行前的样子。
// 规划器或分发器panic被就地捕获，只记为该设备失败。
func (s *ExecutorService) runDevice(ctx context.Context, exec *entities.TaskExecution, deviceID string, stop *atomic.Bool) (result entities.TaskResult) {
	result = entities.TaskResult{
		ID:        uuid.New().String(),
		DeviceID:  deviceID,
		Status:    entities.ExecutionRunning,
		StartTime: time.Now(),
	}
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("device execution panicked",
				"execution_id", exec.ID, "device_id", deviceID, "panic", rec)
			result.Status = entities.ExecutionFailed
			result.Success = false
			result.Message = fmt.Sprintf("panic: %v", rec)
			result.EndTime = time.Now()
		}
	}()
	fail := func(msg string) entities.TaskResult {
		result.Status = entities.ExecutionFailed
		result.Success = false
		result.Message = msg
		result.EndTime = time.Now()
		logger.Warn("device execution failed", "execution_id", exec.ID, "device_id", deviceID, "reason", msg)
		return result
	}

	wasLocked, err := s.lockGuard.Capture(ctx, deviceID)
	if err != nil {
		return fail(err.Error())
	}
	defer s.lockGuard.Restore(ctx, deviceID, wasLocked)

	execCtx := entities.ExecutionContext{"device_id": deviceID}
	if w, h, err := s.controller.ScreenSize(ctx, deviceID); err == nil {
		execCtx["screen_width"] = w
		execCtx["screen_height"] = h
	}
	if len(s.appPackages) > 0 {
		execCtx["app_packages"] = s.appPackages
	}

	planner := s.planners.NewPlanner(exec.TaskContent, deviceID)

	for step := 0; step < s.maxSteps; step++ {
		if stop.Load() {
			result.Status = entities.ExecutionStopped
			result.Message = "execution stopped"
			result.EndTime = time.Now()
			return result
		}

		screenshot, err := s.controller.Screenshot(ctx, deviceID, fmt.Sprintf("step_%d", step))
		if err != nil {
			logger.Warn("screenshot failed", "device_id", deviceID, "step", step, "error", err)
		}

		planned, err := planner.NextStep(ctx, screenshot, step)
		if err != nil {
			return fail("planner failed: " + err.Error())
		}
		if planned.Finished {
			result.Status = entities.ExecutionCompleted
			result.Success = true
			result.Message = planned.Message
			break
		}

		actionType := planned.ActionType
		verdict := s.interceptor.ApplyRules(actionType, planned.Params, execCtx)
		params := planned.Params
		switch verdict.Kind {
		case rule.VerdictAbort:
			return fail("rule aborted action: " + verdict.Message)
		case rule.VerdictSkip:
			// 视为已满足，不分发
			result.Logs = append(result.Logs, fmt.Sprintf("step %d: %s skipped (%s)", step, actionType, verdict.Message))
			continue
		case rule.VerdictModified:
			params = verdict.Params
			result.Logs = append(result.Logs, fmt.Sprintf("step %d: %s params modified by rules", step, actionType))
			// 规则可能把Swipe改写成Tap
			if params["_converted_from_swipe"] == true {
				if converted, ok := params["action"].(string); ok && converted != "" {
					actionType = converted
				}
			}
		}

		if err := s.dispatcher.Execute(ctx, deviceID, actionType, params); err != nil {
			return fail(fmt.Sprintf("action %s failed: %v", actionType, err))
		}
		result.Logs = append(result.Logs, fmt.Sprintf("step %d: %s dispatched", step, actionType))

		// 供tap_rapid_click等规则使用的运行时上下文
		if actionType == "Tap" {
			if x, y, ok := tapCoord(params); ok {
				execCtx["last_tap_position"] = []float64{x, y}
				execCtx["last_tap_time"] = time.Now()
			}
		}
	}

	if result.Status == entities.ExecutionRunning {
		return fail(fmt.Sprintf("task did not finish within %d steps", s.maxSteps))
	}

	// 成功路径补一张结束截图
	if ref, err := s.controller.Screenshot(ctx, deviceID, "final"); err == nil {
		result.ScreenshotRef = ref
	}
	result.EndTime = time.Now()
	return result
}

func tapCoord(params entities.ActionParams) (float64, float64, bool) {
	v, ok := params["element"]
	if !ok {
		return 0, 0, false
	}
	switch val := v.(type) {
	case []float64:
		if len(val) >= 2 {
			return val[0], val[1], true
		}
	case []any:
		if len(val) >= 2 {
			x, okX := val[0].(float64)
			y, okY := val[1].(float64)
			if okX && okY {
				return x, y, true
			}
		}
	}
	return 0, 0, false
}
