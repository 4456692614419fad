package contracts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/easayliu/phone-task-orchestrator/internal/domain/entities"
)

// ErrDeferred 定时任务遇到在运行的任务时静默让路，调度器下个周期重试
var ErrDeferred = errors.New("execution deferred: another task is running")

// ErrNoRunningTask 无运行中任务
var ErrNoRunningTask = errors.New("no running task")

// PreemptionConflict 抢占冲突 - 已有任务在运行且新任务无权抢占
type PreemptionConflict struct {
	RunningID       string              `json:"running_id"`
	RunningOrigin   entities.TaskOrigin `json:"running_origin"`
	RequestedOrigin entities.TaskOrigin `json:"requested_origin"`
}

func (e *PreemptionConflict) Error() string {
	return fmt.Sprintf("task %s (%s) is running, %s submission rejected",
		e.RunningID, e.RunningOrigin, e.RequestedOrigin)
}

// SubmitRequest 任务提交请求
type SubmitRequest struct {
	TaskContent string              `json:"task_content" validate:"required"`
	DeviceIDs   []string            `json:"device_ids"`
	Origin      entities.TaskOrigin `json:"origin"`
	Force       bool                `json:"force"` // 允许抢占低优先级的在运行任务
}

// SubmitResponse 任务提交响应
type SubmitResponse struct {
	ExecutionID string    `json:"execution_id"`
	Status      string    `json:"status"`
	DeviceIDs   []string  `json:"device_ids"`
	StartedAt   time.Time `json:"started_at"`
}

// ExecutionEventKind 执行事件类型
type ExecutionEventKind string

const (
	EventLog      ExecutionEventKind = "log"
	EventProgress ExecutionEventKind = "progress"
	EventFinished ExecutionEventKind = "finished"
)

// ExecutionEvent 执行过程事件，按注册顺序同步回调
type ExecutionEvent struct {
	Kind        ExecutionEventKind       `json:"kind"`
	ExecutionID string                   `json:"execution_id"`
	DeviceID    string                   `json:"device_id,omitempty"`
	Message     string                   `json:"message,omitempty"`
	Progress    int                      `json:"progress,omitempty"` // 0-100
	Execution   *entities.TaskExecution  `json:"execution,omitempty"` // 仅finished事件携带
}

// ExecutionListener 执行事件监听器
type ExecutionListener func(event ExecutionEvent)

// ExecutionService 任务执行业务契约
// 不变式: 同一时刻至多一个任务在运行
type ExecutionService interface {
	// Submit 提交任务。已有任务运行时:
	//   - scheduled来源返回ErrDeferred
	//   - force=false返回*PreemptionConflict
	//   - force=true且优先级严格更高时停止在运行任务后接管，否则返回*PreemptionConflict
	Submit(ctx context.Context, req SubmitRequest) (*SubmitResponse, error)

	// StopCurrent 协作式停止当前任务，无任务时返回ErrNoRunningTask
	StopCurrent(ctx context.Context) error

	// Current 返回运行中的任务，无则返回nil
	Current() *entities.TaskExecution

	// Get 按ID查询执行记录（含历史）
	Get(id string) (*entities.TaskExecution, error)

	// History 按开始时间倒序返回最近的执行记录
	History(limit int) []*entities.TaskExecution

	// AddListener 注册事件监听器，回调在执行goroutine内同步触发
	AddListener(l ExecutionListener)
}
