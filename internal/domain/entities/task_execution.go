package entities

import "time"

// TaskOrigin 任务触发来源，用于优先级与抢占判断
type TaskOrigin string

const (
	OriginManual    TaskOrigin = "manual"    // 手动任务，优先级最高
	OriginChat      TaskOrigin = "chat"      // Chat任务
	OriginScheduled TaskOrigin = "scheduled" // 定时任务，优先级最低
)

// Priority 返回来源优先级，数值越大越优先
func (o TaskOrigin) Priority() int {
	switch o {
	case OriginManual:
		return 3
	case OriginChat:
		return 2
	case OriginScheduled:
		return 1
	default:
		return 0
	}
}

// ExecutionStatus 执行状态
type ExecutionStatus string

const (
	ExecutionPending   ExecutionStatus = "pending"
	ExecutionRunning   ExecutionStatus = "running"
	ExecutionCompleted ExecutionStatus = "completed"
	ExecutionFailed    ExecutionStatus = "failed"
	ExecutionStopped   ExecutionStatus = "stopped"
)

// Terminal 判断状态是否为终态
func (s ExecutionStatus) Terminal() bool {
	switch s {
	case ExecutionCompleted, ExecutionFailed, ExecutionStopped:
		return true
	}
	return false
}

// TaskResult 单设备执行结果
type TaskResult struct {
	ID            string          `json:"id"`
	DeviceID      string          `json:"device_id"`
	Status        ExecutionStatus `json:"status"`
	Success       bool            `json:"success"`
	Message       string          `json:"message"`
	Logs          []string        `json:"logs,omitempty"`
	ScreenshotRef string          `json:"screenshot_ref,omitempty"`
	StartTime     time.Time       `json:"start_time"`
	EndTime       time.Time       `json:"end_time"`
}

// TaskExecution 一次跨设备自动化任务运行
// 不变式: 进程内至多存在一个 status=running 的 TaskExecution
type TaskExecution struct {
	ID          string          `json:"id"`
	Origin      TaskOrigin      `json:"origin"`
	TaskContent string          `json:"task_content"`
	DeviceIDs   []string        `json:"device_ids"`
	Status      ExecutionStatus `json:"status"`
	Results     []TaskResult    `json:"results"`
	Progress    int             `json:"progress"` // 0-100
	StartTime   time.Time       `json:"start_time"`
	EndTime     time.Time       `json:"end_time,omitempty"`
}
