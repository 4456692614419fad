package contracts

import (
	"context"

	"github.com/easayliu/phone-task-orchestrator/internal/domain/entities"
)

// ActionDispatcher 动作分发契约 - 规则拦截后的最终执行出口
type ActionDispatcher interface {
	// Execute 在指定设备上执行动作，参数为规则处理后的最终参数
	Execute(ctx context.Context, deviceID string, actionType string, params entities.ActionParams) error
}

// DeviceController 设备控制契约 - 锁屏与屏幕状态管理
type DeviceController interface {
	// IsLocked 查询设备是否处于锁屏状态
	IsLocked(ctx context.Context, deviceID string) (bool, error)
	// Unlock 亮屏并解锁，pin为空时仅上滑解锁
	Unlock(ctx context.Context, deviceID string, pin string) error
	// Lock 熄屏锁定
	Lock(ctx context.Context, deviceID string) error
	// ScreenSize 返回屏幕宽高（像素）
	ScreenSize(ctx context.Context, deviceID string) (width, height int, err error)
	// Screenshot 截图并返回存储路径
	Screenshot(ctx context.Context, deviceID string, tag string) (string, error)
	// ListDevices 列出已连接设备ID
	ListDevices(ctx context.Context) ([]string, error)
}

// PlannedStep 规划器产出的下一步动作
type PlannedStep struct {
	ActionType string                `json:"action_type"`
	Params     entities.ActionParams `json:"params"`
	Thought    string                `json:"thought,omitempty"`
	Finished   bool                  `json:"finished"` // true表示任务完成，Message为完成说明
	Message    string                `json:"message,omitempty"`
}

// StepPlanner 步骤规划契约 - 根据任务内容与当前屏幕决定下一步动作
type StepPlanner interface {
	NextStep(ctx context.Context, screenshotPath string, stepIndex int) (*PlannedStep, error)
}

// PlannerFactory 规划器工厂 - 每个(任务,设备)组合创建独立规划器实例
type PlannerFactory interface {
	NewPlanner(taskContent string, deviceID string) StepPlanner
}
