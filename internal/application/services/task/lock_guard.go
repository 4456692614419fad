package task

import (
	"context"

	"github.com/easayliu/phone-task-orchestrator/internal/application/contracts"
	"github.com/easayliu/phone-task-orchestrator/internal/shared/errors"
	"github.com/easayliu/phone-task-orchestrator/pkg/logger"
)

// LockGuard 锁屏状态守卫 - 执行前捕获并解锁，执行后恢复原状态。
// 不变式: 设备执行结束后的锁屏状态与执行前一致（尽力而为，恢复失败仅记录日志）。
type LockGuard struct {
	controller contracts.DeviceController
	pins       map[string]string // 设备ID -> 解锁PIN
}

func NewLockGuard(controller contracts.DeviceController, pins map[string]string) *LockGuard {
	return &LockGuard{controller: controller, pins: pins}
}

// Capture 记录当前锁屏状态并解锁设备。
// 查询或解锁失败返回DEVICE_OPERATION_ERROR，该设备的任务失败。
func (g *LockGuard) Capture(ctx context.Context, deviceID string) (wasLocked bool, err error) {
	wasLocked, err = g.controller.IsLocked(ctx, deviceID)
	if err != nil {
		return false, errors.NewServiceErrorWithCause(errors.ErrorCodeDeviceOperation,
			"failed to query lock state for device "+deviceID, err)
	}

	if wasLocked {
		pin := g.pins[deviceID]
		if err := g.controller.Unlock(ctx, deviceID, pin); err != nil {
			return wasLocked, errors.NewServiceErrorWithCause(errors.ErrorCodeDeviceOperation,
				"failed to unlock device "+deviceID, err)
		}
		logger.Info("device unlocked for execution", "device_id", deviceID)
	}

	return wasLocked, nil
}

// Restore 恢复锁屏状态。仅当执行前是锁定状态时重新锁定；
// 失败不向上传播，记录CLEANUP_ERROR日志后返回。
func (g *LockGuard) Restore(ctx context.Context, deviceID string, wasLocked bool) {
	if !wasLocked {
		return
	}
	if err := g.controller.Lock(ctx, deviceID); err != nil {
		cleanupErr := errors.NewServiceErrorWithCause(errors.ErrorCodeCleanup,
			"failed to restore lock state for device "+deviceID, err)
		logger.Warn("lock state restore failed", "device_id", deviceID, "error", cleanupErr)
		return
	}
	logger.Info("device lock state restored", "device_id", deviceID)
}
