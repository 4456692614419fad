package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/easayliu/phone-task-orchestrator/internal/application/contracts"
	"github.com/easayliu/phone-task-orchestrator/pkg/utils"
)

// DeviceHandler REST设备处理器
type DeviceHandler struct {
	controller contracts.DeviceController
}

func NewDeviceHandler(controller contracts.DeviceController) *DeviceHandler {
	return &DeviceHandler{controller: controller}
}

// ListDevices 列出已连接设备
// @Summary 列出已连接设备
// @Tags 设备
// @Produce json
// @Success 200 {array} string
// @Failure 500 {object} map[string]interface{} "adb不可用"
// @Router /devices [get]
func (h *DeviceHandler) ListDevices(c *gin.Context) {
	devices, err := h.controller.ListDevices(c.Request.Context())
	if err != nil {
		handleServiceError(c, err, "Failed to list devices")
		return
	}
	utils.Success(c, devices)
}

// DeviceStatus 查询设备状态
// @Summary 查询设备锁屏状态与屏幕尺寸
// @Tags 设备
// @Produce json
// @Param id path string true "设备ID"
// @Success 200 {object} map[string]interface{}
// @Router /devices/{id} [get]
func (h *DeviceHandler) DeviceStatus(c *gin.Context) {
	deviceID := c.Param("id")

	locked, err := h.controller.IsLocked(c.Request.Context(), deviceID)
	if err != nil {
		handleServiceError(c, err, "Failed to query device")
		return
	}
	width, height, err := h.controller.ScreenSize(c.Request.Context(), deviceID)
	if err != nil {
		handleServiceError(c, err, "Failed to query screen size")
		return
	}

	utils.Success(c, gin.H{
		"device_id": deviceID,
		"locked":    locked,
		"screen":    gin.H{"width": width, "height": height},
	})
}
