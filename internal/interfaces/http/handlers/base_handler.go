package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/easayliu/phone-task-orchestrator/internal/shared/errors"
	"github.com/easayliu/phone-task-orchestrator/pkg/utils"
)

// handleServiceError 将业务错误映射为HTTP响应
func handleServiceError(c *gin.Context, err error, fallback string) {
	if serviceErr, ok := err.(*errors.ServiceError); ok {
		status := mapErrorCodeToHTTPStatus(serviceErr.Code)
		utils.ErrorWithStatus(c, status, status, serviceErr.Message)
		return
	}
	utils.ErrorWithStatus(c, http.StatusInternalServerError, 500, fallback+": "+err.Error())
}

// mapErrorCodeToHTTPStatus 业务错误码到HTTP状态码的映射
func mapErrorCodeToHTTPStatus(code errors.ErrorCode) int {
	switch code {
	case errors.ErrorCodeInvalidRequest, errors.ErrorCodeValidation:
		return http.StatusBadRequest
	case errors.ErrorCodeNotFound:
		return http.StatusNotFound
	case errors.ErrorCodeConflict, errors.ErrorCodePreemptionConflict:
		return http.StatusConflict
	case errors.ErrorCodeServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
