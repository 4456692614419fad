package errors

// ErrorCode 业务错误码
type ErrorCode string

const (
	ErrorCodeInvalidRequest     ErrorCode = "INVALID_REQUEST"
	ErrorCodeNotFound           ErrorCode = "NOT_FOUND"
	ErrorCodeConflict           ErrorCode = "CONFLICT"
	ErrorCodeInternalError      ErrorCode = "INTERNAL_ERROR"
	ErrorCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"

	// 规则引擎相关
	ErrorCodeValidation    ErrorCode = "VALIDATION_ERROR"     // 自定义规则代码编译失败，注册前拒绝
	ErrorCodeRuleExecution ErrorCode = "RULE_EXECUTION_ERROR" // 自定义规则运行失败，降级为Continue

	// 任务执行相关
	ErrorCodeDeviceOperation    ErrorCode = "DEVICE_OPERATION_ERROR" // 单设备失败，不影响其他设备
	ErrorCodePreemptionConflict ErrorCode = "PREEMPTION_CONFLICT"    // 已有同级或更高优先级任务在运行
	ErrorCodeCleanup            ErrorCode = "CLEANUP_ERROR"          // 锁屏恢复失败，仅记录日志
)

// ServiceError 业务错误
type ServiceError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

func (e *ServiceError) Error() string {
	return string(e.Code) + ": " + e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// NewServiceError 创建业务错误
func NewServiceError(code ErrorCode, message string) *ServiceError {
	return &ServiceError{
		Code:    code,
		Message: message,
	}
}

// NewServiceErrorWithCause 创建带原因的业务错误
func NewServiceErrorWithCause(code ErrorCode, message string, cause error) *ServiceError {
	return &ServiceError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewServiceErrorWithDetails 创建带详情的业务错误
func NewServiceErrorWithDetails(code ErrorCode, message string, details map[string]interface{}) *ServiceError {
	return &ServiceError{
		Code:    code,
		Message: message,
		Details: details,
	}
}
