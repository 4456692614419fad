package rule

import "github.com/easayliu/phone-task-orchestrator/internal/domain/entities"

// VerdictKind 规则裁决类型
type VerdictKind string

const (
	VerdictContinue VerdictKind = "continue" // 继续执行原有逻辑
	VerdictSkip     VerdictKind = "skip"     // 跳过执行，视为成功
	VerdictAbort    VerdictKind = "abort"    // 中止执行，视为失败
	VerdictModified VerdictKind = "modified" // 参数已修改，使用修改后的参数继续
)

// Verdict 规则裁决结果。Params仅在Modified时有效
type Verdict struct {
	Kind    VerdictKind           `json:"kind"`
	Message string                `json:"message,omitempty"`
	Params  entities.ActionParams `json:"params,omitempty"`
}

func Continue() Verdict {
	return Verdict{Kind: VerdictContinue}
}

func Skip(message string) Verdict {
	return Verdict{Kind: VerdictSkip, Message: message}
}

func Abort(message string) Verdict {
	return Verdict{Kind: VerdictAbort, Message: message}
}

func Modified(params entities.ActionParams, message string) Verdict {
	return Verdict{Kind: VerdictModified, Message: message, Params: params}
}
