package entities

import "reflect"

// Rule 单条规则项 - 附着在某个动作类型上的 (条件, 动作, 优先级) 三元组
type Rule struct {
	ID        string `json:"id"`        // 规则ID，动作类型内唯一
	Condition string `json:"condition"` // 条件描述
	Action    string `json:"action"`    // 动作描述
	Priority  int    `json:"priority"`  // 优先级，数值越大优先级越高；相同优先级按插入顺序
	Enabled   bool   `json:"enabled"`   // 是否启用

	// 显式键绑定：优先于文本匹配（文本模糊匹配保留为兼容路径）
	ConditionKey string `json:"condition_key,omitempty"`
	ActionKey    string `json:"action_key,omitempty"`

	// 自定义expr代码：注册为 custom_<id> / custom_action_<id>
	ConditionCode string `json:"condition_code,omitempty"`
	ActionCode    string `json:"action_code,omitempty"`
}

// ActionParameter 动作参数定义
type ActionParameter struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Required    bool   `json:"required"`
	Description string `json:"description"`
}

// ActionType 动作类型目录项 - 动作定义及其规则集合
type ActionType struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Parameters  []ActionParameter `json:"parameters"`
	Example     string            `json:"example"`
	AdbCommand  string            `json:"adb_command,omitempty"`
	Rules       []*Rule           `json:"rules"`
	IsCustom    bool              `json:"is_custom"`
}

// ActionParams 动作参数 - 每次动作分发携带的键值对
type ActionParams map[string]any

// Clone 深拷贝参数，规则修改参数时必须先拷贝（copy-on-write）
func (p ActionParams) Clone() ActionParams {
	if p == nil {
		return ActionParams{}
	}
	out := make(ActionParams, len(p))
	for k, v := range p {
		out[k] = cloneValue(v)
	}
	return out
}

// Equal 判断两组参数是否相同
func (p ActionParams) Equal(other ActionParams) bool {
	if len(p) == 0 && len(other) == 0 {
		return true
	}
	return reflect.DeepEqual(p, other)
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = cloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	case []int:
		out := make([]int, len(val))
		copy(out, val)
		return out
	case []float64:
		out := make([]float64, len(val))
		copy(out, val)
		return out
	default:
		return v
	}
}

// ExecutionContext 动作执行上下文 - 规则可读写的临时键值对，不持久化
// 常见键: device_id, screen_width, screen_height, last_tap_position, last_tap_time
type ExecutionContext map[string]any
