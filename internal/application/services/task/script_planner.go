package task

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/easayliu/phone-task-orchestrator/internal/application/contracts"
	"github.com/easayliu/phone-task-orchestrator/internal/domain/entities"
)

// ScriptPlanner 脚本规划器 - 按行解析任务脚本并依次产出动作。
// 脚本格式:
//
//	do(action="Launch", app="微信")
//	do(action="Tap", element=[500, 300])
//	do(action="Type", text="hello", press_enter=True)
//	finish(message="任务完成")
//
// 空行与#开头的行被忽略；行耗尽时视为完成。
type ScriptPlanner struct {
	lines  []string
	cursor int
}

var scriptLinePattern = regexp.MustCompile(`^(do|finish)\((.*)\)$`)

func NewScriptPlanner(taskContent string) *ScriptPlanner {
	var lines []string
	for _, raw := range strings.Split(taskContent, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return &ScriptPlanner{lines: lines}
}

// NextStep 产出脚本中的下一个动作
func (p *ScriptPlanner) NextStep(ctx context.Context, screenshotPath string, stepIndex int) (*contracts.PlannedStep, error) {
	if p.cursor >= len(p.lines) {
		return &contracts.PlannedStep{Finished: true, Message: "script completed"}, nil
	}
	line := p.lines[p.cursor]
	p.cursor++

	m := scriptLinePattern.FindStringSubmatch(line)
	if m == nil {
		return nil, fmt.Errorf("invalid script line %d: %q", p.cursor, line)
	}

	args, err := parseScriptArgs(m[2])
	if err != nil {
		return nil, fmt.Errorf("invalid script line %d: %w", p.cursor, err)
	}

	if m[1] == "finish" {
		message, _ := args["message"].(string)
		if message == "" {
			message = "script completed"
		}
		return &contracts.PlannedStep{Finished: true, Message: message}, nil
	}

	actionType, _ := args["action"].(string)
	if actionType == "" {
		return nil, fmt.Errorf("invalid script line %d: do() requires action", p.cursor)
	}
	params := entities.ActionParams{}
	for k, v := range args {
		if k != "action" {
			params[k] = v
		}
	}
	return &contracts.PlannedStep{ActionType: actionType, Params: params}, nil
}

// parseScriptArgs 解析 key=value 参数串，值支持字符串、数字、布尔与坐标列表
func parseScriptArgs(s string) (map[string]any, error) {
	out := map[string]any{}
	for _, part := range splitTopLevel(s) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		eq := strings.Index(part, "=")
		if eq <= 0 {
			return nil, fmt.Errorf("malformed argument %q", part)
		}
		key := strings.TrimSpace(part[:eq])
		value, err := parseScriptValue(strings.TrimSpace(part[eq+1:]))
		if err != nil {
			return nil, err
		}
		out[key] = value
	}
	return out, nil
}

func parseScriptValue(s string) (any, error) {
	switch {
	case len(s) >= 2 && (s[0] == '"' || s[0] == '\''):
		if s[len(s)-1] != s[0] {
			return nil, fmt.Errorf("unterminated string %q", s)
		}
		return s[1 : len(s)-1], nil

	case strings.HasPrefix(s, "["):
		if !strings.HasSuffix(s, "]") {
			return nil, fmt.Errorf("unterminated list %q", s)
		}
		inner := strings.TrimSpace(s[1 : len(s)-1])
		if inner == "" {
			return []float64{}, nil
		}
		var nums []float64
		for _, item := range strings.Split(inner, ",") {
			f, err := strconv.ParseFloat(strings.TrimSpace(item), 64)
			if err != nil {
				return nil, fmt.Errorf("invalid list element %q", item)
			}
			nums = append(nums, f)
		}
		return nums, nil

	case s == "True" || s == "true":
		return true, nil
	case s == "False" || s == "false":
		return false, nil

	default:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q", s)
		}
		return f, nil
	}
}

// splitTopLevel 按顶层逗号分割，忽略引号与方括号内的逗号
func splitTopLevel(s string) []string {
	var parts []string
	depth := 0
	var quote byte
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '[':
			depth++
		case c == ']':
			depth--
		case c == ',' && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	parts = append(parts, s[start:])
	return parts
}

// ScriptPlannerFactory 每个(任务,设备)组合创建独立的脚本规划器
type ScriptPlannerFactory struct{}

func NewScriptPlannerFactory() *ScriptPlannerFactory {
	return &ScriptPlannerFactory{}
}

func (f *ScriptPlannerFactory) NewPlanner(taskContent string, deviceID string) contracts.StepPlanner {
	return NewScriptPlanner(taskContent)
}
