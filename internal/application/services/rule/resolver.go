package rule

import (
	"strings"

	"github.com/easayliu/phone-task-orchestrator/internal/domain/entities"
)

// conditionMapping (动作类型, 条件描述) 到条件检查器键的映射项。
// 顺序即匹配顺序：先整体精确匹配，再按表序做包含匹配。
type conditionMapping struct {
	actionType string
	condition  string
	key        string
}

var conditionTable = []conditionMapping{
	// Launch 动作
	{"Launch", "应用未安装", "launch_app_not_installed"},
	{"Launch", "应用已在前台", "launch_app_in_foreground"},
	{"Launch", "应用名称未在映射表中", "launch_app_not_mapped"},

	// Tap 动作
	{"Tap", "坐标超出屏幕范围", "tap_out_of_bounds"},
	{"Tap", "连续快速点击同一位置", "tap_rapid_click"},
	{"Tap", "点击系统敏感区域", "tap_sensitive_area"},

	// Type 动作
	{"Type", "文本包含中文字符", "type_contains_chinese"},
	{"Type", "输入框无焦点", "type_no_focus"},
	{"Type", "文本长度超过100字符", "type_long_text"},

	// Swipe 动作
	{"Swipe", "起点和终点相同", "swipe_same_point"},
	{"Swipe", "滑动距离过短", "swipe_short_distance"},

	// Wait 动作
	{"Wait", "未指定时长", "wait_no_duration"},
	{"Wait", "等待时间超过10秒", "wait_long_duration"},

	// Double Tap / Long Press 共用坐标检查
	{"Double Tap", "坐标超出范围", "tap_out_of_bounds"},
	{"Long Press", "坐标超出范围", "tap_out_of_bounds"},
}

// actionMapping 动作描述关键词到动作执行器键的映射项，按表序做包含匹配
type actionMapping struct {
	pattern string
	key     string
}

var actionTable = []actionMapping{
	// 通用动作
	{"返回错误提示", "abort_with_error"},
	{"跳过", "skip_success"},
	{"直接返回成功", "skip_success"},

	// 坐标相关
	{"自动裁剪", "clip_coordinates"},
	{"裁剪到有效范围", "clip_coordinates"},

	// 点击相关
	{"显示确认对话框", "show_confirmation"},
	{"合并为单次点击", "merge_clicks"},

	// 输入相关
	{"使用ADB广播方式输入", "use_broadcast_input"},
	{"分段输入", "split_text"},

	// 滑动相关
	{"转换为Tap动作", "convert_to_tap"},
	{"增加滑动距离", "extend_swipe"},

	// 等待相关
	{"默认等待1秒", "default_wait"},
}

// ResolveConditionKey 解析规则的条件检查器键。
// 优先级: 已注册的自定义条件 > 显式ConditionKey > 精确匹配 > 表序包含匹配。
// 解析不到返回空串，规则不触发。
func (r *Registry) ResolveConditionKey(actionType string, rule *entities.Rule) string {
	if customKey := CustomConditionKey(rule.ID); r.HasCondition(customKey) {
		return customKey
	}
	if rule.ConditionKey != "" {
		return rule.ConditionKey
	}
	for _, m := range conditionTable {
		if m.actionType == actionType && m.condition == rule.Condition {
			return m.key
		}
	}
	for _, m := range conditionTable {
		if m.actionType == actionType && strings.Contains(rule.Condition, m.condition) {
			return m.key
		}
	}
	return ""
}

// ResolveActionKey 解析规则的动作执行器键。
// 优先级: 已注册的自定义动作 > 显式ActionKey > 表序包含匹配。
func (r *Registry) ResolveActionKey(actionType string, rule *entities.Rule) string {
	if customKey := CustomActionKey(rule.ID); r.HasAction(customKey) {
		return customKey
	}
	if rule.ActionKey != "" {
		return rule.ActionKey
	}
	for _, m := range actionTable {
		if strings.Contains(rule.Action, m.pattern) {
			return m.key
		}
	}
	return ""
}
