package rule

import (
	"testing"

	"github.com/easayliu/phone-task-orchestrator/internal/domain/entities"
)

type staticSource map[string][]*entities.Rule

func (s staticSource) RulesForAction(actionType string) []*entities.Rule {
	return s[actionType]
}

func newTestInterceptor(rules map[string][]*entities.Rule) *Interceptor {
	return NewInterceptor(NewRegistry(), staticSource(rules))
}

func TestApplyRulesNoRules(t *testing.T) {
	i := newTestInterceptor(nil)

	params := entities.ActionParams{"element": []float64{500, 300}}
	verdict := i.ApplyRules("Tap", params, entities.ExecutionContext{})

	if verdict.Kind != VerdictContinue {
		t.Errorf("expected continue, got %s", verdict.Kind)
	}
}

func TestApplyRulesClipsOutOfBoundsTap(t *testing.T) {
	i := newTestInterceptor(map[string][]*entities.Rule{
		"Tap": {
			{ID: "tap_001", Condition: "坐标超出屏幕范围", Action: "自动裁剪到有效范围 [0-1000]", Priority: 10, Enabled: true},
		},
	})

	params := entities.ActionParams{"element": []float64{1200, -50}}
	verdict := i.ApplyRules("Tap", params, entities.ExecutionContext{})

	if verdict.Kind != VerdictModified {
		t.Fatalf("expected modified, got %s", verdict.Kind)
	}
	x, y, ok := coordPair(verdict.Params["element"])
	if !ok {
		t.Fatalf("modified element missing or malformed: %v", verdict.Params["element"])
	}
	if x != 1000 || y != 0 {
		t.Errorf("expected element clipped to [1000, 0], got [%v, %v]", x, y)
	}
}

func TestApplyRulesDoesNotMutateInput(t *testing.T) {
	i := newTestInterceptor(map[string][]*entities.Rule{
		"Tap": {
			{ID: "tap_001", Condition: "坐标超出屏幕范围", Action: "自动裁剪到有效范围", Priority: 10, Enabled: true},
		},
	})

	params := entities.ActionParams{"element": []float64{1500, 500}}
	i.ApplyRules("Tap", params, entities.ExecutionContext{})

	x, y, _ := coordPair(params["element"])
	if x != 1500 || y != 500 {
		t.Errorf("caller params were mutated: [%v, %v]", x, y)
	}
}

func TestApplyRulesInBoundsTapUnchanged(t *testing.T) {
	i := newTestInterceptor(map[string][]*entities.Rule{
		"Tap": {
			{ID: "tap_001", Condition: "坐标超出屏幕范围", Action: "自动裁剪到有效范围", Priority: 10, Enabled: true},
		},
	})

	params := entities.ActionParams{"element": []float64{500, 300}}
	verdict := i.ApplyRules("Tap", params, entities.ExecutionContext{})

	if verdict.Kind != VerdictContinue {
		t.Errorf("in-bounds tap should continue unchanged, got %s", verdict.Kind)
	}
}

func TestApplyRulesSkipShortCircuits(t *testing.T) {
	// 高优先级Skip应先于低优先级Abort触发并立即返回
	i := newTestInterceptor(map[string][]*entities.Rule{
		"Launch": {
			{ID: "r_low", Condition: "应用未安装", Action: "返回错误提示", Priority: 1, Enabled: true},
			{ID: "r_high", Condition: "应用已在前台", Action: "跳过启动，直接返回成功", Priority: 10, Enabled: true},
		},
	})

	ctx := entities.ExecutionContext{
		"foreground_app": "微信",
		"app_packages":   map[string]string{},
	}
	params := entities.ActionParams{"app": "微信"}
	verdict := i.ApplyRules("Launch", params, ctx)

	if verdict.Kind != VerdictSkip {
		t.Errorf("expected high-priority skip, got %s (%s)", verdict.Kind, verdict.Message)
	}
}

func TestApplyRulesAbort(t *testing.T) {
	i := newTestInterceptor(map[string][]*entities.Rule{
		"Launch": {
			{ID: "launch_001", Condition: "应用未安装", Action: "返回错误提示，不执行启动", Priority: 10, Enabled: true},
		},
	})

	ctx := entities.ExecutionContext{"app_packages": map[string]string{"微信": "com.tencent.mm"}}
	verdict := i.ApplyRules("Launch", entities.ActionParams{"app": "抖音"}, ctx)

	if verdict.Kind != VerdictAbort {
		t.Errorf("expected abort for unmapped app, got %s", verdict.Kind)
	}
}

func TestApplyRulesDisabledRuleIgnored(t *testing.T) {
	i := newTestInterceptor(map[string][]*entities.Rule{
		"Tap": {
			{ID: "tap_001", Condition: "坐标超出屏幕范围", Action: "自动裁剪到有效范围", Priority: 10, Enabled: false},
		},
	})

	verdict := i.ApplyRules("Tap", entities.ActionParams{"element": []float64{2000, 2000}}, entities.ExecutionContext{})

	if verdict.Kind != VerdictContinue {
		t.Errorf("disabled rule must not fire, got %s", verdict.Kind)
	}
}

func TestApplyRulesModifiedChain(t *testing.T) {
	// Wait无时长 → default_wait补1秒；后续规则看到的是修改后的参数
	i := newTestInterceptor(map[string][]*entities.Rule{
		"Wait": {
			{ID: "wait_001", Condition: "未指定时长", Action: "默认等待1秒", Priority: 10, Enabled: true},
		},
	})

	verdict := i.ApplyRules("Wait", entities.ActionParams{}, entities.ExecutionContext{})

	if verdict.Kind != VerdictModified {
		t.Fatalf("expected modified, got %s", verdict.Kind)
	}
	if verdict.Params["duration"] != "1 seconds" {
		t.Errorf("expected default duration, got %v", verdict.Params["duration"])
	}
}

func TestApplyRulesCustomConditionAndAction(t *testing.T) {
	reg := NewRegistry()
	i := NewInterceptor(reg, staticSource(map[string][]*entities.Rule{
		"Type": {
			{
				ID:            "custom_block",
				Condition:     "文本包含敏感词",
				Action:        "阻止输入",
				Priority:      10,
				Enabled:       true,
				ConditionCode: `Text("text") contains "password"`,
				ActionCode:    `Abort("sensitive text blocked")`,
			},
		},
	}))

	verdict := i.ApplyRules("Type", entities.ActionParams{"text": "my password is 123"}, entities.ExecutionContext{})
	if verdict.Kind != VerdictAbort {
		t.Fatalf("expected abort from custom rule, got %s", verdict.Kind)
	}

	verdict = i.ApplyRules("Type", entities.ActionParams{"text": "hello"}, entities.ExecutionContext{})
	if verdict.Kind != VerdictContinue {
		t.Errorf("expected continue for normal text, got %s", verdict.Kind)
	}
}

func TestApplyRulesCustomActionModifies(t *testing.T) {
	i := newTestInterceptor(map[string][]*entities.Rule{
		"Wait": {
			{
				ID:            "custom_wait",
				Condition:     "未指定时长",
				Action:        "使用自定义默认值",
				Priority:      10,
				Enabled:       true,
				ConditionCode: `!HasParam("duration")`,
				ActionCode:    `Modified(Merge(Params, {"duration": "2 seconds"}), "custom default")`,
			},
		},
	})

	verdict := i.ApplyRules("Wait", entities.ActionParams{}, entities.ExecutionContext{})
	if verdict.Kind != VerdictModified {
		t.Fatalf("expected modified, got %s", verdict.Kind)
	}
	if verdict.Params["duration"] != "2 seconds" {
		t.Errorf("expected custom duration, got %v", verdict.Params["duration"])
	}
}

func TestApplyRulesFaultIsolation(t *testing.T) {
	// 第一条规则的条件在运行时返回非布尔值，只应跳过该规则
	i := newTestInterceptor(map[string][]*entities.Rule{
		"Tap": {
			{
				ID:            "broken",
				Condition:     "无效条件",
				Action:        "自动裁剪",
				Priority:      20,
				Enabled:       true,
				ConditionCode: `Params.flag`,
			},
			{ID: "tap_001", Condition: "坐标超出屏幕范围", Action: "自动裁剪到有效范围", Priority: 10, Enabled: true},
		},
	})

	params := entities.ActionParams{"element": []float64{1200, 500}, "flag": "not a bool"}
	verdict := i.ApplyRules("Tap", params, entities.ExecutionContext{})

	if verdict.Kind != VerdictModified {
		t.Fatalf("healthy rule should still fire after broken rule, got %s", verdict.Kind)
	}
	x, _, _ := coordPair(verdict.Params["element"])
	if x != 1000 {
		t.Errorf("expected clipped x=1000, got %v", x)
	}
}

func TestApplyRulesEqualPriorityKeepsCatalogOrder(t *testing.T) {
	// 同优先级时先出现的规则先裁决
	i := newTestInterceptor(map[string][]*entities.Rule{
		"Launch": {
			{ID: "first", Condition: "应用未安装", Action: "跳过", Priority: 5, Enabled: true},
			{ID: "second", Condition: "应用未安装", Action: "返回错误提示", Priority: 5, Enabled: true},
		},
	})

	ctx := entities.ExecutionContext{"app_packages": map[string]string{}}
	verdict := i.ApplyRules("Launch", entities.ActionParams{"app": "unknown"}, ctx)

	if verdict.Kind != VerdictSkip {
		t.Errorf("expected first rule (skip) to win at equal priority, got %s", verdict.Kind)
	}
}
