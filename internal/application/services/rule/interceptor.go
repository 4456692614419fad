package rule

import (
	"sort"

	"github.com/easayliu/phone-task-orchestrator/internal/domain/entities"
	"github.com/easayliu/phone-task-orchestrator/pkg/logger"
)

// RuleSource 提供动作类型当前生效的规则列表
type RuleSource interface {
	RulesForAction(actionType string) []*entities.Rule
}

// Interceptor 动作拦截器 - 在动作分发前依次应用该动作类型的规则。
// 调用方传入的参数不被修改，修改只发生在工作副本上。
type Interceptor struct {
	registry *Registry
	source   RuleSource
}

func NewInterceptor(registry *Registry, source RuleSource) *Interceptor {
	return &Interceptor{registry: registry, source: source}
}

// Registry 返回拦截器使用的注册表
func (i *Interceptor) Registry() *Registry {
	return i.registry
}

// ApplyRules 对动作应用规则并返回裁决。
// 规则按优先级降序处理，同优先级保持目录顺序；Skip/Abort立即短路，
// Modified替换工作副本后继续；单条规则的故障只跳过该规则。
// 所有规则处理完后，工作副本与原参数不同则返回Modified，否则Continue。
func (i *Interceptor) ApplyRules(actionType string, params entities.ActionParams, ctx entities.ExecutionContext) Verdict {
	rules := enabledByPriority(i.source.RulesForAction(actionType))
	if len(rules) == 0 {
		return Continue()
	}

	working := params.Clone()

	for _, r := range rules {
		i.registry.EnsureCustom(r)

		condKey := i.registry.ResolveConditionKey(actionType, r)
		if condKey == "" || !i.registry.HasCondition(condKey) {
			continue
		}

		met, err := i.registry.InvokeCondition(condKey, working, ctx)
		if err != nil {
			logger.Warn("rule condition failed", "rule_id", r.ID, "action_type", actionType, "error", err)
			continue
		}
		if !met {
			continue
		}
		logger.Info("rule condition met", "rule_id", r.ID, "condition", r.Condition)

		actionKey := i.registry.ResolveActionKey(actionType, r)
		if actionKey == "" || !i.registry.HasAction(actionKey) {
			continue
		}

		verdict, err := i.registry.InvokeAction(actionKey, working, ctx, r)
		if err != nil {
			logger.Warn("rule action failed", "rule_id", r.ID, "action_type", actionType, "error", err)
			continue
		}

		switch verdict.Kind {
		case VerdictSkip, VerdictAbort:
			return verdict
		case VerdictModified:
			if verdict.Params != nil {
				working = verdict.Params
			}
		}
	}

	if !working.Equal(params) {
		return Modified(working, "")
	}
	return Continue()
}

// enabledByPriority 过滤出启用规则并按优先级稳定降序排列
func enabledByPriority(rules []*entities.Rule) []*entities.Rule {
	out := make([]*entities.Rule, 0, len(rules))
	for _, r := range rules {
		if r != nil && r.Enabled {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Priority > out[b].Priority
	})
	return out
}
