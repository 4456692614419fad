package rule

import (
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/easayliu/phone-task-orchestrator/internal/domain/entities"
	"github.com/easayliu/phone-task-orchestrator/internal/shared/errors"
	"github.com/easayliu/phone-task-orchestrator/pkg/logger"
)

// ConditionFunc 条件检查函数，返回true表示规则触发
type ConditionFunc func(params entities.ActionParams, ctx entities.ExecutionContext) bool

// ActionFunc 规则动作函数，返回裁决结果
type ActionFunc func(params entities.ActionParams, ctx entities.ExecutionContext, r *entities.Rule) Verdict

// Registry 条件与动作注册表。
// 内置项在构造时注册；自定义项以expr表达式提交，编译通过后以
// custom_<规则ID> / custom_action_<规则ID> 为键注册。
type Registry struct {
	mu         sync.RWMutex
	conditions map[string]ConditionFunc
	actions    map[string]ActionFunc

	customConditions map[string]*vm.Program
	customActions    map[string]*vm.Program
}

// NewRegistry 创建注册表并注册所有内置条件与动作
func NewRegistry() *Registry {
	r := &Registry{
		conditions:       make(map[string]ConditionFunc),
		actions:          make(map[string]ActionFunc),
		customConditions: make(map[string]*vm.Program),
		customActions:    make(map[string]*vm.Program),
	}
	registerBuiltinConditions(r)
	registerBuiltinActions(r)
	return r
}

func (r *Registry) registerCondition(key string, fn ConditionFunc) {
	r.conditions[key] = fn
}

func (r *Registry) registerAction(key string, fn ActionFunc) {
	r.actions[key] = fn
}

// CustomConditionKey 自定义条件的注册键
func CustomConditionKey(ruleID string) string { return "custom_" + ruleID }

// CustomActionKey 自定义动作的注册键
func CustomActionKey(ruleID string) string { return "custom_action_" + ruleID }

// CompileCondition 编译自定义条件表达式，不注册。
// 编译失败返回VALIDATION_ERROR。
func CompileCondition(src string) (*vm.Program, error) {
	program, err := expr.Compile(src, expr.Env(CondEnv{}), expr.AsBool())
	if err != nil {
		return nil, errors.NewServiceErrorWithCause(errors.ErrorCodeValidation,
			"condition expression failed to compile", err)
	}
	return program, nil
}

// CompileAction 编译自定义动作表达式，不注册。
// 运行时返回值必须是Verdict，非Verdict结果按规则失败处理。
func CompileAction(src string) (*vm.Program, error) {
	program, err := expr.Compile(src, expr.Env(ActionEnv{}))
	if err != nil {
		return nil, errors.NewServiceErrorWithCause(errors.ErrorCodeValidation,
			"action expression failed to compile", err)
	}
	return program, nil
}

// RegisterCustomCondition 编译并注册自定义条件表达式，失败时注册表不变
func (r *Registry) RegisterCustomCondition(ruleID string, src string) error {
	program, err := CompileCondition(src)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.customConditions[CustomConditionKey(ruleID)] = program
	return nil
}

// RegisterCustomAction 编译并注册自定义动作表达式，失败时注册表不变
func (r *Registry) RegisterCustomAction(ruleID string, src string) error {
	program, err := CompileAction(src)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.customActions[CustomActionKey(ruleID)] = program
	return nil
}

// RegisterCompiled 注册一条规则已编译好的条件与动作程序，nil跳过。
// 两个程序在同一临界区内落表，调用方先全部编译再注册即可保证原子性。
func (r *Registry) RegisterCompiled(ruleID string, condition, action *vm.Program) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if condition != nil {
		r.customConditions[CustomConditionKey(ruleID)] = condition
	}
	if action != nil {
		r.customActions[CustomActionKey(ruleID)] = action
	}
}

// UnregisterCustom 注销规则的自定义条件与动作
func (r *Registry) UnregisterCustom(ruleID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.customConditions, CustomConditionKey(ruleID))
	delete(r.customActions, CustomActionKey(ruleID))
}

// HasCondition 判断条件键是否已注册（内置或自定义）
func (r *Registry) HasCondition(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.conditions[key]; ok {
		return true
	}
	_, ok := r.customConditions[key]
	return ok
}

// HasAction 判断动作键是否已注册（内置或自定义）
func (r *Registry) HasAction(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.actions[key]; ok {
		return true
	}
	_, ok := r.customActions[key]
	return ok
}

// InvokeCondition 执行条件检查。自定义表达式在故障屏障内运行，
// 任何panic或求值错误都只影响当前规则。
func (r *Registry) InvokeCondition(key string, params entities.ActionParams, ctx entities.ExecutionContext) (met bool, err error) {
	r.mu.RLock()
	fn, builtin := r.conditions[key]
	program, custom := r.customConditions[key]
	r.mu.RUnlock()

	defer func() {
		if rec := recover(); rec != nil {
			met = false
			err = errors.NewServiceError(errors.ErrorCodeRuleExecution,
				fmt.Sprintf("condition %s panicked: %v", key, rec))
		}
	}()

	switch {
	case custom:
		out, runErr := vm.Run(program, CondEnv{Params: params, Context: ctx})
		if runErr != nil {
			return false, errors.NewServiceErrorWithCause(errors.ErrorCodeRuleExecution,
				"condition "+key+" failed", runErr)
		}
		b, ok := out.(bool)
		if !ok {
			return false, errors.NewServiceError(errors.ErrorCodeRuleExecution,
				"condition "+key+" did not return a boolean")
		}
		return b, nil
	case builtin:
		return fn(params, ctx), nil
	}
	return false, errors.NewServiceError(errors.ErrorCodeNotFound, "condition not registered: "+key)
}

// InvokeAction 执行规则动作，故障降级为Continue由调用方决定
func (r *Registry) InvokeAction(key string, params entities.ActionParams, ctx entities.ExecutionContext, rule *entities.Rule) (v Verdict, err error) {
	r.mu.RLock()
	fn, builtin := r.actions[key]
	program, custom := r.customActions[key]
	r.mu.RUnlock()

	defer func() {
		if rec := recover(); rec != nil {
			v = Continue()
			err = errors.NewServiceError(errors.ErrorCodeRuleExecution,
				fmt.Sprintf("action %s panicked: %v", key, rec))
		}
	}()

	switch {
	case custom:
		env := ActionEnv{
			CondEnv: CondEnv{Params: params, Context: ctx},
			Rule:    ruleAsMap(rule),
		}
		out, runErr := vm.Run(program, env)
		if runErr != nil {
			return Continue(), errors.NewServiceErrorWithCause(errors.ErrorCodeRuleExecution,
				"action "+key+" failed", runErr)
		}
		verdict, ok := out.(Verdict)
		if !ok {
			return Continue(), errors.NewServiceError(errors.ErrorCodeRuleExecution,
				"action "+key+" did not return a verdict")
		}
		return verdict, nil
	case builtin:
		return fn(params, ctx, rule), nil
	}
	return Continue(), errors.NewServiceError(errors.ErrorCodeNotFound, "action not registered: "+key)
}

// EnsureCustom 懒注册规则携带的自定义代码，已注册则跳过。
// 注册失败仅记录日志，规则回退到文本匹配路径。
func (r *Registry) EnsureCustom(rule *entities.Rule) {
	if rule.ConditionCode != "" && !r.HasCondition(CustomConditionKey(rule.ID)) {
		if err := r.RegisterCustomCondition(rule.ID, rule.ConditionCode); err != nil {
			logger.Warn("failed to register custom condition", "rule_id", rule.ID, "error", err)
		}
	}
	if rule.ActionCode != "" && !r.HasAction(CustomActionKey(rule.ID)) {
		if err := r.RegisterCustomAction(rule.ID, rule.ActionCode); err != nil {
			logger.Warn("failed to register custom action", "rule_id", rule.ID, "error", err)
		}
	}
}

func ruleAsMap(r *entities.Rule) map[string]any {
	if r == nil {
		return map[string]any{}
	}
	return map[string]any{
		"id":        r.ID,
		"condition": r.Condition,
		"action":    r.Action,
		"priority":  r.Priority,
		"enabled":   r.Enabled,
	}
}
