package rule

import (
	"context"
	"fmt"

	"github.com/expr-lang/expr/vm"
	"github.com/google/uuid"

	"github.com/easayliu/phone-task-orchestrator/internal/application/contracts"
	"github.com/easayliu/phone-task-orchestrator/internal/domain/entities"
	"github.com/easayliu/phone-task-orchestrator/internal/infrastructure/repository"
	"github.com/easayliu/phone-task-orchestrator/internal/shared/errors"
	"github.com/easayliu/phone-task-orchestrator/pkg/logger"
)

// CatalogService 动作类型目录服务，实现contracts.RuleService
type CatalogService struct {
	repo        *repository.RuleRepository
	registry    *Registry
	interceptor *Interceptor
}

func NewCatalogService(repo *repository.RuleRepository) (*CatalogService, error) {
	registry := NewRegistry()

	// 首次启动写入内置目录
	if repo.IsEmpty() {
		if err := repo.Seed(DefaultActionTypes()); err != nil {
			return nil, fmt.Errorf("failed to seed default action types: %w", err)
		}
		logger.Info("seeded default action type catalog")
	}

	svc := &CatalogService{
		repo:        repo,
		registry:    registry,
		interceptor: NewInterceptor(registry, repo),
	}
	return svc, nil
}

// Interceptor 返回目录绑定的拦截器，供执行器注入
func (s *CatalogService) Interceptor() *Interceptor {
	return s.interceptor
}

func (s *CatalogService) ListActionTypes(ctx context.Context) ([]*entities.ActionType, error) {
	return s.repo.GetAll()
}

func (s *CatalogService) GetActionType(ctx context.Context, name string) (*entities.ActionType, error) {
	at, err := s.repo.GetByName(name)
	if err != nil {
		return nil, errors.NewServiceError(errors.ErrorCodeNotFound, err.Error())
	}
	return at, nil
}

func (s *CatalogService) CreateActionType(ctx context.Context, req contracts.ActionTypeRequest) (*entities.ActionType, error) {
	if req.Name == "" {
		return nil, errors.NewServiceError(errors.ErrorCodeInvalidRequest, "action type name is required")
	}
	at := &entities.ActionType{
		Name:        req.Name,
		Description: req.Description,
		Parameters:  req.Parameters,
		Example:     req.Example,
		AdbCommand:  req.AdbCommand,
		Rules:       []*entities.Rule{},
		IsCustom:    true,
	}
	if err := s.repo.Create(at); err != nil {
		return nil, errors.NewServiceError(errors.ErrorCodeConflict, err.Error())
	}
	logger.Info("action type created", "name", at.Name)
	return at, nil
}

func (s *CatalogService) DeleteActionType(ctx context.Context, name string) error {
	at, err := s.repo.GetByName(name)
	if err != nil {
		return errors.NewServiceError(errors.ErrorCodeNotFound, err.Error())
	}
	// 注销该类型下所有规则的自定义代码
	for _, r := range at.Rules {
		s.registry.UnregisterCustom(r.ID)
	}
	if err := s.repo.Delete(name); err != nil {
		return errors.NewServiceError(errors.ErrorCodeInvalidRequest, err.Error())
	}
	logger.Info("action type deleted", "name", name)
	return nil
}

func (s *CatalogService) AddRule(ctx context.Context, actionType string, req contracts.RuleRequest) (*entities.Rule, error) {
	at, err := s.repo.GetByName(actionType)
	if err != nil {
		return nil, errors.NewServiceError(errors.ErrorCodeNotFound, err.Error())
	}

	r := &entities.Rule{
		ID:            uuid.New().String(),
		Condition:     req.Condition,
		Action:        req.Action,
		Priority:      req.Priority,
		Enabled:       req.Enabled,
		ConditionKey:  req.ConditionKey,
		ActionKey:     req.ActionKey,
		ConditionCode: req.ConditionCode,
		ActionCode:    req.ActionCode,
	}
	if err := s.validateCustomCode(r); err != nil {
		return nil, err
	}

	at.Rules = append(at.Rules, r)
	if err := s.repo.Update(at); err != nil {
		return nil, errors.NewServiceError(errors.ErrorCodeInternalError, err.Error())
	}
	logger.Info("rule added", "action_type", actionType, "rule_id", r.ID)
	return r, nil
}

func (s *CatalogService) UpdateRule(ctx context.Context, actionType, ruleID string, req contracts.RuleRequest) (*entities.Rule, error) {
	at, err := s.repo.GetByName(actionType)
	if err != nil {
		return nil, errors.NewServiceError(errors.ErrorCodeNotFound, err.Error())
	}

	for _, r := range at.Rules {
		if r.ID != ruleID {
			continue
		}
		updated := &entities.Rule{
			ID:            r.ID,
			Condition:     req.Condition,
			Action:        req.Action,
			Priority:      req.Priority,
			Enabled:       req.Enabled,
			ConditionKey:  req.ConditionKey,
			ActionKey:     req.ActionKey,
			ConditionCode: req.ConditionCode,
			ActionCode:    req.ActionCode,
		}
		if err := s.validateCustomCode(updated); err != nil {
			return nil, err
		}
		// 旧的自定义代码失效，下次应用时懒注册新代码
		s.registry.UnregisterCustom(r.ID)
		*r = *updated
		if err := s.repo.Update(at); err != nil {
			return nil, errors.NewServiceError(errors.ErrorCodeInternalError, err.Error())
		}
		return r, nil
	}
	return nil, errors.NewServiceError(errors.ErrorCodeNotFound, "rule not found: "+ruleID)
}

func (s *CatalogService) DeleteRule(ctx context.Context, actionType, ruleID string) error {
	at, err := s.repo.GetByName(actionType)
	if err != nil {
		return errors.NewServiceError(errors.ErrorCodeNotFound, err.Error())
	}

	for i, r := range at.Rules {
		if r.ID == ruleID {
			s.registry.UnregisterCustom(r.ID)
			at.Rules = append(at.Rules[:i], at.Rules[i+1:]...)
			if err := s.repo.Update(at); err != nil {
				return errors.NewServiceError(errors.ErrorCodeInternalError, err.Error())
			}
			logger.Info("rule deleted", "action_type", actionType, "rule_id", ruleID)
			return nil
		}
	}
	return errors.NewServiceError(errors.ErrorCodeNotFound, "rule not found: "+ruleID)
}

func (s *CatalogService) SetRuleEnabled(ctx context.Context, actionType, ruleID string, enabled bool) error {
	at, err := s.repo.GetByName(actionType)
	if err != nil {
		return errors.NewServiceError(errors.ErrorCodeNotFound, err.Error())
	}

	for _, r := range at.Rules {
		if r.ID == ruleID {
			r.Enabled = enabled
			if err := s.repo.Update(at); err != nil {
				return errors.NewServiceError(errors.ErrorCodeInternalError, err.Error())
			}
			return nil
		}
	}
	return errors.NewServiceError(errors.ErrorCodeNotFound, "rule not found: "+ruleID)
}

// SubmitCustomCode 提交自定义表达式。条件和动作全部编译通过后才注册
// 并持久化；任一编译失败返回VALIDATION_ERROR且不改变任何状态。
func (s *CatalogService) SubmitCustomCode(ctx context.Context, actionType string, req contracts.CustomCodeRequest) error {
	at, err := s.repo.GetByName(actionType)
	if err != nil {
		return errors.NewServiceError(errors.ErrorCodeNotFound, err.Error())
	}

	for _, r := range at.Rules {
		if r.ID != req.RuleID {
			continue
		}

		var condProg, actionProg *vm.Program
		if req.ConditionCode != "" {
			if condProg, err = CompileCondition(req.ConditionCode); err != nil {
				return err
			}
		}
		if req.ActionCode != "" {
			if actionProg, err = CompileAction(req.ActionCode); err != nil {
				return err
			}
		}

		prevCond, prevAction := r.ConditionCode, r.ActionCode
		if req.ConditionCode != "" {
			r.ConditionCode = req.ConditionCode
		}
		if req.ActionCode != "" {
			r.ActionCode = req.ActionCode
		}
		if err := s.repo.Update(at); err != nil {
			r.ConditionCode, r.ActionCode = prevCond, prevAction
			return errors.NewServiceError(errors.ErrorCodeInternalError, err.Error())
		}
		s.registry.RegisterCompiled(r.ID, condProg, actionProg)
		logger.Info("custom rule code registered", "action_type", actionType, "rule_id", r.ID)
		return nil
	}
	return errors.NewServiceError(errors.ErrorCodeNotFound, "rule not found: "+req.RuleID)
}

func (s *CatalogService) RemoveCustomCode(ctx context.Context, actionType, ruleID string) error {
	at, err := s.repo.GetByName(actionType)
	if err != nil {
		return errors.NewServiceError(errors.ErrorCodeNotFound, err.Error())
	}

	for _, r := range at.Rules {
		if r.ID == ruleID {
			s.registry.UnregisterCustom(ruleID)
			r.ConditionCode = ""
			r.ActionCode = ""
			if err := s.repo.Update(at); err != nil {
				return errors.NewServiceError(errors.ErrorCodeInternalError, err.Error())
			}
			return nil
		}
	}
	return errors.NewServiceError(errors.ErrorCodeNotFound, "rule not found: "+ruleID)
}

// Apply 规则试运行，不触达设备
func (s *CatalogService) Apply(ctx context.Context, req contracts.ApplyRequest) (*contracts.ApplyResponse, error) {
	if req.ActionType == "" {
		return nil, errors.NewServiceError(errors.ErrorCodeInvalidRequest, "action_type is required")
	}
	execCtx := req.Context
	if execCtx == nil {
		execCtx = entities.ExecutionContext{}
	}
	verdict := s.interceptor.ApplyRules(req.ActionType, req.Params, execCtx)
	return &contracts.ApplyResponse{
		Verdict: string(verdict.Kind),
		Params:  verdict.Params,
		Reason:  verdict.Message,
	}, nil
}

// validateCustomCode 创建/更新规则时校验携带的自定义代码。
// 只编译不注册，实际注册由应用时的EnsureCustom懒执行。
func (s *CatalogService) validateCustomCode(r *entities.Rule) error {
	if r.ConditionCode != "" {
		if _, err := CompileCondition(r.ConditionCode); err != nil {
			return err
		}
	}
	if r.ActionCode != "" {
		if _, err := CompileAction(r.ActionCode); err != nil {
			return err
		}
	}
	return nil
}
