package repository

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/easayliu/phone-task-orchestrator/internal/domain/entities"
)

// RuleRepository 动作类型目录存储，JSON文件持久化。
// 目录为空时由调用方写入内置默认目录。
type RuleRepository struct {
	filePath string
	mu       sync.RWMutex
	// 有序切片而非map：目录顺序影响同优先级规则的处理顺序
	actionTypes []*entities.ActionType
}

func NewRuleRepository(dataDir string) (*RuleRepository, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	repo := &RuleRepository{
		filePath: filepath.Join(dataDir, "action_rules.json"),
	}

	if err := repo.load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load action rules: %w", err)
	}

	return repo, nil
}

func (r *RuleRepository) load() error {
	data, err := os.ReadFile(r.filePath)
	if err != nil {
		return err
	}

	var actionTypes []*entities.ActionType
	if err := json.Unmarshal(data, &actionTypes); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.actionTypes = actionTypes
	return nil
}

func (r *RuleRepository) saveUnlocked() error {
	data, err := json.MarshalIndent(r.actionTypes, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(r.filePath, data, 0644)
}

// IsEmpty 目录是否为空（首次启动）
func (r *RuleRepository) IsEmpty() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.actionTypes) == 0
}

// Seed 写入初始目录，仅在目录为空时生效
func (r *RuleRepository) Seed(actionTypes []*entities.ActionType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.actionTypes) > 0 {
		return nil
	}
	r.actionTypes = actionTypes
	return r.saveUnlocked()
}

// GetAll 返回全部动作类型，保持目录顺序
func (r *RuleRepository) GetAll() ([]*entities.ActionType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*entities.ActionType, len(r.actionTypes))
	copy(out, r.actionTypes)
	return out, nil
}

// GetByName 按名称获取动作类型
func (r *RuleRepository) GetByName(name string) (*entities.ActionType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, at := range r.actionTypes {
		if at.Name == name {
			return at, nil
		}
	}
	return nil, fmt.Errorf("action type not found: %s", name)
}

// Create 追加新的动作类型
func (r *RuleRepository) Create(actionType *entities.ActionType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, at := range r.actionTypes {
		if at.Name == actionType.Name {
			return fmt.Errorf("action type already exists: %s", actionType.Name)
		}
	}
	r.actionTypes = append(r.actionTypes, actionType)
	return r.saveUnlocked()
}

// Update 替换指定名称的动作类型
func (r *RuleRepository) Update(actionType *entities.ActionType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, at := range r.actionTypes {
		if at.Name == actionType.Name {
			r.actionTypes[i] = actionType
			return r.saveUnlocked()
		}
	}
	return fmt.Errorf("action type not found: %s", actionType.Name)
}

// Delete 删除动作类型，内置类型不可删除
func (r *RuleRepository) Delete(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, at := range r.actionTypes {
		if at.Name == name {
			if !at.IsCustom {
				return fmt.Errorf("builtin action type cannot be deleted: %s", name)
			}
			r.actionTypes = append(r.actionTypes[:i], r.actionTypes[i+1:]...)
			return r.saveUnlocked()
		}
	}
	return fmt.Errorf("action type not found: %s", name)
}

// RulesForAction 返回指定动作类型的规则列表，保持目录顺序
func (r *RuleRepository) RulesForAction(actionType string) []*entities.Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, at := range r.actionTypes {
		if at.Name == actionType {
			out := make([]*entities.Rule, len(at.Rules))
			copy(out, at.Rules)
			return out
		}
	}
	return nil
}
