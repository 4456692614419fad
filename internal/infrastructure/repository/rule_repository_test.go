package repository

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/easayliu/phone-task-orchestrator/internal/domain/entities"
)

func seedTypes() []*entities.ActionType {
	return []*entities.ActionType{
		{
			Name: "Tap",
			Rules: []*entities.Rule{
				{ID: "tap_oob", Condition: "坐标超出屏幕范围", Action: "自动裁剪到有效范围", Priority: 10, Enabled: true},
			},
		},
		{Name: "Swipe"},
	}
}

func TestRuleRepositorySeedOnlyWhenEmpty(t *testing.T) {
	dir := t.TempDir()
	repo, err := NewRuleRepository(dir)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if !repo.IsEmpty() {
		t.Fatal("fresh repository should be empty")
	}

	if err := repo.Seed(seedTypes()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if repo.IsEmpty() {
		t.Fatal("seeded repository should not be empty")
	}

	// 再次Seed不应覆盖
	if err := repo.Seed([]*entities.ActionType{{Name: "Other"}}); err != nil {
		t.Fatalf("seed twice: %v", err)
	}
	if _, err := repo.GetByName("Tap"); err != nil {
		t.Error("second seed must not replace existing catalog")
	}
}

func TestRuleRepositoryPersistsAcrossReload(t *testing.T) {
	dir := t.TempDir()
	repo, err := NewRuleRepository(dir)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := repo.Seed(seedTypes()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	reloaded, err := NewRuleRepository(dir)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	all, _ := reloaded.GetAll()
	if len(all) != 2 || all[0].Name != "Tap" || all[1].Name != "Swipe" {
		t.Errorf("catalog order must survive reload, got %+v", all)
	}
	rules := reloaded.RulesForAction("Tap")
	if len(rules) != 1 || rules[0].ID != "tap_oob" {
		t.Errorf("rules must survive reload, got %+v", rules)
	}
}

func TestRuleRepositoryBuiltinUndeletable(t *testing.T) {
	repo, err := NewRuleRepository(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := repo.Seed(seedTypes()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := repo.Delete("Tap"); err == nil {
		t.Error("builtin action type must not be deletable")
	}

	custom := &entities.ActionType{Name: "Custom_Op", IsCustom: true}
	if err := repo.Create(custom); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.Create(custom); err == nil {
		t.Error("duplicate name must be rejected")
	}
	if err := repo.Delete("Custom_Op"); err != nil {
		t.Errorf("custom action type should be deletable: %v", err)
	}
}

func TestRuleRepositoryRulesForUnknownAction(t *testing.T) {
	repo, err := NewRuleRepository(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if rules := repo.RulesForAction("Nope"); rules != nil {
		t.Errorf("unknown action should have no rules, got %+v", rules)
	}
}

func TestRuleRepositoryFileLocation(t *testing.T) {
	dir := t.TempDir()
	repo, err := NewRuleRepository(dir)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := repo.Seed(seedTypes()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "action_rules.json")); err != nil {
		t.Errorf("catalog file missing: %v", err)
	}
}
