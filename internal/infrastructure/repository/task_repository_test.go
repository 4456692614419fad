package repository

import (
	"testing"
	"time"

	"github.com/easayliu/phone-task-orchestrator/internal/domain/entities"
)

func newTaskRepo(t *testing.T) (*TaskRepository, string) {
	t.Helper()
	dir := t.TempDir()
	repo, err := NewTaskRepository(dir)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	return repo, dir
}

func TestTaskRepositoryCRUD(t *testing.T) {
	repo, _ := newTaskRepo(t)

	task := &entities.ScheduledTask{
		Name:        "nightly",
		TaskContent: `do(action="Home")`,
		Kind:        entities.ScheduleDaily,
		DailyTime:   "23:00",
		Enabled:     true,
	}
	if err := repo.Create(task); err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.ID == "" {
		t.Fatal("create must assign an ID")
	}

	got, err := repo.GetByID(task.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "nightly" {
		t.Errorf("unexpected task: %+v", got)
	}

	got.Name = "nightly-v2"
	if err := repo.Update(got); err != nil {
		t.Fatalf("update: %v", err)
	}

	if err := repo.Delete(task.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetByID(task.ID); err == nil {
		t.Error("deleted task must not be retrievable")
	}
}

func TestTaskRepositoryPersistsAcrossReload(t *testing.T) {
	repo, dir := newTaskRepo(t)

	task := &entities.ScheduledTask{
		Name:            "persisted",
		TaskContent:     `do(action="Home")`,
		Kind:            entities.ScheduleInterval,
		IntervalMinutes: 15,
		Enabled:         true,
	}
	if err := repo.Create(task); err != nil {
		t.Fatalf("create: %v", err)
	}

	reloaded, err := NewTaskRepository(dir)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	got, err := reloaded.GetByID(task.ID)
	if err != nil {
		t.Fatalf("get after reload: %v", err)
	}
	if got.Name != "persisted" || got.IntervalMinutes != 15 {
		t.Errorf("task not persisted correctly: %+v", got)
	}
}

func TestTaskRepositoryGetEnabled(t *testing.T) {
	repo, _ := newTaskRepo(t)

	for _, enabled := range []bool{true, false, true} {
		task := &entities.ScheduledTask{
			Name:            "t",
			TaskContent:     `do(action="Home")`,
			Kind:            entities.ScheduleInterval,
			IntervalMinutes: 10,
			Enabled:         enabled,
		}
		if err := repo.Create(task); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	enabled, err := repo.GetEnabled()
	if err != nil {
		t.Fatalf("get enabled: %v", err)
	}
	if len(enabled) != 2 {
		t.Errorf("expected 2 enabled tasks, got %d", len(enabled))
	}
}

func TestTaskRepositoryMarkDispatched(t *testing.T) {
	repo, _ := newTaskRepo(t)

	task := &entities.ScheduledTask{
		Name:            "interval",
		TaskContent:     `do(action="Home")`,
		Kind:            entities.ScheduleInterval,
		IntervalMinutes: 10,
		Enabled:         true,
	}
	if err := repo.Create(task); err != nil {
		t.Fatalf("create: %v", err)
	}

	run := time.Date(2025, 3, 10, 9, 0, 0, 0, time.Local)
	next := run.Add(10 * time.Minute)
	if err := repo.MarkDispatched(task.ID, run, &next); err != nil {
		t.Fatalf("mark: %v", err)
	}

	got, _ := repo.GetByID(task.ID)
	if got.RunCount != 1 || got.LastRun == nil || !got.LastRun.Equal(run) {
		t.Errorf("dispatch bookkeeping wrong: count=%d last=%v", got.RunCount, got.LastRun)
	}
	if !got.Enabled {
		t.Error("task with next run must stay enabled")
	}

	// 无下次运行 → 自动禁用
	if err := repo.MarkDispatched(task.ID, run, nil); err != nil {
		t.Fatalf("mark nil: %v", err)
	}
	got, _ = repo.GetByID(task.ID)
	if got.Enabled {
		t.Error("task without next run must be disabled")
	}
	if got.NextRun != nil {
		t.Errorf("next run should be cleared, got %v", got.NextRun)
	}
	if got.RunCount != 2 {
		t.Errorf("expected run_count 2, got %d", got.RunCount)
	}
}
