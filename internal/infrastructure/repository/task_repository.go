package repository

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/easayliu/phone-task-orchestrator/internal/domain/entities"
)

// TaskRepository 定时任务存储，JSON文件持久化
type TaskRepository struct {
	filePath string
	mu       sync.RWMutex
	tasks    map[string]*entities.ScheduledTask
}

func NewTaskRepository(dataDir string) (*TaskRepository, error) {
	// 确保数据目录存在
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	repo := &TaskRepository{
		filePath: filepath.Join(dataDir, "scheduled_tasks.json"),
		tasks:    make(map[string]*entities.ScheduledTask),
	}

	// 加载已存在的任务
	if err := repo.load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}

	return repo, nil
}

// load 从文件加载任务
func (r *TaskRepository) load() error {
	data, err := os.ReadFile(r.filePath)
	if err != nil {
		return err
	}

	var tasks []*entities.ScheduledTask
	if err := json.Unmarshal(data, &tasks); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.tasks = make(map[string]*entities.ScheduledTask)
	for _, task := range tasks {
		r.tasks[task.ID] = task
	}

	return nil
}

// saveUnlocked 保存任务到文件（调用时必须已经持有锁）
func (r *TaskRepository) saveUnlocked() error {
	tasks := make([]*entities.ScheduledTask, 0, len(r.tasks))
	for _, task := range r.tasks {
		tasks = append(tasks, task)
	}

	data, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(r.filePath, data, 0644)
}

// Create 创建新任务
func (r *TaskRepository) Create(task *entities.ScheduledTask) error {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	task.CreatedAt = time.Now()
	task.UpdatedAt = time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[task.ID] = task
	return r.saveUnlocked()
}

// Update 更新任务
func (r *TaskRepository) Update(task *entities.ScheduledTask) error {
	task.UpdatedAt = time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tasks[task.ID]; !exists {
		return fmt.Errorf("task not found: %s", task.ID)
	}
	r.tasks[task.ID] = task
	return r.saveUnlocked()
}

// Delete 删除任务
func (r *TaskRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tasks, id)
	return r.saveUnlocked()
}

// GetByID 根据ID获取任务
func (r *TaskRepository) GetByID(id string) (*entities.ScheduledTask, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	task, exists := r.tasks[id]
	if !exists {
		return nil, fmt.Errorf("task not found: %s", id)
	}

	return task, nil
}

// GetAll 获取所有任务
func (r *TaskRepository) GetAll() ([]*entities.ScheduledTask, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tasks := make([]*entities.ScheduledTask, 0, len(r.tasks))
	for _, task := range r.tasks {
		tasks = append(tasks, task)
	}

	return tasks, nil
}

// GetEnabled 获取所有启用的任务
func (r *TaskRepository) GetEnabled() ([]*entities.ScheduledTask, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tasks := make([]*entities.ScheduledTask, 0)
	for _, task := range r.tasks {
		if task.Enabled {
			tasks = append(tasks, task)
		}
	}

	return tasks, nil
}

// MarkDispatched 记录一次调度触发：更新运行计数与时间字段。
// nextRun为nil表示不再有下次运行（once任务自动禁用）。
func (r *TaskRepository) MarkDispatched(id string, runTime time.Time, nextRun *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, exists := r.tasks[id]
	if !exists {
		return fmt.Errorf("task not found: %s", id)
	}

	t := runTime
	task.LastRun = &t
	task.RunCount++
	task.NextRun = nextRun
	if nextRun == nil {
		task.Enabled = false
	}
	task.UpdatedAt = time.Now()

	return r.saveUnlocked()
}
