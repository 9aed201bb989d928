package task

import (
	"context"
	"log"

	"erp_portal_v1_202608/internal/service"
)

// ==================== TaskManager 同步任务管理器 ====================

// TaskManager 统一管理后台同步任务
// 当前只有目录同步一条流；图片补全任务由独立进程维护，不在这里注册
type TaskManager struct {
	catalogTask *CatalogSyncTask
}

// TaskManagerDeps 任务管理器依赖
type TaskManagerDeps struct {
	CatalogSync *service.CatalogSyncService
}

// TaskManagerConfig 任务管理器配置
type TaskManagerConfig struct {
	CatalogEnabled bool
}

// DefaultConfig 默认配置
func DefaultConfig() *TaskManagerConfig {
	return &TaskManagerConfig{
		CatalogEnabled: true,
	}
}

// NewTaskManager 创建任务管理器
func NewTaskManager(deps *TaskManagerDeps, cfg *TaskManagerConfig) *TaskManager {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	tm := &TaskManager{}

	if cfg.CatalogEnabled && deps.CatalogSync != nil {
		tm.catalogTask = NewCatalogSyncTask(deps.CatalogSync)
	}

	return tm
}

// ==================== 生命周期管理 ====================

// Start 启动所有任务
func (tm *TaskManager) Start() {
	log.Println("[TaskManager] 正在启动同步任务...")

	if tm.catalogTask != nil {
		tm.catalogTask.Start()
	}

	log.Println("[TaskManager] 同步任务已启动")
}

// Stop 停止所有任务
func (tm *TaskManager) Stop() {
	log.Println("[TaskManager] 正在停止同步任务...")

	if tm.catalogTask != nil {
		tm.catalogTask.Stop()
	}

	log.Println("[TaskManager] 同步任务已停止")
}

// ==================== 手动触发接口 ====================

// TriggerCatalogSync 触发一轮目录同步
func (tm *TaskManager) TriggerCatalogSync(ctx context.Context, mode string) (*service.SyncSummary, error) {
	if tm.catalogTask == nil {
		return nil, ErrTaskDisabled
	}
	return tm.catalogTask.SyncNow(ctx, mode)
}

// TriggerCategorySync 只触发分类树同步
func (tm *TaskManager) TriggerCategorySync(ctx context.Context) (inserted, updated int, err error) {
	if tm.catalogTask == nil {
		return 0, 0, ErrTaskDisabled
	}
	return tm.catalogTask.SyncCategoriesNow(ctx)
}

// ==================== 状态查询 ====================

// Status 获取任务状态
func (tm *TaskManager) Status() map[string]bool {
	return map[string]bool{
		"catalog": tm.catalogTask != nil,
	}
}

// ==================== 错误定义 ====================

type TaskError string

func (e TaskError) Error() string { return string(e) }

const (
	ErrTaskDisabled TaskError = "task is disabled"
)
