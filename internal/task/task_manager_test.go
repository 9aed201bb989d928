package task

import (
	"context"
	"errors"
	"testing"
)

func TestTaskManager_DisabledCatalogSync(t *testing.T) {
	tm := NewTaskManager(&TaskManagerDeps{}, &TaskManagerConfig{CatalogEnabled: false})

	if _, err := tm.TriggerCatalogSync(context.Background(), "full"); !errors.Is(err, ErrTaskDisabled) {
		t.Errorf("禁用时触发应返回 ErrTaskDisabled, got %v", err)
	}
	if _, _, err := tm.TriggerCategorySync(context.Background()); !errors.Is(err, ErrTaskDisabled) {
		t.Errorf("禁用时触发分类同步应返回 ErrTaskDisabled, got %v", err)
	}

	status := tm.Status()
	if status["catalog"] {
		t.Error("禁用时状态应为 false")
	}

	// 空任务的启停不应崩溃
	tm.Start()
	tm.Stop()
}

func TestTaskManager_NilDepsKeepsTaskDisabled(t *testing.T) {
	// 开关打开但依赖缺失，任务同样不注册
	tm := NewTaskManager(&TaskManagerDeps{}, &TaskManagerConfig{CatalogEnabled: true})

	if tm.Status()["catalog"] {
		t.Error("依赖缺失时任务不应注册")
	}
}

func TestTaskManager_DefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if !cfg.CatalogEnabled {
		t.Error("默认配置应启用目录同步")
	}
}
