package task

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"erp_portal_v1_202608/internal/model"
	"erp_portal_v1_202608/internal/service"
)

// ==================== CatalogSyncTask 目录同步任务 ====================

// CatalogSyncTask 目录同步定时任务
// 同步策略：
//   - 增量同步：每 3 小时
//   - 全量同步：每日凌晨 3 点
//
// 两者都全量重拉 (上游无变更流)，区别只在游标里的模式标记
type CatalogSyncTask struct {
	syncService *service.CatalogSyncService
	cron        *cron.Cron

	initialDelay time.Duration
	runTimeout   time.Duration
}

// NewCatalogSyncTask 创建目录同步任务
func NewCatalogSyncTask(syncService *service.CatalogSyncService) *CatalogSyncTask {
	return &CatalogSyncTask{
		syncService:  syncService,
		cron:         cron.New(cron.WithSeconds()),
		initialDelay: 30 * time.Second,
		runTimeout:   1 * time.Hour,
	}
}

// Start 启动定时任务
func (t *CatalogSyncTask) Start() {
	// 首次执行 (延迟一会，等服务完全就绪)
	go func() {
		time.Sleep(t.initialDelay)
		log.Println("[CatalogSyncTask] 执行首次目录同步...")
		t.run(model.SyncModeDelta)
	}()

	// 增量同步：每 3 小时
	_, _ = t.cron.AddFunc("0 0 */3 * * *", func() {
		t.run(model.SyncModeDelta)
	})

	// 全量同步：每日凌晨 3 点
	_, _ = t.cron.AddFunc("0 0 3 * * *", func() {
		log.Println("[CatalogSyncTask] 开始每日全量目录同步...")
		t.run(model.SyncModeFull)
	})

	t.cron.Start()
	log.Println("[CatalogSyncTask] 已启动 (增量每3小时/全量每日3点)")
}

// Stop 停止任务
func (t *CatalogSyncTask) Stop() {
	ctx := t.cron.Stop()
	<-ctx.Done()
	log.Println("[CatalogSyncTask] 已停止")
}

// run 定时入口：结果只记日志，租约冲突按跳过处理
func (t *CatalogSyncTask) run(mode string) {
	ctx, cancel := context.WithTimeout(context.Background(), t.runTimeout)
	defer cancel()

	summary, err := t.SyncNow(ctx, mode)
	if err != nil {
		if errors.Is(err, service.ErrSyncInProgress) {
			log.Println("[CatalogSyncTask] 已有同步在运行，本轮跳过")
			return
		}
		log.Printf("[CatalogSyncTask] 同步失败: %v", err)
		return
	}

	log.Printf("[CatalogSyncTask] 同步完成: 商品新增 %d / 更新 %d, 分类新增 %d / 更新 %d",
		summary.Products.Inserted, summary.Products.Updated,
		summary.Categories.Inserted, summary.Categories.Updated)
}

// ==================== 手动触发 ====================

// SyncNow 立即执行一轮同步 (手动触发共用)
func (t *CatalogSyncTask) SyncNow(ctx context.Context, mode string) (*service.SyncSummary, error) {
	if mode == model.SyncModeFull {
		return t.syncService.FullSync(ctx)
	}
	return t.syncService.DeltaSync(ctx)
}

// SyncCategoriesNow 只同步分类树
func (t *CatalogSyncTask) SyncCategoriesNow(ctx context.Context) (inserted, updated int, err error) {
	return t.syncService.SyncCategories(ctx)
}
