package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"erp_portal_v1_202608/internal/model"
	"erp_portal_v1_202608/internal/repository"
	"erp_portal_v1_202608/internal/service"
	"erp_portal_v1_202608/internal/task"
)

// SyncController 同步控制器
type SyncController struct {
	taskManager *task.TaskManager
	cursorRepo  repository.SyncCursorRepository
}

// NewSyncController 创建同步控制器
func NewSyncController(taskManager *task.TaskManager, cursorRepo repository.SyncCursorRepository) *SyncController {
	return &SyncController{taskManager: taskManager, cursorRepo: cursorRepo}
}

// ==================== Handler 实现 ====================

// SyncFull 全量同步
// @Summary 手动触发全量目录同步
// @Tags Sync
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{} "已有同步在运行"
// @Router /api/sync/full [post]
func (c *SyncController) SyncFull(ctx *gin.Context) {
	c.triggerSync(ctx, model.SyncModeFull)
}

// SyncDelta 增量同步
// @Summary 手动触发增量目录同步
// @Tags Sync
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{} "已有同步在运行"
// @Router /api/sync/delta [post]
func (c *SyncController) SyncDelta(ctx *gin.Context) {
	c.triggerSync(ctx, model.SyncModeDelta)
}

func (c *SyncController) triggerSync(ctx *gin.Context, mode string) {
	summary, err := c.taskManager.TriggerCatalogSync(ctx.Request.Context(), mode)
	if err != nil {
		if errors.Is(err, service.ErrSyncInProgress) {
			ctx.JSON(http.StatusConflict, gin.H{"code": 409, "message": "已有同步在运行"})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "同步完成",
		"data":    summary,
	})
}

// SyncCategories 只同步分类树
// @Summary 手动触发分类树同步
// @Tags Sync
// @Success 200 {object} map[string]interface{}
// @Router /api/sync/categories [post]
func (c *SyncController) SyncCategories(ctx *gin.Context) {
	inserted, updated, err := c.taskManager.TriggerCategorySync(ctx.Request.Context())
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "分类同步完成",
		"data":    gin.H{"inserted": inserted, "updated": updated},
	})
}

// Status 同步状态
// @Summary 查询同步游标与任务状态
// @Tags Sync
// @Success 200 {object} map[string]interface{}
// @Router /api/sync/status [get]
func (c *SyncController) Status(ctx *gin.Context) {
	data := gin.H{"tasks": c.taskManager.Status()}

	cursor, err := c.cursorRepo.Get(ctx.Request.Context(), model.SyncStreamProducts)
	switch {
	case err == nil:
		data["last_successful_sync_at"] = cursor.LastSuccessfulSyncAt
		data["last_sync_mode"] = cursor.LastSyncMode
		data["sync_running"] = cursor.LockToken != ""
	case errors.Is(err, gorm.ErrRecordNotFound):
		data["last_successful_sync_at"] = nil
	default:
		ctx.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"code": 200, "data": data})
}
