package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"erp_portal_v1_202608/internal/model"
)

// ==================== 接口定义 ====================

// SyncCursorRepository 同步游标仓储接口
// 游标按流名单行存储；运行租约字段与游标同表，减少一次建表
type SyncCursorRepository interface {
	Get(ctx context.Context, streamName string) (*model.SyncCursor, error)

	// Upsert 写入某条流的最近成功同步时间与模式 (不触碰租约字段)
	Upsert(ctx context.Context, streamName, mode string, syncedAt time.Time) error

	// AcquireLease 尝试为一次同步运行获取租约
	// 已有未过期租约时返回 false (调用方以"已有同步在跑"处理，不做静默双跑)
	AcquireLease(ctx context.Context, streamName, token string, ttl time.Duration) (bool, error)

	// ReleaseLease 释放租约，仅持有者 token 匹配时生效
	ReleaseLease(ctx context.Context, streamName, token string) error
}

// ==================== 仓储实现 ====================

type syncCursorRepo struct {
	db *gorm.DB
}

// NewSyncCursorRepository 创建同步游标仓储
func NewSyncCursorRepository(db *gorm.DB) SyncCursorRepository {
	return &syncCursorRepo{db: db}
}

func (r *syncCursorRepo) Get(ctx context.Context, streamName string) (*model.SyncCursor, error) {
	var cursor model.SyncCursor
	err := r.db.WithContext(ctx).
		Where("stream_name = ?", streamName).
		First(&cursor).Error
	if err != nil {
		return nil, err
	}
	return &cursor, nil
}

func (r *syncCursorRepo) Upsert(ctx context.Context, streamName, mode string, syncedAt time.Time) error {
	cursor := model.SyncCursor{
		StreamName:           streamName,
		LastSuccessfulSyncAt: syncedAt,
		LastSyncMode:         mode,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "stream_name"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"last_successful_sync_at", "last_sync_mode", "updated_at",
		}),
	}).Create(&cursor).Error
}

func (r *syncCursorRepo) AcquireLease(ctx context.Context, streamName, token string, ttl time.Duration) (bool, error) {
	now := time.Now()
	expiredBefore := now.Add(-ttl)

	// 1. 行已存在：仅在无租约或租约过期时抢占
	res := r.db.WithContext(ctx).
		Model(&model.SyncCursor{}).
		Where("stream_name = ? AND (lock_token = '' OR locked_at IS NULL OR locked_at < ?)",
			streamName, expiredBefore).
		Updates(map[string]interface{}{
			"lock_token": token,
			"locked_at":  now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 1 {
		return true, nil
	}

	// 2. 行不存在：带租约创建；并发下冲突方 DoNothing 落空即为抢占失败
	cursor := model.SyncCursor{
		StreamName: streamName,
		LockToken:  token,
		LockedAt:   &now,
	}
	res = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "stream_name"}},
		DoNothing: true,
	}).Create(&cursor)
	if res.Error != nil {
		return false, res.Error
	}

	return res.RowsAffected == 1, nil
}

func (r *syncCursorRepo) ReleaseLease(ctx context.Context, streamName, token string) error {
	return r.db.WithContext(ctx).
		Model(&model.SyncCursor{}).
		Where("stream_name = ? AND lock_token = ?", streamName, token).
		Updates(map[string]interface{}{
			"lock_token": "",
			"locked_at":  nil,
		}).Error
}
