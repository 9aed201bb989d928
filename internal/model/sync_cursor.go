package model

import "time"

// 同步模式标签 (两者行为一致，均为全量重拉，仅游标记录不同)
const (
	SyncModeFull  = "full"
	SyncModeDelta = "delta"
)

// SyncStreamProducts 商品同步流的游标名
const SyncStreamProducts = "products"

// SyncCursor 记录某条同步流最近一次成功完成的时间与模式
// 同时承载运行租约 (lock_token/locked_at)，保证同一时刻至多一个同步在跑
type SyncCursor struct {
	BaseModel

	StreamName           string    `gorm:"size:50;uniqueIndex;not null" json:"stream_name"`
	LastSuccessfulSyncAt time.Time `json:"last_successful_sync_at"`
	LastSyncMode         string    `gorm:"size:10" json:"last_sync_mode"`

	// --- 运行租约 ---
	LockToken string     `gorm:"size:36" json:"-"`
	LockedAt  *time.Time `json:"-"`
}

func (SyncCursor) TableName() string {
	return "sync_cursors"
}
