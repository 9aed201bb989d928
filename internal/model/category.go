package model

import (
	"time"

	"gorm.io/datatypes"
)

// 分类层级：1 = 主分组, 2 = 子分组, 3 = 二级子分组
const (
	CategoryLevelMain = 1
	CategoryLevelSub  = 2
	CategoryLevelSub2 = 3
)

type Category struct {
	BaseModel

	GroupCode  string `gorm:"size:50;uniqueIndex;not null" json:"group_code"` // ERP 分组编码
	Name       string `gorm:"size:255" json:"name"`
	Level      int    `gorm:"index;not null" json:"level"`
	ParentCode string `gorm:"size:50;index" json:"parent_code"` // 一级分组为空串

	Active   bool      `gorm:"default:true" json:"active"`
	SyncedAt time.Time `json:"synced_at"`

	RawSnapshot datatypes.JSON `gorm:"type:jsonb" json:"-"`
}

func (Category) TableName() string {
	return "categories"
}
