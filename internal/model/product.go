package model

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// PriceTierCount ERP 按客户等级维护的平行价目表数量
// 缺失档位一律补 0，保证 price_list / original_price_list 永远是 15 个元素
const PriceTierCount = 15

type Product struct {
	BaseModel

	// --- ERP 核心身份字段 ---
	StockNumber string `gorm:"size:100;uniqueIndex;not null" json:"stock_number"` // ERP 侧唯一货号

	// --- 商品基本信息 (ERP 下发的展示字段) ---
	Name         string `gorm:"size:255;index" json:"name"`
	CategoryName string `gorm:"size:255" json:"category_name"` // ERP 冗余下发的分类显示名

	// --- 价目表 (Postgres Array, 固定 15 档) ---
	PriceList         pq.Float64Array `gorm:"type:numeric[]" json:"price_list"`          // 本币 (换汇后)
	OriginalPriceList pq.Float64Array `gorm:"type:numeric[]" json:"original_price_list"` // 原币，回传 ERP 时保持原样
	Currency          string          `gorm:"size:5;not null" json:"currency"`           // 统一大写，空值归一为本币

	// --- 库存与属性 ---
	StockBalance float64 `gorm:"default:0" json:"stock_balance"`
	Unit         string  `gorm:"size:20" json:"unit"`
	VatRate      float64 `gorm:"default:0" json:"vat_rate"`
	ProductType  string  `gorm:"size:20" json:"product_type"`

	// --- 分类筛选码 (对应 ERP 三级分组) ---
	MainGroup string `gorm:"size:50;index" json:"main_group"`
	SubGroup  string `gorm:"size:50;index" json:"sub_group"`
	SubGroup2 string `gorm:"size:50;index" json:"sub_group2"`

	// --- 状态与同步信息 ---
	Active      bool      `gorm:"default:true" json:"active"`         // 软删除标记，同步不改写
	ContentHash string    `gorm:"size:64;index" json:"content_hash"`  // 变更检测摘要
	SyncedAt    time.Time `json:"synced_at"`                          // 最近一次成功对账时间

	// --- 诊断快照 ---
	RawSnapshot datatypes.JSON `gorm:"type:jsonb" json:"-"` // 最近一次 ERP 原始记录，不对外暴露

	// --- 图片字段 (由独立的图片补全任务维护，同步仅在首次插入时置空) ---
	ImageURL      string     `gorm:"size:512" json:"image_url"`
	ImageSyncedAt *time.Time `json:"image_synced_at,omitempty"`
}

func (Product) TableName() string {
	return "products"
}
