package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"erp_portal_v1_202608/internal/model"
)

// ==================== 接口定义 ====================

// ProductRepository 商品仓储接口
type ProductRepository interface {
	GetByStockNumber(ctx context.Context, stockNumber string) (*model.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]model.Product, int64, error)
	Count(ctx context.Context) (int64, error)

	// BatchUpsert 按 stock_number 批量插入或整体替换 (无序语义)
	// 返回本批新插入与覆盖更新的条数
	// 注意：active 与图片字段不在冲突更新列中——active 不由同步改写，
	// 图片字段归图片补全任务所有，后续同步不得覆盖
	BatchUpsert(ctx context.Context, products []model.Product) (inserted, updated int, err error)
}

// ==================== 过滤条件 ====================

// ProductFilter 商品过滤条件
type ProductFilter struct {
	Keyword   string
	MainGroup string
	SubGroup  string
	SubGroup2 string
	Page      int
	PageSize  int
}

// ==================== 仓储实现 ====================

type productRepo struct {
	db *gorm.DB
}

// NewProductRepository 创建商品仓储
func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepo{db: db}
}

func (r *productRepo) GetByStockNumber(ctx context.Context, stockNumber string) (*model.Product, error) {
	var product model.Product
	err := r.db.WithContext(ctx).
		Where("stock_number = ?", stockNumber).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepo) List(ctx context.Context, filter ProductFilter) ([]model.Product, int64, error) {
	var products []model.Product
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Product{}).Where("active = ?", true)

	if filter.Keyword != "" {
		query = query.Where("name ILIKE ?", "%"+filter.Keyword+"%")
	}
	if filter.MainGroup != "" {
		query = query.Where("main_group = ?", filter.MainGroup)
	}
	if filter.SubGroup != "" {
		query = query.Where("sub_group = ?", filter.SubGroup)
	}
	if filter.SubGroup2 != "" {
		query = query.Where("sub_group2 = ?", filter.SubGroup2)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	offset := (filter.Page - 1) * filter.PageSize
	err := query.
		Order("stock_number ASC").
		Limit(filter.PageSize).
		Offset(offset).
		Find(&products).Error

	return products, total, err
}

func (r *productRepo) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&model.Product{}).Count(&total).Error
	return total, err
}

func (r *productRepo) BatchUpsert(ctx context.Context, products []model.Product) (int, int, error) {
	if len(products) == 0 {
		return 0, 0, nil
	}

	// 1. 预查已有货号，用于拆分 新增/更新 计数
	// (OnConflict Create 只报告总行数，区分不了插入与覆盖)
	keys := make([]string, 0, len(products))
	for i := range products {
		keys = append(keys, products[i].StockNumber)
	}

	var existingKeys []string
	if err := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("stock_number IN ?", keys).
		Pluck("stock_number", &existingKeys).Error; err != nil {
		return 0, 0, err
	}

	existing := make(map[string]struct{}, len(existingKeys))
	for _, k := range existingKeys {
		existing[k] = struct{}{}
	}

	inserted, updated := 0, 0
	for _, k := range keys {
		if _, ok := existing[k]; ok {
			updated++
		} else {
			inserted++
		}
	}

	// 2. 按 stock_number 冲突整体替换可变字段
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "stock_number"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "category_name",
			"price_list", "original_price_list", "currency",
			"stock_balance", "unit", "vat_rate", "product_type",
			"main_group", "sub_group", "sub_group2",
			"content_hash", "synced_at", "raw_snapshot",
			"updated_at",
		}),
	}).Create(&products).Error
	if err != nil {
		return 0, 0, err
	}

	return inserted, updated, nil
}
