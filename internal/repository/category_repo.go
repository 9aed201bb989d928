package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"erp_portal_v1_202608/internal/model"
)

// ==================== 接口定义 ====================

// CategoryRepository 分类仓储接口
type CategoryRepository interface {
	GetByCode(ctx context.Context, groupCode string) (*model.Category, error)
	ListByLevel(ctx context.Context, level int) ([]model.Category, error)
	ListByParent(ctx context.Context, parentCode string) ([]model.Category, error)
	CountByLevel(ctx context.Context, level int) (int64, error)

	// BatchUpsert 按 group_code 批量插入或更新，返回 新增/更新 条数
	BatchUpsert(ctx context.Context, categories []model.Category) (inserted, updated int, err error)
}

// ==================== 仓储实现 ====================

type categoryRepo struct {
	db *gorm.DB
}

// NewCategoryRepository 创建分类仓储
func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepo{db: db}
}

func (r *categoryRepo) GetByCode(ctx context.Context, groupCode string) (*model.Category, error) {
	var category model.Category
	err := r.db.WithContext(ctx).
		Where("group_code = ?", groupCode).
		First(&category).Error
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepo) ListByLevel(ctx context.Context, level int) ([]model.Category, error) {
	var categories []model.Category
	err := r.db.WithContext(ctx).
		Where("level = ?", level).
		Order("group_code ASC").
		Find(&categories).Error
	return categories, err
}

func (r *categoryRepo) ListByParent(ctx context.Context, parentCode string) ([]model.Category, error) {
	var categories []model.Category
	err := r.db.WithContext(ctx).
		Where("parent_code = ?", parentCode).
		Order("group_code ASC").
		Find(&categories).Error
	return categories, err
}

func (r *categoryRepo) CountByLevel(ctx context.Context, level int) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&model.Category{}).
		Where("level = ?", level).
		Count(&total).Error
	return total, err
}

func (r *categoryRepo) BatchUpsert(ctx context.Context, categories []model.Category) (int, int, error) {
	if len(categories) == 0 {
		return 0, 0, nil
	}

	codes := make([]string, 0, len(categories))
	for i := range categories {
		codes = append(codes, categories[i].GroupCode)
	}

	var existingCodes []string
	if err := r.db.WithContext(ctx).
		Model(&model.Category{}).
		Where("group_code IN ?", codes).
		Pluck("group_code", &existingCodes).Error; err != nil {
		return 0, 0, err
	}

	existing := make(map[string]struct{}, len(existingCodes))
	for _, c := range existingCodes {
		existing[c] = struct{}{}
	}

	inserted, updated := 0, 0
	for _, c := range codes {
		if _, ok := existing[c]; ok {
			updated++
		} else {
			inserted++
		}
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "group_code"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "level", "parent_code",
			"synced_at", "raw_snapshot",
			"updated_at",
		}),
	}).Create(&categories).Error
	if err != nil {
		return 0, 0, err
	}

	return inserted, updated, nil
}
