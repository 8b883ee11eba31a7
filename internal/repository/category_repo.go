package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"qoo10_sync_v1_202609/internal/model"
)

// ==================== 接口定义 ====================

// MappingRepository 分类映射字典仓储
// 字典允许同键多行，优先级由解析层处理，仓储只负责全量读取与追加。
type MappingRepository interface {
	GetAll(ctx context.Context) ([]model.CategoryMapping, error)
	Append(ctx context.Context, mapping *model.CategoryMapping) error
	ListByMatchType(ctx context.Context, matchType string, page, pageSize int) ([]model.CategoryMapping, int64, error)
}

// TaxonomyRepository 目标市场分类树仓储 (运行期间只读)
type TaxonomyRepository interface {
	GetAll(ctx context.Context) ([]model.CategoryNode, error)
	BatchUpsert(ctx context.Context, nodes []model.CategoryNode) error
}

// ==================== 映射仓储实现 ====================

type mappingRepo struct {
	db *gorm.DB
}

func NewMappingRepository(db *gorm.DB) MappingRepository {
	return &mappingRepo{db: db}
}

func (r *mappingRepo) GetAll(ctx context.Context) ([]model.CategoryMapping, error) {
	var rows []model.CategoryMapping
	err := r.db.WithContext(ctx).
		Order("source_key ASC, created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *mappingRepo) Append(ctx context.Context, mapping *model.CategoryMapping) error {
	return r.db.WithContext(ctx).Create(mapping).Error
}

func (r *mappingRepo) ListByMatchType(ctx context.Context, matchType string, page, pageSize int) ([]model.CategoryMapping, int64, error) {
	var rows []model.CategoryMapping
	var total int64

	query := r.db.WithContext(ctx).Model(&model.CategoryMapping{})
	if matchType != "" {
		query = query.Where("match_type = ?", matchType)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 50
	}

	err := query.
		Order("created_at DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&rows).Error
	return rows, total, err
}

// ==================== 分类树仓储实现 ====================

type taxonomyRepo struct {
	db *gorm.DB
}

func NewTaxonomyRepository(db *gorm.DB) TaxonomyRepository {
	return &taxonomyRepo{db: db}
}

func (r *taxonomyRepo) GetAll(ctx context.Context) ([]model.CategoryNode, error) {
	var nodes []model.CategoryNode
	err := r.db.WithContext(ctx).
		Order("depth ASC, sort_order ASC").
		Find(&nodes).Error
	return nodes, err
}

func (r *taxonomyRepo) BatchUpsert(ctx context.Context, nodes []model.CategoryNode) error {
	if len(nodes) == 0 {
		return nil
	}
	// 分类树由外部导入任务整体刷新，冲突时以新数据为准
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "target_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"parent_id", "depth", "name", "full_path",
			"is_leaf", "sort_order", "updated_at",
		}),
	}).Create(&nodes).Error
}
