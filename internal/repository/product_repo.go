package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"qoo10_sync_v1_202609/internal/model"
)

// ==================== 接口定义 ====================

// ProductRepository 商品记录仓储
type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	GetBySourceItemID(ctx context.Context, sourceItemID string) (*model.Product, error)
	// UpsertPreserving 按源站键 upsert：preserve 列表中的字段
	// 在新值为空 (空串/零值/nil) 时保持库内旧值，绝不静默清空。
	UpsertPreserving(ctx context.Context, sourceItemID string, fields map[string]interface{}, preserve []string) error
	UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error
	ListPending(ctx context.Context, limit int) ([]model.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]model.Product, int64, error)
	MarkDirtyByCategoryKey(ctx context.Context, categoryKey string) (int64, error)
}

// ProductFilter 列表过滤条件
type ProductFilter struct {
	SyncStatus string
	Dirty      *bool
	Keyword    string
	Page       int
	PageSize   int
}

// ==================== 仓储实现 ====================

type productRepo struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepo{db: db}
}

func (r *productRepo) Create(ctx context.Context, product *model.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *productRepo) GetBySourceItemID(ctx context.Context, sourceItemID string) (*model.Product, error) {
	var product model.Product
	err := r.db.WithContext(ctx).
		Where("source_item_id = ?", sourceItemID).
		First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

func (r *productRepo) UpsertPreserving(ctx context.Context, sourceItemID string, fields map[string]interface{}, preserve []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.Product
		err := tx.Where("source_item_id = ?", sourceItemID).First(&existing).Error

		if errors.Is(err, gorm.ErrRecordNotFound) {
			// 首次入库：直接写全部字段
			create := make(map[string]interface{}, len(fields)+1)
			for k, v := range fields {
				create[k] = v
			}
			create["source_item_id"] = sourceItemID
			return tx.Model(&model.Product{}).Create(create).Error
		}
		if err != nil {
			return err
		}

		updates := make(map[string]interface{}, len(fields))
		for k, v := range fields {
			updates[k] = v
		}
		// 保护字段：新值为空时丢弃，保持旧值
		for _, field := range preserve {
			if v, ok := updates[field]; ok && isEmptyValue(v) {
				delete(updates, field)
			}
		}
		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&model.Product{}).
			Where("id = ?", existing.ID).
			Updates(updates).Error
	})
}

func (r *productRepo) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ?", id).
		Updates(fields).Error
}

// ListPending 查询待处理记录：未上架的、有脏标记的、以及上次失败待重试的
func (r *productRepo) ListPending(ctx context.Context, limit int) ([]model.Product, error) {
	var products []model.Product
	query := r.db.WithContext(ctx).
		Where("sync_status IN ? OR dirty = ?",
			[]string{model.SyncStatusUnsynced, model.SyncStatusSyncedDirty, model.SyncStatusFailed}, true).
		Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&products).Error
	return products, err
}

func (r *productRepo) List(ctx context.Context, filter ProductFilter) ([]model.Product, int64, error) {
	var products []model.Product
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Product{})
	if filter.SyncStatus != "" {
		query = query.Where("sync_status = ?", filter.SyncStatus)
	}
	if filter.Dirty != nil {
		query = query.Where("dirty = ?", *filter.Dirty)
	}
	if filter.Keyword != "" {
		query = query.Where("title LIKE ?", "%"+filter.Keyword+"%")
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

	err := query.
		Order("updated_at DESC").
		Limit(filter.PageSize).
		Offset((filter.Page - 1) * filter.PageSize).
		Find(&products).Error
	return products, total, err
}

// MarkDirtyByCategoryKey 人工映射写入后，把同路径商品全部标脏，下一轮重新同步
func (r *productRepo) MarkDirtyByCategoryKey(ctx context.Context, categoryKey string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("category_key = ? AND remote_listing_id <> ''", categoryKey).
		Updates(map[string]interface{}{
			"dirty":       true,
			"sync_status": model.SyncStatusSyncedDirty,
		})
	return result.RowsAffected, result.Error
}

// isEmptyValue 空值判定：空串、数值零、nil 视为"无新值"
func isEmptyValue(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case int:
		return val == 0
	case int64:
		return val == 0
	case float64:
		return val == 0
	default:
		return false
	}
}
