package repository

import (
	"context"

	"gorm.io/gorm"

	"qoo10_sync_v1_202609/internal/model"
)

// ShippingRateRepository 重量段运费表仓储 (运行期间只读，整表加载后缓存)
type ShippingRateRepository interface {
	GetAll(ctx context.Context) ([]model.ShippingRateBand, error)
	ReplaceAll(ctx context.Context, bands []model.ShippingRateBand) error
}

type shippingRateRepo struct {
	db *gorm.DB
}

func NewShippingRateRepository(db *gorm.DB) ShippingRateRepository {
	return &shippingRateRepo{db: db}
}

func (r *shippingRateRepo) GetAll(ctx context.Context) ([]model.ShippingRateBand, error) {
	var bands []model.ShippingRateBand
	// 查表约定按下界升序，命中取第一段
	err := r.db.WithContext(ctx).
		Order("lower_kg ASC").
		Find(&bands).Error
	return bands, err
}

func (r *shippingRateRepo) ReplaceAll(ctx context.Context, bands []model.ShippingRateBand) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&model.ShippingRateBand{}).Error; err != nil {
			return err
		}
		if len(bands) == 0 {
			return nil
		}
		return tx.Create(&bands).Error
	})
}
