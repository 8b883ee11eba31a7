package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"qoo10_sync_v1_202609/internal/model"
	"qoo10_sync_v1_202609/internal/repository"
)

// ReferenceData 一轮运行内的参考数据缓存
// 分类树、映射字典、运费表首次访问时懒加载，运行中不失效；
// 新一轮运行前由持有方显式 Reset。不是全局单例，由编排器持有。
type ReferenceData struct {
	mappingRepo  repository.MappingRepository
	taxonomyRepo repository.TaxonomyRepository
	rateRepo     repository.ShippingRateRepository

	mu             sync.Mutex
	mappings       []model.CategoryMapping
	mappingsLoaded bool
	nodes          []model.CategoryNode
	nodesLoaded    bool
	bands          []model.ShippingRateBand
	bandsLoaded    bool
}

func NewReferenceData(
	mappingRepo repository.MappingRepository,
	taxonomyRepo repository.TaxonomyRepository,
	rateRepo repository.ShippingRateRepository,
) *ReferenceData {
	return &ReferenceData{
		mappingRepo:  mappingRepo,
		taxonomyRepo: taxonomyRepo,
		rateRepo:     rateRepo,
	}
}

// Mappings 映射字典全量 (懒加载)
func (r *ReferenceData) Mappings(ctx context.Context) ([]model.CategoryMapping, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.mappingsLoaded {
		rows, err := r.mappingRepo.GetAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("加载分类映射字典失败: %w", err)
		}
		r.mappings = rows
		r.mappingsLoaded = true
	}
	return r.mappings, nil
}

// Nodes 目标分类树全量 (懒加载)
func (r *ReferenceData) Nodes(ctx context.Context) ([]model.CategoryNode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.nodesLoaded {
		nodes, err := r.taxonomyRepo.GetAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("加载目标分类树失败: %w", err)
		}
		r.nodes = nodes
		r.nodesLoaded = true
	}
	return r.nodes, nil
}

// RateBands 运费表全量，保证按下界升序 (懒加载)
func (r *ReferenceData) RateBands(ctx context.Context) ([]model.ShippingRateBand, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.bandsLoaded {
		bands, err := r.rateRepo.GetAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("加载运费表失败: %w", err)
		}
		sort.SliceStable(bands, func(i, j int) bool {
			return bands[i].LowerKg < bands[j].LowerKg
		})
		r.bands = bands
		r.bandsLoaded = true
	}
	return r.bands, nil
}

// AppendMapping 追加一条映射 (写穿：先落库，再同步到已加载的缓存)
func (r *ReferenceData) AppendMapping(ctx context.Context, mapping *model.CategoryMapping) error {
	if err := r.mappingRepo.Append(ctx, mapping); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.mappingsLoaded {
		r.mappings = append(r.mappings, *mapping)
	}
	return nil
}

// Reset 清空缓存，下次访问重新加载 (新一轮运行开始时调用)
func (r *ReferenceData) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.mappings = nil
	r.mappingsLoaded = false
	r.nodes = nil
	r.nodesLoaded = false
	r.bands = nil
	r.bandsLoaded = false
}
