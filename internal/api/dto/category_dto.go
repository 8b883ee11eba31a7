package dto

// ==================== 分类映射复核 ====================

// MappingItem 映射词典条目
type MappingItem struct {
	ID               int64   `json:"id"`
	SourceKey        string  `json:"source_key"`
	TargetCategoryID string  `json:"target_category_id"`
	MatchType        string  `json:"match_type"`
	Confidence       float64 `json:"confidence"`
	TargetFullPath   string  `json:"target_full_path,omitempty"`
	CreatedBy        string  `json:"created_by,omitempty"`
}

// MappingListResp 映射列表响应
type MappingListResp struct {
	Total int64         `json:"total"`
	Items []MappingItem `json:"items"`
}

// ManualMappingReq 运营确认人工映射
// 落库后会把同源路径的已上架商品标脏，下一轮同步自动带上新分类
type ManualMappingReq struct {
	SourcePath       string `json:"source_path" binding:"required"`        // 原始或已规范化的源路径均可
	TargetCategoryID string `json:"target_category_id" binding:"required"` // 目标市场叶子分类编码
	TargetFullPath   string `json:"target_full_path"`
	Operator         string `json:"operator"`
}

// ManualMappingResp 人工映射结果
type ManualMappingResp struct {
	SourceKey   string `json:"source_key"` // 实际落库的规范化键
	DirtyMarked int64  `json:"dirty_marked"`
}
