package dto

// ==================== 参考数据导入 ====================

// TaxonomyNodeReq 目标市场分类树节点
type TaxonomyNodeReq struct {
	TargetID  string `json:"target_id" binding:"required"`
	ParentID  string `json:"parent_id"`
	Depth     int    `json:"depth"`
	Name      string `json:"name"`
	FullPath  string `json:"full_path"`
	IsLeaf    bool   `json:"is_leaf"`
	SortOrder int    `json:"sort_order"`
}

// TaxonomyImportReq 分类树批量导入 (按 target_id upsert)
type TaxonomyImportReq struct {
	Nodes []TaxonomyNodeReq `json:"nodes" binding:"required,min=1"`
}

// RateBandReq 重量段运费行
type RateBandReq struct {
	LowerKg float64 `json:"lower_kg"`
	UpperKg float64 `json:"upper_kg"`
	Fee     int64   `json:"fee"`
}

// RateTableReplaceReq 运费表整表替换
type RateTableReplaceReq struct {
	Bands []RateBandReq `json:"bands" binding:"required,min=1"`
}

// ImportResp 导入结果
type ImportResp struct {
	Imported int `json:"imported"`
}
