package model

// ==================== 匹配类型常量 ====================

const (
	MatchTypeManual   = "MANUAL"   // 人工确认，权威
	MatchTypeAuto     = "AUTO"     // 算法候选，仅供人工复核
	MatchTypeFallback = "FALLBACK" // 兜底分类
)

// CategoryMapping 分类映射字典行
// 键是规范化后的源站分类路径，不是源站分类 ID：
// 同一路径下的商品必须共享同一条映射，即使原始 ID 不同。
// 同一个键允许多行共存 (多个 AUTO 建议)，MANUAL 行最多一条为权威。
type CategoryMapping struct {
	BaseModel
	AuditMixin

	SourceKey        string  `gorm:"size:255;index;not null"` // 规范化源路径
	TargetCategoryID string  `gorm:"size:50"`
	MatchType        string  `gorm:"size:20;index;not null"` // MANUAL / AUTO / FALLBACK
	Confidence       float64 `gorm:"default:0"`              // [0,1]
	TargetFullPath   string  `gorm:"size:512"`
}

func (CategoryMapping) TableName() string {
	return "category_mappings"
}

// IsManual 是否人工权威映射
func (m *CategoryMapping) IsManual() bool {
	return m.MatchType == MatchTypeManual
}

// CategoryNode 目标市场分类树节点 (每轮运行内只读的参考数据)
type CategoryNode struct {
	BaseModel

	TargetID  string `gorm:"size:50;uniqueIndex;not null"` // 目标市场分类编码
	ParentID  string `gorm:"size:50;index"`
	Depth     int    `gorm:"default:1"`
	Name      string `gorm:"size:255"`
	FullPath  string `gorm:"size:512"` // 如 "家電 > 冷蔵庫 > 両開き"
	IsLeaf    bool   `gorm:"default:false"`
	SortOrder int    `gorm:"default:0"`
}

func (CategoryNode) TableName() string {
	return "category_nodes"
}
