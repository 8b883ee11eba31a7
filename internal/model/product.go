package model

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// ==================== 同步状态常量 ====================

const (
	// 商品同步状态
	SyncStatusUnsynced    = "UNSYNCED"     // 从未上架
	SyncStatusSyncedClean = "SYNCED_CLEAN" // 已上架，无待同步变更
	SyncStatusSyncedDirty = "SYNCED_DIRTY" // 已上架，有待同步变更
	SyncStatusFailed      = "SYNC_FAILED"  // 上次同步失败 (可重试，非终态)
)

// Product 采集商品记录
// 既保存最近一次抓取观测到的数据，也保存上次成功同步后的快照字段
// (SalePrice / OptionsSignature / RemoteListingID / TargetCategoryID)。
// 快照字段一旦写入，不允许被空值覆盖。
type Product struct {
	BaseModel

	// --- 源站身份 ---
	SourceItemID     string `gorm:"size:100;uniqueIndex;not null"` // 源站商品唯一键
	SourceURL        string `gorm:"size:512"`
	SourceCategoryID string `gorm:"size:50"` // 源站分类原始 ID (仅参考，不做映射键)

	// --- 商品基本信息 ---
	Title      string         `gorm:"size:255"`
	Images     pq.StringArray `gorm:"type:text[]"` // 首图为主图
	OptionsRaw datatypes.JSON `gorm:"type:jsonb"`  // 原始选项/规格数据

	// --- 原始数值字段 (源站带千分位分隔符，入库保持原文，边界处解析) ---
	CostPriceRaw string `gorm:"size:50"` // 成本价 (KRW)
	WeightKgRaw  string `gorm:"size:50"` // 重量 (kg)

	// --- 分类 ---
	CategoryPath2 string `gorm:"size:255"`          // 二级路径 "가전 > 냉장고"
	CategoryPath3 string `gorm:"size:255"`          // 三级路径 "가전 > 냉장고 > 양문형"
	CategoryKey   string `gorm:"size:255;index"`    // 规范化后的映射键
	// 以下为同步快照：上次实际采用的目标分类
	TargetCategoryID  string `gorm:"size:50"`
	CategoryMatchType string `gorm:"size:20"` // MANUAL / AUTO / FALLBACK

	// --- 价格快照 ---
	SalePrice int64 `gorm:"default:0"` // 上次计算的销售价 (JPY 整数)

	// --- 选项签名快照 ---
	OptionsSignature string `gorm:"size:64"`

	// --- 同步控制 ---
	RemoteListingID string     `gorm:"size:50;index"` // 目标市场商品号，空串表示未上架
	SyncStatus      string     `gorm:"size:20;index;default:UNSYNCED"`
	Dirty           bool       `gorm:"default:false;index"` // 待同步标记
	SyncError       string     `gorm:"size:512"`
	LastSyncedAt    *time.Time
}

func (Product) TableName() string {
	return "products"
}

// MainImage 主图 URL，无图返回空串
func (p *Product) MainImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// HasRemoteListing 是否已在目标市场上架
func (p *Product) HasRemoteListing() bool {
	return p.RemoteListingID != ""
}
