package model

// ShippingRateBand 重量段运费表
// 闭区间 [LowerKg, UpperKg] 对应一个固定运费 (JPY)。
// 各段互不重叠，查询时按 LowerKg 升序取第一个命中的段。
type ShippingRateBand struct {
	BaseModel

	LowerKg float64 `gorm:"not null"`
	UpperKg float64 `gorm:"not null"`
	Fee     int64   `gorm:"not null"` // 目标货币最小单位
}

func (ShippingRateBand) TableName() string {
	return "shipping_rate_bands"
}

// Contains 重量是否落在本段内 (闭区间)
func (b *ShippingRateBand) Contains(weightKg float64) bool {
	return weightKg >= b.LowerKg && weightKg <= b.UpperKg
}
