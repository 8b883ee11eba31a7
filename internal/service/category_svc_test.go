package service

import (
	"context"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"qoo10_sync_v1_202609/internal/model"
	"qoo10_sync_v1_202609/internal/repository"
)

// ==================== 测试辅助 ====================

func setupResolverTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}
	if err := db.AutoMigrate(&model.CategoryMapping{}, &model.CategoryNode{}, &model.ShippingRateBand{}); err != nil {
		t.Fatalf("数据库迁移失败: %v", err)
	}
	return db
}

func newTestResolver(db *gorm.DB) (*CategoryResolver, *ReferenceData) {
	refdata := NewReferenceData(
		repository.NewMappingRepository(db),
		repository.NewTaxonomyRepository(db),
		repository.NewShippingRateRepository(db),
	)
	resolver := NewCategoryResolver(refdata, ResolverConfig{
		FallbackCategoryID: "MISC-000",
		FallbackFullPath:   "その他",
	})
	return resolver, refdata
}

// ==================== 路径规范化 ====================

func TestNormalizeCategoryPath(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"标准路径", "가전 > 냉장고 > 양문형", "가전 > 냉장고 > 양문형"},
		{"多余空白压缩", "가전>냉장고  >  양문형", "가전 > 냉장고 > 양문형"},
		{"全角分隔符折叠", "家電＞冷蔵庫", "家電 > 冷蔵庫"},
		{"空段丢弃", "가전 > > 냉장고", "가전 > 냉장고"},
		{"空串", "", ""},
		{"只有分隔符", " > > ", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NormalizeCategoryPath(tc.in)
			if got != tc.want {
				t.Errorf("NormalizeCategoryPath(%q) = %q, 期望 %q", tc.in, got, tc.want)
			}
			// 幂等
			if again := NormalizeCategoryPath(got); again != got {
				t.Errorf("规范化不幂等: %q -> %q", got, again)
			}
		})
	}
}

// ==================== 解析 ====================

func TestCategoryResolver_ManualWins(t *testing.T) {
	db := setupResolverTestDB(t)
	resolver, _ := newTestResolver(db)
	ctx := context.Background()

	key := "가전 > 냉장고 > 양문형"
	// AUTO 行先入库，MANUAL 后入库：插入顺序不影响 MANUAL 权威性
	rows := []model.CategoryMapping{
		{SourceKey: key, TargetCategoryID: "AUTO-111", MatchType: model.MatchTypeAuto, Confidence: 0.8},
		{SourceKey: key, TargetCategoryID: "MAN-222", MatchType: model.MatchTypeManual, Confidence: 1.0},
	}
	if err := db.Create(&rows).Error; err != nil {
		t.Fatalf("写入映射失败: %v", err)
	}

	res := resolver.Resolve(ctx, "가전 > 냉장고", key, "src-cat-9", true)
	if res.MatchType != model.MatchTypeManual {
		t.Fatalf("MatchType = %s, 期望 MANUAL", res.MatchType)
	}
	if res.TargetCategoryID != "MAN-222" {
		t.Errorf("TargetCategoryID = %s, 期望 MAN-222", res.TargetCategoryID)
	}
}

func TestCategoryResolver_ManualReassignment(t *testing.T) {
	db := setupResolverTestDB(t)
	resolver, refdata := newTestResolver(db)
	ctx := context.Background()

	key := "가전 > 냉장고 > 양문형"
	// 旧的人工映射已存在一段时间
	old := model.CategoryMapping{
		BaseModel:        model.BaseModel{CreatedAt: time.Now().Add(-time.Hour)},
		SourceKey:        key,
		TargetCategoryID: "OLD-01",
		MatchType:        model.MatchTypeManual,
		Confidence:       1.0,
	}
	if err := db.Create(&old).Error; err != nil {
		t.Fatalf("写入映射失败: %v", err)
	}

	// 运营改判：追加一条新的 MANUAL 行 (字典只追加不删除)
	corrected := &model.CategoryMapping{
		SourceKey:        key,
		TargetCategoryID: "NEW-02",
		MatchType:        model.MatchTypeManual,
		Confidence:       1.0,
	}
	if err := refdata.AppendMapping(ctx, corrected); err != nil {
		t.Fatalf("追加映射失败: %v", err)
	}

	// 新一轮运行：最近的人工改判必须生效
	refdata.Reset()
	res := resolver.Resolve(ctx, "가전 > 냉장고", key, "", true)
	if res.MatchType != model.MatchTypeManual {
		t.Fatalf("MatchType = %s, 期望 MANUAL", res.MatchType)
	}
	if res.TargetCategoryID != "NEW-02" {
		t.Errorf("重新指派后解析到 %s, 期望新 MANUAL 值 NEW-02", res.TargetCategoryID)
	}

	// 不经 Reset 的同轮缓存也以新行为准
	res = resolver.Resolve(ctx, "가전 > 냉장고", key, "", true)
	if res.TargetCategoryID != "NEW-02" {
		t.Errorf("缓存态解析到 %s, 期望 NEW-02", res.TargetCategoryID)
	}
}

func TestCategoryResolver_EmptyPathFallback(t *testing.T) {
	db := setupResolverTestDB(t)
	resolver, _ := newTestResolver(db)

	res := resolver.Resolve(context.Background(), "", "", "src-cat-1", true)
	if res.MatchType != model.MatchTypeFallback {
		t.Fatalf("MatchType = %s, 期望 FALLBACK", res.MatchType)
	}
	if res.TargetCategoryID != "MISC-000" {
		t.Errorf("TargetCategoryID = %s, 期望兜底 MISC-000", res.TargetCategoryID)
	}
}

func TestCategoryResolver_NeverEmpty(t *testing.T) {
	db := setupResolverTestDB(t)
	resolver, _ := newTestResolver(db)

	// 无映射、无分类树：依然必须给出非空结果
	res := resolver.Resolve(context.Background(), "가전 > 냉장고", "가전 > 냉장고 > 양문형", "", true)
	if res.TargetCategoryID == "" {
		t.Fatal("解析结果分类为空，违反永不为空合同")
	}
	if res.MatchType != model.MatchTypeFallback {
		t.Errorf("MatchType = %s, 期望 FALLBACK", res.MatchType)
	}
}

func TestCategoryResolver_AutoSuggestions(t *testing.T) {
	db := setupResolverTestDB(t)
	resolver, _ := newTestResolver(db)
	ctx := context.Background()

	nodes := []model.CategoryNode{
		{TargetID: "Q-100", Depth: 3, Name: "冷蔵庫", FullPath: "家電 > キッチン家電 > 냉장고", IsLeaf: true},
		{TargetID: "Q-200", Depth: 2, Name: "家電", FullPath: "家電 > キッチン家電", IsLeaf: false},
		{TargetID: "Q-300", Depth: 3, Name: "バッグ", FullPath: "ファッション > 雑貨 > バッグ", IsLeaf: true},
	}
	if err := db.Create(&nodes).Error; err != nil {
		t.Fatalf("写入分类树失败: %v", err)
	}

	res := resolver.Resolve(ctx, "가전 > 냉장고", "가전 > 냉장고 > 양문형", "", true)

	// 建议不改变本次结果：结果仍是兜底
	if res.MatchType != model.MatchTypeFallback {
		t.Fatalf("MatchType = %s, 期望 FALLBACK", res.MatchType)
	}
	if len(res.Candidates) == 0 {
		t.Fatal("期望产出候选建议")
	}
	if res.Candidates[0].TargetCategoryID != "Q-100" {
		t.Errorf("最佳候选 = %s, 期望 token 命中的 Q-100", res.Candidates[0].TargetCategoryID)
	}

	// 候选落库为 AUTO 建议
	var count int64
	db.Model(&model.CategoryMapping{}).Where("match_type = ?", model.MatchTypeAuto).Count(&count)
	if count == 0 {
		t.Error("AUTO 建议未落库")
	}

	// 再解析一次：同键同目标不重复写
	resolver.Resolve(ctx, "가전 > 냉장고", "가전 > 냉장고 > 양문형", "", true)
	var count2 int64
	db.Model(&model.CategoryMapping{}).Where("match_type = ?", model.MatchTypeAuto).Count(&count2)
	if count2 != count {
		t.Errorf("AUTO 建议被重复写入: %d -> %d", count, count2)
	}
}

func TestCategoryResolver_DryRunNoSuggestions(t *testing.T) {
	db := setupResolverTestDB(t)
	resolver, _ := newTestResolver(db)
	ctx := context.Background()

	nodes := []model.CategoryNode{
		{TargetID: "Q-100", Depth: 3, Name: "冷蔵庫", FullPath: "家電 > キッチン家電 > 냉장고", IsLeaf: true},
	}
	if err := db.Create(&nodes).Error; err != nil {
		t.Fatalf("写入分类树失败: %v", err)
	}

	// recordSuggestions=false：候选照常返回，但不落库
	res := resolver.Resolve(ctx, "가전 > 냉장고", "가전 > 냉장고 > 양문형", "", false)
	if len(res.Candidates) == 0 {
		t.Fatal("试运行也应返回候选")
	}

	var count int64
	db.Model(&model.CategoryMapping{}).Count(&count)
	if count != 0 {
		t.Errorf("试运行写入了 %d 条建议, 期望 0", count)
	}
}

func TestCategoryResolver_CandidateLimit(t *testing.T) {
	db := setupResolverTestDB(t)
	resolver, _ := newTestResolver(db)
	ctx := context.Background()

	// 大量可命中的节点，候选最多保留 3 个
	nodes := make([]model.CategoryNode, 0, 8)
	for i := 0; i < 8; i++ {
		nodes = append(nodes, model.CategoryNode{
			TargetID: "Q-" + string(rune('A'+i)),
			Depth:    3,
			FullPath: "家電 > 냉장고 > 양문형",
			IsLeaf:   true,
		})
	}
	if err := db.Create(&nodes).Error; err != nil {
		t.Fatalf("写入分类树失败: %v", err)
	}

	res := resolver.Resolve(ctx, "", "가전 > 냉장고 > 양문형", "", false)
	if len(res.Candidates) > 3 {
		t.Errorf("候选数 = %d, 期望最多 3", len(res.Candidates))
	}
}
