package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"

	"qoo10_sync_v1_202609/internal/model"
	"qoo10_sync_v1_202609/internal/repository"
)

// ==================== 配置 ====================

// 出站必填字段：即使只有部分变更，UPDATE 也必须填满全部必填字段
var mandatoryFields = []string{"ItemTitle", "ItemPrice", "CategoryCode", "ImageUrl"}

type SyncConfig struct {
	RetryDelay    time.Duration     // 远程调用失败后固定等待时间，重试一次
	FieldDefaults map[string]string // 必填字段的固定业务默认值 (兜底链第 4 级)
}

// ==================== 编排器 ====================

// SyncService 同步编排器
// 单线程顺序处理：一条记录完整走完 分类 → 定价 → 比对 → 决策 → 远程调用
// 才开始下一条。所有错误在本层收口为 SyncDecision，单条失败不影响批次。
type SyncService struct {
	products repository.ProductRepository
	refdata  *ReferenceData
	resolver *CategoryResolver
	pricing  *PriceEngine
	tracker  *ChangeTracker
	market   MarketClient
	cfg      SyncConfig
}

func NewSyncService(
	products repository.ProductRepository,
	refdata *ReferenceData,
	resolver *CategoryResolver,
	pricing *PriceEngine,
	tracker *ChangeTracker,
	market MarketClient,
	cfg SyncConfig,
) *SyncService {
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 2 * time.Second
	}
	return &SyncService{
		products: products,
		refdata:  refdata,
		resolver: resolver,
		pricing:  pricing,
		tracker:  tracker,
		market:   market,
		cfg:      cfg,
	}
}

// ==================== 批量入口 ====================

// RunBatch 处理一批待同步记录
// limit <= 0 表示不限制条数。dryRun 只计算决策与出站字段，
// 不调用远程 API，也不落任何状态。
func (s *SyncService) RunBatch(ctx context.Context, limit int, dryRun bool) (*model.RunSummary, error) {
	// 新一轮运行：参考数据重新加载
	s.refdata.Reset()

	records, err := s.products.ListPending(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("查询待同步记录失败: %w", err)
	}

	summary := &model.RunSummary{
		RunID:  uuid.NewString(),
		DryRun: dryRun,
		Counts: make(map[string]int),
	}

	log.Printf("[SyncService] 运行 %s 开始，待处理 %d 条 (dryRun=%v)", summary.RunID, len(records), dryRun)

	for i := range records {
		decision := s.ProcessOne(ctx, &records[i], dryRun)
		summary.Add(decision)

		if decision.Error != "" {
			log.Printf("[SyncService] %s => %s: %s", decision.SourceItemID, decision.Outcome, decision.Error)
		} else {
			log.Printf("[SyncService] %s => %s (%s)", decision.SourceItemID, decision.Outcome, decision.Action)
		}
	}

	log.Printf("[SyncService] 运行 %s 结束: %v", summary.RunID, summary.Counts)
	return summary, nil
}

// ==================== 单条处理 ====================

// ProcessOne 单条记录的完整编排，任何错误都转成决策返回，不向上抛
func (s *SyncService) ProcessOne(ctx context.Context, record *model.Product, dryRun bool) model.SyncDecision {
	decision := model.SyncDecision{
		SourceItemID: record.SourceItemID,
		Action:       "NONE",
	}

	// 1. 分类解析 (永不失败)。试运行不落 AUTO 建议。
	resolved := s.resolver.Resolve(ctx, record.CategoryPath2, record.CategoryPath3, record.SourceCategoryID, !dryRun)

	// 人工覆盖：库内 MANUAL 分类权威，不被 AUTO/FALLBACK 结果覆盖，
	// 与当前解析不同时视为一个显式变更字段。
	manualOverride := false
	effective := *resolved
	if record.CategoryMatchType == model.MatchTypeManual && record.TargetCategoryID != "" {
		if resolved.TargetCategoryID != record.TargetCategoryID {
			manualOverride = true
		}
		effective = model.CategoryResolution{
			TargetCategoryID: record.TargetCategoryID,
			MatchType:        model.MatchTypeManual,
			Confidence:       1.0,
			Candidates:       resolved.Candidates,
		}
	}
	decision.Category = &effective

	// 2. 定价
	price, priceErr := s.pricing.ComputePrice(ctx, record.CostPriceRaw, record.WeightKgRaw)
	decision.SalePrice = price

	// 3. 选项签名 (解析失败按无签名处理，不阻断)
	newSig, sigErr := s.tracker.Signature(record.OptionsRaw)
	if sigErr != nil {
		log.Printf("[SyncService] %s 选项签名失败: %v", record.SourceItemID, sigErr)
		newSig = ""
	}

	if !record.HasRemoteListing() {
		return s.processCreate(ctx, record, &decision, &effective, price, priceErr, newSig, dryRun)
	}
	return s.processExisting(ctx, record, &decision, &effective, price, priceErr, newSig, manualOverride, dryRun)
}

// processCreate 未上架记录：必填字段齐全则 CREATE，缺失则 SKIPPED
func (s *SyncService) processCreate(
	ctx context.Context,
	record *model.Product,
	decision *model.SyncDecision,
	category *model.CategoryResolution,
	price int64,
	priceErr error,
	newSig string,
	dryRun bool,
) model.SyncDecision {
	// 价格是必填项：校验失败 => SKIPPED(不重试)，查表失败 => FAILED
	if priceErr != nil {
		var lookupErr *LookupFailure
		if errors.As(priceErr, &lookupErr) {
			decision.Outcome = model.OutcomeFailed
			decision.Error = priceErr.Error()
			s.persistFailure(ctx, record, priceErr.Error(), dryRun)
			return *decision
		}
		decision.Outcome = model.OutcomeSkipped
		decision.Error = priceErr.Error()
		s.persistSkip(ctx, record, priceErr.Error(), dryRun)
		return *decision
	}

	// 其余必填业务字段：缺任何一个都不发起远程调用
	if reason := missingMandatory(record); reason != "" {
		decision.Outcome = model.OutcomeSkipped
		decision.Error = reason
		s.persistSkip(ctx, record, reason, dryRun)
		return *decision
	}

	payload := map[string]string{
		"ItemTitle":    record.Title,
		"ItemPrice":    strconv.FormatInt(price, 10),
		"CategoryCode": category.TargetCategoryID,
		"ImageUrl":     record.MainImage(),
		"SellerCode":   record.SourceItemID,
	}
	decision.Action = "CREATE"
	decision.Payload = payload

	if dryRun {
		decision.Outcome = model.OutcomeDryRun
		return *decision
	}

	result, err := s.callWithRetry(ctx, func() (*MarketResult, error) {
		return s.market.CreateListing(ctx, payload)
	})
	if err != nil {
		decision.Outcome = model.OutcomeFailed
		decision.Error = err.Error()
		s.persistFailure(ctx, record, err.Error(), dryRun)
		return *decision
	}

	decision.RemoteID = result.RemoteID
	decision.Outcome = successOutcome(category)
	s.persistSuccess(ctx, record, result.RemoteID, price, category, newSig)
	return *decision
}

// processExisting 已上架记录：无变更 => NO_CHANGE(零远程调用)，有变更 => UPDATE
func (s *SyncService) processExisting(
	ctx context.Context,
	record *model.Product,
	decision *model.SyncDecision,
	category *model.CategoryResolution,
	price int64,
	priceErr error,
	newSig string,
	manualOverride bool,
	dryRun bool,
) model.SyncDecision {
	// 查表失败是环境问题，价格不允许用旧值顶替，整条记录失败；
	// 原始数据校验失败则允许兜底链沿用库内价格。
	var lookupErr *LookupFailure
	if errors.As(priceErr, &lookupErr) {
		decision.Outcome = model.OutcomeFailed
		decision.Error = priceErr.Error()
		s.persistFailure(ctx, record, priceErr.Error(), dryRun)
		return *decision
	}

	diff := s.tracker.Diff(
		Snapshot{SalePrice: record.SalePrice, OptionsSignature: record.OptionsSignature},
		Snapshot{SalePrice: price, OptionsSignature: newSig},
	)
	decision.Changes = diff.Flags

	dirty := record.Dirty || diff.HasChanges() || manualOverride
	if !dirty {
		decision.Outcome = model.OutcomeNoChange
		return *decision
	}

	// 必填字段逐个走兜底链：新值 → 库内值 → 快照值 → 业务默认值 → 远程现值
	payload, err := s.resolveUpdateFields(ctx, record, category, price, dryRun)
	if err != nil {
		// 兜底链穷尽仍无值：未发起任何网络调用即失败
		decision.Outcome = model.OutcomeFailed
		decision.Error = err.Error()
		s.persistFailure(ctx, record, err.Error(), dryRun)
		return *decision
	}

	decision.Action = "UPDATE"
	decision.Payload = payload
	decision.RemoteID = record.RemoteListingID

	if dryRun {
		decision.Outcome = model.OutcomeDryRun
		return *decision
	}

	_, err = s.callWithRetry(ctx, func() (*MarketResult, error) {
		return s.market.UpdateListing(ctx, record.RemoteListingID, payload)
	})
	if err != nil {
		decision.Outcome = model.OutcomeFailed
		decision.Error = err.Error()
		s.persistFailure(ctx, record, err.Error(), dryRun)
		return *decision
	}

	decision.Outcome = successOutcome(category)
	finalPrice := price
	if finalPrice <= 0 {
		// 本轮价格缺失但 UPDATE 沿用了旧价格，快照保持旧值
		finalPrice = record.SalePrice
	}
	// 快照记录实际发出的分类，兜底链可能没有采用本轮解析值
	sent := *category
	if code := payload["CategoryCode"]; code != "" {
		sent.TargetCategoryID = code
	}
	s.persistSuccess(ctx, record, record.RemoteListingID, finalPrice, &sent, newSig)
	return *decision
}

// ==================== 字段兜底链 ====================

// resolveUpdateFields UPDATE 的必填字段解析
// 按固定优先级逐级取第一个非空值；各级都取不到时直接报错，
// 此时尚未发起任何网络调用 (远程现值一级本身是懒加载，取到才算调用)。
func (s *SyncService) resolveUpdateFields(
	ctx context.Context,
	record *model.Product,
	category *model.CategoryResolution,
	price int64,
	dryRun bool,
) (map[string]string, error) {
	// 1. 本轮显式新值。分类只有 MANUAL 才算"显式新值"：
	//    AUTO/FALLBACK 结果不得覆盖已采用的历史分类。
	fresh := map[string]string{
		"ItemTitle": record.Title,
		"ImageUrl":  record.MainImage(),
	}
	if price > 0 {
		fresh["ItemPrice"] = strconv.FormatInt(price, 10)
	}
	if category.MatchType == model.MatchTypeManual {
		fresh["CategoryCode"] = category.TargetCategoryID
	}

	// 2. 库内当前值
	stored := map[string]string{
		"ItemTitle":    record.Title,
		"ImageUrl":     record.MainImage(),
		"CategoryCode": record.TargetCategoryID,
	}
	if record.SalePrice > 0 {
		stored["ItemPrice"] = strconv.FormatInt(record.SalePrice, 10)
	}

	// 3. 持久化快照 (懒加载一次)
	var snapshot map[string]string
	loadSnapshot := func() map[string]string {
		if snapshot != nil {
			return snapshot
		}
		snapshot = map[string]string{}
		persisted, err := s.products.GetBySourceItemID(ctx, record.SourceItemID)
		if err != nil || persisted == nil {
			return snapshot
		}
		snapshot["ItemTitle"] = persisted.Title
		snapshot["ImageUrl"] = persisted.MainImage()
		snapshot["CategoryCode"] = persisted.TargetCategoryID
		if persisted.SalePrice > 0 {
			snapshot["ItemPrice"] = strconv.FormatInt(persisted.SalePrice, 10)
		}
		return snapshot
	}

	// 5. 远程现值 (最后手段，懒加载一次；试运行不调远程)
	var remote map[string]string
	var remoteTried bool
	loadRemote := func() map[string]string {
		if dryRun {
			return nil
		}
		if remoteTried {
			return remote
		}
		remoteTried = true
		fields, err := s.market.FetchListing(ctx, record.RemoteListingID)
		if err != nil {
			log.Printf("[SyncService] %s 拉取远程现值失败: %v", record.SourceItemID, err)
			remote = map[string]string{}
			return remote
		}
		remote = fields
		return remote
	}

	providers := []func(field string) string{
		func(f string) string { return fresh[f] },
		func(f string) string { return stored[f] },
		func(f string) string { return loadSnapshot()[f] },
		func(f string) string { return s.cfg.FieldDefaults[f] },
		func(f string) string { return loadRemote()[f] },
	}

	payload := make(map[string]string, len(mandatoryFields))
	for _, field := range mandatoryFields {
		value := ""
		for _, provider := range providers {
			if v := provider(field); v != "" {
				value = v
				break
			}
		}
		if value == "" {
			return nil, fmt.Errorf("必填字段无法解析: %s", field)
		}
		payload[field] = value
	}
	return payload, nil
}

// ==================== 辅助 ====================

// missingMandatory 创建前的必填业务字段检查，返回第一个缺失项的原因
func missingMandatory(record *model.Product) string {
	if record.Title == "" {
		return "缺少必填字段: title"
	}
	if NormalizeCategoryPath(record.CategoryPath3) == "" {
		return "缺少必填字段: category_path"
	}
	if record.MainImage() == "" {
		return "缺少必填字段: image"
	}
	return ""
}

// successOutcome 兜底分类的成功降级为 WARNING，提示人工复核
func successOutcome(category *model.CategoryResolution) string {
	if category.MatchType == model.MatchTypeFallback {
		return model.OutcomeWarning
	}
	return model.OutcomeSuccess
}

// callWithRetry 远程调用失败后等待固定时间重试一次
func (s *SyncService) callWithRetry(ctx context.Context, call func() (*MarketResult, error)) (*MarketResult, error) {
	result, err := call()
	if err == nil && result.OK() {
		return result, nil
	}

	select {
	case <-ctx.Done():
		return nil, &RemoteCallFailure{Code: -1, Message: ctx.Err().Error()}
	case <-time.After(s.cfg.RetryDelay):
	}

	result, err = call()
	if err != nil {
		return nil, err
	}
	if !result.OK() {
		return nil, &RemoteCallFailure{Code: result.Code, Message: result.Message}
	}
	return result, nil
}

// persistSuccess 成功后写快照。保护字段在新值为空时保持旧值，绝不清空。
func (s *SyncService) persistSuccess(
	ctx context.Context,
	record *model.Product,
	remoteID string,
	price int64,
	category *model.CategoryResolution,
	newSig string,
) {
	now := time.Now()
	fields := map[string]interface{}{
		"remote_listing_id":   remoteID,
		"target_category_id":  category.TargetCategoryID,
		"category_match_type": category.MatchType,
		"category_key":        NormalizeCategoryPath(record.CategoryPath3),
		"sale_price":          price,
		"options_signature":   newSig,
		"sync_status":         model.SyncStatusSyncedClean,
		"dirty":               false,
		"sync_error":          "",
		"last_synced_at":      &now,
	}
	preserve := []string{
		"remote_listing_id", "target_category_id", "category_match_type",
		"sale_price", "options_signature",
	}
	if err := s.products.UpsertPreserving(ctx, record.SourceItemID, fields, preserve); err != nil {
		log.Printf("[SyncService] %s 快照写入失败: %v", record.SourceItemID, err)
	}
}

// persistFailure 失败状态落库 (dryRun 下不落)
func (s *SyncService) persistFailure(ctx context.Context, record *model.Product, errMsg string, dryRun bool) {
	if dryRun {
		return
	}
	err := s.products.UpdateFields(ctx, record.ID, map[string]interface{}{
		"sync_status": model.SyncStatusFailed,
		"sync_error":  errMsg,
	})
	if err != nil {
		log.Printf("[SyncService] %s 失败状态写入失败: %v", record.SourceItemID, err)
	}
}

// persistSkip 跳过原因落库，状态保持原样等待数据补齐
func (s *SyncService) persistSkip(ctx context.Context, record *model.Product, reason string, dryRun bool) {
	if dryRun {
		return
	}
	err := s.products.UpdateFields(ctx, record.ID, map[string]interface{}{
		"sync_error": reason,
	})
	if err != nil {
		log.Printf("[SyncService] %s 跳过原因写入失败: %v", record.SourceItemID, err)
	}
}
