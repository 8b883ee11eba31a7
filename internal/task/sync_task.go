package task

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"qoo10_sync_v1_202609/internal/service"
)

// ==================== CatalogSyncTask 目录同步任务 ====================

// CatalogSyncTask 目录同步定时任务
// 同步策略：
//   - 增量同步：每 30 分钟处理一批待同步记录（新增/脏数据/失败重试）
//   - 全量同步：每日凌晨 4 点，不限条数
type CatalogSyncTask struct {
	syncService *service.SyncService
	cron        *cron.Cron

	batchSize int

	// 防止两轮 cron 重叠执行
	mu      sync.Mutex
	running bool
}

// NewCatalogSyncTask 创建目录同步任务
func NewCatalogSyncTask(syncService *service.SyncService) *CatalogSyncTask {
	return &CatalogSyncTask{
		syncService: syncService,
		cron:        cron.New(cron.WithSeconds()),
		batchSize:   200,
	}
}

// SetBatchSize 设置增量同步批次大小
func (t *CatalogSyncTask) SetBatchSize(size int) {
	if size > 0 {
		t.batchSize = size
	}
}

// Start 启动定时任务
func (t *CatalogSyncTask) Start() {
	// 首次执行（延迟 30 秒，等待参考数据导入）
	go func() {
		time.Sleep(30 * time.Second)
		log.Println("[CatalogSyncTask] 执行首次同步...")
		t.runOnce(t.batchSize, 1*time.Hour)
	}()

	// 增量同步：每 30 分钟
	_, _ = t.cron.AddFunc("0 */30 * * * *", func() {
		t.runOnce(t.batchSize, 1*time.Hour)
	})

	// 全量同步：每日凌晨 4 点
	_, _ = t.cron.AddFunc("0 0 4 * * *", func() {
		log.Println("[CatalogSyncTask] 开始每日全量同步...")
		t.runOnce(0, 6*time.Hour)
	})

	t.cron.Start()
	log.Println("[CatalogSyncTask] 定时任务已启动")
}

// Stop 停止定时任务
func (t *CatalogSyncTask) Stop() {
	t.cron.Stop()
	log.Println("[CatalogSyncTask] 定时任务已停止")
}

// runOnce 执行一轮同步，上一轮未结束时跳过本轮
func (t *CatalogSyncTask) runOnce(limit int, timeout time.Duration) {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		log.Println("[CatalogSyncTask] 上一轮尚未结束，跳过本轮")
		return
	}
	t.running = true
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		t.running = false
		t.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	start := time.Now()
	summary, err := t.syncService.RunBatch(ctx, limit, false)
	if err != nil {
		log.Printf("[CatalogSyncTask] 同步批次失败: %v", err)
		return
	}

	log.Printf("[CatalogSyncTask] 本轮完成: 共 %d 条 %v, 耗时 %v",
		summary.Total, summary.Counts, time.Since(start).Round(time.Millisecond))
}
