package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v2"
	"gorm.io/gorm"

	"qoo10_sync_v1_202609/internal/controller"
	"qoo10_sync_v1_202609/internal/model"
	"qoo10_sync_v1_202609/internal/repository"
	"qoo10_sync_v1_202609/internal/router"
	"qoo10_sync_v1_202609/internal/service"
	"qoo10_sync_v1_202609/internal/task"
	"qoo10_sync_v1_202609/pkg/database"
)

func main() {
	app := &cli.App{
		Name:  "qoo10-sync",
		Usage: "韩国源站目录 → Qoo10 日本站 同步决策引擎",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "启动 HTTP 服务与定时同步任务",
				Action: runServe,
			},
			{
				Name:  "sync",
				Usage: "手动执行一轮同步后退出",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Value: 0, Usage: "本轮最多处理条数，<=0 不限"},
					&cli.BoolFlag{Name: "dry-run", Usage: "只计算决策，不调远程不落库"},
				},
				Action: runSyncOnce,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("启动失败: %v", err)
	}
}

// ==================== 依赖容器 ====================

// Dependencies 依赖容器
type Dependencies struct {
	DB    *gorm.DB
	Repos *Repositories
	Svcs  *Services
}

// Repositories 仓库集合
type Repositories struct {
	Product  repository.ProductRepository
	Mapping  repository.MappingRepository
	Taxonomy repository.TaxonomyRepository
	Shipping repository.ShippingRateRepository
}

// Services 服务集合
type Services struct {
	RefData  *service.ReferenceData
	Resolver *service.CategoryResolver
	Pricing  *service.PriceEngine
	Tracker  *service.ChangeTracker
	Market   service.MarketClient
	Sync     *service.SyncService
}

// ==================== 初始化 ====================

// initDatabase 初始化数据库
func initDatabase() *gorm.DB {
	return database.InitDB(
		database.Options{
			DSN:    getEnv("DATABASE_DSN", "host=localhost user=postgres password=postgres dbname=qoo10_sync port=5432 sslmode=disable"),
			LogSQL: getEnv("DB_LOG_SQL", "") == "true",
		},
		// Catalog
		&model.Product{},
		// Category
		&model.CategoryMapping{}, &model.CategoryNode{},
		// Pricing
		&model.ShippingRateBand{},
	)
}

// initDependencies 初始化所有依赖
func initDependencies(db *gorm.DB) (*Dependencies, error) {
	repos := &Repositories{
		Product:  repository.NewProductRepository(db),
		Mapping:  repository.NewMappingRepository(db),
		Taxonomy: repository.NewTaxonomyRepository(db),
		Shipping: repository.NewShippingRateRepository(db),
	}

	refdata := service.NewReferenceData(repos.Mapping, repos.Taxonomy, repos.Shipping)

	fallbackID := getEnv("FALLBACK_CATEGORY_ID", "")
	if fallbackID == "" {
		return nil, errors.New("缺少环境变量 FALLBACK_CATEGORY_ID")
	}
	resolver := service.NewCategoryResolver(refdata, service.ResolverConfig{
		FallbackCategoryID: fallbackID,
		FallbackFullPath:   getEnv("FALLBACK_CATEGORY_PATH", ""),
	})

	pricing, err := service.NewPriceEngine(refdata, service.PriceConfig{
		DomesticShipping: getEnvFloat("DOMESTIC_SHIPPING", 3000),
		FxRate:           getEnvFloat("FX_RATE", 10),
		CommissionRate:   getEnvFloat("COMMISSION_RATE", 0.10),
		MinMarginRate:    getEnvFloat("MIN_MARGIN_RATE", 0.25),
		TargetMarginRate: getEnvFloat("TARGET_MARGIN_RATE", 0.20),
	})
	if err != nil {
		return nil, err
	}

	tracker := service.NewChangeTracker()

	market := service.NewQoo10Client(&service.MarketConfig{
		BaseURL: getEnv("MARKET_API_BASE", ""),
		APIKey:  getEnv("MARKET_API_KEY", ""),
	})

	syncSvc := service.NewSyncService(
		repos.Product, refdata, resolver, pricing, tracker, market,
		service.SyncConfig{
			RetryDelay: time.Duration(getEnvFloat("RETRY_DELAY_SECONDS", 2)) * time.Second,
			FieldDefaults: map[string]string{
				"CategoryCode": fallbackID,
			},
		},
	)

	return &Dependencies{
		DB:    db,
		Repos: repos,
		Svcs: &Services{
			RefData:  refdata,
			Resolver: resolver,
			Pricing:  pricing,
			Tracker:  tracker,
			Market:   market,
			Sync:     syncSvc,
		},
	}, nil
}

// ==================== 子命令 ====================

// runServe 启动 HTTP 服务 + 定时任务
func runServe(_ *cli.Context) error {
	db := initDatabase()
	deps, err := initDependencies(db)
	if err != nil {
		return err
	}

	// 定时任务
	syncTask := task.NewCatalogSyncTask(deps.Svcs.Sync)
	if size, err := strconv.Atoi(getEnv("SYNC_BATCH_SIZE", "")); err == nil {
		syncTask.SetBatchSize(size)
	}
	syncTask.Start()
	defer syncTask.Stop()

	// 路由
	if getEnv("GIN_MODE", "") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	router.InitRoutes(r,
		controller.NewSyncController(deps.Svcs.Sync),
		controller.NewCategoryController(deps.Repos.Mapping, deps.Repos.Product, deps.Svcs.RefData),
		controller.NewProductController(deps.Repos.Product),
		controller.NewRefDataController(deps.Repos.Taxonomy, deps.Repos.Shipping, deps.Svcs.RefData),
	)

	return startServer(r)
}

// runSyncOnce 命令行手动执行一轮同步
func runSyncOnce(c *cli.Context) error {
	db := initDatabase()
	deps, err := initDependencies(db)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Hour)
	defer cancel()

	summary, err := deps.Svcs.Sync.RunBatch(ctx, c.Int("limit"), c.Bool("dry-run"))
	if err != nil {
		return err
	}

	log.Printf("运行 %s 完成: 共 %d 条 %v", summary.RunID, summary.Total, summary.Counts)
	return nil
}

// ==================== 服务启动 ====================

// startServer 启动服务并处理优雅关闭
func startServer(r *gin.Engine) error {
	port := getEnv("SERVER_PORT", "8080")

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	// 异步启动服务
	go func() {
		log.Printf("HTTP 服务启动，监听 :%s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP 服务异常退出: %v", err)
		}
	}()

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("收到退出信号，开始优雅关闭...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}

	log.Println("服务已退出")
	return nil
}

// ==================== 环境变量 ====================

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
