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
	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"erp_portal_v1_202608/internal/controller"
	"erp_portal_v1_202608/internal/model"
	"erp_portal_v1_202608/internal/repository"
	"erp_portal_v1_202608/internal/router"
	"erp_portal_v1_202608/internal/service"
	"erp_portal_v1_202608/internal/task"
	"erp_portal_v1_202608/pkg/database"
	"erp_portal_v1_202608/pkg/utils"
)

func main() {
	// 1. 加载环境变量 (.env 不存在时静默跳过，容器里直接注入)
	_ = godotenv.Load()

	// 2. 初始化数据库
	db := initDatabase()

	// 3. 初始化依赖
	deps := initDependencies(db)

	// 4. 启动定时任务
	initTasks(deps)

	// 5. 初始化路由并启动服务
	r := router.SetupRouter(deps.Controllers)
	startServer(r, deps)
}

// ==================== 依赖容器 ====================

// Dependencies 依赖容器
type Dependencies struct {
	DB          *gorm.DB
	Repos       *Repositories
	Services    *Services
	TaskManager *task.TaskManager
	Controllers *router.Controllers
}

// Repositories 仓库集合
type Repositories struct {
	Product  repository.ProductRepository
	Category repository.CategoryRepository
	Cursor   repository.SyncCursorRepository
}

// Services 服务集合
type Services struct {
	Erp         *service.ErpClient
	Exchange    *service.ExchangeRateService
	CatalogSync *service.CatalogSyncService
	Order       *service.OrderService
}

// ==================== 初始化函数 ====================

// initDatabase 初始化数据库
func initDatabase() *gorm.DB {
	return database.InitDB(
		getEnv("DATABASE_DSN", "host=localhost user=erp_portal password=erp_portal dbname=erp_portal port=5432 sslmode=disable"),
		getEnvBool("DB_DEBUG", false),
		&model.Product{}, &model.Category{}, &model.SyncCursor{},
	)
}

// initDependencies 初始化所有依赖
func initDependencies(db *gorm.DB) *Dependencies {
	// -------- Repo 层 --------
	repos := &Repositories{
		Product:  repository.NewProductRepository(db),
		Category: repository.NewCategoryRepository(db),
		Cursor:   repository.NewSyncCursorRepository(db),
	}

	// -------- 外部服务 --------
	httpDebug := getEnvBool("HTTP_DEBUG", false)

	erpClient := service.NewErpClient(&service.ErpConfig{
		WSDLURL:     getEnv("ERP_WSDL_URL", ""),
		Endpoint:    getEnv("ERP_ENDPOINT", ""),
		Username:    getEnv("ERP_USERNAME", ""),
		Password:    getEnv("ERP_PASSWORD", ""),
		SyncAccount: getEnv("ERP_SYNC_ACCOUNT", ""),
	}, utils.NewOutboundClient(60*time.Second, httpDebug))

	exchangeSvc := service.NewExchangeRateService(&service.ExchangeConfig{
		BaseURL:     getEnv("FX_BASE_URL", ""),
		FallbackUSD: getEnvFloat("FX_FALLBACK_USD", 0),
		FallbackEUR: getEnvFloat("FX_FALLBACK_EUR", 0),
	}, utils.NewOutboundClient(15*time.Second, httpDebug))

	// -------- 业务服务 --------
	services := &Services{
		Erp:      erpClient,
		Exchange: exchangeSvc,
	}
	services.CatalogSync = service.NewCatalogSyncService(
		erpClient, exchangeSvc,
		repos.Product, repos.Category, repos.Cursor,
		service.CatalogSyncConfig{
			LocalCurrency: getEnv("LOCAL_CURRENCY", "TRY"),
		},
	)
	services.Order = service.NewOrderService(erpClient, getEnv("ERP_SYNC_ACCOUNT", ""))

	// -------- 任务管理器 --------
	taskManager := task.NewTaskManager(
		&task.TaskManagerDeps{CatalogSync: services.CatalogSync},
		&task.TaskManagerConfig{
			CatalogEnabled: getEnvBool("CATALOG_SYNC_ENABLED", true),
		},
	)

	// -------- Controller 层 --------
	controllers := &router.Controllers{
		Catalog: controller.NewCatalogController(repos.Product, repos.Category),
		Sync:    controller.NewSyncController(taskManager, repos.Cursor),
		Order:   controller.NewOrderController(services.Order),
	}

	return &Dependencies{
		DB:          db,
		Repos:       repos,
		Services:    services,
		TaskManager: taskManager,
		Controllers: controllers,
	}
}

// ==================== 定时任务 ====================

// initTasks 启动定时任务
func initTasks(deps *Dependencies) {
	deps.TaskManager.Start()
}

// ==================== 服务启动 ====================

// startServer 启动服务
func startServer(r *gin.Engine, deps *Dependencies) {
	port := getEnv("SERVER_PORT", "8080")

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	// 异步启动服务
	go func() {
		log.Printf("服务启动在 :%s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("服务启动失败: %v", err)
		}
	}()

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("正在关闭服务...")

	// 先停任务再关 HTTP，避免同步被拦腰截断
	deps.TaskManager.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("服务强制关闭: %v", err)
	}

	log.Println("服务已退出")
}

// ==================== 工具函数 ====================

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}
