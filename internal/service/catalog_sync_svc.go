package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/datatypes"

	"erp_portal_v1_202608/internal/model"
	"erp_portal_v1_202608/internal/repository"
)

// ==================== 数据源接口 ====================

// CatalogSource 对账器消费的远端目录操作集合 (由 *ErpClient 实现)
type CatalogSource interface {
	FetchAllProductsWithPrices(ctx context.Context) ([]ErpProduct, error)
	FetchProductsLegacy(ctx context.Context) ([]ErpProduct, error)
	FetchCategoryGroups(ctx context.Context) ([]ErpGroup, error)
	FetchSubGroups(ctx context.Context, parentCode string) ([]ErpGroup, error)
	FetchSubGroups2(ctx context.Context, parentCode string) ([]ErpGroup, error)
}

// ==================== 配置与结果 ====================

type CatalogSyncConfig struct {
	LocalCurrency string        // 默认 TRY
	BatchSize     int           // 默认 500
	LeaseTTL      time.Duration // 租约有效期，默认 2h
	RunTimeout    time.Duration // 整轮运行的截止时间，默认 1h
}

// 商品来源标记
const (
	ProductSourceRich   = "rich"   // 多价目接口
	ProductSourceLegacy = "legacy" // 旧版单价目接口 (降级)
)

// PhaseResult 单阶段统计
type PhaseResult struct {
	Total    int `json:"total"`
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
}

// SyncSummary 一轮同步的结果摘要
type SyncSummary struct {
	RunID      string        `json:"run_id"`
	Mode       string        `json:"mode"`
	Source     string        `json:"source"` // rich / legacy
	Products   PhaseResult   `json:"products"`
	Categories PhaseResult   `json:"categories"`
	// CategoryError 分类阶段被吸收的错误文案；空串表示分类阶段正常
	CategoryError string        `json:"category_error,omitempty"`
	StartedAt     time.Time     `json:"started_at"`
	Duration      time.Duration `json:"duration"`
}

// ==================== 服务实现 ====================

// CatalogSyncService 目录对账器：一次完整、幂等的同步过程
// 顺序固定：拉商品 -> 归一换汇 -> 分批 Upsert -> 分类树爬取 -> 写游标
// 商品阶段失败整轮作废；分类阶段失败只记录不致命
type CatalogSyncService struct {
	source CatalogSource
	rates  RateProvider

	productRepo repository.ProductRepository
	categoryRepo repository.CategoryRepository
	cursorRepo  repository.SyncCursorRepository

	cfg CatalogSyncConfig
}

// NewCatalogSyncService 创建目录对账器
func NewCatalogSyncService(
	source CatalogSource,
	rates RateProvider,
	productRepo repository.ProductRepository,
	categoryRepo repository.CategoryRepository,
	cursorRepo repository.SyncCursorRepository,
	cfg CatalogSyncConfig,
) *CatalogSyncService {
	if cfg.LocalCurrency == "" {
		cfg.LocalCurrency = "TRY"
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	if cfg.LeaseTTL == 0 {
		cfg.LeaseTTL = 2 * time.Hour
	}
	if cfg.RunTimeout == 0 {
		cfg.RunTimeout = 1 * time.Hour
	}
	return &CatalogSyncService{
		source:       source,
		rates:        rates,
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		cursorRepo:   cursorRepo,
		cfg:          cfg,
	}
}

// FullSync 全量同步
func (s *CatalogSyncService) FullSync(ctx context.Context) (*SyncSummary, error) {
	return s.runSync(ctx, model.SyncModeFull)
}

// DeltaSync 增量同步
// 行为与全量一致 (上游没有变更流，只能全量重拉按内容摘要对账)，区别只在游标标记
func (s *CatalogSyncService) DeltaSync(ctx context.Context) (*SyncSummary, error) {
	return s.runSync(ctx, model.SyncModeDelta)
}

func (s *CatalogSyncService) runSync(ctx context.Context, mode string) (*SyncSummary, error) {
	runID := uuid.NewString()

	// 1. 抢运行租约：手动触发撞上定时任务时明确报"已在跑"，不静默双跑
	acquired, err := s.cursorRepo.AcquireLease(ctx, model.SyncStreamProducts, runID, s.cfg.LeaseTTL)
	if err != nil {
		return nil, fmt.Errorf("获取同步租约失败: %w", err)
	}
	if !acquired {
		return nil, ErrSyncInProgress
	}
	defer func() {
		if err := s.cursorRepo.ReleaseLease(context.Background(), model.SyncStreamProducts, runID); err != nil {
			log.Printf("[CatalogSync] 释放租约失败: %v", err)
		}
	}()

	// 2. 整轮运行挂截止时间，穿透到每一次网络调用
	ctx, cancel := context.WithTimeout(ctx, s.cfg.RunTimeout)
	defer cancel()

	summary := &SyncSummary{
		RunID:     runID,
		Mode:      mode,
		StartedAt: time.Now(),
	}
	log.Printf("[CatalogSync] 开始%s同步 (run=%s)", modeLabel(mode), runID)

	// 3. 商品阶段：失败整轮作废，不写游标
	raws, source, err := s.fetchAllErpProducts(ctx)
	if err != nil {
		return nil, err
	}
	summary.Source = source

	usdRate := s.rates.Rate(ctx, "USD")
	eurRate := s.rates.Rate(ctx, "EUR")

	now := time.Now()
	products := make([]model.Product, 0, len(raws))
	for i := range raws {
		products = append(products, s.buildProduct(&raws[i], usdRate, eurRate, now))
	}

	inserted, updated, err := s.upsertInBatches(ctx, products)
	if err != nil {
		return nil, fmt.Errorf("商品批量入库失败: %w", err)
	}
	summary.Products = PhaseResult{Total: len(products), Inserted: inserted, Updated: updated}

	// 4. 分类阶段：整体失败被吸收，已入库的商品结果不回退
	catInserted, catUpdated, err := s.SyncCategories(ctx)
	if err != nil {
		log.Printf("[CatalogSync] 分类同步失败 (不影响商品结果): %v", err)
		summary.CategoryError = err.Error()
	} else {
		summary.Categories = PhaseResult{
			Total:    catInserted + catUpdated,
			Inserted: catInserted,
			Updated:  catUpdated,
		}
	}

	// 5. 游标最后写，且仅在商品阶段成功后
	if err := s.cursorRepo.Upsert(ctx, model.SyncStreamProducts, mode, time.Now()); err != nil {
		return nil, fmt.Errorf("写同步游标失败: %w", err)
	}

	summary.Duration = time.Since(summary.StartedAt)
	log.Printf("[CatalogSync] %s同步完成: 商品 %d (新增 %d / 更新 %d, 来源 %s), 分类新增 %d / 更新 %d, 耗时 %s",
		modeLabel(mode), summary.Products.Total, inserted, updated, source,
		summary.Categories.Inserted, summary.Categories.Updated, summary.Duration)

	return summary, nil
}

// fetchAllErpProducts 主接口优先，空结果降级到旧版单价目接口
// 降级同步好过不同步；0 条不会被当成正常结果悄悄吞掉
func (s *CatalogSyncService) fetchAllErpProducts(ctx context.Context) ([]ErpProduct, string, error) {
	products, err := s.source.FetchAllProductsWithPrices(ctx)
	if err != nil {
		return nil, "", err
	}
	if len(products) > 0 {
		log.Printf("[CatalogSync] 多价目接口返回 %d 条商品", len(products))
		return products, ProductSourceRich, nil
	}

	log.Printf("[CatalogSync] 多价目接口返回 0 条，降级到旧版单价目接口")
	products, err = s.source.FetchProductsLegacy(ctx)
	if err != nil {
		return nil, "", err
	}
	log.Printf("[CatalogSync] 旧版接口返回 %d 条商品", len(products))
	return products, ProductSourceLegacy, nil
}

// ==================== 商品归一化 ====================

// buildProduct 把 ERP 原始行转成本地商品文档：币种归一、15 档换汇、内容摘要
func (s *CatalogSyncService) buildProduct(raw *ErpProduct, usdRate, eurRate float64, syncedAt time.Time) model.Product {
	currency := normalizeCurrency(raw.Currency, s.cfg.LocalCurrency)

	rate := 1.0
	switch currency {
	case "USD":
		rate = usdRate
	case "EUR":
		rate = eurRate
	}

	original := make(pq.Float64Array, model.PriceTierCount)
	converted := make(pq.Float64Array, model.PriceTierCount)
	for i := 0; i < model.PriceTierCount; i++ {
		original[i] = raw.Prices[i]
		if currency == "USD" || currency == "EUR" {
			converted[i] = roundCents(raw.Prices[i] * rate)
		} else {
			converted[i] = raw.Prices[i]
		}
	}

	snapshot, _ := json.Marshal(raw.Raw)

	return model.Product{
		StockNumber:       raw.StockNumber,
		Name:              raw.Name,
		CategoryName:      raw.GroupName,
		PriceList:         converted,
		OriginalPriceList: original,
		Currency:          currency,
		StockBalance:      raw.Balance,
		Unit:              raw.Unit,
		VatRate:           raw.VatRate,
		ProductType:       raw.ProductType,
		MainGroup:         raw.MainGroup,
		SubGroup:          raw.SubGroup,
		SubGroup2:         raw.SubGroup2,
		Active:            true,
		ContentHash:       productContentHash(raw, currency),
		SyncedAt:          syncedAt,
		RawSnapshot:       datatypes.JSON(snapshot),
	}
}

// normalizeCurrency 去空格、大写；空串或 "NULL" 归一为本币
func normalizeCurrency(code, localCurrency string) string {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" || normalized == "NULL" {
		return localCurrency
	}
	return normalized
}

// roundCents 保留两位小数，半分向上 (0.005 -> 0.01)
func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// productContentHash 定义"有效变更"的稳定摘要：
// 货号、名称、15 档原币价格 (定序)、库存、分类名、币种
// 摘要目前只入库供诊断与后续优化，不用于跳过写入——
// 始终反映 ERP 最新状态优先于省写
func productContentHash(raw *ErpProduct, currency string) string {
	parts := make([]string, 0, model.PriceTierCount+5)
	parts = append(parts, raw.StockNumber, raw.Name)
	for i := 0; i < model.PriceTierCount; i++ {
		parts = append(parts, strconv.FormatFloat(raw.Prices[i], 'f', 2, 64))
	}
	parts = append(parts,
		strconv.FormatFloat(raw.Balance, 'f', 2, 64),
		raw.GroupName,
		currency,
	)

	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// upsertInBatches 固定批量提交，跨批累计 新增/更新 计数
// 批内单条失败不连坐 (无序语义由仓储保证)；批级错误按基础设施故障整轮作废
func (s *CatalogSyncService) upsertInBatches(ctx context.Context, products []model.Product) (int, int, error) {
	inserted, updated := 0, 0
	for start := 0; start < len(products); start += s.cfg.BatchSize {
		end := start + s.cfg.BatchSize
		if end > len(products) {
			end = len(products)
		}
		batchInserted, batchUpdated, err := s.productRepo.BatchUpsert(ctx, products[start:end])
		if err != nil {
			return 0, 0, err
		}
		inserted += batchInserted
		updated += batchUpdated
	}
	return inserted, updated, nil
}

// ==================== 分类树爬取 ====================

// SyncCategories 深度优先爬取三级分类树，最后一次性批量入库
// 二、三级单个分支失败只跳过该分支，兄弟分支继续；一级拉取失败整体上抛
func (s *CatalogSyncService) SyncCategories(ctx context.Context) (inserted, updated int, err error) {
	groups, err := s.source.FetchCategoryGroups(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("拉取一级分组失败: %w", err)
	}

	now := time.Now()
	categories := make([]model.Category, 0, len(groups))

	for _, group := range groups {
		categories = append(categories, buildCategory(group, model.CategoryLevelMain, "", now))

		subGroups, err := s.source.FetchSubGroups(ctx, group.Code)
		if err != nil {
			log.Printf("[CatalogSync] 拉取分组 %s 的二级分组失败，跳过该分支: %v", group.Code, err)
			continue
		}

		for _, subGroup := range subGroups {
			categories = append(categories, buildCategory(subGroup, model.CategoryLevelSub, group.Code, now))

			subGroups2, err := s.source.FetchSubGroups2(ctx, subGroup.Code)
			if err != nil {
				log.Printf("[CatalogSync] 拉取子分组 %s 的三级分组失败，跳过该分支: %v", subGroup.Code, err)
				continue
			}

			for _, subGroup2 := range subGroups2 {
				categories = append(categories, buildCategory(subGroup2, model.CategoryLevelSub2, subGroup.Code, now))
			}
		}
	}

	return s.categoryRepo.BatchUpsert(ctx, categories)
}

func buildCategory(group ErpGroup, level int, parentCode string, syncedAt time.Time) model.Category {
	snapshot, _ := json.Marshal(group.Raw)
	return model.Category{
		GroupCode:   group.Code,
		Name:        group.Name,
		Level:       level,
		ParentCode:  parentCode,
		Active:      true,
		SyncedAt:    syncedAt,
		RawSnapshot: datatypes.JSON(snapshot),
	}
}

func modeLabel(mode string) string {
	if mode == model.SyncModeFull {
		return "全量"
	}
	return "增量"
}
