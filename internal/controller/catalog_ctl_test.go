package controller

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"erp_portal_v1_202608/internal/model"
	"erp_portal_v1_202608/internal/repository"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ==================== 测试辅助 ====================

func setupCatalogRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}
	if err := db.AutoMigrate(&model.Product{}, &model.Category{}); err != nil {
		t.Fatalf("自动建表失败: %v", err)
	}

	ctl := NewCatalogController(
		repository.NewProductRepository(db),
		repository.NewCategoryRepository(db),
	)

	r := gin.New()
	r.GET("/api/products", ctl.ListProducts)
	r.GET("/api/products/:stock_number", ctl.GetProduct)
	r.GET("/api/categories", ctl.ListCategories)
	return r, db
}

func performRequest(r *gin.Engine, method, path string, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func seedProduct(t *testing.T, db *gorm.DB, stockNumber, name, mainGroup string, active bool) {
	prices := make(pq.Float64Array, model.PriceTierCount)
	prices[0] = 100

	p := model.Product{
		StockNumber:       stockNumber,
		Name:              name,
		PriceList:         prices,
		OriginalPriceList: prices,
		Currency:          "TRY",
		MainGroup:         mainGroup,
		Active:            active,
		SyncedAt:          time.Now(),
	}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("写入商品失败: %v", err)
	}
}

// ==================== 商品接口 ====================

func TestCatalogController_ListProducts(t *testing.T) {
	r, db := setupCatalogRouter(t)
	seedProduct(t, db, "STK-001", "Widget A", "G-01", true)
	seedProduct(t, db, "STK-002", "Widget B", "G-01", true)
	seedProduct(t, db, "STK-003", "Widget C", "G-02", true)
	seedProduct(t, db, "STK-004", "Hidden Widget", "G-01", false)

	tests := []struct {
		name      string
		query     string
		wantTotal float64
	}{
		{"全部商品 (下架除外)", "", 3},
		{"按主分组过滤", "?main_group=G-01", 2},
		{"分页参数", "?page=1&page_size=2", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(r, http.MethodGet, "/api/products"+tt.query, "")
			assert.Equal(t, http.StatusOK, w.Code)

			var resp map[string]any
			assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			data := resp["data"].(map[string]any)
			assert.Equal(t, tt.wantTotal, data["total"])
		})
	}
}

func TestCatalogController_GetProduct(t *testing.T) {
	r, db := setupCatalogRouter(t)
	seedProduct(t, db, "STK-001", "Widget A", "G-01", true)

	t.Run("存在的商品", func(t *testing.T) {
		w := performRequest(r, http.MethodGet, "/api/products/STK-001", "")
		assert.Equal(t, http.StatusOK, w.Code)

		var resp map[string]any
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		data := resp["data"].(map[string]any)
		assert.Equal(t, "Widget A", data["name"])
	})

	t.Run("不存在的商品", func(t *testing.T) {
		w := performRequest(r, http.MethodGet, "/api/products/STK-404", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

// ==================== 分类接口 ====================

func TestCatalogController_ListCategories(t *testing.T) {
	r, db := setupCatalogRouter(t)

	categories := []model.Category{
		{GroupCode: "G-01", Name: "Hardware", Level: model.CategoryLevelMain, Active: true, SyncedAt: time.Now()},
		{GroupCode: "G-02", Name: "Electronics", Level: model.CategoryLevelMain, Active: true, SyncedAt: time.Now()},
		{GroupCode: "G-01-A", Name: "Hand Tools", Level: model.CategoryLevelSub, ParentCode: "G-01", Active: true, SyncedAt: time.Now()},
	}
	assert.NoError(t, db.Create(&categories).Error)

	t.Run("按层级查询", func(t *testing.T) {
		w := performRequest(r, http.MethodGet, "/api/categories?level=1", "")
		assert.Equal(t, http.StatusOK, w.Code)

		var resp map[string]any
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Len(t, resp["data"], 2)
	})

	t.Run("按父分组查询", func(t *testing.T) {
		w := performRequest(r, http.MethodGet, "/api/categories?parent=G-01", "")
		assert.Equal(t, http.StatusOK, w.Code)

		var resp map[string]any
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Len(t, resp["data"], 1)
	})

	t.Run("非法层级", func(t *testing.T) {
		w := performRequest(r, http.MethodGet, "/api/categories?level=4", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
