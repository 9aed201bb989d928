package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"erp_portal_v1_202608/internal/model"
	"erp_portal_v1_202608/internal/repository"
)

// CatalogController 目录查询控制器 (门户前端消费)
type CatalogController struct {
	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
}

// NewCatalogController 创建目录控制器
func NewCatalogController(productRepo repository.ProductRepository, categoryRepo repository.CategoryRepository) *CatalogController {
	return &CatalogController{productRepo: productRepo, categoryRepo: categoryRepo}
}

// ==================== 商品 ====================

// ListProducts 商品列表
// @Summary 商品分页列表
// @Tags Catalog
// @Param page query int false "页码"
// @Param page_size query int false "每页条数"
// @Param keyword query string false "名称关键字"
// @Param main_group query string false "主分组码"
// @Router /api/products [get]
func (c *CatalogController) ListProducts(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(ctx.DefaultQuery("page_size", "20"))

	filter := repository.ProductFilter{
		Keyword:   ctx.Query("keyword"),
		MainGroup: ctx.Query("main_group"),
		SubGroup:  ctx.Query("sub_group"),
		SubGroup2: ctx.Query("sub_group2"),
		Page:      page,
		PageSize:  pageSize,
	}

	products, total, err := c.productRepo.List(ctx.Request.Context(), filter)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code": 200,
		"data": gin.H{
			"items":     products,
			"total":     total,
			"page":      filter.Page,
			"page_size": filter.PageSize,
		},
	})
}

// GetProduct 商品详情
// @Summary 按货号查询商品
// @Tags Catalog
// @Param stock_number path string true "ERP 货号"
// @Router /api/products/{stock_number} [get]
func (c *CatalogController) GetProduct(ctx *gin.Context) {
	stockNumber := ctx.Param("stock_number")

	product, err := c.productRepo.GetByStockNumber(ctx.Request.Context(), stockNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"code": 404, "message": "商品不存在"})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"code": 200, "data": product})
}

// ==================== 分类 ====================

// ListCategories 分类查询
// @Summary 按层级或父分组查询分类
// @Tags Catalog
// @Param level query int false "层级 1..3"
// @Param parent query string false "父分组码"
// @Router /api/categories [get]
func (c *CatalogController) ListCategories(ctx *gin.Context) {
	parent := ctx.Query("parent")
	if parent != "" {
		categories, err := c.categoryRepo.ListByParent(ctx.Request.Context(), parent)
		if err != nil {
			ctx.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": err.Error()})
			return
		}
		ctx.JSON(http.StatusOK, gin.H{"code": 200, "data": categories})
		return
	}

	level, err := strconv.Atoi(ctx.DefaultQuery("level", "1"))
	if err != nil || level < model.CategoryLevelMain || level > model.CategoryLevelSub2 {
		ctx.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": "level 必须在 1..3 之间"})
		return
	}

	categories, listErr := c.categoryRepo.ListByLevel(ctx.Request.Context(), level)
	if listErr != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": listErr.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"code": 200, "data": categories})
}
