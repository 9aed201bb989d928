package router

import (
	"github.com/gin-gonic/gin"

	"erp_portal_v1_202608/internal/controller"
)

// Controllers 控制器集合
type Controllers struct {
	Catalog *controller.CatalogController
	Sync    *controller.SyncController
	Order   *controller.OrderController
}

// SetupRouter 注册所有路由
func SetupRouter(ctls *Controllers) *gin.Engine {
	r := gin.Default()

	api := r.Group("/api")
	{
		// 目录查询
		products := api.Group("/products")
		{
			products.GET("", ctls.Catalog.ListProducts)
			products.GET("/:stock_number", ctls.Catalog.GetProduct)
		}
		categories := api.Group("/categories")
		{
			categories.GET("", ctls.Catalog.ListCategories)
		}

		// 同步触发
		sync := api.Group("/sync")
		{
			sync.POST("/full", ctls.Sync.SyncFull)
			sync.POST("/delta", ctls.Sync.SyncDelta)
			sync.POST("/categories", ctls.Sync.SyncCategories)
			sync.GET("/status", ctls.Sync.Status)
		}

		// 订单透传
		orders := api.Group("/orders")
		{
			orders.GET("", ctls.Order.List)
			orders.POST("", ctls.Order.Create)
		}
	}

	return r
}
