package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"erp_portal_v1_202608/internal/service"
)

// OrderController 订单控制器 (ERP 透传)
type OrderController struct {
	svc *service.OrderService
}

// NewOrderController 创建订单控制器
func NewOrderController(svc *service.OrderService) *OrderController {
	return &OrderController{svc: svc}
}

// ==================== Handler 实现 ====================

// List 订单列表
// @Summary 拉取 ERP 侧订单列表
// @Tags Order
// @Param account query string false "账号编码 (缺省用同步账号)"
// @Router /api/orders [get]
func (c *OrderController) List(ctx *gin.Context) {
	orders, err := c.svc.List(ctx.Request.Context(), ctx.Query("account"))
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"code": 200, "data": orders})
}

// Create 提交订单
// @Summary 提交订单到 ERP
// @Tags Order
// @Router /api/orders [post]
func (c *OrderController) Create(ctx *gin.Context) {
	var input service.ErpOrderInput
	if err := ctx.ShouldBindJSON(&input); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": err.Error()})
		return
	}

	orderNumber, err := c.svc.Submit(ctx.Request.Context(), input)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "订单已提交",
		"data":    gin.H{"order_number": orderNumber},
	})
}
