package service

import (
	"context"
	"fmt"
)

// ==================== 数据源接口 ====================

// OrderSource 订单透传消费的 ERP 操作 (由 *ErpClient 实现)
type OrderSource interface {
	FetchOrders(ctx context.Context, accountCode string) ([]ErpOrder, error)
	SubmitOrder(ctx context.Context, input ErpOrderInput) (string, error)
}

// ==================== 服务实现 ====================

// OrderService 订单透传服务
// 订单不落本地库，ERP 是唯一事实来源，这里只做账号兜底与转发
type OrderService struct {
	erp            OrderSource
	defaultAccount string
}

// NewOrderService 创建订单服务
func NewOrderService(erp OrderSource, defaultAccount string) *OrderService {
	return &OrderService{erp: erp, defaultAccount: defaultAccount}
}

// List 拉取某账号的订单；账号为空时用同步账号
func (s *OrderService) List(ctx context.Context, accountCode string) ([]ErpOrder, error) {
	if accountCode == "" {
		accountCode = s.defaultAccount
	}
	return s.erp.FetchOrders(ctx, accountCode)
}

// Submit 提交订单到 ERP，返回 ERP 侧订单号
func (s *OrderService) Submit(ctx context.Context, input ErpOrderInput) (string, error) {
	if input.AccountCode == "" {
		input.AccountCode = s.defaultAccount
	}
	if len(input.Lines) == 0 {
		return "", fmt.Errorf("订单至少需要一行商品")
	}
	return s.erp.SubmitOrder(ctx, input)
}
