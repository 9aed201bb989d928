package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

// ==================== 配置 ====================

type ErpConfig struct {
	WSDLURL  string // 服务描述地址
	Endpoint string // 连接端点
	Username string
	Password string

	// SyncAccount 同步专用账号编码 (商品/订单列表按账号下发价目)
	SyncAccount string

	ConnectTimeout time.Duration // 建连超时
	CallTimeout    time.Duration // 单次调用超时
}

// ==================== 重试策略 ====================

// RetryPolicy 显式重试策略对象，与运行时的调度模型无关
type RetryPolicy struct {
	MaxAttempts  int
	Backoff      func(attempt int) time.Duration
	NonRetryable func(err error) bool
}

// ExponentialBackoff 第 n 次失败后等 2^n 秒 (n=1 -> 2s, n=2 -> 4s, ...)
func ExponentialBackoff(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt)) * time.Second
}

// DefaultRetryPolicy ERP 调用的默认策略：3 次尝试，指数退避，凭证错误不重试
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  3,
		Backoff:      ExponentialBackoff,
		NonRetryable: IsAuthError,
	}
}

// ==================== 传输层 ====================

// ErpTransport ERP 的有状态连接句柄
// 连接必须先显式建立；任何一次调用失败后句柄都可能已悄悄死掉，
// 由上层负责 Reset 强制下次重建
type ErpTransport interface {
	Connect(ctx context.Context) error
	Invoke(ctx context.Context, operation string, params map[string]string) ([]any, error)
	Reset()
	Connected() bool
}

// httpErpTransport 走 HTTP 网关的传输实现
// 网关把 SOAP 细节挡在外面：建连换取 session，调用提交操作名+扁平参数
type httpErpTransport struct {
	cfg    *ErpConfig
	client *resty.Client

	mu        sync.Mutex
	sessionID string
}

func newHTTPErpTransport(cfg *ErpConfig, client *resty.Client) *httpErpTransport {
	return &httpErpTransport{cfg: cfg, client: client}
}

func (t *httpErpTransport) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var result struct {
		SessionID string `json:"session_id"`
	}

	resp, err := t.client.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"wsdl":     t.cfg.WSDLURL,
			"username": t.cfg.Username,
			"password": t.cfg.Password,
		}).
		SetResult(&result).
		Post(t.cfg.Endpoint + "/session")
	if err != nil {
		t.sessionID = ""
		return err
	}
	if resp.StatusCode() != 200 || result.SessionID == "" {
		t.sessionID = ""
		return fmt.Errorf("erp gateway connect [%d]: %s", resp.StatusCode(), resp.String())
	}

	t.sessionID = result.SessionID
	return nil
}

func (t *httpErpTransport) Invoke(ctx context.Context, operation string, params map[string]string) ([]any, error) {
	t.mu.Lock()
	session := t.sessionID
	t.mu.Unlock()

	var result struct {
		Envelope []any `json:"envelope"`
	}

	body, _ := json.Marshal(map[string]any{
		"session":    session,
		"operation":  operation,
		"parameters": params,
	})

	resp, err := t.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(&result).
		Post(t.cfg.Endpoint + "/invoke")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("erp gateway %s [%d]: %s", operation, resp.StatusCode(), resp.String())
	}

	return result.Envelope, nil
}

func (t *httpErpTransport) Reset() {
	t.mu.Lock()
	t.sessionID = ""
	t.mu.Unlock()
}

func (t *httpErpTransport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sessionID != ""
}

// ==================== 客户端 ====================

// ErpClient 统一的 ERP 调用入口
// 所有高层操作都经过 invoke：确保连接、失败重置句柄、按策略重试
type ErpClient struct {
	transport ErpTransport
	retry     RetryPolicy
	account   string
}

// NewErpClient 创建 ERP 客户端 (HTTP 传输 + 默认重试策略)
func NewErpClient(cfg *ErpConfig, client *resty.Client) *ErpClient {
	if cfg.CallTimeout == 0 {
		cfg.CallTimeout = 60 * time.Second
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 15 * time.Second
	}
	return &ErpClient{
		transport: newHTTPErpTransport(cfg, client),
		retry:     DefaultRetryPolicy(),
		account:   cfg.SyncAccount,
	}
}

// NewErpClientWithTransport 注入传输与策略 (测试用)
func NewErpClientWithTransport(transport ErpTransport, retry RetryPolicy, account string) *ErpClient {
	return &ErpClient{transport: transport, retry: retry, account: account}
}

// ensureConnected 幂等建连，每次调用前执行都安全
func (c *ErpClient) ensureConnected(ctx context.Context) error {
	if c.transport.Connected() {
		return nil
	}
	if err := c.transport.Connect(ctx); err != nil {
		// 半截句柄不能留
		c.transport.Reset()
		return fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	return nil
}

// invoke 统一调用原语：1..MaxAttempts 次尝试，失败即丢弃连接句柄
func (c *ErpClient) invoke(ctx context.Context, operation string, params map[string]string) ([]any, error) {
	var lastErr error

	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		if err := c.ensureConnected(ctx); err != nil {
			lastErr = err
		} else {
			envelope, err := c.transport.Invoke(ctx, operation, params)
			if err == nil {
				return envelope, nil
			}
			lastErr = err
			// 句柄可能已死，下次尝试从干净状态开始
			c.transport.Reset()
		}

		// 凭证错误重试不可能成功，立即止损
		if c.retry.NonRetryable != nil && c.retry.NonRetryable(lastErr) {
			return nil, fmt.Errorf("%w: %v", ErrAuthentication, lastErr)
		}

		if attempt < c.retry.MaxAttempts {
			wait := c.retry.Backoff(attempt)
			log.Printf("[ErpClient] %s 第 %d 次调用失败: %v，%s 后重试", operation, attempt, lastErr, wait)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}
	}

	return nil, fmt.Errorf("%w: %s: %v (已尝试 %d 次)",
		ErrRemoteService, operation, lastErr, c.retry.MaxAttempts)
}

// ==================== 高层操作 ====================

// Authenticate 用同步账号做一次登录校验
func (c *ErpClient) Authenticate(ctx context.Context) error {
	_, err := c.invoke(ctx, "Login", map[string]string{
		"AccountCode": c.account,
	})
	return err
}

// FetchAllProductsWithPrices 多价目全量商品列表
func (c *ErpClient) FetchAllProductsWithPrices(ctx context.Context) ([]ErpProduct, error) {
	envelope, err := c.invoke(ctx, "ListProductsWithPrices", map[string]string{
		"AccountCode": c.account,
	})
	if err != nil {
		return nil, err
	}
	return decodeProductsWithPrices(envelope), nil
}

// FetchProductsLegacy 旧版单价目列表 (降级数据源)
func (c *ErpClient) FetchProductsLegacy(ctx context.Context) ([]ErpProduct, error) {
	envelope, err := c.invoke(ctx, "ListProducts", map[string]string{
		"AccountCode": c.account,
	})
	if err != nil {
		return nil, err
	}
	return decodeLegacyProducts(envelope), nil
}

// FetchCategoryGroups 一级分组
func (c *ErpClient) FetchCategoryGroups(ctx context.Context) ([]ErpGroup, error) {
	envelope, err := c.invoke(ctx, "ListGroups", nil)
	if err != nil {
		return nil, err
	}
	return decodeGroups(envelope), nil
}

// FetchSubGroups 某一级分组下的二级分组
func (c *ErpClient) FetchSubGroups(ctx context.Context, parentCode string) ([]ErpGroup, error) {
	envelope, err := c.invoke(ctx, "ListSubGroups", map[string]string{
		"GroupCode": parentCode,
	})
	if err != nil {
		return nil, err
	}
	return decodeSubGroups(envelope), nil
}

// FetchSubGroups2 某二级分组下的三级分组
func (c *ErpClient) FetchSubGroups2(ctx context.Context, parentCode string) ([]ErpGroup, error) {
	envelope, err := c.invoke(ctx, "ListSubGroups2", map[string]string{
		"SubGroupCode": parentCode,
	})
	if err != nil {
		return nil, err
	}
	return decodeSubGroups2(envelope), nil
}

// FetchOrders 某账号的订单列表
func (c *ErpClient) FetchOrders(ctx context.Context, accountCode string) ([]ErpOrder, error) {
	envelope, err := c.invoke(ctx, "ListOrders", map[string]string{
		"AccountCode": accountCode,
	})
	if err != nil {
		return nil, err
	}
	return decodeOrders(envelope), nil
}

// ErpOrderLine 下单行
type ErpOrderLine struct {
	StockNumber string  `json:"stock_number"`
	Quantity    float64 `json:"quantity"`
}

// ErpOrderInput 下单请求
type ErpOrderInput struct {
	AccountCode string         `json:"account_code"`
	Lines       []ErpOrderLine `json:"lines"`
}

// SubmitOrder 向 ERP 提交订单，返回 ERP 侧订单号
func (c *ErpClient) SubmitOrder(ctx context.Context, input ErpOrderInput) (string, error) {
	lines, err := json.Marshal(input.Lines)
	if err != nil {
		return "", err
	}

	envelope, err := c.invoke(ctx, "CreateOrder", map[string]string{
		"AccountCode": input.AccountCode,
		"Lines":       string(lines),
	})
	if err != nil {
		return "", err
	}

	rows := decodeRows(envelope, "CreateOrderResult", "Order")
	if len(rows) == 0 {
		return "", fmt.Errorf("%w: CreateOrder 返回空结果", ErrRemoteService)
	}
	return rowString(rows[0], "OrderNumber"), nil
}
