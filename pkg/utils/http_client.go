package utils

import (
	"time"

	"github.com/go-resty/resty/v2"
)

// NewOutboundClient 创建统一配置的 Resty 客户端
// ERP 网关和汇率源都从这里拿客户端，超时与 UA 全局一致
func NewOutboundClient(timeout time.Duration, debug bool) *resty.Client {
	if timeout == 0 {
		// ERP 全量商品列表很慢，默认给足 60s
		timeout = 60 * time.Second
	}

	return resty.New().
		SetDebug(debug).
		SetTimeout(timeout).
		SetHeader("User-Agent", "ERP-Portal/1.0")
}
