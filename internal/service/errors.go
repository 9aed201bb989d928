package service

import (
	"errors"
	"strings"
)

// ==================== 错误定义 ====================

var (
	// ErrServiceUnavailable ERP 连接建立失败
	ErrServiceUnavailable = errors.New("erp service unavailable")

	// ErrRemoteService ERP 调用在重试耗尽后仍然失败 (非鉴权类)
	ErrRemoteService = errors.New("erp remote call failed")

	// ErrAuthentication 凭证被 ERP 拒绝，不重试
	ErrAuthentication = errors.New("erp authentication rejected")

	// ErrSyncInProgress 已有同步运行持有租约
	ErrSyncInProgress = errors.New("catalog sync already in progress")
)

// 鉴权失败只能从网关返回的错误文案里识别
var authErrorMarkers = []string{
	"unauthorized",
	"login failed",
	"invalid credential",
	"authentication",
}

// IsAuthError 判断错误文案是否指向凭证问题
// 凭证错误重试只会白耗一次连接，必须立即止损
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range authErrorMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
