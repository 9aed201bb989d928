package service

import (
	"context"
	"errors"
	"testing"
	"time"
)

// ==================== 测试替身 ====================

// fakeTransport 可编排失败次数的传输替身
type fakeTransport struct {
	connected bool

	connectCalls int
	invokeCalls  int
	resets       int

	failInvokes int   // 前 N 次 Invoke 返回 failErr
	failErr     error // 默认通用错误
	envelope    []any // 成功时返回的信封
}

func (f *fakeTransport) Connect(ctx context.Context) error {
	f.connectCalls++
	f.connected = true
	return nil
}

func (f *fakeTransport) Invoke(ctx context.Context, operation string, params map[string]string) ([]any, error) {
	f.invokeCalls++
	if f.invokeCalls <= f.failInvokes {
		if f.failErr != nil {
			return nil, f.failErr
		}
		return nil, errors.New("gateway timeout")
	}
	return f.envelope, nil
}

func (f *fakeTransport) Reset() {
	f.resets++
	f.connected = false
}

func (f *fakeTransport) Connected() bool { return f.connected }

// recordingPolicy 不真正睡眠，只记录每次退避时长
func recordingPolicy(delays *[]time.Duration) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Backoff: func(attempt int) time.Duration {
			*delays = append(*delays, ExponentialBackoff(attempt))
			return 0
		},
		NonRetryable: IsAuthError,
	}
}

func groupEnvelope(codes ...string) []any {
	items := make([]any, 0, len(codes))
	for _, code := range codes {
		items = append(items, map[string]any{"GroupCode": code, "GroupName": "Group " + code})
	}
	return []any{
		map[string]any{
			"ListGroupsResult": map[string]any{"Group": items},
		},
	}
}

// ==================== 单元测试 ====================

func TestExponentialBackoff(t *testing.T) {
	if got := ExponentialBackoff(1); got != 2*time.Second {
		t.Errorf("第 1 次退避 = %v, want 2s", got)
	}
	if got := ExponentialBackoff(2); got != 4*time.Second {
		t.Errorf("第 2 次退避 = %v, want 4s", got)
	}
	if got := ExponentialBackoff(3); got != 8*time.Second {
		t.Errorf("第 3 次退避 = %v, want 8s", got)
	}
}

func TestErpClient_RetriesThenSucceeds(t *testing.T) {
	transport := &fakeTransport{
		failInvokes: 2,
		envelope:    groupEnvelope("G-01"),
	}
	var delays []time.Duration
	client := NewErpClientWithTransport(transport, recordingPolicy(&delays), "ACC-1")

	groups, err := client.FetchCategoryGroups(context.Background())
	if err != nil {
		t.Fatalf("第三次尝试应成功: %v", err)
	}
	if len(groups) != 1 || groups[0].Code != "G-01" {
		t.Errorf("结果异常: %+v", groups)
	}

	if transport.invokeCalls != 3 {
		t.Errorf("invoke 次数 = %d, want 3", transport.invokeCalls)
	}
	// 每次失败后句柄被丢弃，下一次必须重建
	if transport.resets != 2 {
		t.Errorf("reset 次数 = %d, want 2", transport.resets)
	}
	if transport.connectCalls != 3 {
		t.Errorf("connect 次数 = %d, want 3", transport.connectCalls)
	}

	want := []time.Duration{2 * time.Second, 4 * time.Second}
	if len(delays) != len(want) {
		t.Fatalf("退避次数 = %d, want %d", len(delays), len(want))
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Errorf("第 %d 次退避 = %v, want %v", i+1, delays[i], want[i])
		}
	}
}

func TestErpClient_ExhaustsRetries(t *testing.T) {
	transport := &fakeTransport{failInvokes: 99}
	var delays []time.Duration
	client := NewErpClientWithTransport(transport, recordingPolicy(&delays), "ACC-1")

	_, err := client.FetchCategoryGroups(context.Background())
	if err == nil {
		t.Fatal("应返回错误")
	}
	if !errors.Is(err, ErrRemoteService) {
		t.Errorf("错误类型异常: %v", err)
	}
	if transport.invokeCalls != 3 {
		t.Errorf("invoke 次数 = %d, want 3", transport.invokeCalls)
	}
	if len(delays) != 2 {
		t.Errorf("退避次数 = %d, want 2", len(delays))
	}
}

func TestErpClient_AuthErrorShortCircuits(t *testing.T) {
	transport := &fakeTransport{
		failInvokes: 99,
		failErr:     errors.New("ERP login failed: invalid credentials"),
	}
	var delays []time.Duration
	client := NewErpClientWithTransport(transport, recordingPolicy(&delays), "ACC-1")

	err := client.Authenticate(context.Background())
	if err == nil {
		t.Fatal("应返回错误")
	}
	if !errors.Is(err, ErrAuthentication) {
		t.Errorf("错误类型异常: %v", err)
	}
	// 凭证错误：一次失败即止损，不退避不重试
	if transport.invokeCalls != 1 {
		t.Errorf("invoke 次数 = %d, want 1", transport.invokeCalls)
	}
	if len(delays) != 0 {
		t.Errorf("凭证错误不应退避, 退避了 %d 次", len(delays))
	}
}

func TestErpClient_CancelledContextStopsRetry(t *testing.T) {
	transport := &fakeTransport{failInvokes: 99}
	client := NewErpClientWithTransport(transport, RetryPolicy{
		MaxAttempts:  3,
		Backoff:      func(int) time.Duration { return time.Hour },
		NonRetryable: IsAuthError,
	}, "ACC-1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.FetchOrders(ctx, "ACC-1")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("取消的 ctx 应立即中断退避等待: %v", err)
	}
	if transport.invokeCalls != 1 {
		t.Errorf("invoke 次数 = %d, want 1", transport.invokeCalls)
	}
}

func TestErpClient_SubmitOrder(t *testing.T) {
	transport := &fakeTransport{
		envelope: []any{
			map[string]any{
				"CreateOrderResult": map[string]any{
					"Order": map[string]any{"OrderNumber": "SO-2026-0001"},
				},
			},
		},
	}
	var delays []time.Duration
	client := NewErpClientWithTransport(transport, recordingPolicy(&delays), "ACC-1")

	orderNumber, err := client.SubmitOrder(context.Background(), ErpOrderInput{
		AccountCode: "ACC-1",
		Lines: []ErpOrderLine{
			{StockNumber: "STK-001", Quantity: 2},
		},
	})
	if err != nil {
		t.Fatalf("下单失败: %v", err)
	}
	if orderNumber != "SO-2026-0001" {
		t.Errorf("订单号 = %s, want SO-2026-0001", orderNumber)
	}
}

func TestIsAuthError(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{errors.New("Unauthorized access"), true},
		{errors.New("erp LOGIN FAILED for user"), true},
		{errors.New("invalid credentials supplied"), true},
		{errors.New("gateway timeout"), false},
		{nil, false},
	}
	for _, tc := range cases {
		if got := IsAuthError(tc.err); got != tc.want {
			t.Errorf("IsAuthError(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}
