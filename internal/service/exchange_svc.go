package service

import (
	"context"
	"encoding/xml"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

// ==================== 配置 ====================

type ExchangeConfig struct {
	BaseURL     string  // 默认 TCMB 汇率页
	FallbackUSD float64 // 汇率源不可用且无缓存时的兜底
	FallbackEUR float64
	CacheTTL    time.Duration // 默认 24h
}

const defaultRateBaseURL = "https://www.tcmb.gov.tr/kurlar"

// ==================== 汇率源响应 (TCMB 当日 XML) ====================

type rateTableXML struct {
	XMLName    xml.Name          `xml:"Tarih_Date"`
	Currencies []rateCurrencyXML `xml:"Currency"`
}

type rateCurrencyXML struct {
	Code         string `xml:"CurrencyCode,attr"`
	ForexSelling string `xml:"ForexSelling"`
}

// ==================== 服务实现 ====================

// ExchangeRateService 提供 USD/EUR 对本币的卖出汇率
// 进程内缓存，TTL 24 小时；刷新失败绝不向调用方抛错——
// 宁可用旧值或兜底值，也不让一次汇率故障拖垮整轮同步
type ExchangeRateService struct {
	cfg    *ExchangeConfig
	client *resty.Client

	mu         sync.Mutex
	usdRate    float64
	eurRate    float64
	lastUpdate time.Time
}

// RateProvider 对账器看到的汇率来源
type RateProvider interface {
	Rate(ctx context.Context, currencyCode string) float64
}

// NewExchangeRateService 创建汇率服务
func NewExchangeRateService(cfg *ExchangeConfig, client *resty.Client) *ExchangeRateService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultRateBaseURL
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 24 * time.Hour
	}
	return &ExchangeRateService{cfg: cfg, client: client}
}

// Rate 取某币种对本币的汇率；USD/EUR 以外一律返回 1 (不换算)
func (s *ExchangeRateService) Rate(ctx context.Context, currencyCode string) float64 {
	code := strings.ToUpper(strings.TrimSpace(currencyCode))
	if code != "USD" && code != "EUR" {
		return 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lastUpdate.IsZero() || time.Since(s.lastUpdate) > s.cfg.CacheTTL {
		s.refreshLocked(ctx)
	}

	if code == "USD" {
		return s.usdRate
	}
	return s.eurRate
}

// Refresh 立即刷新缓存，返回是否取到了新鲜汇率
func (s *ExchangeRateService) Refresh(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshLocked(ctx)
}

// refreshLocked 调用方必须已持有 s.mu
func (s *ExchangeRateService) refreshLocked(ctx context.Context) bool {
	usd, eur, err := s.fetchRates(ctx)
	if err != nil {
		if s.lastUpdate.IsZero() {
			// 没有任何可用的缓存值，才落到配置兜底
			log.Printf("[ExchangeRate] 拉取汇率失败，使用兜底值 USD=%.4f EUR=%.4f: %v",
				s.cfg.FallbackUSD, s.cfg.FallbackEUR, err)
			s.usdRate = s.cfg.FallbackUSD
			s.eurRate = s.cfg.FallbackEUR
			s.lastUpdate = time.Now()
		} else {
			// 旧值可用就保留：过期可用好过不可用
			log.Printf("[ExchangeRate] 刷新失败，沿用缓存 USD=%.4f EUR=%.4f: %v",
				s.usdRate, s.eurRate, err)
		}
		return false
	}

	s.usdRate = usd
	s.eurRate = eur
	s.lastUpdate = time.Now()
	log.Printf("[ExchangeRate] 汇率已更新 USD=%.4f EUR=%.4f", usd, eur)
	return true
}

// fetchRates 请求当日汇率表并提取 USD/EUR 卖出价
func (s *ExchangeRateService) fetchRates(ctx context.Context) (usd, eur float64, err error) {
	resp, err := s.client.R().
		SetContext(ctx).
		Get(s.cfg.BaseURL + "/today.xml")
	if err != nil {
		return 0, 0, err
	}
	if resp.StatusCode() != 200 {
		return 0, 0, fmt.Errorf("汇率源响应异常 [%d]", resp.StatusCode())
	}

	var table rateTableXML
	if err := xml.Unmarshal(resp.Body(), &table); err != nil {
		return 0, 0, fmt.Errorf("汇率表解析失败: %v", err)
	}

	for _, cur := range table.Currencies {
		value, parseErr := strconv.ParseFloat(strings.TrimSpace(cur.ForexSelling), 64)
		if parseErr != nil {
			continue
		}
		switch cur.Code {
		case "USD":
			usd = value
		case "EUR":
			eur = value
		}
	}

	if usd == 0 || eur == 0 {
		return 0, 0, fmt.Errorf("汇率表缺少 USD/EUR 卖出价")
	}
	return usd, eur, nil
}
