package service

import (
	"testing"
)

// ==================== 信封形态 ====================

func TestDecodeRows_ListShape(t *testing.T) {
	envelope := []any{
		map[string]any{
			"ListProductsWithPricesResult": map[string]any{
				"Product": []any{
					map[string]any{"StockNumber": "STK-001"},
					map[string]any{"StockNumber": "STK-002"},
				},
			},
		},
	}

	rows := decodeRows(envelope, "ListProductsWithPricesResult", "Product")
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rowString(rows[1], "StockNumber") != "STK-002" {
		t.Errorf("第二行货号 = %q, want STK-002", rowString(rows[1], "StockNumber"))
	}
}

func TestDecodeRows_SingleObjectShape(t *testing.T) {
	// 网关会把单行结果展平成对象而不是长度 1 的数组
	envelope := []any{
		map[string]any{
			"ListGroupsResult": map[string]any{
				"Group": map[string]any{"GroupCode": "G-01", "GroupName": "Hardware"},
			},
		},
	}

	rows := decodeRows(envelope, "ListGroupsResult", "Group")
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	if rowString(rows[0], "GroupCode") != "G-01" {
		t.Errorf("分组编码 = %q, want G-01", rowString(rows[0], "GroupCode"))
	}
}

func TestDecodeRows_AbsentShape(t *testing.T) {
	// 空结果集：行字段整个缺失
	envelope := []any{
		map[string]any{
			"ListOrdersResult": map[string]any{},
		},
	}

	rows := decodeRows(envelope, "ListOrdersResult", "Order")
	if len(rows) != 0 {
		t.Errorf("缺失字段应解码为空列表, got %d 行", len(rows))
	}
}

func TestDecodeRows_MalformedEnvelope(t *testing.T) {
	cases := []struct {
		name     string
		envelope []any
	}{
		{"空信封", nil},
		{"首元素不是对象", []any{"garbage"}},
		{"结果字段不是对象", []any{map[string]any{"ListGroupsResult": "oops"}}},
		{"行字段形态未知", []any{map[string]any{"ListGroupsResult": map[string]any{"Group": 42}}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if rows := decodeRows(tc.envelope, "ListGroupsResult", "Group"); len(rows) != 0 {
				t.Errorf("坏信封应解码为空列表, got %d 行", len(rows))
			}
		})
	}
}

// ==================== 字段取值 ====================

func TestRowFloat_MixedRepresentations(t *testing.T) {
	row := ErpRow{
		"AsFloat":  12.5,
		"AsString": " 7.25 ",
		"AsInt":    3,
		"Missing":  nil,
		"Garbage":  "abc",
	}

	if got := rowFloat(row, "AsFloat"); got != 12.5 {
		t.Errorf("float 取值 = %v, want 12.5", got)
	}
	if got := rowFloat(row, "AsString"); got != 7.25 {
		t.Errorf("string 取值 = %v, want 7.25", got)
	}
	if got := rowFloat(row, "AsInt"); got != 3 {
		t.Errorf("int 取值 = %v, want 3", got)
	}
	if got := rowFloat(row, "Missing"); got != 0 {
		t.Errorf("缺失取值 = %v, want 0", got)
	}
	if got := rowFloat(row, "Garbage"); got != 0 {
		t.Errorf("坏值取值 = %v, want 0", got)
	}
}

// ==================== 商品解码 ====================

func TestDecodeProductsWithPrices_FieldMapping(t *testing.T) {
	row := map[string]any{
		"StockNumber":   "STK-100",
		"StockName":     "Widget",
		"GroupName":     "Hardware",
		"Currency":      "USD",
		"Balance":       "42",
		"Unit":          "AD",
		"VatRate":       20.0,
		"MainGroupCode": "G-01",
		"SubGroupCode":  "G-01-A",
		"SubGroup2Code": "G-01-A-1",
		"Price1":        10.5,
		"Price2":        "9.75",
		"Price15":       1.0,
	}
	envelope := []any{
		map[string]any{
			"ListProductsWithPricesResult": map[string]any{
				"Product": []any{row},
			},
		},
	}

	products := decodeProductsWithPrices(envelope)
	if len(products) != 1 {
		t.Fatalf("products = %d, want 1", len(products))
	}

	p := products[0]
	if p.StockNumber != "STK-100" || p.Name != "Widget" || p.GroupName != "Hardware" {
		t.Errorf("基础字段映射异常: %+v", p)
	}
	if p.Currency != "USD" || p.Balance != 42 {
		t.Errorf("币种/库存映射异常: %s / %v", p.Currency, p.Balance)
	}
	if p.Prices[0] != 10.5 || p.Prices[1] != 9.75 || p.Prices[14] != 1.0 {
		t.Errorf("价目映射异常: %v", p.Prices)
	}
	if p.Prices[2] != 0 {
		t.Errorf("缺失价目档应为 0, got %v", p.Prices[2])
	}
	if p.MainGroup != "G-01" || p.SubGroup != "G-01-A" || p.SubGroup2 != "G-01-A-1" {
		t.Errorf("分组编码映射异常: %s / %s / %s", p.MainGroup, p.SubGroup, p.SubGroup2)
	}
}

func TestDecodeLegacyProducts_SalePriceOnly(t *testing.T) {
	envelope := []any{
		map[string]any{
			"ListProductsResult": map[string]any{
				"Product": []any{
					map[string]any{
						"StockNumber": "STK-OLD",
						"StockName":   "Legacy Widget",
						"SalePrice":   "15.90",
					},
				},
			},
		},
	}

	products := decodeLegacyProducts(envelope)
	if len(products) != 1 {
		t.Fatalf("products = %d, want 1", len(products))
	}

	p := products[0]
	if p.Prices[0] != 15.90 {
		t.Errorf("旧版单价应落在第一档, got %v", p.Prices[0])
	}
	for i := 1; i < len(p.Prices); i++ {
		if p.Prices[i] != 0 {
			t.Errorf("旧版第 %d 档应为 0, got %v", i+1, p.Prices[i])
		}
	}
	if p.Currency != "" {
		t.Errorf("旧版接口不带币种, got %q", p.Currency)
	}
}

func TestDecodeSubGroups_Levels(t *testing.T) {
	sub := []any{
		map[string]any{
			"ListSubGroupsResult": map[string]any{
				"SubGroup": []any{
					map[string]any{"GroupCode": "G-01-A", "GroupName": "Hand Tools"},
				},
			},
		},
	}
	sub2 := []any{
		map[string]any{
			"ListSubGroups2Result": map[string]any{
				"SubGroup2": map[string]any{"GroupCode": "G-01-A-1", "GroupName": "Hammers"},
			},
		},
	}

	groups := decodeSubGroups(sub)
	if len(groups) != 1 || groups[0].Code != "G-01-A" {
		t.Errorf("二级分组解码异常: %+v", groups)
	}

	groups2 := decodeSubGroups2(sub2)
	if len(groups2) != 1 || groups2[0].Name != "Hammers" {
		t.Errorf("三级分组解码异常: %+v", groups2)
	}
}
