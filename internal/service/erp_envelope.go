package service

import (
	"encoding/json"
	"strconv"
	"strings"

	"erp_portal_v1_202608/internal/model"
)

// ==================== 结果信封解码 ====================
//
// ERP 网关返回的信封是 []any：首元素是一个以"操作名+Result"为键的包装对象，
// 行数据挂在包装对象内层字段下，可能是 缺失/单个对象/数组 三种形态之一。
// 这里不做乐观的链式取值，三种形态逐一枚举，坏信封一律按空列表处理。

// ErpRow ERP 返回的一行原始记录
type ErpRow map[string]any

// decodeRows 从信封中按 结果字段名/行字段名 取出行列表
func decodeRows(envelope []any, resultField, rowField string) []ErpRow {
	if len(envelope) == 0 {
		return nil
	}

	first, ok := envelope[0].(map[string]any)
	if !ok {
		return nil
	}

	wrapper, ok := first[resultField].(map[string]any)
	if !ok {
		return nil
	}

	switch rows := wrapper[rowField].(type) {
	case nil:
		// 形态一：字段缺失，视为空结果
		return nil
	case map[string]any:
		// 形态二：单行被网关展平成对象
		return []ErpRow{rows}
	case []any:
		// 形态三：正常的多行数组
		out := make([]ErpRow, 0, len(rows))
		for _, item := range rows {
			if row, ok := item.(map[string]any); ok {
				out = append(out, row)
			}
		}
		return out
	default:
		return nil
	}
}

// ==================== 行字段取值辅助 ====================

func rowString(row ErpRow, key string) string {
	switch v := row[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

func rowFloat(row ErpRow, key string) float64 {
	switch v := row[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case json.Number:
		f, _ := v.Float64()
		return f
	case string:
		f, _ := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f
	default:
		return 0
	}
}

// ==================== 类型化记录 ====================

// ErpProduct 商品行的类型化结果 (两个列表操作共用)
type ErpProduct struct {
	StockNumber string
	Name        string
	GroupName   string
	Prices      [model.PriceTierCount]float64
	Currency    string
	Balance     float64
	Unit        string
	VatRate     float64
	ProductType string
	MainGroup   string
	SubGroup    string
	SubGroup2   string
	Raw         ErpRow
}

// ErpGroup 分组行 (三级分组共用同一形状)
type ErpGroup struct {
	Code string
	Name string
	Raw  ErpRow
}

// ErpOrder ERP 侧订单行
type ErpOrder struct {
	OrderNumber string
	OrderDate   string
	Total       float64
	Currency    string
	Raw         ErpRow
}

// ==================== 按操作解码 ====================

func decodeProductRow(row ErpRow) ErpProduct {
	p := ErpProduct{
		StockNumber: rowString(row, "StockNumber"),
		Name:        rowString(row, "StockName"),
		GroupName:   rowString(row, "GroupName"),
		Currency:    rowString(row, "Currency"),
		Balance:     rowFloat(row, "Balance"),
		Unit:        rowString(row, "Unit"),
		VatRate:     rowFloat(row, "VatRate"),
		ProductType: rowString(row, "ProductType"),
		MainGroup:   rowString(row, "MainGroupCode"),
		SubGroup:    rowString(row, "SubGroupCode"),
		SubGroup2:   rowString(row, "SubGroup2Code"),
		Raw:         row,
	}
	for i := 0; i < model.PriceTierCount; i++ {
		p.Prices[i] = rowFloat(row, "Price"+strconv.Itoa(i+1))
	}
	return p
}

// decodeProductsWithPrices 多价目商品列表
func decodeProductsWithPrices(envelope []any) []ErpProduct {
	rows := decodeRows(envelope, "ListProductsWithPricesResult", "Product")
	out := make([]ErpProduct, 0, len(rows))
	for _, row := range rows {
		out = append(out, decodeProductRow(row))
	}
	return out
}

// decodeLegacyProducts 旧版单价目列表，只有一档价格且不带币种
func decodeLegacyProducts(envelope []any) []ErpProduct {
	rows := decodeRows(envelope, "ListProductsResult", "Product")
	out := make([]ErpProduct, 0, len(rows))
	for _, row := range rows {
		p := ErpProduct{
			StockNumber: rowString(row, "StockNumber"),
			Name:        rowString(row, "StockName"),
			GroupName:   rowString(row, "GroupName"),
			Balance:     rowFloat(row, "Balance"),
			Unit:        rowString(row, "Unit"),
			VatRate:     rowFloat(row, "VatRate"),
			ProductType: rowString(row, "ProductType"),
			MainGroup:   rowString(row, "MainGroupCode"),
			SubGroup:    rowString(row, "SubGroupCode"),
			SubGroup2:   rowString(row, "SubGroup2Code"),
			Raw:         row,
		}
		p.Prices[0] = rowFloat(row, "SalePrice")
		out = append(out, p)
	}
	return out
}

func decodeGroupRows(rows []ErpRow) []ErpGroup {
	out := make([]ErpGroup, 0, len(rows))
	for _, row := range rows {
		out = append(out, ErpGroup{
			Code: rowString(row, "GroupCode"),
			Name: rowString(row, "GroupName"),
			Raw:  row,
		})
	}
	return out
}

// decodeGroups 一级分组
func decodeGroups(envelope []any) []ErpGroup {
	return decodeGroupRows(decodeRows(envelope, "ListGroupsResult", "Group"))
}

// decodeSubGroups 二级分组
func decodeSubGroups(envelope []any) []ErpGroup {
	return decodeGroupRows(decodeRows(envelope, "ListSubGroupsResult", "SubGroup"))
}

// decodeSubGroups2 三级分组
func decodeSubGroups2(envelope []any) []ErpGroup {
	return decodeGroupRows(decodeRows(envelope, "ListSubGroups2Result", "SubGroup2"))
}

// decodeOrders 订单列表
func decodeOrders(envelope []any) []ErpOrder {
	rows := decodeRows(envelope, "ListOrdersResult", "Order")
	out := make([]ErpOrder, 0, len(rows))
	for _, row := range rows {
		out = append(out, ErpOrder{
			OrderNumber: rowString(row, "OrderNumber"),
			OrderDate:   rowString(row, "OrderDate"),
			Total:       rowFloat(row, "Total"),
			Currency:    rowString(row, "Currency"),
			Raw:         row,
		})
	}
	return out
}
