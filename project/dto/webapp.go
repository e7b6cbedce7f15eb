package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"order-bot/project/domain"
)

// OrdersRequest は /api/orders のリクエストです
type OrdersRequest struct {
	InitData string `json:"initData"`
	Limit    int    `json:"limit,omitempty"` // 0 なら全件
}

// OrdersResponse は /api/orders のレスポンスです
type OrdersResponse struct {
	Success bool           `json:"success"`
	Orders  []domain.Order `json:"orders"`
}

// AddOrderRequest は /api/add-order のリクエストです
// Data は注文1件のオブジェクト、または注文の配列です
type AddOrderRequest struct {
	InitData string          `json:"initData"`
	Data     json.RawMessage `json:"data"`
}

// AddOrderResponse は /api/add-order のレスポンスです
type AddOrderResponse struct {
	Success bool `json:"success"`
	Added   int  `json:"added"`
}

// AnalyticsRequest は /api/analytics のリクエストです
type AnalyticsRequest struct {
	InitData string `json:"initData"`
}

// AnalyticsResponse は /api/analytics のレスポンスです（金額はロシア語ロケールの文字列）
type AnalyticsResponse struct {
	Success              bool   `json:"success"`
	InTransitPaid        string `json:"inTransitPaid"`
	InPvzPaid            string `json:"inPvzPaid"`
	ReceivedTotal        string `json:"receivedTotal"`
	SentTotal            string `json:"sentTotal"`
	MarketWarehouseTotal string `json:"marketWarehouseTotal"`
	TotalAmount          string `json:"totalAmount"`
}

// ErrorResponse は失敗時のレスポンスです
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// HasData は data フィールドが指定されているかを返します
func (r *AddOrderRequest) HasData() bool {
	trimmed := bytes.TrimSpace(r.Data)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// DecodeOrders は data フィールドを注文の配列に変換します
// 値は文字列に変換します（数値はそのままの表記、null は空文字）
func (r *AddOrderRequest) DecodeOrders() ([]domain.Order, error) {
	trimmed := bytes.TrimSpace(r.Data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: data がありません", domain.ErrInvalid)
	}

	var raws []map[string]interface{}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	switch trimmed[0] {
	case '[':
		if err := dec.Decode(&raws); err != nil {
			return nil, fmt.Errorf("%w: data の配列を解析できません: %v", domain.ErrInvalid, err)
		}
	case '{':
		var one map[string]interface{}
		if err := dec.Decode(&one); err != nil {
			return nil, fmt.Errorf("%w: data を解析できません: %v", domain.ErrInvalid, err)
		}
		raws = append(raws, one)
	default:
		return nil, fmt.Errorf("%w: data はオブジェクトか配列である必要があります", domain.ErrInvalid)
	}

	orders := make([]domain.Order, 0, len(raws))
	for _, raw := range raws {
		o := make(domain.Order, len(raw))
		for k, v := range raw {
			o[strings.TrimSpace(k)] = stringify(v)
		}
		orders = append(orders, o)
	}
	return orders, nil
}

func stringify(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case json.Number:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
