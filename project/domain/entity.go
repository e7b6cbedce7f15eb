package domain

import (
	"fmt"
	"strings"
)

// Order はスプレッドシート1行分の注文レコードです（列見出し -> 値）
type Order map[string]string

// 列見出し
const (
	FieldShop          = "Магазин"
	FieldOrderNumber   = "Номер заказа"
	FieldAccount       = "Аккаунт"
	FieldOrderDate     = "Дата заказа"
	FieldItem          = "Позиция"
	FieldPayment       = "Оплата"
	FieldBuyer         = "Покупатель"
	FieldQuantity      = "Количество"
	FieldAmount        = "Сумма"
	FieldProfit        = "Прибыль"
	FieldStatus        = "Статус"
	FieldMarketStorage = "На складе Маркета"
)

// SummaryFields は Mini App の一覧に返す列です
var SummaryFields = []string{
	FieldShop,
	FieldOrderNumber,
	FieldOrderDate,
	FieldItem,
	FieldAmount,
	FieldBuyer,
	FieldProfit,
}

// Get は列の値を返します。列が無い場合は空文字です
func (o Order) Get(field string) string {
	return o[field]
}

// Project は指定列だけを持つ新しい Order を返します（欠損列は空文字）
func (o Order) Project(fields []string) Order {
	out := make(Order, len(fields))
	for _, f := range fields {
		out[f] = o[f]
	}
	return out
}

// Validate は Order の必須条件を検証します
func (o Order) Validate() error {
	if len(o) == 0 {
		return fmt.Errorf("%w: 注文レコードが空です", ErrInvalid)
	}
	for k := range o {
		if strings.TrimSpace(k) == "" {
			return fmt.Errorf("%w: 列名が空です", ErrInvalid)
		}
	}
	return nil
}
