package service

import (
	"strconv"
	"strings"

	"order-bot/project/domain"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ステータス・支払状況の判定に使う部分文字列（小文字）
const (
	statusInTransit       = "в пути"
	statusPvz             = "пвз"
	statusReceived        = "получен"
	statusSent            = "отправлен"
	statusMarketWarehouse = "на складе маркета"
	paymentPaid           = "оплачен"
	paymentUnpaid         = "не оплачен"
)

var ruPrinter = message.NewPrinter(language.Russian)

// ComputeAnalytics は注文をステータスごとに合計します
// 1つの注文が複数の区分に該当する場合は、該当した区分すべてと総額に加算します
func ComputeAnalytics(orders []domain.Order) Analytics {
	var a Analytics
	for _, o := range orders {
		status := normalize(o.Get(domain.FieldStatus))
		payment := normalize(o.Get(domain.FieldPayment))
		sum := ParseAmount(o.Get(domain.FieldAmount))
		paid := strings.Contains(payment, paymentPaid) && !strings.Contains(payment, paymentUnpaid)

		if strings.Contains(status, statusInTransit) && paid {
			a.InTransitPaid += sum
			a.TotalAmount += sum
		}
		if strings.Contains(status, statusPvz) && paid {
			a.InPvzPaid += sum
			a.TotalAmount += sum
		}
		if strings.Contains(status, statusReceived) {
			a.ReceivedTotal += sum
			a.TotalAmount += sum
		}
		if strings.Contains(status, statusSent) {
			a.SentTotal += sum
			a.TotalAmount += sum
		}
		if strings.Contains(status, statusMarketWarehouse) {
			a.MarketWarehouseTotal += sum
			a.TotalAmount += sum
		}
	}
	return a
}

// ComputeStats は件数・合計・利益・平均単価を計算します
func ComputeStats(orders []domain.Order) Stats {
	s := Stats{Count: len(orders)}
	for _, o := range orders {
		s.Sum += ParseAmount(o.Get(domain.FieldAmount))
		s.Profit += ParseAmount(o.Get(domain.FieldProfit))
	}
	if s.Count > 0 {
		s.Average = s.Sum / float64(s.Count)
	}
	return s
}

// ParseAmount はセルの金額を数値にします
// 空白・ノーブレークスペース・"₽" を除き、小数点のカンマを許容します。解析できなければ 0
func ParseAmount(s string) float64 {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\u00a0', '\u202f', '₽':
			return -1
		case ',':
			return '.'
		}
		return r
	}, s)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// FormatRub はロシア語ロケールで小数2桁に整形します（例: "1 234,50"）
func FormatRub(v float64) string {
	return ruPrinter.Sprintf("%.2f", v)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
