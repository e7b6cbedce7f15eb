package service

// 注文の追加元
const (
	SourceWeb = "web"
	SourceBot = "bot"
)

// Update はボットに届いたメッセージを表します
type Update struct {
	// UserID はメッセージ送信者のID（フォーム状態のキー）
	UserID int64

	// ChatID は返信先チャットのID
	ChatID int64

	// Text はメッセージ本文
	Text string

	// Command は "/add" などのコマンド名（先頭の "/" と "@bot" は除く）。コマンドでなければ空
	Command string
}

// Analytics はステータス・支払状況ごとの合計額です
type Analytics struct {
	InTransitPaid        float64
	InPvzPaid            float64
	ReceivedTotal        float64
	SentTotal            float64
	MarketWarehouseTotal float64
	TotalAmount          float64
}

// Stats は注文全体の集計です
type Stats struct {
	Count   int
	Sum     float64
	Profit  float64
	Average float64
}
