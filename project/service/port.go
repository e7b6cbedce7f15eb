package service

import (
	"context"

	"order-bot/project/domain"
)

// MessengerPort はチャットへの返信のポートです
type MessengerPort interface {
	// SendText は指定チャットにテキストメッセージを送信します
	SendText(ctx context.Context, chatID int64, text string) error
}

// NotifierPort は注文追加の通知先のポートです
type NotifierPort interface {
	// OrdersAdded は追加された注文を通知します。source は "web" または "bot"
	OrdersAdded(ctx context.Context, source string, orders []domain.Order) error
}
