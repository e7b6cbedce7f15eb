package slack

import (
	"context"
	"fmt"
	"strings"

	"order-bot/project/domain"

	"github.com/slack-go/slack"
)

// Notifier は service.NotifierPort の Slack Incoming Webhook 実装です
type Notifier struct {
	webhookURL string
}

// NewNotifier は Slack 通知クライアントを作成します
func NewNotifier(webhookURL string) *Notifier {
	return &Notifier{webhookURL: webhookURL}
}

// OrdersAdded は追加された注文を運用チャンネルへ通知します
func (n *Notifier) OrdersAdded(ctx context.Context, source string, orders []domain.Order) error {
	msg := &slack.WebhookMessage{
		Text: buildOrdersText(source, orders),
	}
	if err := slack.PostWebhookContext(ctx, n.webhookURL, msg); err != nil {
		return fmt.Errorf("slack: 注文通知失敗 (orders=%d): %w", len(orders), err)
	}
	return nil
}

// buildOrdersText は通知本文を組み立てます
func buildOrdersText(source string, orders []domain.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, ":package: 注文が %d 件追加されました（%s）", len(orders), source)
	for _, o := range orders {
		fmt.Fprintf(&b, "\n• %s / %s / %s: %s",
			orDash(o.Get(domain.FieldShop)),
			orDash(o.Get(domain.FieldOrderNumber)),
			orDash(o.Get(domain.FieldItem)),
			orDash(o.Get(domain.FieldAmount)),
		)
	}
	return b.String()
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
