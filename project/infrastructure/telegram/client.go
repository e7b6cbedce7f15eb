package telegram

import (
	"context"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Client は service.MessengerPort の Telegram Bot API 実装です
type Client struct {
	bot *tgbotapi.BotAPI
}

// NewClient はボットトークンで Telegram クライアントを初期化します（getMe で疎通確認）
func NewClient(token string) (*Client, error) {
	return NewClientWithEndpoint(token, tgbotapi.APIEndpoint, &http.Client{Timeout: 30 * time.Second})
}

// NewClientWithEndpoint は API エンドポイントと HTTP クライアントを指定して初期化します
// endpoint は "https://api.telegram.org/bot%s/%s" 形式です
func NewClientWithEndpoint(token, endpoint string, httpClient *http.Client) (*Client, error) {
	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, httpClient)
	if err != nil {
		return nil, fmt.Errorf("telegram: クライアント初期化失敗: %w", err)
	}
	return &Client{bot: bot}, nil
}

// Username はボットのユーザー名を返します
func (c *Client) Username() string {
	return c.bot.Self.UserName
}

// SendText はチャットにテキストメッセージを送信します
func (c *Client) SendText(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("telegram: 送信前にキャンセルされました (chat=%d): %w", chatID, err)
	}

	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := c.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram: メッセージ送信失敗 (chat=%d): %w", chatID, err)
	}
	return nil
}
