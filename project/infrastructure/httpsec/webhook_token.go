package httpsec

import (
	"crypto/hmac"
	"errors"
	"net/http"
)

// TelegramSecretHeader は setWebhook の secret_token が載るヘッダです
const TelegramSecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// ErrWebhookToken は webhook のシークレットトークンが一致しない場合のエラー
var ErrWebhookToken = errors.New("httpsec: webhook シークレットトークンが一致しません")

// WebhookTokenVerifier はボット更新通知のシークレットトークンを検証します
type WebhookTokenVerifier struct {
	secretToken string
}

// NewWebhookTokenVerifier は検証器を作成します。secretToken が空なら検証しません
func NewWebhookTokenVerifier(secretToken string) *WebhookTokenVerifier {
	return &WebhookTokenVerifier{secretToken: secretToken}
}

// Verify はヘッダのトークンを定時間比較します
func (v *WebhookTokenVerifier) Verify(headers http.Header) error {
	if v == nil || v.secretToken == "" {
		return nil
	}
	got := headers.Get(TelegramSecretHeader)
	if got == "" || !hmac.Equal([]byte(got), []byte(v.secretToken)) {
		return ErrWebhookToken
	}
	return nil
}
