package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"order-bot/project/infrastructure/httpsec"
	"order-bot/project/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/hlog"
)

// WebhookHandler は Telegram のボット更新通知を処理します
type WebhookHandler struct {
	verifier     *httpsec.WebhookTokenVerifier
	conversation service.ConversationService
}

// NewWebhookHandler は webhook ハンドラーを作成します
func NewWebhookHandler(verifier *httpsec.WebhookTokenVerifier, conversation service.ConversationService) *WebhookHandler {
	return &WebhookHandler{
		verifier:     verifier,
		conversation: conversation,
	}
}

// ServeHTTP は /telegram/webhook エンドポイント
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := h.verifier.Verify(r.Header); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("webhook token rejected")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "リクエスト本体の読み込み失敗", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var upd tgbotapi.Update
	if err := json.Unmarshal(body, &upd); err != nil {
		http.Error(w, "JSON パース失敗", http.StatusBadRequest)
		return
	}

	u := toServiceUpdate(&upd)
	if u == nil {
		// テキストメッセージ以外は処理しない
		w.WriteHeader(http.StatusOK)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	if err := h.conversation.HandleUpdate(ctx, u); err != nil {
		hlog.FromRequest(r).Error().Err(err).
			Int("update_id", upd.UpdateID).
			Int64("user_id", u.UserID).
			Msg("update handling failed")
		// Telegram 側へは 200 で応答（再送回避）
	}

	w.WriteHeader(http.StatusOK)
}

// toServiceUpdate はテキストメッセージを service.Update に変換します
func toServiceUpdate(upd *tgbotapi.Update) *service.Update {
	msg := upd.Message
	if msg == nil || msg.From == nil || msg.Chat == nil || msg.Text == "" {
		return nil
	}
	u := &service.Update{
		UserID: msg.From.ID,
		ChatID: msg.Chat.ID,
		Text:   msg.Text,
	}
	if msg.IsCommand() {
		u.Command = msg.Command()
	}
	return u
}
