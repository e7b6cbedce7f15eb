package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"order-bot/project/domain"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
)

// ボットの返信文
const (
	msgGreeting      = "Привет! Бот для заказов\n\n/add — добавить\n/list — последние 10\n/stats — статистика\n/cancel — отменить ввод"
	msgFirstPrompt   = "1. Магазин (например, Wildberries)"
	msgOrderAdded    = "Заказ добавлен! ✅"
	msgSaveFailed    = "Ошибка сохранения"
	msgNoOrders      = "Нет заказов"
	msgFailed        = "Ошибка"
	msgCanceled      = "Ввод отменён"
	msgNothingActive = "Нет активного ввода"
)

// listLimit は /list で表示する件数です
const listLimit = 10

// ConversationService はボットの対話（段階入力フォーム）を処理するサービスです
type ConversationService interface {
	// HandleUpdate はボットに届いた1件のメッセージを処理します
	HandleUpdate(ctx context.Context, u *Update) error
}

// conversationService は ConversationService の実装です
type conversationService struct {
	states    domain.FormStateRepository
	orders    OrderService
	messenger MessengerPort
	clock     clock.Clock
	log       zerolog.Logger
}

// NewConversationService は ConversationService のインスタンスを作成します
func NewConversationService(
	states domain.FormStateRepository,
	orders OrderService,
	messenger MessengerPort,
	clk clock.Clock,
	log zerolog.Logger,
) ConversationService {
	if clk == nil {
		clk = clock.New()
	}
	return &conversationService{
		states:    states,
		orders:    orders,
		messenger: messenger,
		clock:     clk,
		log:       log,
	}
}

// HandleUpdate はコマンドまたはフォームへの回答を処理します
func (cs *conversationService) HandleUpdate(ctx context.Context, u *Update) error {
	if u == nil || u.UserID == 0 {
		return nil
	}

	switch u.Command {
	case "":
		return cs.onText(ctx, u)
	case "start", "help":
		return cs.reply(ctx, u, msgGreeting)
	case "add":
		return cs.onAdd(ctx, u)
	case "cancel":
		return cs.onCancel(ctx, u)
	case "list":
		return cs.onList(ctx, u)
	case "stats":
		return cs.onStats(ctx, u)
	default:
		return cs.reply(ctx, u, msgGreeting)
	}
}

// onAdd はフォーム入力を最初から開始します（入力途中の内容は破棄）
func (cs *conversationService) onAdd(ctx context.Context, u *Update) error {
	state := domain.NewFormState(u.UserID, cs.clock.Now())
	if err := cs.states.Set(ctx, state); err != nil {
		_ = cs.reply(ctx, u, msgFailed)
		return fmt.Errorf("onAdd: フォーム状態保存失敗: %w", err)
	}
	cs.log.Info().Int64("user_id", u.UserID).Msg("order form started")
	return cs.reply(ctx, u, msgFirstPrompt)
}

// onCancel は入力途中のフォームを破棄します
func (cs *conversationService) onCancel(ctx context.Context, u *Update) error {
	_, err := cs.states.Get(ctx, u.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		return cs.reply(ctx, u, msgNothingActive)
	}
	if err != nil {
		return fmt.Errorf("onCancel: フォーム状態取得失敗: %w", err)
	}
	if err := cs.states.Clear(ctx, u.UserID); err != nil {
		return fmt.Errorf("onCancel: フォーム状態削除失敗: %w", err)
	}
	return cs.reply(ctx, u, msgCanceled)
}

// onText はフォームの現在の列に回答を記録し、次の列を尋ねるか注文を保存します
func (cs *conversationService) onText(ctx context.Context, u *Update) error {
	state, err := cs.states.Get(ctx, u.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		cs.log.Debug().Int64("user_id", u.UserID).Msg("no active form, message ignored")
		return nil
	}
	if err != nil {
		return fmt.Errorf("onText: フォーム状態取得失敗: %w", err)
	}

	if err := state.Answer(strings.TrimSpace(u.Text), cs.clock.Now()); err != nil {
		// 保存済みの状態が壊れている場合は破棄します
		_ = cs.states.Clear(ctx, u.UserID)
		return fmt.Errorf("onText: 回答記録失敗: %w", err)
	}

	if state.Phase == domain.PhaseCollecting {
		if err := cs.states.Set(ctx, state); err != nil {
			_ = cs.reply(ctx, u, msgFailed)
			return fmt.Errorf("onText: フォーム状態保存失敗: %w", err)
		}
		return cs.reply(ctx, u, fmt.Sprintf("%d. %s", state.Step+1, state.CurrentField()))
	}

	// 全列回答済み: 1回だけ保存し、成否に関わらずフォームを破棄します
	addErr := cs.orders.Add(ctx, SourceBot, []domain.Order{state.Order()})
	if err := cs.states.Clear(ctx, u.UserID); err != nil {
		cs.log.Warn().Err(err).Int64("user_id", u.UserID).Msg("failed to clear form state")
	}
	if addErr != nil {
		cs.log.Error().Err(addErr).Int64("user_id", u.UserID).Msg("failed to save order")
		return cs.reply(ctx, u, msgSaveFailed)
	}
	return cs.reply(ctx, u, msgOrderAdded)
}

// onList は最新の注文を一覧表示します
func (cs *conversationService) onList(ctx context.Context, u *Update) error {
	orders, err := cs.orders.List(ctx, listLimit)
	if err != nil {
		cs.log.Error().Err(err).Msg("/list failed")
		return cs.reply(ctx, u, msgFailed)
	}
	if len(orders) == 0 {
		return cs.reply(ctx, u, msgNoOrders)
	}
	return cs.reply(ctx, u, FormatOrderList(orders))
}

// onStats は注文全体の集計を表示します
func (cs *conversationService) onStats(ctx context.Context, u *Update) error {
	st, err := cs.orders.Stats(ctx)
	if err != nil {
		cs.log.Error().Err(err).Msg("/stats failed")
		return cs.reply(ctx, u, msgFailed)
	}
	return cs.reply(ctx, u, FormatStats(st))
}

func (cs *conversationService) reply(ctx context.Context, u *Update, text string) error {
	if err := cs.messenger.SendText(ctx, u.ChatID, text); err != nil {
		return fmt.Errorf("reply: %w", err)
	}
	return nil
}

// FormatOrderList は /list の返信文を組み立てます
func FormatOrderList(orders []domain.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Последние %d:\n\n", listLimit)
	for i, o := range orders {
		fmt.Fprintf(&b, "%d. %s – %s (%s шт)\n   Сумма: %s\n\n",
			i+1,
			o.Get(domain.FieldOrderDate),
			o.Get(domain.FieldItem),
			o.Get(domain.FieldQuantity),
			o.Get(domain.FieldAmount),
		)
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatStats は /stats の返信文を組み立てます
func FormatStats(st *Stats) string {
	return fmt.Sprintf("Статистика:\nЗаказов: %d\nСумма: %.2f ₽\nПрибыль: %.2f ₽\nСредний чек: %.2f ₽",
		st.Count, st.Sum, st.Profit, st.Average)
}
