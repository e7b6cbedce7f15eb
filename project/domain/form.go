package domain

import (
	"fmt"
	"time"
)

// FormFields は会話フォームで順に入力を求める列です
// 元の対話では「Номер заказа」を2回尋ねていましたが、同じ列に書き込まれるため1回にしています
var FormFields = []string{
	FieldShop, FieldOrderNumber, FieldAccount, FieldOrderDate, FieldItem,
	"Штрих код товара", "Бирка (qr код)", "Серийник", "Адрес ПВЗ",
	"Дата получения", FieldMarketStorage, FieldPayment, "SKU", FieldBuyer,
	"Дата продажи", "FBY/FBS", "Дата поставки", "Город поставки",
	"Номер коробки", "Номер поставки", "Стикер вб фбс",
	"Цена товара", FieldQuantity, FieldAmount, "Оплачено баллами",
	"Начисленно баллов", "Яма/Вб Продажа", "Яма/Вб Зачисление",
	"Налог", "Продажа", "ПВЗ", FieldProfit,
}

// FormPhase は会話フォームの状態です
type FormPhase string

const (
	// PhaseIdle はフォーム未開始（状態レコードなし）
	PhaseIdle FormPhase = "idle"
	// PhaseCollecting は Step 番目の列の回答待ち
	PhaseCollecting FormPhase = "collecting"
	// PhaseDone は全列の回答済み（保存直前）
	PhaseDone FormPhase = "done"
)

// FormState はユーザーごとの入力途中の注文です
type FormState struct {
	// UserID はチャットプラットフォームのユーザーID
	UserID int64 `json:"user_id"`

	// Phase は現在の状態
	Phase FormPhase `json:"phase"`

	// Step は次に回答を受け取る FormFields のインデックス
	Step int `json:"step"`

	// Data はこれまでの回答
	Data map[string]string `json:"data"`

	// UpdatedAt は最終更新日時（Unix秒）
	UpdatedAt int64 `json:"updated_at"`
}

// NewFormState は最初の列から入力を始める状態を作成します
func NewFormState(userID int64, now time.Time) *FormState {
	return &FormState{
		UserID:    userID,
		Phase:     PhaseCollecting,
		Step:      0,
		Data:      make(map[string]string, len(FormFields)),
		UpdatedAt: now.Unix(),
	}
}

// CurrentField は回答待ちの列名を返します。Collecting 以外では空文字です
func (s *FormState) CurrentField() string {
	if s.Phase != PhaseCollecting || s.Step < 0 || s.Step >= len(FormFields) {
		return ""
	}
	return FormFields[s.Step]
}

// Answer は現在の列に回答を記録し、次の状態へ遷移します
// 最後の列に回答すると Done になります
func (s *FormState) Answer(value string, now time.Time) error {
	field := s.CurrentField()
	if field == "" {
		return fmt.Errorf("%w: 回答を受け付けない状態です (phase=%s, step=%d)", ErrInvalid, s.Phase, s.Step)
	}
	if s.Data == nil {
		s.Data = make(map[string]string, len(FormFields))
	}
	s.Data[field] = value
	s.Step++
	if s.Step >= len(FormFields) {
		s.Phase = PhaseDone
	}
	s.UpdatedAt = now.Unix()
	return nil
}

// Order は回答済みの内容を注文レコードとして返します
func (s *FormState) Order() Order {
	out := make(Order, len(s.Data))
	for k, v := range s.Data {
		out[k] = v
	}
	return out
}

// Validate は FormState の必須項目を検証します
func (s FormState) Validate() error {
	if s.UserID == 0 {
		return fmt.Errorf("%w: UserIDは必須項目です", ErrInvalid)
	}
	switch s.Phase {
	case PhaseCollecting, PhaseDone:
	default:
		return fmt.Errorf("%w: 不明なフェーズです: %q", ErrInvalid, s.Phase)
	}
	if s.Step < 0 || s.Step > len(FormFields) {
		return fmt.Errorf("%w: Stepが範囲外です: %d", ErrInvalid, s.Step)
	}
	return nil
}
