package domain

import (
	"context"
)

// OrderRepository は注文レコードの永続化を担当します（スプレッドシート）
type OrderRepository interface {
	// AppendRows は注文を末尾に追加します
	// 1件でも検証に失敗した場合は何も書き込まずに domain.ErrInvalid を返します
	AppendRows(ctx context.Context, orders []Order) error

	// ReadAllRows は全注文を挿入順で返します
	ReadAllRows(ctx context.Context) ([]Order, error)

	// ReadRows は最新 limit 件の注文を挿入順で返します
	// limit が 0 以下の場合は ReadAllRows と同じ結果になります
	ReadRows(ctx context.Context, limit int) ([]Order, error)
}

// FormStateRepository は会話フォームの途中状態の保存を担当します
type FormStateRepository interface {
	// Get はユーザーのフォーム状態を取得します
	// 存在しない、または有効期限切れの場合は domain.ErrNotFound を返します
	Get(ctx context.Context, userID int64) (*FormState, error)

	// Set はフォーム状態を保存し、有効期限を延長します（後勝ち）
	Set(ctx context.Context, s *FormState) error

	// Clear はフォーム状態を削除します。存在しない場合も成功を返します
	Clear(ctx context.Context, userID int64) error
}
