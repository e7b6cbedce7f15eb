package service

import (
	"context"
	"fmt"

	"order-bot/project/domain"

	"github.com/rs/zerolog"
)

// OrderService は注文の参照・追加・集計を行うサービスです
type OrderService interface {
	// List は注文を返します。limit が 0 以下なら全件、正なら最新 limit 件
	List(ctx context.Context, limit int) ([]domain.Order, error)

	// Add は注文を追加し、通知先があれば通知します
	Add(ctx context.Context, source string, orders []domain.Order) error

	// Analytics はステータス別の合計を計算します
	Analytics(ctx context.Context) (*Analytics, error)

	// Stats は件数と合計を計算します
	Stats(ctx context.Context) (*Stats, error)
}

// orderService は OrderService の実装です
type orderService struct {
	repo     domain.OrderRepository
	notifier NotifierPort
	log      zerolog.Logger
}

// NewOrderService は OrderService のインスタンスを作成します
// notifier が nil の場合は通知しません
func NewOrderService(repo domain.OrderRepository, notifier NotifierPort, log zerolog.Logger) OrderService {
	return &orderService{
		repo:     repo,
		notifier: notifier,
		log:      log,
	}
}

// List は注文を返します
func (s *orderService) List(ctx context.Context, limit int) ([]domain.Order, error) {
	var (
		orders []domain.Order
		err    error
	)
	if limit > 0 {
		orders, err = s.repo.ReadRows(ctx, limit)
	} else {
		orders, err = s.repo.ReadAllRows(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("List: 注文取得失敗: %w", err)
	}
	return orders, nil
}

// Add は注文を検証して追加します
func (s *orderService) Add(ctx context.Context, source string, orders []domain.Order) error {
	if len(orders) == 0 {
		return fmt.Errorf("Add: %w: 追加する注文がありません", domain.ErrInvalid)
	}
	for i, o := range orders {
		if err := o.Validate(); err != nil {
			return fmt.Errorf("Add: %d件目: %w", i+1, err)
		}
	}

	if err := s.repo.AppendRows(ctx, orders); err != nil {
		return fmt.Errorf("Add: 注文追加失敗: %w", err)
	}

	s.log.Info().Str("source", source).Int("count", len(orders)).Msg("orders appended")

	// 通知の失敗は追加結果に影響させない
	if s.notifier != nil {
		if err := s.notifier.OrdersAdded(ctx, source, orders); err != nil {
			s.log.Warn().Err(err).Str("source", source).Msg("order notification failed")
		}
	}
	return nil
}

// Analytics はステータス別の合計を計算します
func (s *orderService) Analytics(ctx context.Context) (*Analytics, error) {
	orders, err := s.repo.ReadAllRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("Analytics: 注文取得失敗: %w", err)
	}
	a := ComputeAnalytics(orders)
	s.log.Debug().
		Int("rows", len(orders)).
		Float64("total_amount", a.TotalAmount).
		Msg("analytics computed")
	return &a, nil
}

// Stats は件数と合計を計算します
func (s *orderService) Stats(ctx context.Context) (*Stats, error) {
	orders, err := s.repo.ReadAllRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("Stats: 注文取得失敗: %w", err)
	}
	st := ComputeStats(orders)
	return &st, nil
}
