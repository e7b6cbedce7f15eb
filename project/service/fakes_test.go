package service

import (
	"context"
	"errors"
	"sync"

	"order-bot/project/domain"
)

var errBackend = errors.New("backend unavailable")

// fakeOrderRepo はメモリ上の domain.OrderRepository です
type fakeOrderRepo struct {
	mu        sync.Mutex
	rows      []domain.Order
	appendErr error
	readErr   error
	lastLimit int
}

func (f *fakeOrderRepo) AppendRows(_ context.Context, orders []domain.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	f.rows = append(f.rows, orders...)
	return nil
}

func (f *fakeOrderRepo) ReadAllRows(_ context.Context) ([]domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return nil, f.readErr
	}
	return append([]domain.Order(nil), f.rows...), nil
}

func (f *fakeOrderRepo) ReadRows(_ context.Context, limit int) ([]domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastLimit = limit
	if f.readErr != nil {
		return nil, f.readErr
	}
	rows := f.rows
	if limit > 0 && len(rows) > limit {
		rows = rows[len(rows)-limit:]
	}
	return append([]domain.Order(nil), rows...), nil
}

// fakeMessenger は送信したメッセージを記録します
type fakeMessenger struct {
	mu   sync.Mutex
	sent []sentMessage
}

type sentMessage struct {
	chatID int64
	text   string
}

func (f *fakeMessenger) SendText(_ context.Context, chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{chatID: chatID, text: text})
	return nil
}

func (f *fakeMessenger) last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return ""
	}
	return f.sent[len(f.sent)-1].text
}

// fakeNotifier は通知内容を記録します
type fakeNotifier struct {
	mu      sync.Mutex
	sources []string
	count   int
	err     error
}

func (f *fakeNotifier) OrdersAdded(_ context.Context, source string, orders []domain.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sources = append(f.sources, source)
	f.count += len(orders)
	return f.err
}
