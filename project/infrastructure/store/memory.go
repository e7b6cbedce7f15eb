package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"order-bot/project/domain"

	"github.com/benbjohnson/clock"
)

type memoryEntry struct {
	state     domain.FormState
	expiresAt time.Time
}

// MemoryRepo はプロセス内メモリに保存する domain.FormStateRepository です
// 再起動で状態は失われます（ローカル開発・テスト用）
type MemoryRepo struct {
	mu      sync.Mutex
	entries map[int64]memoryEntry
	ttl     time.Duration
	clock   clock.Clock
}

// NewMemoryRepo はメモリリポジトリを作成します
func NewMemoryRepo(ttl time.Duration, clk clock.Clock) *MemoryRepo {
	if clk == nil {
		clk = clock.New()
	}
	return &MemoryRepo{
		entries: make(map[int64]memoryEntry),
		ttl:     ttl,
		clock:   clk,
	}
}

// Get はフォーム状態のコピーを返します
func (repo *MemoryRepo) Get(_ context.Context, userID int64) (*domain.FormState, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	repo.evictExpired()
	e, ok := repo.entries[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	s := copyState(e.state)
	return &s, nil
}

// Set はフォーム状態のコピーを保存します
func (repo *MemoryRepo) Set(_ context.Context, s *domain.FormState) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("memory: Set検証失敗: %w", err)
	}

	repo.mu.Lock()
	defer repo.mu.Unlock()

	repo.evictExpired()
	repo.entries[s.UserID] = memoryEntry{
		state:     copyState(*s),
		expiresAt: repo.clock.Now().Add(repo.ttl),
	}
	return nil
}

// Clear はフォーム状態を削除します
func (repo *MemoryRepo) Clear(_ context.Context, userID int64) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	delete(repo.entries, userID)
	return nil
}

// Len は保持している状態数を返します
func (repo *MemoryRepo) Len() int {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	repo.evictExpired()
	return len(repo.entries)
}

// evictExpired は期限切れの状態を削除します。mu を保持して呼び出すこと
func (repo *MemoryRepo) evictExpired() {
	now := repo.clock.Now()
	for id, e := range repo.entries {
		if !now.Before(e.expiresAt) {
			delete(repo.entries, id)
		}
	}
}

func copyState(s domain.FormState) domain.FormState {
	data := make(map[string]string, len(s.Data))
	for k, v := range s.Data {
		data[k] = v
	}
	s.Data = data
	return s
}
