package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"order-bot/project/domain"

	"github.com/redis/go-redis/v9"
)

// formStateKeyPrefix は Redis キーの接頭辞です
const formStateKeyPrefix = "order-bot:form:"

// RedisRepo は domain.FormStateRepository の Redis 実装です
// 有効期限は Redis のキー TTL に任せます
type RedisRepo struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisRepo は Redis リポジトリを初期化し、接続を確認します
func NewRedisRepo(ctx context.Context, addr, password string, ttl time.Duration) (*RedisRepo, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: 接続失敗 (addr=%s): %w", addr, err)
	}

	return &RedisRepo{client: client, ttl: ttl}, nil
}

// Get はフォーム状態を取得します
func (repo *RedisRepo) Get(ctx context.Context, userID int64) (*domain.FormState, error) {
	key := formStateKey(userID)

	b, err := repo.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis: フォーム状態取得失敗 (key=%s): %w", key, err)
	}

	var s domain.FormState
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("redis: フォーム状態デコード失敗 (key=%s): %w", key, err)
	}
	return &s, nil
}

// Set はフォーム状態を保存し、TTL を設定し直します
func (repo *RedisRepo) Set(ctx context.Context, s *domain.FormState) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("redis: Set検証失敗: %w", err)
	}

	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("redis: フォーム状態エンコード失敗: %w", err)
	}

	key := formStateKey(s.UserID)
	if err := repo.client.Set(ctx, key, b, repo.ttl).Err(); err != nil {
		return fmt.Errorf("redis: フォーム状態保存失敗 (key=%s): %w", key, err)
	}
	return nil
}

// Clear はフォーム状態を削除します
func (repo *RedisRepo) Clear(ctx context.Context, userID int64) error {
	key := formStateKey(userID)
	if err := repo.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis: フォーム状態削除失敗 (key=%s): %w", key, err)
	}
	return nil
}

// Close は Redis クライアントを閉じます
func (repo *RedisRepo) Close() error {
	if repo.client != nil {
		return repo.client.Close()
	}
	return nil
}

func formStateKey(userID int64) string {
	return fmt.Sprintf("%s%d", formStateKeyPrefix, userID)
}
