package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"order-bot/project/domain"

	"cloud.google.com/go/firestore"
	"github.com/benbjohnson/clock"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// isNotFound は Firestore の NotFound エラーを判定するヘルパー関数です
func isNotFound(err error) bool {
	st, ok := status.FromError(err)
	return ok && st.Code() == codes.NotFound
}

// formStateDoc は Firestore に保存するフォーム状態です
// expires_at にコレクションの TTL ポリシーを設定すると期限切れドキュメントが自動削除されます
type formStateDoc struct {
	UserID    int64             `firestore:"user_id"`
	Phase     string            `firestore:"phase"`
	Step      int               `firestore:"step"`
	Data      map[string]string `firestore:"data"`
	UpdatedAt int64             `firestore:"updated_at"`
	ExpiresAt time.Time         `firestore:"expires_at"`
}

// FirestoreRepo は domain.FormStateRepository の Firestore 実装です
type FirestoreRepo struct {
	cli           *firestore.Client
	formStatesCol string
	ttl           time.Duration
	clock         clock.Clock
}

// NewFirestoreRepo は Firestore リポジトリを初期化します
func NewFirestoreRepo(ctx context.Context, projectID, collection string, ttl time.Duration, clk clock.Clock) (*FirestoreRepo, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("firestore: クライアント初期化失敗: %w", err)
	}
	if clk == nil {
		clk = clock.New()
	}

	return &FirestoreRepo{
		cli:           client,
		formStatesCol: collection,
		ttl:           ttl,
		clock:         clk,
	}, nil
}

// Get はフォーム状態を取得します
// TTL ポリシーの削除は即時ではないため、期限切れは読み取り時にも判定します
func (repo *FirestoreRepo) Get(ctx context.Context, userID int64) (*domain.FormState, error) {
	docID := formStateDocID(userID)
	docRef := repo.cli.Collection(repo.formStatesCol).Doc(docID)

	snapshot, err := docRef.Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("firestore: フォーム状態取得失敗 (docID=%s): %w", docID, err)
	}

	var doc formStateDoc
	if err := snapshot.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore: フォーム状態構造体変換失敗: %w", err)
	}

	if !repo.clock.Now().Before(doc.ExpiresAt) {
		return nil, domain.ErrNotFound
	}

	return &domain.FormState{
		UserID:    doc.UserID,
		Phase:     domain.FormPhase(doc.Phase),
		Step:      doc.Step,
		Data:      doc.Data,
		UpdatedAt: doc.UpdatedAt,
	}, nil
}

// Set はフォーム状態を上書き保存し、有効期限を延長します
func (repo *FirestoreRepo) Set(ctx context.Context, s *domain.FormState) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("firestore: Set検証失敗: %w", err)
	}

	docID := formStateDocID(s.UserID)
	docRef := repo.cli.Collection(repo.formStatesCol).Doc(docID)

	doc := formStateDoc{
		UserID:    s.UserID,
		Phase:     string(s.Phase),
		Step:      s.Step,
		Data:      s.Data,
		UpdatedAt: s.UpdatedAt,
		ExpiresAt: repo.clock.Now().Add(repo.ttl),
	}

	// 回答の削除を反映させるためマージせずに上書きします
	if _, err := docRef.Set(ctx, doc); err != nil {
		return fmt.Errorf("firestore: フォーム状態保存失敗 (docID=%s): %w", docID, err)
	}

	return nil
}

// Clear はフォーム状態を削除します
func (repo *FirestoreRepo) Clear(ctx context.Context, userID int64) error {
	docID := formStateDocID(userID)
	docRef := repo.cli.Collection(repo.formStatesCol).Doc(docID)

	if _, err := docRef.Delete(ctx); err != nil && !isNotFound(err) {
		return fmt.Errorf("firestore: フォーム状態削除失敗 (docID=%s): %w", docID, err)
	}

	return nil
}

// Close は Firestore クライアントを閉じます
func (repo *FirestoreRepo) Close() error {
	if repo.cli != nil {
		return repo.cli.Close()
	}
	return nil
}

// formStateDocID はフォーム状態のドキュメントID を生成します
// 形式: ユーザーIDの10進表記（例: "42"）
func formStateDocID(userID int64) string {
	return strconv.FormatInt(userID, 10)
}
