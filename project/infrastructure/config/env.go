package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"order-bot/project/domain"
)

// フォーム状態の保存先
const (
	BackendFirestore = "firestore"
	BackendRedis     = "redis"
	BackendMemory    = "memory"
)

// Secret Manager 上のシークレット名
const (
	SecretBotToken      = "telegram-bot-token"
	SecretSheetsAccount = "sheets-service-account"
	SecretWebhookToken  = "telegram-webhook-secret"
)

// SecretSource はシークレットの取得元です（secret.Manager が実装します）
type SecretSource interface {
	GetSecret(ctx context.Context, secretName string) (string, error)
}

// Config は環境変数から読み込まれるアプリケーション設定を表します
type Config struct {
	// 基本設定
	GcpProject string
	Port       string
	LogLevel   string

	// Telegram 設定
	BotToken           string // Secret Manager から読み込み
	WebhookSecretToken string // Secret Manager から読み込み（任意）
	InitDataMaxAge     time.Duration

	// スプレッドシート設定
	SpreadsheetID         string
	SheetName             string
	SheetsCredentialsJSON []byte // Secret Manager から読み込み
	CopyFormatting        bool

	// フォーム状態の保存先
	FormStateBackend     string
	FormStateTTL         time.Duration
	FirestoreProjectID   string
	CollectionFormStates string
	RedisAddr            string
	RedisPassword        string

	// 通知設定（任意）
	SlackWebhookURL string
}

// NewConfig は環境変数から設定を読み込み、Config構造体を返します
// センシティブな情報（ボットトークンなど）は secrets から取得します
func NewConfig(ctx context.Context, secrets SecretSource) (*Config, error) {
	formStateTTL, err := time.ParseDuration(getEnv("FORM_STATE_TTL", "30m"))
	if err != nil {
		return nil, fmt.Errorf("invalid FORM_STATE_TTL format: %v", err)
	}
	if formStateTTL <= 0 {
		return nil, fmt.Errorf("FORM_STATE_TTL は正の値である必要があります: %s", formStateTTL)
	}

	initDataMaxAge, err := time.ParseDuration(getEnv("INIT_DATA_MAX_AGE", "0s"))
	if err != nil {
		return nil, fmt.Errorf("invalid INIT_DATA_MAX_AGE format: %v", err)
	}

	copyFormatting, err := strconv.ParseBool(getEnv("SHEETS_COPY_FORMATTING", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid SHEETS_COPY_FORMATTING format: %v", err)
	}

	backend := getEnv("FORM_STATE_BACKEND", BackendFirestore)

	// Secret Manager から認証情報を取得
	botToken, err := secrets.GetSecret(ctx, SecretBotToken)
	if err != nil {
		return nil, fmt.Errorf("BOT_TOKEN 取得失敗: %w", err)
	}

	sheetsAccount, err := secrets.GetSecret(ctx, SecretSheetsAccount)
	if err != nil {
		return nil, fmt.Errorf("SHEETS_SERVICE_ACCOUNT 取得失敗: %w", err)
	}

	// webhook シークレットは任意（未登録なら検証しない）
	webhookToken, err := secrets.GetSecret(ctx, SecretWebhookToken)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("TELEGRAM_WEBHOOK_SECRET 取得失敗: %w", err)
		}
		webhookToken = ""
	}

	config := &Config{
		// 基本設定
		GcpProject: mustGetEnv("GCP_PROJECT"),
		Port:       getEnv("PORT", "8080"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),

		// Telegram 設定
		BotToken:           botToken,
		WebhookSecretToken: webhookToken,
		InitDataMaxAge:     initDataMaxAge,

		// スプレッドシート設定
		SpreadsheetID:         mustGetEnv("SPREADSHEET_ID"),
		SheetName:             getEnv("SHEET_NAME", "Заказы"),
		SheetsCredentialsJSON: []byte(sheetsAccount),
		CopyFormatting:        copyFormatting,

		// フォーム状態の保存先
		FormStateBackend: backend,
		FormStateTTL:     formStateTTL,

		// 通知設定
		SlackWebhookURL: os.Getenv("SLACK_WEBHOOK_URL"),
	}

	switch backend {
	case BackendFirestore:
		config.FirestoreProjectID = getEnv("FIRESTORE_PROJECT_ID", config.GcpProject)
		config.CollectionFormStates = getEnv("FS_COLLECTION_FORM_STATES", "form_states")
	case BackendRedis:
		config.RedisAddr = mustGetEnv("REDIS_ADDR")
		config.RedisPassword = os.Getenv("REDIS_PASSWORD")
	case BackendMemory:
	default:
		return nil, fmt.Errorf("unknown FORM_STATE_BACKEND: %s", backend)
	}

	return config, nil
}

// getEnv は環境変数を取得し、未設定の場合は def を返します
func getEnv(key, def string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return def
}

// mustGetEnv は環境変数を取得し、存在しない場合はパニックします
func mustGetEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		panic(fmt.Sprintf("required environment variable not set: %s", key))
	}
	return value
}
