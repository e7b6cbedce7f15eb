package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"order-bot/project/domain"
	"order-bot/project/handler"
	"order-bot/project/infrastructure/config"
	"order-bot/project/infrastructure/httpsec"
	"order-bot/project/infrastructure/secret"
	"order-bot/project/infrastructure/sheets"
	"order-bot/project/infrastructure/slack"
	"order-bot/project/infrastructure/store"
	"order-bot/project/infrastructure/telegram"
	"order-bot/project/service"

	"github.com/benbjohnson/clock"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "HTTP サーバーを起動します",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

// newLogger は LOG_LEVEL に従った JSON ロガーを作成します
func newLogger() zerolog.Logger {
	level, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).Level(level).With().Timestamp().Str("service", "order-bot").Logger()
}

func serve(ctx context.Context) error {
	logger := newLogger()

	// 1. Secret Manager と設定
	secretMgr, err := secret.NewManager(ctx, os.Getenv("GCP_PROJECT"))
	if err != nil {
		return fmt.Errorf("Secret Manager 初期化失敗: %w", err)
	}
	defer secretMgr.Close()

	cfg, err := config.NewConfig(ctx, secretMgr)
	if err != nil {
		return fmt.Errorf("設定読み込み失敗: %w", err)
	}

	// 2. 依存関係を初期化
	// スプレッドシート
	orderRepo, err := sheets.NewRepo(ctx, cfg.SheetsCredentialsJSON, cfg.SpreadsheetID, cfg.SheetName,
		sheets.WithCopyFormatting(cfg.CopyFormatting),
		sheets.WithLogger(logger.With().Str("component", "sheets").Logger()))
	if err != nil {
		return fmt.Errorf("Sheets 初期化失敗: %w", err)
	}

	// フォーム状態
	clk := clock.New()
	formStates, closeStates, err := newFormStateRepo(ctx, cfg, clk)
	if err != nil {
		return err
	}
	defer closeStates()

	// Telegram Bot API
	bot, err := telegram.NewClient(cfg.BotToken)
	if err != nil {
		return fmt.Errorf("Telegram 初期化失敗: %w", err)
	}
	logger.Info().Str("bot", bot.Username()).Str("form_state_backend", cfg.FormStateBackend).Msg("依存関係を初期化しました")

	// Slack 通知（任意）
	var notifier service.NotifierPort
	if cfg.SlackWebhookURL != "" {
		notifier = slack.NewNotifier(cfg.SlackWebhookURL)
	}

	// 3. サービス層を初期化
	orderService := service.NewOrderService(orderRepo, notifier, logger.With().Str("component", "orders").Logger())
	conversationService := service.NewConversationService(formStates, orderService, bot, clk,
		logger.With().Str("component", "conversation").Logger())

	// 4. HTTP ハンドラーを設定
	auth := httpsec.NewAuthenticator(cfg.BotToken, cfg.InitDataMaxAge, clk)
	router := newRouter(logger, routes{
		orders:    handler.NewOrdersHandler(auth, orderService),
		addOrder:  handler.NewAddOrderHandler(auth, orderService),
		analytics: handler.NewAnalyticsHandler(auth, orderService),
		webhook:   handler.NewWebhookHandler(httpsec.NewWebhookTokenVerifier(cfg.WebhookSecretToken), conversationService),
	})

	// 5. サーバー起動
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("サーバー起動")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("サーバーエラー: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("シャットダウン中")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// routes はルーターに登録するハンドラーです
type routes struct {
	orders    http.Handler
	addOrder  http.Handler
	analytics http.Handler
	webhook   http.Handler
}

// newRouter はログ・リカバリー付きのルーターを作成します
func newRouter(logger zerolog.Logger, h routes) http.Handler {
	r := chi.NewRouter()
	r.Use(hlog.NewHandler(logger))
	r.Use(hlog.RequestIDHandler("req_id", "X-Request-Id"))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	}))
	r.Use(middleware.Recoverer)

	// Mini App API
	r.Handle("/api/orders", h.orders)
	r.Handle("/api/add-order", h.addOrder)
	r.Handle("/api/analytics", h.analytics)

	// Telegram ボット webhook
	r.Handle("/telegram/webhook", h.webhook)

	// ヘルスチェック
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return r
}

// newFormStateRepo は設定に応じたフォーム状態の保存先を作成します
func newFormStateRepo(ctx context.Context, cfg *config.Config, clk clock.Clock) (domain.FormStateRepository, func() error, error) {
	switch cfg.FormStateBackend {
	case config.BackendRedis:
		repo, err := store.NewRedisRepo(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.FormStateTTL)
		if err != nil {
			return nil, nil, fmt.Errorf("Redis 初期化失敗: %w", err)
		}
		return repo, repo.Close, nil
	case config.BackendMemory:
		return store.NewMemoryRepo(cfg.FormStateTTL, clk), func() error { return nil }, nil
	default:
		repo, err := store.NewFirestoreRepo(ctx, cfg.FirestoreProjectID, cfg.CollectionFormStates, cfg.FormStateTTL, clk)
		if err != nil {
			return nil, nil, fmt.Errorf("Firestore 初期化失敗: %w", err)
		}
		return repo, repo.Close, nil
	}
}
