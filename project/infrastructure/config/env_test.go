package config

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"order-bot/project/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSecrets map[string]string

func (f fakeSecrets) GetSecret(_ context.Context, name string) (string, error) {
	v, ok := f[name]
	if !ok {
		return "", fmt.Errorf("fake: %s: %w", name, domain.ErrNotFound)
	}
	return v, nil
}

func baseSecrets() fakeSecrets {
	return fakeSecrets{
		SecretBotToken:      "123456:ABCDEF",
		SecretSheetsAccount: `{"type":"service_account"}`,
	}
}

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("GCP_PROJECT", "proj")
	t.Setenv("SPREADSHEET_ID", "sheet-id")
}

func TestNewConfig_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := NewConfig(context.Background(), baseSecrets())
	require.NoError(t, err)

	assert.Equal(t, "123456:ABCDEF", cfg.BotToken)
	assert.Equal(t, "", cfg.WebhookSecretToken)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "Заказы", cfg.SheetName)
	assert.False(t, cfg.CopyFormatting)
	assert.Equal(t, BackendFirestore, cfg.FormStateBackend)
	assert.Equal(t, "proj", cfg.FirestoreProjectID)
	assert.Equal(t, "form_states", cfg.CollectionFormStates)
	assert.Equal(t, 30*time.Minute, cfg.FormStateTTL)
	assert.Equal(t, time.Duration(0), cfg.InitDataMaxAge)
}

func TestNewConfig_RedisAndOptionalSecrets(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("FORM_STATE_BACKEND", BackendRedis)
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("FORM_STATE_TTL", "10m")
	t.Setenv("INIT_DATA_MAX_AGE", "24h")
	t.Setenv("SHEETS_COPY_FORMATTING", "true")

	secrets := baseSecrets()
	secrets[SecretWebhookToken] = "hook"

	cfg, err := NewConfig(context.Background(), secrets)
	require.NoError(t, err)

	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, "hook", cfg.WebhookSecretToken)
	assert.Equal(t, 10*time.Minute, cfg.FormStateTTL)
	assert.Equal(t, 24*time.Hour, cfg.InitDataMaxAge)
	assert.True(t, cfg.CopyFormatting)
}

func TestNewConfig_Errors(t *testing.T) {
	t.Run("missing bot token", func(t *testing.T) {
		setRequiredEnv(t)
		secrets := baseSecrets()
		delete(secrets, SecretBotToken)
		_, err := NewConfig(context.Background(), secrets)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("webhook secret lookup failure", func(t *testing.T) {
		setRequiredEnv(t)
		_, err := NewConfig(context.Background(), failingSecrets{baseSecrets()})
		assert.Error(t, err)
	})

	t.Run("unknown backend", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("FORM_STATE_BACKEND", "sqlite")
		_, err := NewConfig(context.Background(), baseSecrets())
		assert.Error(t, err)
	})

	t.Run("bad ttl", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("FORM_STATE_TTL", "soon")
		_, err := NewConfig(context.Background(), baseSecrets())
		assert.Error(t, err)
	})

	t.Run("missing spreadsheet id panics", func(t *testing.T) {
		t.Setenv("GCP_PROJECT", "proj")
		t.Setenv("SPREADSHEET_ID", "")
		assert.Panics(t, func() {
			_, _ = NewConfig(context.Background(), baseSecrets())
		})
	})
}

// failingSecrets は webhook シークレットだけ NotFound 以外のエラーを返します
type failingSecrets struct {
	fakeSecrets
}

func (f failingSecrets) GetSecret(ctx context.Context, name string) (string, error) {
	if name == SecretWebhookToken {
		return "", errors.New("permission denied")
	}
	return f.fakeSecrets.GetSecret(ctx, name)
}
