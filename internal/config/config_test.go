package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("DB_CONNECTION_STRING", "postgres://localhost:5432/domino")
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_123")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_123")
	t.Setenv("STRIPE_PRICE_MONTHLY", "price_monthly")
	t.Setenv("STRIPE_PRICE_ANNUAL", "price_annual")
	t.Setenv("STRIPE_RETURN_URL", "https://t.me/dominoboard_bot/app")
	t.Setenv("S3_URL", "http://localhost:54321/storage/v1/s3")
	t.Setenv("S3_ACCESS_KEY", "key")
	t.Setenv("S3_SECRET_KEY", "secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ADMIN_TELEGRAM_IDS", "1001, 1002")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "notifications", cfg.NotificationQueueName)
	assert.Equal(t, "notifications_dlq", cfg.NotificationDeadLetterQueueName)
	assert.Equal(t, 60, cfg.LeaderboardCacheTTLSec)
	assert.False(t, cfg.UsePubSub())
	assert.True(t, cfg.IsAdmin(1001))
	assert.True(t, cfg.IsAdmin(1002))
	assert.False(t, cfg.IsAdmin(1003))
}

func TestLoadRejectsBadAdminIDs(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ADMIN_TELEGRAM_IDS", "1001,abc")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadMissingRequired(t *testing.T) {
	setRequiredEnv(t)
	require.NoError(t, os.Unsetenv("DB_CONNECTION_STRING"))

	_, err := Load()
	assert.Error(t, err)
}

func TestIsAdminWithoutLoad(t *testing.T) {
	cfg := &Config{AdminTelegramIDs: "42"}
	assert.True(t, cfg.IsAdmin(42))
	assert.False(t, cfg.IsAdmin(7))
}
