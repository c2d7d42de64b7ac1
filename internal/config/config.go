package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port          string `envconfig:"PORT" default:"8080"`
	Environment   string `envconfig:"ENV" default:"production"`
	LogLevel      string `envconfig:"LOG_LEVEL" default:"info"`
	DBConnection  string `envconfig:"DB_CONNECTION_STRING" required:"true"`
	DBAutoMigrate bool   `envconfig:"DB_AUTO_MIGRATE" default:"false"`

	// Redis cache settings
	RedisAddr              string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword          string `envconfig:"REDIS_PASSWORD"`
	RedisDB                int    `envconfig:"REDIS_DB" default:"0"`
	LeaderboardCacheTTLSec int    `envconfig:"LEADERBOARD_CACHE_TTL_SEC" default:"60"`

	// Telegram settings
	TelegramBotToken string `envconfig:"TELEGRAM_BOT_TOKEN" required:"true"`
	InitDataTTLSec   int    `envconfig:"INIT_DATA_TTL_SEC" default:"86400"`
	AdminTelegramIDs string `envconfig:"ADMIN_TELEGRAM_IDS"`
	// TelegramWebAppURL adds an "Open leaderboard" button to notifications
	TelegramWebAppURL string `envconfig:"TELEGRAM_WEBAPP_URL"`

	// Supabase service-role tokens are accepted on admin routes
	SupabaseJWTSecret string `envconfig:"SUPABASE_JWT_SECRET"`

	// Stripe settings
	StripeSecretKey     string `envconfig:"STRIPE_SECRET_KEY" required:"true"`
	StripeWebhookSecret string `envconfig:"STRIPE_WEBHOOK_SECRET" required:"true"`
	StripePriceMonthly  string `envconfig:"STRIPE_PRICE_MONTHLY" required:"true"`
	StripePriceAnnual   string `envconfig:"STRIPE_PRICE_ANNUAL" required:"true"`
	StripeReturnURL     string `envconfig:"STRIPE_RETURN_URL" required:"true"`

	// Evidence storage (Supabase S3-compatible endpoint)
	S3URL       string `envconfig:"S3_URL" required:"true"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"stats-evidence"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY" required:"true"`
	S3SecretKey string `envconfig:"S3_SECRET_KEY" required:"true"`

	// Pub/Sub settings. Events go to the pgmq notification queue when GCPProjectID is empty.
	GCPProjectID                  string `envconfig:"GCP_PROJECT_ID"`
	PubSubEventsTopic             string `envconfig:"PUBSUB_EVENTS_TOPIC" default:"domino-events"`
	PubSubPushAudience            string `envconfig:"PUBSUB_PUSH_AUDIENCE"`
	PubSubPushServiceAccountEmail string `envconfig:"PUBSUB_PUSH_SERVICE_ACCOUNT_EMAIL"`
	PubSubEmulatorHost            string `envconfig:"PUBSUB_EMULATOR_HOST"`

	// Notification worker settings
	NotificationQueueName           string `envconfig:"NOTIFICATION_QUEUE_NAME" default:"notifications"`
	NotificationDeadLetterQueueName string `envconfig:"NOTIFICATION_DEAD_LETTER_QUEUE_NAME" default:"notifications_dlq"`
	NotificationPollTimeoutSec      int    `envconfig:"NOTIFICATION_POLL_TIMEOUT_SEC" default:"30"`
	NotificationPollMaxMsg          int    `envconfig:"NOTIFICATION_POLL_MAX_MSG" default:"1"`
	NotificationMaxRetries          int    `envconfig:"NOTIFICATION_MAX_RETRIES" default:"5"`
	NotificationBackoffInitialSec   int    `envconfig:"NOTIFICATION_BACKOFF_INITIAL_SEC" default:"1"`
	NotificationBackoffMaxSec       int    `envconfig:"NOTIFICATION_BACKOFF_MAX_SEC" default:"60"`

	// Premium sweep settings
	PremiumSweepIntervalSec int `envconfig:"PREMIUM_SWEEP_INTERVAL_SEC" default:"300"`

	adminIDs map[int64]struct{}
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	ids, err := ParseAdminIDs(cfg.AdminTelegramIDs)
	if err != nil {
		return nil, err
	}
	cfg.adminIDs = ids
	return &cfg, nil
}

// ParseAdminIDs parses a comma separated list of Telegram user ids.
func ParseAdminIDs(raw string) (map[int64]struct{}, error) {
	ids := make(map[int64]struct{})
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_IDS entry %q: %w", part, err)
		}
		ids[id] = struct{}{}
	}
	return ids, nil
}

// IsAdmin reports whether telegramID is listed in ADMIN_TELEGRAM_IDS.
func (c *Config) IsAdmin(telegramID int64) bool {
	if c.adminIDs == nil {
		ids, err := ParseAdminIDs(c.AdminTelegramIDs)
		if err != nil {
			return false
		}
		c.adminIDs = ids
	}
	_, ok := c.adminIDs[telegramID]
	return ok
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// UsePubSub reports whether domain events are published to Google Pub/Sub.
func (c *Config) UsePubSub() bool {
	return c.GCPProjectID != ""
}
