package main

import (
	"context"
	"fmt"
	"time"

	"dominoboard/internal/config"
	"dominoboard/internal/logger"

	"cloud.google.com/go/pubsub"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// 'host.docker.internal' lets the emulator container reach the API on the host.
const gatewayBaseURLLocal = "http://host.docker.internal:8080/v1"

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, relying on system environment variables.")
	}

	logger := logger.New()
	logger.Info().Msg("Starting Pub/Sub setup for the local environment.")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Msgf("Failed to load config: %v", err)
	}
	if cfg.GCPProjectID == "" {
		logger.Fatal().Msg("GCP_PROJECT_ID is not set in the environment.")
	}
	if cfg.PubSubEmulatorHost == "" {
		logger.Fatal().Msg("PUBSUB_EMULATOR_HOST must be set for local environment.")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := pubsub.NewClient(ctx, cfg.GCPProjectID,
		option.WithEndpoint(cfg.PubSubEmulatorHost),
		option.WithoutAuthentication(),
	)
	if err != nil {
		logger.Fatal().Msgf("Failed to create Pub/Sub client: %v", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Error().Msgf("Failed to close pubsub client: %v", err)
		}
	}()

	resetLocalEmulator(ctx, client, logger)
	createResources(ctx, client, logger, cfg.PubSubEventsTopic)

	logger.Info().Msg("Pub/Sub setup for local environment complete.")
}

// resetLocalEmulator deletes every topic and subscription. Emulator only.
func resetLocalEmulator(ctx context.Context, client *pubsub.Client, logger zerolog.Logger) {
	subs := client.Subscriptions(ctx)
	for {
		sub, err := subs.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			logger.Fatal().Msgf("Failed to list subscriptions: %v", err)
		}
		logger.Info().Str("subscription", sub.ID()).Msg("Deleting subscription")
		if err := sub.Delete(ctx); err != nil {
			logger.Warn().Err(err).Str("subscription", sub.ID()).Msg("Failed to delete subscription")
		}
	}

	topics := client.Topics(ctx)
	for {
		topic, err := topics.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			logger.Fatal().Msgf("Failed to list topics: %v", err)
		}
		logger.Info().Str("topic", topic.ID()).Msg("Deleting topic")
		if err := topic.Delete(ctx); err != nil {
			logger.Warn().Err(err).Str("topic", topic.ID()).Msg("Failed to delete topic")
		}
	}
}

// createResources builds the events topic, its dead-letter topic and the two push subscriptions.
func createResources(ctx context.Context, client *pubsub.Client, logger zerolog.Logger, topicID string) {
	retention := 7 * 24 * time.Hour
	retry := &pubsub.RetryPolicy{
		MinimumBackoff: 10 * time.Second,
		MaximumBackoff: 600 * time.Second,
	}

	dlqTopic := createTopic(ctx, client, logger, topicID+"-dlq", retention)
	mainTopic := createTopic(ctx, client, logger, topicID, retention)

	createSubscription(ctx, client, logger, topicID+"-sub", pubsub.SubscriptionConfig{
		Topic:            mainTopic,
		PushConfig:       pubsub.PushConfig{Endpoint: gatewayBaseURLLocal + "/internal/events"},
		AckDeadline:      60 * time.Second,
		ExpirationPolicy: 31 * 24 * time.Hour,
		RetryPolicy:      retry,
		DeadLetterPolicy: &pubsub.DeadLetterPolicy{
			DeadLetterTopic:     dlqTopic.String(),
			MaxDeliveryAttempts: 5,
		},
	})
	createSubscription(ctx, client, logger, topicID+"-dlq-sub", pubsub.SubscriptionConfig{
		Topic:            dlqTopic,
		PushConfig:       pubsub.PushConfig{Endpoint: gatewayBaseURLLocal + "/internal/dead-letters"},
		AckDeadline:      60 * time.Second,
		ExpirationPolicy: 31 * 24 * time.Hour,
		RetryPolicy:      retry,
	})
}

func createTopic(ctx context.Context, client *pubsub.Client, logger zerolog.Logger, topicID string, retention time.Duration) *pubsub.Topic {
	logger.Info().Str("topic", topicID).Dur("retention", retention).Msg("Creating topic")
	topic, err := client.CreateTopicWithConfig(ctx, topicID, &pubsub.TopicConfig{RetentionDuration: retention})
	if err != nil {
		logger.Fatal().Msgf("Failed to create topic %s: %v", topicID, err)
	}
	return topic
}

func createSubscription(ctx context.Context, client *pubsub.Client, logger zerolog.Logger, subID string, cfg pubsub.SubscriptionConfig) {
	logger.Info().Str("subscription", subID).Str("endpoint", cfg.PushConfig.Endpoint).Msg("Creating subscription")
	if _, err := client.CreateSubscription(ctx, subID, cfg); err != nil {
		logger.Fatal().Msgf("Failed to create subscription '%s': %v", subID, err)
	}
}
