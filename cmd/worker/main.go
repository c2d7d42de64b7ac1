package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"dominoboard/internal/config"
	"dominoboard/internal/database"
	"dominoboard/internal/logger"
	"dominoboard/internal/orchestrator/notifications"
	"dominoboard/internal/orchestrator/premiumsweep"
	"dominoboard/internal/pgmq"
	"dominoboard/internal/pubsub"
	"dominoboard/internal/repository"
	"dominoboard/internal/service"
	"dominoboard/internal/telegram"

	"github.com/joho/godotenv"
)

func main() {
	mode := flag.String("mode", "", "Worker mode: notifications|premium-sweep")
	flag.Parse()

	logger := logger.New()

	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("Warning: no .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Msgf("Error loading config: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Msgf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	pgmqClient := pgmq.New(pool)
	logger.Info().Msg("PGMQ client initialized")

	var runErr error
	switch *mode {
	case "notifications":
		sender, err := telegram.NewBotSender(cfg.TelegramBotToken, cfg.TelegramWebAppURL)
		if err != nil {
			logger.Fatal().Msgf("Failed to connect Telegram bot: %v", err)
		}
		dispatcher := service.NewNotificationService(sender, logger)
		dlq := service.NewDLQService(repository.NewDLQRepository(pool))
		w := notifications.NewWorker(pgmqClient, dispatcher, dlq, notifications.OptionsFromConfig(cfg), logger)
		runErr = w.Run(ctx)
	case "premium-sweep":
		var publisher pubsub.Publisher = pubsub.NewQueuePublisher(pgmqClient)
		topic := cfg.NotificationQueueName
		if cfg.UsePubSub() {
			ps, err := pubsub.NewPublisher(ctx, cfg)
			if err != nil {
				logger.Fatal().Msgf("Failed to create Pub/Sub publisher: %v", err)
			}
			defer ps.Close()
			publisher = ps
			topic = cfg.PubSubEventsTopic
		}
		events := service.NewEventEmitter(publisher, topic, logger)
		premium := service.NewPremiumService(repository.NewUserRepo(pool), repository.NewSubscriptionRepo(pool), events, logger)
		runErr = premiumsweep.Run(ctx, logger, premium, time.Duration(cfg.PremiumSweepIntervalSec)*time.Second)
	default:
		logger.Fatal().Msgf("Invalid mode: %s", *mode)
	}

	if runErr != nil {
		logger.Fatal().Msgf("%s worker failed: %v", *mode, runErr)
	}

	logger.Info().Msgf("%s worker stopped gracefully", *mode)
}
