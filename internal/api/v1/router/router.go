package router

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"dominoboard/internal/api/v1/handler"
	"dominoboard/internal/cache"
	"dominoboard/internal/config"
	"dominoboard/internal/database"
	"dominoboard/internal/middleware"
	"dominoboard/internal/pgmq"
	"dominoboard/internal/pubsub"
	"dominoboard/internal/repository"
	"dominoboard/internal/service"
	"dominoboard/internal/storage"
	"dominoboard/internal/telegram"

	"github.com/go-playground/validator/v10"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// New wires every dependency and returns the root handler plus a func that releases connections.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (http.Handler, func(), error) {
	logger.Info().Str("environment", cfg.Environment).Msg("App environment loaded")

	// 1. Database
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	closers := []func(){pool.Close}
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	if cfg.DBAutoMigrate {
		if err := database.Migrate(ctx, pool, cfg.NotificationQueueName, cfg.NotificationDeadLetterQueueName); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		logger.Info().Msg("Database migrations applied")
	}

	// 2. Redis
	redisClient := cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	closers = append(closers, func() { _ = redisClient.Close() })
	redisCache := cache.NewRedisCache(redisClient)
	if err := redisCache.Ping(ctx); err != nil {
		logger.Warn().Err(err).Msg("Redis unreachable; leaderboard reads will hit the database")
	}

	// 3. Evidence storage
	s3Client, err := storage.NewS3Client(ctx, cfg)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	evidenceStore := storage.NewEvidenceStore(s3Client, cfg.S3Bucket)

	// 4. Event publisher
	var publisher pubsub.Publisher
	topic := cfg.NotificationQueueName
	if cfg.UsePubSub() {
		ps, err := pubsub.NewPublisher(ctx, cfg)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		closers = append(closers, func() { _ = ps.Close() })
		publisher = ps
		topic = cfg.PubSubEventsTopic
		logger.Info().Str("topic", topic).Msg("Publishing events to Pub/Sub")
	} else {
		publisher = pubsub.NewQueuePublisher(pgmq.New(pool))
		logger.Info().Str("queue", topic).Msg("Publishing events to pgmq")
	}
	events := service.NewEventEmitter(publisher, topic, logger)

	// 5. Telegram sender for push-delivered events
	var sender service.Sender
	if bot, err := telegram.NewBotSender(cfg.TelegramBotToken, cfg.TelegramWebAppURL); err != nil {
		logger.Warn().Err(err).Msg("Telegram bot unavailable; push notifications disabled")
	} else {
		sender = bot
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	// 6. Repositories & services & handlers
	userRepo := repository.NewUserRepo(pool)
	statsRepo := repository.NewStatsRepo(pool)
	platformRepo := repository.NewPlatformRepo(pool)
	leaderboardRepo := repository.NewLeaderboardRepo(pool)
	subRepo := repository.NewSubscriptionRepo(pool)
	webhookRepo := repository.NewWebhookEventRepo(pool)
	verseRepo := repository.NewVerseRepo(pool)
	dlqRepo := repository.NewDLQRepository(pool)

	stripeClient := service.NewStripeClient(cfg.StripeSecretKey)
	premiumSvc := service.NewPremiumService(userRepo, subRepo, events, logger)
	leaderboardSvc := service.NewLeaderboardService(leaderboardRepo, platformRepo, redisCache, time.Duration(cfg.LeaderboardCacheTTLSec)*time.Second, logger)
	userSvc := service.NewUserService(userRepo, platformRepo, premiumSvc, events, logger)
	statsSvc := service.NewStatsService(statsRepo, userRepo, platformRepo, evidenceStore, leaderboardSvc, events, logger)
	subSvc := service.NewSubscriptionService(userRepo, subRepo, stripeClient, cfg.StripeReturnURL, logger)
	stripeSvc := service.NewStripeService(cfg, stripeClient, userRepo, subRepo, webhookRepo, events, logger)
	verseSvc := service.NewVerseService(verseRepo, userRepo, premiumSvc, redisCache, logger)
	notificationSvc := service.NewNotificationService(sender, logger)
	dlqSvc := service.NewDLQService(dlqRepo)

	userHandler := handler.NewUserHandler(userSvc, premiumSvc, statsSvc, validate, logger)
	statsHandler := handler.NewStatsHandler(statsSvc, validate, logger)
	leaderboardHandler := handler.NewLeaderboardHandler(leaderboardSvc, platformRepo, logger)
	premiumHandler := handler.NewPremiumHandler(premiumSvc, validate, logger)
	subscriptionHandler := handler.NewSubscriptionHandler(stripeSvc, subSvc, validate, logger)
	webhookHandler := handler.NewWebhookHandler(stripeSvc, logger)
	verseHandler := handler.NewVerseHandler(verseSvc, logger)
	internalHandler := handler.NewInternalHandler(notificationSvc, dlqSvc, logger)
	healthHandler := handler.NewHealthHandler(map[string]handler.Pinger{"database": pool, "redis": redisCache})

	// 7. Middleware
	authMiddleware := middleware.AuthMiddleware(middleware.AuthConfig{
		BotToken:    cfg.TelegramBotToken,
		InitDataTTL: time.Duration(cfg.InitDataTTLSec) * time.Second,
		JWTSecret:   cfg.SupabaseJWTSecret,
		Admins:      cfg,
	}, logger)
	adminMiddleware := func(next http.Handler) http.Handler {
		return authMiddleware(middleware.RequireAdmin(next))
	}
	isLocalDev := cfg.PubSubEmulatorHost != ""
	pubsubAuthMiddleware := middleware.PubSubAuthMiddleware(isLocalDev, cfg.PubSubPushAudience, cfg.PubSubPushServiceAccountEmail, logger)

	// 8. ServeMux
	apiV1Mux := http.NewServeMux()
	userHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	statsHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	leaderboardHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	premiumHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	subscriptionHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	webhookHandler.RegisterRoutes(apiV1Mux)
	verseHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	internalHandler.RegisterRoutes(apiV1Mux, pubsubAuthMiddleware, adminMiddleware)

	// The Stripe webhook is served both with and without the /v1 prefix.
	mux := rootMux(apiV1Mux, healthHandler.RegisterRoutes, webhookHandler.RegisterRoutes)

	// 9. CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		Debug:            false,
	})

	logger.Info().Msg("Router initialized")
	return middleware.LoggerMiddleware(logger)(c.Handler(mux)), cleanup, nil
}

// rootMux serves apiV1 under /v1 and the given root-level routes as is.
// Any other root path is redirected to its /v1 equivalent.
func rootMux(apiV1 http.Handler, root ...func(*http.ServeMux)) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/v1/", http.StripPrefix("/v1", apiV1))
	for _, register := range root {
		register(mux)
	}
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/v1/") || r.URL.Path == "/" {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, "/v1"+r.URL.Path, http.StatusPermanentRedirect)
	})
	return mux
}
