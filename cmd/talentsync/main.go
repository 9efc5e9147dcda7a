package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"

	"talentsync/internal/app/conversations"
	appfeed "talentsync/internal/app/feed"
	"talentsync/internal/app/idempotency"
	"talentsync/internal/app/messages"
	"talentsync/internal/app/notifications"
	appoutbox "talentsync/internal/app/outbox"
	"talentsync/internal/app/profilecache"
	authsvc "talentsync/internal/app/services/auth"
	apptyping "talentsync/internal/app/typing"
	domainauth "talentsync/internal/domain/auth"
	domainconv "talentsync/internal/domain/conversation"
	domainmsg "talentsync/internal/domain/message"
	domainnotif "talentsync/internal/domain/notification"
	domainprofile "talentsync/internal/domain/profile"
	domaintyping "talentsync/internal/domain/typing"
	domainuser "talentsync/internal/domain/user"
	"talentsync/internal/infra/broker/kafka"
	"talentsync/internal/infra/config"
	mongodb "talentsync/internal/infra/db/mongo"
	redisdb "talentsync/internal/infra/db/redis"
	"talentsync/internal/infra/db/scylla"
	"talentsync/internal/infra/delivery"
	"talentsync/internal/infra/feed"
	ginserver "talentsync/internal/infra/http/gin"
	"talentsync/internal/infra/inbox"
	"talentsync/internal/infra/obs"
	"talentsync/internal/infra/outbox"
	"talentsync/internal/infra/security"
	"talentsync/internal/infra/storage/memory"
	"talentsync/internal/infra/storage/s3"
	"talentsync/internal/infra/ws"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	env := getenv("APP_ENV", "dev")
	logger := obs.NewLogger(env)

	cfg, err := config.Load()
	if err != nil {
		logger.Warn("using fallback configuration", "error", err)
		cfg.Env = env
		cfg.HTTPAddr = getenv("HTTP_ADDR", ":8080")
		cfg.StorageMode = "memory"
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	app, err := buildApplication(logger, cfg)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{
		Ready: app.ready,
	}, app.handlers)

	for _, run := range app.runners {
		go run(ctx)
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
		app.typing.Shutdown()
		for _, closeFn := range app.closers {
			if err := closeFn(); err != nil {
				logger.Warn("shutdown cleanup failed", "error", err)
			}
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage_mode", cfg.StorageMode)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

type application struct {
	handlers ginserver.Handlers
	typing   *apptyping.Coordinator
	ready    func() error
	runners  []func(context.Context)
	closers  []func() error
}

// backends bundles everything the services need that varies with STORAGE_MODE.
type backends struct {
	Users         domainuser.Repository
	Sessions      domainauth.SessionStore
	Conversations domainconv.Repository
	Messages      domainmsg.Store
	Profiles      domainprofile.Repository
	Notifications domainnotif.Repository
	Preferences   domainnotif.PreferenceStore
	Typing        domaintyping.Store
	Idempotency   idempotency.Store
	Feed          appfeed.Bus
	Outbox        appoutbox.Outbox
	Uploader      s3.Uploader

	ready   func() error
	runners []func(context.Context)
	closers []func() error
}

func buildApplication(logger *slog.Logger, cfg config.Config) (application, error) {
	var (
		b   backends
		err error
	)
	if cfg.StorageMode == "memory" {
		b = buildMemoryBackends(logger)
	} else {
		b, err = buildExternalBackends(logger, cfg)
		if err != nil {
			return application{}, err
		}
	}

	encoder := appoutbox.JSONEventEncoder{}

	authService := &authsvc.Service{
		Users:      b.Users,
		Sessions:   b.Sessions,
		Passwords:  security.BcryptHasher{},
		Tokens:     security.RandomTokenGenerator{},
		SessionTTL: cfg.SessionTTL,
		Logger:     logger,
	}

	conversationService := &conversations.Service{
		Conversations: b.Conversations,
		Feed:          b.Feed,
		Outbox:        b.Outbox,
		Encoder:       encoder,
		Logger:        logger,
	}

	messageService := &messages.Service{
		Messages:      b.Messages,
		Conversations: conversationService,
		Idempotency:   b.Idempotency,
		Feed:          b.Feed,
		Outbox:        b.Outbox,
		Encoder:       encoder,
		Logger:        logger,
	}

	typingCoordinator := &apptyping.Coordinator{
		Store:         b.Typing,
		Conversations: conversationService,
		Feed:          b.Feed,
		Logger:        logger,
		TTL:           cfg.TypingTTL,
		IdleWindow:    cfg.TypingIdleWindow,
	}

	profileCache := &profilecache.Cache{
		Profiles: b.Profiles,
		Logger:   logger,
		TTL:      cfg.ProfileCacheTTL,
	}

	dispatcher := &notifications.Dispatcher{
		Notifications: b.Notifications,
		Preferences:   b.Preferences,
		Feed:          b.Feed,
		Outbox:        b.Outbox,
		Encoder:       encoder,
		Logger:        logger,
	}

	hub := ws.NewHub(b.Feed, logger, func(ctx context.Context, userID string, cmd ws.Command) {
		switch cmd.Action {
		case ws.ActionTypingStart:
			if err := typingCoordinator.Signal(ctx, domainconv.ID(cmd.ConversationID), domainuser.ID(userID)); err != nil {
				logger.Debug("typing signal rejected", "user_id", userID, "error", err)
			}
		case ws.ActionTypingStop:
			if err := typingCoordinator.Stop(ctx, domainconv.ID(cmd.ConversationID), domainuser.ID(userID)); err != nil {
				logger.Debug("typing stop rejected", "user_id", userID, "error", err)
			}
		}
	})

	app := application{
		typing:  typingCoordinator,
		ready:   b.ready,
		runners: b.runners,
		closers: b.closers,
		handlers: ginserver.Handlers{
			Auth:         ginserver.AuthHandler{Service: authService, Logger: logger},
			Conversation: ginserver.ConversationHandler{Service: conversationService, Logger: logger},
			Message:      ginserver.MessageHandler{Service: messageService, Logger: logger},
			Typing:       ginserver.TypingHandler{Coordinator: typingCoordinator, Store: b.Typing, Logger: logger},
			Profile:      ginserver.ProfileHandler{Cache: profileCache, Logger: logger},
			Notification: ginserver.NotificationHandler{Dispatcher: dispatcher, Preferences: b.Preferences, Logger: logger},
			Upload:       ginserver.UploadHandler{Uploader: b.Uploader, Logger: logger},
			Feed:         ginserver.FeedHandler{Hub: hub, Logger: logger},
			AuthMiddleware: ginserver.AuthMiddleware{
				Service: authService,
				Logger:  logger,
			}.Handle,
		},
	}

	// Push invalidation. Profile rows changed on any node drop the local
	// cache entry through the shared feed.
	app.runners = append(app.runners, func(ctx context.Context) {
		sub := b.Feed.Subscribe(appfeed.Filter{Tables: []string{appfeed.TableProfiles}})
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub.C:
				if !ok {
					return
				}
				profileCache.Observe(ev)
			}
		}
	})

	if app.ready == nil {
		app.ready = func() error { return nil }
	}
	return app, nil
}

func buildMemoryBackends(logger *slog.Logger) backends {
	return backends{
		Users:         memory.NewUserRepository(),
		Sessions:      memory.NewSessionStore(),
		Conversations: memory.NewConversationRepository(),
		Messages:      memory.NewMessageStore(),
		Profiles:      memory.NewProfileRepository(),
		Notifications: memory.NewNotificationRepository(),
		Preferences:   memory.NewPreferenceStore(),
		Typing:        memory.NewTypingStore(),
		Idempotency:   memory.NewIdempotencyStore(),
		Feed:          memory.NewFeedBus(),
		Outbox:        memory.NewOutbox(),
		Uploader:      s3.NoopUploader{},
	}
}

func buildExternalBackends(logger *slog.Logger, cfg config.Config) (backends, error) {
	client, err := mongodb.New(cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return backends{}, err
	}

	session, err := scylla.NewSession(cfg, logger)
	if err != nil {
		return backends{}, err
	}

	redisClient := goredis.NewClient(&goredis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	bus := &feed.RedisBus{Client: redisClient, Logger: logger}

	producer, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
	if err != nil {
		return backends{}, err
	}

	outboxStore := outbox.NewStore(client.DB)
	outboxWorker := &outbox.Worker{
		Store:       outboxStore,
		Producer:    producer,
		Logger:      logger,
		Interval:    cfg.OutboxPollInterval,
		TopicPrefix: cfg.KafkaTopicPrefix,
		Backoff:     cfg.RetryBackoff,
	}

	deliveryWorker := &delivery.Worker{
		Gateways: deliveryGateways(cfg),
		Inbox:    inbox.NewStore(client.DB, cfg.KafkaGroupID),
		Logger:   logger,
	}
	consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, nil, deliveryWorker)
	if err != nil {
		return backends{}, err
	}
	consumer.Logger = logger
	notificationTopic := cfg.KafkaTopicPrefix + "notification.events.v1"

	uploader, err := s3.NewClient(s3.Config{
		Endpoint:       cfg.S3Endpoint,
		UseSSL:         cfg.S3UseSSL,
		AccessKey:      cfg.S3AccessKey,
		SecretKey:      cfg.S3SecretKey,
		Bucket:         cfg.S3Bucket,
		PublicEndpoint: cfg.S3PublicEndpoint,
	}, logger)
	if err != nil {
		return backends{}, err
	}

	b := backends{
		Users:         mongodb.NewUserRepository(client.DB),
		Sessions:      mongodb.NewSessionStore(client.DB),
		Conversations: mongodb.NewConversationRepository(client.DB),
		Messages:      scylla.NewMessageStore(session, logger),
		Profiles:      mongodb.NewProfileRepository(client.DB),
		Notifications: mongodb.NewNotificationRepository(client.DB),
		Preferences:   mongodb.NewPreferenceStore(client.DB),
		Typing:        &redisdb.TypingStore{Client: redisClient},
		Idempotency:   mongodb.NewIdempotencyStore(client.DB),
		Feed:          bus,
		Outbox:        outboxStore,
		Uploader:      uploader,
		ready: func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return client.Ping(pingCtx)
		},
	}

	b.runners = append(b.runners,
		func(ctx context.Context) {
			if err := bus.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("feed bus stopped", "error", err)
			}
		},
		func(ctx context.Context) {
			if err := outboxWorker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("outbox worker stopped", "error", err)
			}
		},
		func(ctx context.Context) {
			if err := consumer.Run(ctx, []string{notificationTopic}); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("delivery consumer stopped", "error", err)
			}
		},
	)

	b.closers = append(b.closers,
		producer.Close,
		consumer.Close,
		redisClient.Close,
		func() error { session.Close(); return nil },
	)

	return b, nil
}

func deliveryGateways(cfg config.Config) map[domainnotif.Channel]delivery.Gateway {
	gateways := make(map[domainnotif.Channel]delivery.Gateway)
	if cfg.PushGatewayURL != "" {
		gateways[domainnotif.ChannelPush] = &delivery.HTTPGateway{Endpoint: cfg.PushGatewayURL, Channel: domainnotif.ChannelPush}
	}
	if cfg.EmailGatewayURL != "" {
		gateways[domainnotif.ChannelEmail] = &delivery.HTTPGateway{Endpoint: cfg.EmailGatewayURL, Channel: domainnotif.ChannelEmail}
	}
	return gateways
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
