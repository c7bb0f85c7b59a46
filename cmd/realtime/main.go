package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/Harishreddyyarramada/novawrite-realtime/internal/api"
	"github.com/Harishreddyyarramada/novawrite-realtime/internal/chat"
	"github.com/Harishreddyyarramada/novawrite-realtime/internal/config"
	"github.com/Harishreddyyarramada/novawrite-realtime/internal/events"
	"github.com/Harishreddyyarramada/novawrite-realtime/internal/handlers"
	"github.com/Harishreddyyarramada/novawrite-realtime/internal/logger"
	"github.com/Harishreddyyarramada/novawrite-realtime/internal/media"
	"github.com/Harishreddyyarramada/novawrite-realtime/internal/middleware"
	"github.com/Harishreddyyarramada/novawrite-realtime/internal/repository"
	"github.com/Harishreddyyarramada/novawrite-realtime/internal/ws"
)

func main() {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}
	if cfg.App.JWTSecret == "" {
		log.Fatal("app.jwt_secret is required")
	}

	lg, err := logger.New(logger.Config{Development: cfg.App.Env != "production"})
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	mongoClient, err := repository.NewMongoClient(cfg.Mongo.URI)
	if err != nil {
		lg.Fatalw("mongo connect", "err", err)
	}
	db := mongoClient.Database(cfg.Mongo.Database)
	if err := repository.EnsureIndexes(context.Background(), db); err != nil {
		lg.Fatalw("mongo indexes", "err", err)
	}

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	convRepo := repository.NewConversationRepository(db)
	msgRepo := repository.NewMessageRepository(db)

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Pass,
			DB:       cfg.Redis.DB,
		})
	}
	limiter := middleware.NewRateLimiter(redisClient, cfg.Redis.Prefix+":send", cfg.Chat.SendRateLimit, cfg.SendRateWindow)

	var publisher chat.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.TopicMessageSent != "" {
		producer := events.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicMessageSent)
		defer func() { _ = producer.Close() }()
		publisher = producer
	}

	var mediaStore handlers.MediaStore
	if cfg.S3.Bucket != "" {
		store, err := media.NewStore(context.Background(), cfg.S3.Region, cfg.S3.Bucket, cfg.S3.KeyPrefix, cfg.S3.PublicRead)
		if err != nil {
			lg.Fatalw("s3 init", "err", err)
		}
		mediaStore = store
	}

	wsSrv := ws.NewServer(ws.Options{
		JWTSecret:      cfg.App.JWTSecret,
		TypingExpiry:   cfg.TypingExpiry,
		PingInterval:   cfg.PingInterval,
		WriteDeadline:  cfg.WriteDeadline,
		MaxMessageSize: cfg.WS.MaxMessageSizeBytes,
	}, userRepo, postRepo, lg)

	chatSvc := chat.NewService(convRepo, msgRepo, userRepo, wsSrv, wsSrv, publisher, cfg.Chat.MaxTextLength, lg)
	chatHandler := handlers.NewChatHandler(chatSvc, mediaStore, cfg.Chat.MaxUploadBytes, lg)

	app := api.NewServer(cfg, wsSrv, chatHandler, limiter)

	errs := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.App.Port)
		lg.Infow("starting realtime service", "addr", addr)
		errs <- app.Listen(addr)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case e := <-errs:
		lg.Fatalw("server error", "err", e)
	case s := <-sig:
		lg.Infow("signal received", "signal", s.String())
	}

	if err := app.Shutdown(); err != nil {
		lg.Warnw("fiber shutdown", "err", err)
	}
	if err := mongoClient.Disconnect(context.Background()); err != nil {
		lg.Warnw("mongo disconnect", "err", err)
	}
	lg.Info("shutting down")
}
