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

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"

	appoutbox "rentmechat/internal/app/outbox"
	"rentmechat/internal/app/policies"
	"rentmechat/internal/app/schedule"
	"rentmechat/internal/infra/broker/kafka"
	"rentmechat/internal/infra/config"
	mongostore "rentmechat/internal/infra/db/mongo"
	ginserver "rentmechat/internal/infra/http/gin"
	"rentmechat/internal/infra/obs"
	infraoutbox "rentmechat/internal/infra/outbox"
	"rentmechat/internal/infra/storage/memory"
)

func main() {
	_ = godotenv.Load(".env")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadStub()
	if err != nil {
		obs.NewLogger(os.Getenv("APP_ENV"), os.Stderr).Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLoggerLevel(cfg.Env, os.Stdout, obs.ParseLevel(cfg.LogLevel))

	store, db, ready, closeStore, err := buildStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("chat store init failed", "store", cfg.Store, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	publisher, closeBroker, err := buildPublisher(cfg, logger)
	if err != nil {
		logger.Error("kafka producer init failed", "brokers", cfg.KafkaBrokers, "error", err)
		os.Exit(1)
	}
	defer closeBroker()

	var chatEvents policies.EventPublisher
	switch {
	case publisher == nil:
	case db != nil:
		box, err := infraoutbox.NewStore(ctx, db)
		if err != nil {
			logger.Error("outbox init failed", "error", err)
			os.Exit(1)
		}
		relay := &appoutbox.Relay{
			Queue:    box,
			Sink:     publisher,
			WorkerID: "chatstub-" + uuid.NewString()[:8],
			Logger:   logger,
		}
		relayHandle := schedule.Start(ctx, schedule.Interval{Every: cfg.OutboxInterval}, relay.Drain)
		defer relayHandle.Stop()
		chatEvents = appoutbox.Recorder{Store: box}
		logger.Info("outbox relay started", "interval", cfg.OutboxInterval)
	default:
		chatEvents = publisher
	}

	handler := &ginserver.ChatHandler{
		Store:  store,
		Events: chatEvents,
		Logger: logger,
	}
	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{Ready: ready}, handler)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("chat stub starting", "addr", cfg.HTTPAddr, "store", cfg.Store, "kafka", len(cfg.KafkaBrokers) > 0)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("chat stub stopped")
}

func buildStore(ctx context.Context, cfg config.Stub, logger *slog.Logger) (policies.ChatStore, *mongo.Database, func(context.Context) error, func(), error) {
	if cfg.Store != "mongo" {
		return memory.NewChatStore(), nil, nil, func() {}, nil
	}
	client, err := mongostore.New(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	closeFn := func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Close(closeCtx); err != nil {
			logger.Warn("mongo disconnect failed", "error", err)
		}
	}
	store, err := mongostore.NewChatStore(ctx, client.DB)
	if err != nil {
		closeFn()
		return nil, nil, nil, nil, err
	}
	logger.Info("mongo chat store ready", "database", cfg.MongoDB)
	return store, client.DB, client.Ping, closeFn, nil
}

func buildPublisher(cfg config.Stub, logger *slog.Logger) (*kafka.EventPublisher, func(), error) {
	if len(cfg.KafkaBrokers) == 0 {
		return nil, func() {}, nil
	}
	producer, err := kafka.NewProducer(cfg.KafkaBrokers, "rentme-chat-stub")
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := producer.Close(); err != nil {
			logger.Warn("kafka producer close failed", "error", err)
		}
	}
	return &kafka.EventPublisher{
		Producer:    producer,
		TopicPrefix: cfg.KafkaTopicPrefix,
		Logger:      logger,
	}, closeFn, nil
}
