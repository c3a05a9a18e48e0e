package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/shopeazy-backend/pkg/amqp"
	"github.com/angelmondragon/shopeazy-backend/pkg/config"
	"github.com/angelmondragon/shopeazy-backend/pkg/db"
	"github.com/angelmondragon/shopeazy-backend/pkg/kafka"
	"github.com/angelmondragon/shopeazy-backend/pkg/instance"
	"github.com/angelmondragon/shopeazy-backend/pkg/logger"
	"github.com/angelmondragon/shopeazy-backend/pkg/outbox"
	"github.com/angelmondragon/shopeazy-backend/pkg/outbox/registry"
	"github.com/angelmondragon/shopeazy-backend/pkg/pubsub"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "outbox-publisher"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "outbox-publisher"

	logg = logger.New(logger.Options{
		ServiceName: "outbox-publisher",
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	topics, err := cfg.TopicsFor(cfg.Outbox.Broker)
	if err != nil {
		logg.Error(ctx, "failed to resolve broker topics", err)
		os.Exit(1)
	}
	eventRegistry, err := registry.NewEventRegistry(topics)
	if err != nil {
		logg.Error(ctx, "failed to build event registry", err)
		os.Exit(1)
	}

	publisher, err := newPublisher(ctx, cfg, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap broker", err)
		os.Exit(1)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logg.Error(context.Background(), "error closing broker publisher", err)
		}
	}()

	service, err := NewService(ServiceParams{
		Config:     cfg.Outbox,
		Logger:     logg,
		DB:         dbClient,
		Publisher:  publisher,
		Repository: outbox.NewRepository(dbClient.DB()),
		Registry:   eventRegistry,
	})
	if err != nil {
		logg.Error(ctx, "failed to create outbox publisher", err)
		os.Exit(1)
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"broker":      cfg.Outbox.Broker,
		"instance":    instance.GetID(),
	})
	logg.Info(ctx, "starting outbox publisher")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "outbox publisher stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "outbox publisher shutting down gracefully")
}

func newPublisher(ctx context.Context, cfg *config.Config, logg *logger.Logger) (outbox.Publisher, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Outbox.Broker)) {
	case config.BrokerKafka:
		pub, err := kafka.NewPublisher(cfg.Kafka)
		if err != nil {
			return nil, err
		}
		return pub, nil
	case config.BrokerPubSub:
		client, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			return nil, err
		}
		return client, nil
	case config.BrokerAMQP:
		pub, err := amqp.NewPublisher(cfg.AMQP)
		if err != nil {
			return nil, err
		}
		return pub, nil
	}
	return nil, fmt.Errorf("unsupported broker %q", cfg.Outbox.Broker)
}
