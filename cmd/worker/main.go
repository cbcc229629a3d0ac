package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cashflow/payment-lifecycle/internal/adapter/secondary/cache"
	"github.com/cashflow/payment-lifecycle/internal/adapter/secondary/messaging"
	"github.com/cashflow/payment-lifecycle/internal/adapter/secondary/notification"
	"github.com/cashflow/payment-lifecycle/internal/config"
	"github.com/cashflow/payment-lifecycle/internal/core/service"
	"github.com/cashflow/payment-lifecycle/internal/logging"
	"github.com/cashflow/payment-lifecycle/internal/port/input"
	"github.com/cashflow/payment-lifecycle/internal/port/output"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat).With("service", "payment-notifier")

	if err := run(cfg, log); err != nil {
		log.Error("notification worker stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Optional dedupe; without Redis every redelivery is notified again
	var dedupe output.EventDeduplicator
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		dedupe = cache.NewRedisDeduplicator(rdb, cfg.DedupeTTL)
		log.Info("notification dedupe enabled", "redis", cfg.RedisAddr, "ttl", cfg.DedupeTTL)
	}

	dispatcher := service.NewNotificationDispatcher(log, notification.NewLogNotifier(log), dedupe)

	if cfg.EventTransport == config.TransportKafka {
		return consumeKafka(ctx, cfg, log, dispatcher)
	}
	return consumeRabbitMQ(ctx, cfg, log, dispatcher)
}

func consumeKafka(ctx context.Context, cfg *config.Config, log *slog.Logger, handler input.LifecycleEventHandler) error {
	consumer := messaging.NewKafkaConsumer(log, cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID, handler)
	log.Info("notification worker started", "transport", config.TransportKafka)
	err := consumer.Run(ctx)
	log.Info("shutting down worker")
	return err
}

func consumeRabbitMQ(ctx context.Context, cfg *config.Config, log *slog.Logger, handler input.LifecycleEventHandler) error {
	// Initialize secondary adapter: Messaging (concrete type for worker)
	msgClient, err := messaging.NewRabbitMQClient(cfg.RabbitMQURL, log)
	if err != nil {
		return err
	}
	defer msgClient.Close()

	if err := msgClient.ConsumePaymentEvents(ctx, handler); err != nil {
		return fmt.Errorf("failed to start consuming events: %w", err)
	}
	log.Info("notification worker started", "transport", config.TransportRabbitMQ)

	<-ctx.Done()
	log.Info("shutting down worker")
	return nil
}
