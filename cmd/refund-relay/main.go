// Command refund-relay consumes meeting denial decisions and refunds the
// meeting payment through Stripe.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"faceguard/internal/meeting/relay"
	"faceguard/internal/platform/config"
	"faceguard/internal/platform/kafka"
	"faceguard/internal/platform/logger"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Server.LogLevel)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("refund relay exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	if cfg.Stripe.SecretKey == "" {
		return errors.New("STRIPE_SECRET_KEY is required")
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consumer, err := kafka.NewConsumer(cfg.Kafka)
	if err != nil {
		return err
	}
	defer consumer.Close()

	log.Info("refund relay consuming",
		"topic", cfg.Kafka.DecisionTopic,
		"group", cfg.Kafka.ConsumerGroup,
	)
	return relay.New(consumer, relay.NewStripe(cfg.Stripe.SecretKey), relay.WithLogger(log)).Run(ctx)
}
