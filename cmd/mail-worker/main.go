package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"budgetwatch/internal/amqp"
	"budgetwatch/internal/cli"
	"budgetwatch/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger("mail-worker")
	cfg := cli.LoadAndValidateConfig(logger)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the mail worker")
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// No real mail transport wired up yet; deliveries land in the log.
	w := worker.NewMailWorker(worker.LogDeliverer{}, cfg.MailFrom)

	logger.Info("Mail worker started", "queue", cfg.AMQPQueue, "from", cfg.MailFrom)
	if err := w.Run(ctx, amqpClient); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Mail worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Mail worker stopped gracefully")
}
