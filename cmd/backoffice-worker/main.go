package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"backoffice/internal/amqp"
	"backoffice/internal/cli"
	"backoffice/internal/config"
	"backoffice/internal/log"
	"backoffice/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	logger.Info("Starting backoffice-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if err := run(logger, cfg); err != nil {
		logger.Error("Worker failed", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker stopped")
}

// run owns every resource the worker opens, so they are released before main
// decides the exit code.
func run(logger *log.Logger, cfg *config.Config) error {
	if cfg.DataBackend == "remote" {
		return fmt.Errorf("the worker needs a local data backend, got %q", cfg.DataBackend)
	}
	if cfg.AMQPURL == "" {
		return errors.New("AMQP_URL is required to consume order messages")
	}

	result := cli.InitBackend(context.Background(), logger, cfg, false)
	defer result.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return fmt.Errorf("initialize AMQP client: %w", err)
	}
	defer amqpClient.Close()

	w := worker.NewOrderWorker(result.Processor, cfg.OrderSweepInterval, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	// Pick up orders whose message was lost while the worker was down
	if err := w.StartupCheck(ctx); err != nil {
		logger.Error("Failed startup order check", log.FieldError, err)
	}

	if err := w.Run(ctx, amqpClient); err != nil {
		return fmt.Errorf("consume order messages: %w", err)
	}

	cli.WaitForShutdown(ctx, done)
	return nil
}
