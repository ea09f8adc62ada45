package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"fintrack/internal/amqp"
	"fintrack/internal/cli"
	apphttp "fintrack/internal/http"
	"fintrack/internal/log"
	"fintrack/internal/services"
)

const shutdownTimeout = 30 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve the transaction API on $PORT. Transaction events are published to
AMQP when AMQP_URL is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	cfg, logger, err := cli.LoadAndValidateConfig()
	if err != nil {
		return fmt.Errorf("configuration: %w", err)
	}

	store, err := cli.OpenStore(ctx, cfg, logger)
	if err != nil {
		return err
	}

	opts := []services.Option{
		services.WithRetry(cli.RetryOptions(cfg)),
		services.WithLogger(logger),
	}

	var (
		client    *amqp.Client
		publisher *amqp.AsyncPublisher
	)
	if cfg.AMQPURL != "" {
		client, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, transaction events disabled", log.FieldError, err)
		} else {
			publisher = amqp.NewAsyncPublisher(client, amqp.DefaultPublishBuffer)
			opts = append(opts, services.WithPublisher(publisher))
			logger.Info("Publishing transaction events", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	svc := services.NewTransactionService(store.Store, opts...)
	srv := apphttp.NewServer(apphttp.Config{
		Addr:               ":" + cfg.Port,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	}, svc, store.Store, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting fintrack server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errCh:
		if err != nil {
			serveErr = fmt.Errorf("http server: %w", err)
		}
	}

	shutdownErr := cli.GracefulShutdown(logger, shutdownTimeout,
		srv.Shutdown,
		func(ctx context.Context) error {
			if publisher == nil {
				return nil
			}
			return errors.Join(publisher.Close(ctx), client.Close())
		},
		func(context.Context) error { return store.Close() },
	)
	return errors.Join(serveErr, shutdownErr)
}
