package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"fintrack/internal/amqp"
	"fintrack/internal/cli"
	"fintrack/internal/log"
	gsheet "fintrack/internal/sheets/google"
	"fintrack/internal/worker"
)

func workerCmd() *cobra.Command {
	var skipBackfill bool

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Mirror transactions to Google Sheets",
		Long: `Consume transaction events from AMQP and keep a Google Sheets copy of the
transaction table. Every stored transaction is mirrored once at startup unless
--skip-backfill is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWorker(cmd.Context(), skipBackfill)
		},
	}
	cmd.Flags().BoolVar(&skipBackfill, "skip-backfill", false, "do not mirror existing transactions at startup")
	return cmd
}

func runWorker(ctx context.Context, skipBackfill bool) error {
	cfg, logger, err := cli.LoadAndValidateConfig()
	if err != nil {
		return fmt.Errorf("configuration: %w", err)
	}
	if err := cfg.ValidateMirror(); err != nil {
		return fmt.Errorf("configuration: %w", err)
	}
	logger = logger.WithComponent(log.ComponentWorker)

	store, err := cli.OpenStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	creds, err := cfg.ServiceAccountCredentials()
	if err != nil {
		return err
	}
	mirror, err := gsheet.New(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName, creds)
	if err != nil {
		return err
	}
	if err := mirror.EnsureHeader(ctx); err != nil {
		return err
	}

	w := worker.NewMirrorWorker(store.Store, mirror, logger)
	if !skipBackfill {
		// A failed backfill is retried on the next start; events still flow.
		if _, err := w.Backfill(ctx, store.Store); err != nil {
			logger.Error("Startup backfill failed", log.FieldError, err)
		}
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return fmt.Errorf("connect to AMQP: %w", err)
	}
	defer client.Close()

	logger.Info("Mirror worker started",
		"queue", cfg.AMQPQueue,
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheet", cfg.GoogleSheetName)

	err = client.ConsumeEvents(ctx, w.HandleEvent)
	if errors.Is(err, context.Canceled) {
		logger.Info("Mirror worker stopped")
		return nil
	}
	return err
}
