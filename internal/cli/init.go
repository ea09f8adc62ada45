// Package cli provides the initialization steps shared by the fintrack
// subcommands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"

	"fintrack/internal/backend"
	"fintrack/internal/config"
	"fintrack/internal/log"
	"fintrack/internal/retry"
)

// LoadEnvFile loads .env files for local development. A missing file is not
// an error; a malformed one is.
func LoadEnvFile(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// LoadAndValidateConfig loads configuration from the environment and
// validates it, then installs the configured logger as the default.
func LoadAndValidateConfig() (*config.Config, *log.Logger, error) {
	cfg := config.Load()
	logger := log.Setup(cfg.LogLevel, cfg.LogFormat)
	if err := cfg.Validate(); err != nil {
		return nil, logger, err
	}
	return cfg, logger, nil
}

// OpenStore creates the storage gateway named by cfg.DataBackend.
func OpenStore(ctx context.Context, cfg *config.Config, logger *log.Logger) (*backend.BackendResult, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	result, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", bcfg.Type, err)
	}
	logger.WithComponent(log.ComponentBackend).InfoContext(ctx, "Store ready", "backend", bcfg.Type.String())
	return result, nil
}

// RetryOptions maps the store retry settings onto retry.Options.
func RetryOptions(cfg *config.Config) retry.Options {
	opts := retry.DefaultOptions()
	opts.Attempts = cfg.StoreRetryAttempts
	opts.InitialDelay = cfg.StoreRetryDelay
	return opts
}

// GracefulShutdown runs each step with a shared deadline. Every step runs
// even if an earlier one fails; the errors are joined.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, steps ...func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	logger.Info("Shutting down", log.FieldOperation, log.OpShutdown, "timeout", timeout.String())

	var errs []error
	for _, step := range steps {
		if step == nil {
			continue
		}
		if err := step(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		logger.Error("Shutdown finished with errors", log.FieldError, err)
		return err
	}
	logger.Info("Shutdown complete")
	return nil
}
