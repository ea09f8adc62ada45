package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/config"
	"fintrack/internal/log"
)

func quietLogger() *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Output = io.Discard
	return log.New(cfg)
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("FINTRACK_TEST_VALUE=from-dotenv\n"), 0o600))
	t.Setenv("FINTRACK_TEST_VALUE", "")
	require.NoError(t, os.Unsetenv("FINTRACK_TEST_VALUE"))

	require.NoError(t, LoadEnvFile(filepath.Join(dir, "missing.env"), path))
	assert.Equal(t, "from-dotenv", os.Getenv("FINTRACK_TEST_VALUE"))
}

func TestOpenStoreMemory(t *testing.T) {
	cfg := config.Load()
	cfg.DataBackend = "memory"

	result, err := OpenStore(context.Background(), cfg, quietLogger())
	require.NoError(t, err)
	defer result.Close()

	all, err := result.Store.FindAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestRetryOptions(t *testing.T) {
	cfg := &config.Config{StoreRetryAttempts: 3, StoreRetryDelay: 250 * time.Millisecond}
	opts := RetryOptions(cfg)
	assert.Equal(t, 3, opts.Attempts)
	assert.Equal(t, 250*time.Millisecond, opts.InitialDelay)
}

func TestGracefulShutdownRunsEveryStep(t *testing.T) {
	var ran []string
	boom := errors.New("boom")

	err := GracefulShutdown(quietLogger(), time.Second,
		func(ctx context.Context) error { ran = append(ran, "server"); return boom },
		nil,
		func(ctx context.Context) error {
			_, ok := ctx.Deadline()
			assert.True(t, ok)
			ran = append(ran, "store")
			return nil
		},
	)

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"server", "store"}, ran)
}
