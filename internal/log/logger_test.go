package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		" warn ":  slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestJSONLoggerStampsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Format: "json", Output: &buf}).
		WithComponent(ComponentService)

	logger.Info("Transaction saved", FieldTransactionID, int64(3))
	logger.Debug("hidden")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "Transaction saved", rec["msg"])
	assert.Equal(t, ComponentService, rec[FieldComponent])
	assert.EqualValues(t, 3, rec[FieldTransactionID])
}

func TestContextRoundTrip(t *testing.T) {
	logger := New(Config{Format: "text", Output: &bytes.Buffer{}, Component: ComponentHTTP})
	ctx := NewContext(context.Background(), logger)

	assert.Same(t, logger, FromContext(ctx))
	assert.Equal(t, ComponentApp, FromContext(context.Background()).Component())
}

func TestFieldsBuilder(t *testing.T) {
	f := NewFields().
		WithTransaction(0, "INCOME", "1000.00").
		WithError(nil).
		WithError(errors.New("boom")).
		WithRequestID("")

	assert.NotContains(t, f, FieldTransactionID)
	assert.NotContains(t, f, FieldRequestID)
	assert.Equal(t, "INCOME", f[FieldType])
	assert.Equal(t, "boom", f[FieldError])
	assert.Len(t, f.ToSlice(), 2*len(f))
}

func TestLevelForStatus(t *testing.T) {
	assert.Equal(t, slog.LevelInfo, LevelForStatus(204))
	assert.Equal(t, slog.LevelWarn, LevelForStatus(400))
	assert.Equal(t, slog.LevelError, LevelForStatus(500))
}
