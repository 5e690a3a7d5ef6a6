// internal/logger/logger_test.go
package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observedLogger(t *testing.T) (*Logger, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	return &Logger{Logger: zap.New(core), config: DefaultConfig()}, logs
}

func TestNew_WritesLogFile(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogFile = filepath.Join(t.TempDir(), "bot.log")

	l, err := New(cfg)
	require.NoError(t, err)
	l.Info("hello")
	l.Sync()

	data, err := os.ReadFile(cfg.LogFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
}

func TestWithComponent(t *testing.T) {
	l, logs := observedLogger(t)

	l.WithComponent("trader").Info("ready")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "trader", entries[0].ContextMap()["component"])
}

func TestWithSignature_ChainsIntoOperation(t *testing.T) {
	l, logs := observedLogger(t)

	l.WithSignature("5sig").WithOperation("copy_trade").Info("handled")

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "5sig", fields["signature"])
	assert.Equal(t, "copy_trade", fields["operation"])
	assert.NotNil(t, fields["seen_at"])
	assert.NotNil(t, fields["start_time"])

	_, err := uuid.Parse(fields["correlation_id"].(string))
	assert.NoError(t, err, "correlation id is a valid uuid")
}

func TestWithOperation_FreshCorrelationIDPerCall(t *testing.T) {
	l, logs := observedLogger(t)

	l.WithOperation("swap").Info("first")
	l.WithOperation("swap").Info("second")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.NotEqual(t,
		entries[0].ContextMap()["correlation_id"],
		entries[1].ContextMap()["correlation_id"])
}
