package logging

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/issuedesk/apiserver/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		in   string
		dev  bool
		want zapcore.Level
	}{
		{"debug", false, zapcore.DebugLevel},
		{"INFO", false, zapcore.InfoLevel},
		{"warning", false, zapcore.WarnLevel},
		{"error", true, zapcore.ErrorLevel},
		{"", true, zapcore.DebugLevel},
		{"", false, zapcore.InfoLevel},
		{"verbose", false, zapcore.InfoLevel},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, levelFromString(tc.in, tc.dev), "level %q dev=%v", tc.in, tc.dev)
	}
}

func TestNew_WritesRotatingFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "logs", "issuedesk.log")

	logger, err := New(config.LogConfig{
		Level:       "info",
		File:        file,
		MaxAge:      time.Hour,
		RotateEvery: time.Hour,
	})
	require.NoError(t, err)

	logger.Info("issue created", zap.String("id", "abc"))
	_ = logger.Sync()

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"issue created"`)
	assert.Contains(t, string(data), `"id":"abc"`)
}

func TestNew_DevConsole(t *testing.T) {
	logger, err := New(config.LogConfig{Dev: true})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}
