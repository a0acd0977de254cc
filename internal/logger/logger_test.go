package logger

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/galaxy-explorer/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestInitWritesFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Init(&config.LogConfig{
		Level:  "debug",
		Format: "json",
		Output: "file",
		File: config.LogFileConfig{
			Path:     dir,
			Filename: "galaxy.log",
			MaxSize:  1,
		},
		Modules: map[string]string{"websocket": "warn"},
	}))
	t.Cleanup(Cleanup)

	assert.Equal(t, zapcore.DebugLevel, Level())
	assert.NotNil(t, GetModuleLogger("websocket"))
	assert.NotNil(t, GetModuleLogger("game"))

	LogGameEvent("travel", "u1", map[string]interface{}{"body_id": "mars"})
	LogRequest("GET", "/health", 200, time.Millisecond, "127.0.0.1")
	Error("save failed", zap.Error(errors.New("boom")))
	LogDatabaseOperation("upsert", "game_snapshots", time.Millisecond, nil)
	_ = Sync()

	data, err := os.ReadFile(filepath.Join(dir, "galaxy.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "travel")
	assert.Contains(t, string(data), "/health")

	errData, err := os.ReadFile(filepath.Join(dir, "error.log"))
	require.NoError(t, err)
	assert.Contains(t, string(errData), "save failed")
	assert.NotContains(t, string(errData), "/health")

	SetLevel("error")
	assert.Equal(t, zapcore.ErrorLevel, Level())
}
