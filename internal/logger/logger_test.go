package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_FileOutput(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "kaiwa.log")

	log, err := New(Config{Level: "debug", File: logFile})
	require.NoError(t, err)

	zl := log.GetZerolog()
	zl.Info().Str("key", "value").Msg("hello from test")
	require.NoError(t, log.Close())

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello from test")
	assert.Contains(t, string(data), `"key":"value"`)
}

func TestNew_InvalidLevelFallsBackToInfo(t *testing.T) {
	log, err := New(Config{Level: "chatty", Console: true})
	require.NoError(t, err)
	defer log.Close()

	assert.Equal(t, "info", log.GetZerolog().GetLevel().String())
}

func TestNew_LevelFiltering(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "kaiwa.log")

	log, err := New(Config{Level: "warn", File: logFile})
	require.NoError(t, err)

	zl := log.GetZerolog()
	zl.Info().Msg("filtered out")
	zl.Warn().Msg("kept")
	require.NoError(t, log.Close())

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "filtered out")
	assert.True(t, strings.Contains(string(data), "kept"))
}

func TestClose_NoFileIsNoop(t *testing.T) {
	log, err := New(Config{Level: "info", Console: true})
	require.NoError(t, err)
	assert.NoError(t, log.Close())
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "info", cfg.Level)
	assert.True(t, cfg.Console)
}
