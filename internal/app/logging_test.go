package app

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestConfigureLogger_TextToStdout(t *testing.T) {
	logger := log.New()
	var out bytes.Buffer

	cfg := DefaultConfig()
	cfg.LogLevel = "debug"

	closer, err := configureLogger(logger, cfg, &out)
	require.NoError(t, err)
	require.NoError(t, closer.Close())

	logger.WithField("component", "test").Debug("hello")
	require.Equal(t, log.DebugLevel, logger.GetLevel())
	require.Contains(t, out.String(), "hello")
	require.Contains(t, out.String(), "component=test")
}

func TestConfigureLogger_JSON(t *testing.T) {
	logger := log.New()
	var out bytes.Buffer

	cfg := DefaultConfig()
	cfg.LogFormat = "json"

	_, err := configureLogger(logger, cfg, &out)
	require.NoError(t, err)

	logger.Info("ready")
	var entry map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &entry))
	require.Equal(t, "ready", entry["msg"])
	require.Equal(t, "info", entry["level"])
}

func TestConfigureLogger_RotatingFile(t *testing.T) {
	logger := log.New()
	var out bytes.Buffer

	cfg := DefaultConfig()
	cfg.LogFile = filepath.Join(t.TempDir(), "pos.log")

	closer, err := configureLogger(logger, cfg, &out)
	require.NoError(t, err)

	logger.Warn("to both")
	require.NoError(t, closer.Close())

	raw, err := os.ReadFile(cfg.LogFile)
	require.NoError(t, err)
	require.Contains(t, string(raw), "to both")
	require.Contains(t, out.String(), "to both")
}

func TestConfigureLogger_BadLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogLevel = "verbose"

	_, err := configureLogger(log.New(), cfg, &bytes.Buffer{})
	require.Error(t, err)
}
