package feedpulse

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDefaultConfig tests the default timing knobs
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 1500*time.Millisecond, cfg.DeliveryDelay())
	assert.Equal(t, time.Second, cfg.TypingWindow())
	assert.Equal(t, 15*time.Second, cfg.IncomingInterval())
	assert.Empty(t, cfg.Archive.DBPath)
}

// TestConfigRoundTrip tests YAML save and load
func TestConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "feedpulse.yaml")

	cfg := Config{
		DeliveryDelayMs:    250,
		TypingWindowMs:     750,
		IncomingIntervalMs: 5000,
		Archive:            ArchiveConfig{DBPath: "./session.db"},
	}

	err := SaveConfig(path, cfg)
	require.NoError(t, err)

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
	assert.Equal(t, 250*time.Millisecond, loaded.DeliveryDelay())
}

// TestLoadConfigMissing tests the error path for an absent file
func TestLoadConfigMissing(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
	assert.True(t, os.IsNotExist(err))
}

// TestSaveConfigEmptyPath tests the empty-path guard
func TestSaveConfigEmptyPath(t *testing.T) {
	err := SaveConfig("", DefaultConfig())
	assert.Error(t, err)
}
