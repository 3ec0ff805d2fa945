// Package feedpulse implements the client-side state engine behind a social
// feed and direct-messaging surface.
package feedpulse

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the engine's timing knobs and the optional local archive
// location. Durations are stored as milliseconds so the YAML form stays
// plain integers.
type Config struct {
	// DeliveryDelayMs is the simulated transport delay before an outbound
	// message is marked delivered.
	DeliveryDelayMs int `yaml:"deliveryDelayMs"`

	// TypingWindowMs is the debounce window of the typing indicator.
	TypingWindowMs int `yaml:"typingWindowMs"`

	// IncomingIntervalMs is the period of the simulated inbound-message
	// effect.
	IncomingIntervalMs int `yaml:"incomingIntervalMs"`

	Archive ArchiveConfig `yaml:"archive"`
}

// ArchiveConfig locates the local session archive.
type ArchiveConfig struct {
	// DBPath is the SQLite file backing the archive. Empty disables
	// archiving.
	DBPath string `yaml:"dbPath"`
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	return Config{
		DeliveryDelayMs:    1500,
		TypingWindowMs:     1000,
		IncomingIntervalMs: 15000,
		Archive:            ArchiveConfig{DBPath: ""},
	}
}

// DeliveryDelay returns the simulated delivery delay as a duration.
func (c Config) DeliveryDelay() time.Duration {
	return time.Duration(c.DeliveryDelayMs) * time.Millisecond
}

// TypingWindow returns the typing debounce window as a duration.
func (c Config) TypingWindow() time.Duration {
	return time.Duration(c.TypingWindowMs) * time.Millisecond
}

// IncomingInterval returns the inbound-simulation period as a duration.
func (c Config) IncomingInterval() time.Duration {
	return time.Duration(c.IncomingIntervalMs) * time.Millisecond
}

// LoadConfig reads YAML config from path.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// SaveConfig writes YAML config to path, creating directories as needed.
func SaveConfig(path string, cfg Config) error {
	if path == "" {
		return errors.New("empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
